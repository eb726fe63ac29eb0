package blobstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const memScheme = "mem://"

type memObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in process memory for development and tests.
// Signed URLs point at this server's /api/blobs/signed/:token route and carry
// an HS256 token naming the key.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
	baseURL string
	secret  []byte
	now     func() time.Time
}

func NewMemoryStore(baseURL string, secret []byte) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memObject),
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		now:     time.Now,
	}
}

func keyFromMemRef(ref string) (string, error) {
	if !strings.HasPrefix(ref, memScheme) || len(ref) == len(memScheme) {
		return "", fmt.Errorf("%w: %s", ErrUnknownRef, ref)
	}
	return strings.TrimPrefix(ref, memScheme), nil
}

func (s *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	s.objects[key] = memObject{data: cp, contentType: contentType}
	s.mu.Unlock()

	return memScheme + key, nil
}

func (s *MemoryStore) Get(_ context.Context, ref string) ([]byte, string, error) {
	key, err := keyFromMemRef(ref)
	if err != nil {
		return nil, "", err
	}

	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, "", ErrNotFound
	}
	return obj.data, obj.contentType, nil
}

func (s *MemoryStore) Delete(_ context.Context, ref string) error {
	key, err := keyFromMemRef(ref)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return ErrNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *MemoryStore) SignedURL(_ context.Context, ref string, ttl time.Duration) (string, error) {
	key, err := keyFromMemRef(ref)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   key,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign blob token: %w", err)
	}
	return s.baseURL + "/api/blobs/signed/" + url.PathEscape(token), nil
}

// Open validates a signed-URL token and returns the object it names.
func (s *MemoryStore) Open(ctx context.Context, token string) ([]byte, string, string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	data, ct, err := s.Get(ctx, memScheme+claims.Subject)
	if err != nil {
		return nil, "", "", err
	}
	return data, ct, claims.Subject, nil
}
