// Package blobstore stores uploaded lab reports, scans and generated PDFs.
// Objects live under random keys and are addressed by a stable reference URL;
// callers hand out short-lived signed URLs rather than the reference itself.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrNotFound         = errors.New("blob not found")
	ErrUnknownRef       = errors.New("reference does not belong to this store")
	ErrInvalidExtension = errors.New("file type is not allowed")
	ErrMissingFileName  = errors.New("file name is required")
	ErrInvalidToken     = errors.New("signed URL is invalid or expired")
)

// ---------------------------------------------------------------------------
// Store interface
// ---------------------------------------------------------------------------

type Store interface {
	// Put writes data under key and returns its reference URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, ref string) ([]byte, string, error)
	SignedURL(ctx context.Context, ref string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, ref string) error
}

// ---------------------------------------------------------------------------
// Keys and content types
// ---------------------------------------------------------------------------

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// ContentType maps a file name to its MIME type by extension.
func ContentType(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ValidateFileName rejects names without an allowed extension.
func ValidateFileName(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return ErrMissingFileName
	}
	if _, ok := contentTypes[strings.ToLower(path.Ext(filename))]; !ok {
		return fmt.Errorf("%w: %s (allowed: .pdf, .png, .jpg, .jpeg)", ErrInvalidExtension, filename)
	}
	return nil
}

// NewKey returns "<uuid>_<base name>" so every upload gets a fresh object.
func NewKey(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.ReplaceAll(base, " ", "_")
	return uuid.New().String() + "_" + base
}

// Upload validates the file name and stores data under a fresh key.
func Upload(ctx context.Context, s Store, filename string, data []byte) (string, error) {
	if err := ValidateFileName(filename); err != nil {
		return "", err
	}
	return s.Put(ctx, NewKey(filename), data, ContentType(filename))
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
