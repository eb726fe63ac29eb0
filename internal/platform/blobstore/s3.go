package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// awsError matches request failures that carry an HTTP status.
type awsError interface {
	Error() string
	StatusCode() int
}

var sseAlgorithm = "AES256"

// S3Store keeps private objects in a single bucket. References have the form
// https://{bucket}.s3.{region}.amazonaws.com/{key}.
type S3Store struct {
	api     s3iface.S3API
	bucket  string
	region  string
	timeout time.Duration
}

func NewS3Store(sess *session.Session, bucket, region string, timeout time.Duration) *S3Store {
	return NewS3StoreWithAPI(s3.New(sess), bucket, region, timeout)
}

func NewS3StoreWithAPI(api s3iface.S3API, bucket, region string, timeout time.Duration) *S3Store {
	return &S3Store{api: api, bucket: bucket, region: region, timeout: timeout}
}

func (s *S3Store) ref(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// KeyFromRef extracts the object key from a reference URL of this bucket.
func (s *S3Store) KeyFromRef(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnknownRef, err)
	}
	if !strings.HasPrefix(u.Host, s.bucket+".s3.") || !strings.HasSuffix(u.Host, ".amazonaws.com") {
		return "", fmt.Errorf("%w: %s", ErrUnknownRef, ref)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", fmt.Errorf("%w: empty key in %s", ErrUnknownRef, ref)
	}
	return key, nil
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	size := int64(len(data))
	_, err := s.api.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(data),
		ContentLength:        &size,
		ContentType:          &contentType,
		ServerSideEncryption: &sseAlgorithm,
		ACL:                  aws.String(s3.ObjectCannedACLPrivate),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return s.ref(key), nil
}

func (s *S3Store) Get(ctx context.Context, ref string) ([]byte, string, error) {
	key, err := s.KeyFromRef(ref)
	if err != nil {
		return nil, "", err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	obj, err := s.api.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, "", fmt.Errorf("s3 read %s: %w", key, err)
	}
	return data, aws.StringValue(obj.ContentType), nil
}

func (s *S3Store) SignedURL(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	key, err := s.KeyFromRef(ref)
	if err != nil {
		return "", err
	}
	req, _ := s.api.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	req.SetContext(ctx)
	u, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("s3 presign %s: %w", key, err)
	}
	return u, nil
}

func (s *S3Store) Delete(ctx context.Context, ref string) error {
	key, err := s.KeyFromRef(ref)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, err = s.api.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	if e, ok := err.(awserr.Error); ok && e.Code() == s3.ErrCodeNoSuchKey {
		return true
	}
	if e, ok := err.(awsError); ok && e.StatusCode() == http.StatusNotFound {
		return true
	}
	return false
}
