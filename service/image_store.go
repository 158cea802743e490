package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	model "github.com/Itish41/ContraCam/models"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
)

// ImageStore keeps page previews and returns the reference stored as a
// Document thumbnail. Delete takes a reference returned by Put.
type ImageStore interface {
	Put(ctx context.Context, docID string, page model.Page) (string, error)
	Delete(ctx context.Context, ref string) error
}

func previewKey(docID string, page model.Page) string {
	ext := page.Ext()
	if ext == "" {
		ext = "img"
	}
	return fmt.Sprintf("%s-%s.%s", docID, uuid.NewString(), ext)
}

// S3ImageStore uploads previews to an S3 compatible bucket.
type S3ImageStore struct {
	client    *s3.S3
	bucket    string
	publicURL string
}

type S3Options struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
	// DisableSSL is only meant for local endpoints.
	DisableSSL bool
}

func NewS3ImageStore(opts S3Options) (*S3ImageStore, error) {
	if opts.Region == "" || opts.AccessKey == "" || opts.SecretKey == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("missing required S3 configuration")
	}

	cfg := &aws.Config{
		Region:           aws.String(opts.Region),
		DisableSSL:       aws.Bool(opts.DisableSSL),
		Credentials:      credentials.NewStaticCredentials(opts.AccessKey, opts.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	}
	if opts.Endpoint != "" {
		cfg.Endpoint = aws.String(opts.Endpoint)
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	publicURL := opts.PublicURL
	if publicURL == "" {
		publicURL = opts.Endpoint
	}
	return &S3ImageStore{
		client:    s3.New(sess),
		bucket:    opts.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

func (s *S3ImageStore) Put(ctx context.Context, docID string, page model.Page) (string, error) {
	key := previewKey(docID, page)
	contentType := page.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(page.Data),
		ACL:         aws.String("public-read"),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload preview to S3: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, key), nil
}

func (s *S3ImageStore) Delete(ctx context.Context, ref string) error {
	prefix := fmt.Sprintf("%s/%s/", s.publicURL, s.bucket)
	key, ok := strings.CutPrefix(ref, prefix)
	if !ok || key == "" {
		return fmt.Errorf("preview %q is not in bucket %s", ref, s.bucket)
	}

	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete preview from S3: %w", err)
	}
	return nil
}

// LocalImageStore writes previews to a directory served under urlPrefix.
type LocalImageStore struct {
	dir       string
	urlPrefix string
}

func NewLocalImageStore(dir, urlPrefix string) (*LocalImageStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating preview directory: %w", err)
	}
	return &LocalImageStore{dir: dir, urlPrefix: urlPrefix}, nil
}

func (s *LocalImageStore) Put(ctx context.Context, docID string, page model.Page) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := previewKey(docID, page)
	if err := os.WriteFile(filepath.Join(s.dir, name), page.Data, 0644); err != nil {
		return "", fmt.Errorf("writing preview: %w", err)
	}
	return path.Join(s.urlPrefix, name), nil
}

func (s *LocalImageStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := path.Base(ref)
	if path.Join(s.urlPrefix, name) != ref {
		return fmt.Errorf("preview %q is not served from %s", ref, s.urlPrefix)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing preview: %w", err)
	}
	return nil
}
