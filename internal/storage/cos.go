package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/tencentyun/cos-go-sdk-v5"
)

// COSConfig holds Tencent Cloud COS connection settings.
type COSConfig struct {
	Bucket    string
	Region    string
	SecretID  string
	SecretKey string
	Domain    string
	Scheme    string
}

// COS stages dumps from Tencent Cloud object storage. Fetch downloads the
// object to a local file so the reader can map it.
type COS struct {
	client *cos.Client
}

// NewCOS creates a COS-backed storage.
func NewCOS(cfg *COSConfig) (*COS, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("bucket and region are required for cos storage")
	}
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("credentials are required for cos storage")
	}

	domain := cfg.Domain
	if domain == "" {
		domain = "myqcloud.com"
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}

	bucketURL, err := url.Parse(fmt.Sprintf("%s://%s.cos.%s.%s", scheme, cfg.Bucket, cfg.Region, domain))
	if err != nil {
		return nil, fmt.Errorf("failed to parse bucket URL: %w", err)
	}
	serviceURL, err := url.Parse(fmt.Sprintf("%s://cos.%s.%s", scheme, cfg.Region, domain))
	if err != nil {
		return nil, fmt.Errorf("failed to parse service URL: %w", err)
	}

	client := cos.NewClient(&cos.BaseURL{
		BucketURL:  bucketURL,
		ServiceURL: serviceURL,
	}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
		},
	})

	return &COS{client: client}, nil
}

// Fetch downloads the object at key to destPath and returns destPath.
func (s *COS) Fetch(ctx context.Context, key string, destPath string) (string, error) {
	if destPath == "" {
		f, err := os.CreateTemp("", "dumpsleuth-*.dmp")
		if err != nil {
			return "", fmt.Errorf("failed to create staging file: %w", err)
		}
		destPath = f.Name()
		f.Close()
	} else if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	if _, err := s.client.Object.GetToFile(ctx, key, destPath, nil); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("failed to download dump from cos: %w", err)
	}
	return destPath, nil
}

// Put uploads data under key.
func (s *COS) Put(ctx context.Context, key string, reader io.Reader) error {
	if _, err := s.client.Object.Put(ctx, key, reader, nil); err != nil {
		return fmt.Errorf("failed to upload to cos: %w", err)
	}
	return nil
}

// Exists reports whether the object exists.
func (s *COS) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.Object.IsExist(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check cos object: %w", err)
	}
	return ok, nil
}

// Delete removes the object at key.
func (s *COS) Delete(ctx context.Context, key string) error {
	if _, err := s.client.Object.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete cos object: %w", err)
	}
	return nil
}
