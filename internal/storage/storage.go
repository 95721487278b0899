// Package storage abstracts where dump files live. Dumps are staged to the
// local filesystem before analysis because the reader memory-maps its
// input.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dumpsleuth/pkg/config"
)

// Storage is the dump acquisition contract.
type Storage interface {
	// Fetch stages the dump named by key to a local file and returns its
	// path. For local storage this resolves in place without copying.
	Fetch(ctx context.Context, key string, destPath string) (string, error)

	// Put uploads data under key, used for archiving analysis reports next
	// to their dumps.
	Put(ctx context.Context, key string, reader io.Reader) error

	// Exists reports whether an object exists at key.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error
}

// Type identifies a storage backend.
type Type string

const (
	TypeLocal Type = "local"
	TypeCOS   Type = "cos"
)

// New creates a storage backend from configuration.
func New(cfg *config.StorageConfig) (Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is nil")
	}

	switch Type(cfg.Type) {
	case TypeLocal, "":
		return NewLocal(cfg.LocalPath)
	case TypeCOS:
		return NewCOS(&COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// SplitRef splits a dump reference of the form "cos://key" into its backend
// type and key. Plain paths map to local storage.
func SplitRef(ref string) (Type, string) {
	if strings.HasPrefix(ref, "cos://") {
		return TypeCOS, strings.TrimPrefix(ref, "cos://")
	}
	return TypeLocal, ref
}
