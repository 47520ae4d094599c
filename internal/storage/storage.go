// Package storage provides file storage for dashboard uploads.
//
// This package defines a Storage interface with implementations for:
// - LocalStorage: the public uploads directory on the local filesystem
// - R2Storage: Cloudflare R2 (S3-compatible) storage for production
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Storage defines the interface for file storage operations.
//
// Methods that reach the backend take a context.
type Storage interface {
	// Put stores data at the specified key with the given options.
	// Returns an error if the operation fails or if the key already exists
	// (unless overwrite is enabled in opts).
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get retrieves the data at the specified key.
	// Returns the data as an io.ReadCloser (caller must close), object metadata,
	// and an error. Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at the specified key.
	// This operation is idempotent - no error is returned if the key doesn't exist.
	Delete(ctx context.Context, key string) error

	// PublicURL returns a permanent address for the object at key, or false
	// when the backend has none and the object must be served through the
	// gateway (see Get).
	PublicURL(key string) (string, bool)

	// Exists checks if an object exists at the specified key.
	Exists(ctx context.Context, key string) (bool, error)
}

// =============================================================================
// Data Types
// =============================================================================

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType specifies the MIME type of the object.
	// If empty, it will be auto-detected from the file extension.
	ContentType string

	// MaxSize specifies the maximum allowed size in bytes.
	// If the data exceeds this size, ErrTooLarge is returned.
	// A value of 0 means no limit.
	MaxSize int64

	// Overwrite allows replacing an existing object at the same key.
	// If false and the key exists, ErrKeyExists is returned.
	Overwrite bool

	// Public marks the object world-readable (public-read ACL on R2).
	Public bool
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string    // Object key/path
	Size         int64     // Size in bytes
	ContentType  string    // MIME type
	LastModified time.Time // Last modification time
	ETag         string    // Entity tag (if available)
}

// =============================================================================
// Configuration Types
// =============================================================================

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the directory uploads are written to.
	// Example: "./public/uploads"
	BasePath string

	// BaseURL is the public URL prefix for uploaded files.
	// Example: "/uploads"
	BaseURL string
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL is the bucket's public domain. When empty, uploads are
	// streamed by the gateway instead.
	PublicURL string

	// Region is required by the AWS SDK. R2 accepts "auto".
	Region string
}

// =============================================================================
// Provider Constants
// =============================================================================

const (
	// ProviderLocal identifies the local filesystem storage provider.
	ProviderLocal = "local"

	// ProviderR2 identifies the Cloudflare R2 storage provider.
	ProviderR2 = "r2"
)

// =============================================================================
// Key Generation
// =============================================================================

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	unsafeChars   = regexp.MustCompile(`[^A-Za-z0-9._-]`)
	dashRun       = regexp.MustCompile(`-{2,}`)
)

// UploadKey generates the storage key for an uploaded file:
// {unix millis}-{random}-{sanitized original name}.
//
// Example: UploadKey(t, "My File.png") -> "1760870400000-9f86d081-My-File.png"
func UploadKey(now time.Time, filename string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), random, SanitizeFilename(filename))
}

// SanitizeFilename reduces a client-supplied filename to a safe base name:
// directories dropped, whitespace runs replaced by "-", and anything outside
// [A-Za-z0-9._-] removed.
func SanitizeFilename(filename string) string {
	name := strings.ReplaceAll(filename, `\`, "/")
	name = path.Base(strings.TrimSpace(name))

	name = whitespaceRun.ReplaceAllString(name, "-")
	name = unsafeChars.ReplaceAllString(name, "")
	name = dashRun.ReplaceAllString(name, "-")
	name = strings.TrimLeft(name, ".-")

	if name == "" {
		return "file"
	}
	return name
}

// =============================================================================
// Provider Selection
// =============================================================================

// New creates the Storage for the named provider.
func New(provider string, local LocalConfig, r2 R2Config, logger *slog.Logger) (Storage, error) {
	switch provider {
	case ProviderLocal, "":
		s, err := NewLocalStorage(local, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case ProviderR2:
		s, err := NewR2Storage(r2, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %q", provider)
	}
}
