package storage

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("object not found")
	ErrKeyExists    = errors.New("object already exists at this key")
	ErrTooLarge     = errors.New("object exceeds maximum size")
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidKey rejects empty keys and keys that would leave the upload
	// root ("../", absolute paths).
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrUnsupportedType rejects uploads that are not an allowed image, or
	// whose content does not match their file extension.
	ErrUnsupportedType = errors.New("unsupported upload type")
)

// StorageError records the backend operation and key that failed. It
// unwraps to one of the sentinels above or to the backend's own error.
type StorageError struct {
	Op  string // "Put", "Get", "Delete", "Exists"
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidKey(err error) bool {
	return errors.Is(err, ErrInvalidKey)
}

func IsTooLarge(err error) bool {
	return errors.Is(err, ErrTooLarge)
}
