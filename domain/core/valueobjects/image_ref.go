package valueobjects

import (
	"errors"
	"strings"
)

// ImageRef is a value object referencing an uploaded image attached to a
// note. The binary itself lives in external storage; the tree only keeps the
// ordered references. References are context-bound and are therefore dropped
// on import.
type ImageRef struct {
	key string
	url string
}

// NewImageRef creates an image reference from a storage key and public URL
func NewImageRef(key, url string) (ImageRef, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return ImageRef{}, errors.New("image key cannot be empty")
	}
	return ImageRef{key: key, url: url}, nil
}

// Key returns the storage key
func (r ImageRef) Key() string {
	return r.key
}

// URL returns the public URL
func (r ImageRef) URL() string {
	return r.url
}

// Equals checks if two image references point at the same image
func (r ImageRef) Equals(other ImageRef) bool {
	return r.key == other.key
}

// IsZero checks if the reference is the zero value
func (r ImageRef) IsZero() bool {
	return r.key == ""
}
