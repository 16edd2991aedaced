// Package asset fetches furniture assets, decodes them as glTF and inserts
// the resulting subtree into the scene from the interaction loop.
package asset

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyAsset is returned for a document with no nodes to insert.
	ErrEmptyAsset = errors.New("asset: document has no nodes")
	// ErrNotFound is returned by fetchers when the asset does not exist.
	ErrNotFound = errors.New("asset: not found")
)

// LoadError reports a failed fetch, decode or build. The graph is never
// modified when a load fails.
type LoadError struct {
	Path  string
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
