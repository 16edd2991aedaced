package scene

import "errors"

var (
	ErrNodeNotFound   = errors.New("scene: node not found")
	ErrDuplicateNode  = errors.New("scene: node already in graph")
	ErrAttachedNode   = errors.New("scene: node already has a parent")
	ErrProtectedNode  = errors.New("scene: node cannot be removed")
	ErrNotTopLevel    = errors.New("scene: node has no top-level ancestor")
	ErrDisposed       = errors.New("scene: graph disposed")
	ErrInvalidSubtree = errors.New("scene: invalid subtree")
)
