// Package scene defines the room scene graph for roomcraft.
// The graph is an arena of nodes addressed by stable IDs. A single Root
// owns two groups, "walls" and "furniture"; every other node hangs below
// one of them. The graph has exactly one mutator at a time and carries no
// locks of its own.
package scene
