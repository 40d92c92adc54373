// Package registry keeps the insertion-ordered set of pool handles backing
// a heap. Entries live in a plain slice owned by the registry, never in the
// heap being tracked.
package registry

import (
	"errors"
	"slices"
)

// ErrDuplicate indicates an Insert of a handle already present.
var ErrDuplicate = errors.New("registry: duplicate handle")

// Registry is an insertion-ordered set of handles. The zero value is ready
// to use. The first inserted handle is the primary.
type Registry[H comparable] struct {
	items []H
}

// Insert appends h. Amortized O(1) plus the duplicate scan.
func (r *Registry[H]) Insert(h H) error {
	if r.Contains(h) {
		return ErrDuplicate
	}
	r.items = append(r.items, h)
	return nil
}

// Remove unlinks h, preserving the order of the remaining entries.
// It reports whether h was present.
func (r *Registry[H]) Remove(h H) bool {
	i := slices.Index(r.items, h)
	if i < 0 {
		return false
	}
	r.items = slices.Delete(r.items, i, i+1)
	return true
}

// Contains reports whether h is registered.
func (r *Registry[H]) Contains(h H) bool {
	return slices.Contains(r.items, h)
}

// Len returns the number of registered handles.
func (r *Registry[H]) Len() int { return len(r.items) }

// Primary returns the first inserted handle still registered.
func (r *Registry[H]) Primary() (H, bool) {
	if len(r.items) == 0 {
		var zero H
		return zero, false
	}
	return r.items[0], true
}

// ForEach calls fn for every handle in insertion order.
func (r *Registry[H]) ForEach(fn func(H)) {
	for _, h := range r.items {
		fn(h)
	}
}

// ForEachErr calls fn for every handle in insertion order and stops at the
// first error, which it returns.
func (r *Registry[H]) ForEachErr(fn func(H) error) error {
	for _, h := range r.items {
		if err := fn(h); err != nil {
			return err
		}
	}
	return nil
}

// Items returns a copy of the handles in insertion order.
func (r *Registry[H]) Items() []H { return slices.Clone(r.items) }

// Clear drops every entry.
func (r *Registry[H]) Clear() { r.items = r.items[:0] }
