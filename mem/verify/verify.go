// Package verify runs the engine's integrity checks across a heap. Checks
// only read; corruption is reported, never repaired.
package verify

import (
	"fmt"

	"github.com/joshuapare/memkit/mem/registry"
	"github.com/joshuapare/memkit/mem/tlsf"
)

// Checker is the integrity surface of an allocator. *tlsf.Allocator
// satisfies it.
type Checker interface {
	Check() error
	CheckPool(p *tlsf.Pool) error
}

// Heap validates the allocator's control structure once.
func Heap(c Checker) error {
	if err := c.Check(); err != nil {
		return fmt.Errorf("control structure: %w", err)
	}
	return nil
}

// Pools validates every pool in registry order and returns the first failure.
func Pools(c Checker, pools *registry.Registry[*tlsf.Pool]) error {
	i := 0
	return pools.ForEachErr(func(p *tlsf.Pool) error {
		defer func() { i++ }()
		if err := c.CheckPool(p); err != nil {
			return fmt.Errorf("pool %d: %w", i, err)
		}
		return nil
	})
}

// All runs Heap then Pools.
func All(c Checker, pools *registry.Registry[*tlsf.Pool]) error {
	if err := Heap(c); err != nil {
		return err
	}
	return Pools(c, pools)
}
