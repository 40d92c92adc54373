//go:build !unix

// Package mmfile provides platform-specific helpers for acquiring memory
// regions that back allocator pools.
package mmfile

import (
	"fmt"
	"os"
	"unsafe"
)

// Anonymous allocates size bytes from the Go heap when mmap is not available.
// The backing store is a word slice so the region starts word aligned.
func Anonymous(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("mmfile: invalid size %d", size)
	}
	words := make([]uint64, (size+7)/8)
	data := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size)
	return data, func() error { return nil }, nil
}

// Map reads the entire file when mmap is not available.
func Map(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, func() error { return nil }, err
	}
	return data, func() error { return nil }, nil
}
