// Package buf contains overflow-safe arithmetic and address-range helpers
// shared by the allocator and its region plumbing.
package buf

import "math"

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// Contains reports whether addr falls inside [base, base+n).
func Contains(base uintptr, n int, addr uintptr) bool {
	return addr >= base && addr-base < uintptr(n)
}

// Overlaps reports whether [aBase, aBase+aLen) and [bBase, bBase+bLen) intersect.
// Empty ranges never overlap.
func Overlaps(aBase uintptr, aLen int, bBase uintptr, bLen int) bool {
	if aLen <= 0 || bLen <= 0 {
		return false
	}
	return aBase < bBase+uintptr(bLen) && bBase < aBase+uintptr(aLen)
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end], true
}
