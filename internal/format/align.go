package format

// Align8 returns n aligned up to the next 8-byte boundary.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
//	Align8(16) = 16
func Align8(n int) int {
	return (n + AlignMask) & ^AlignMask
}

// AlignDown8 returns n truncated to the previous 8-byte boundary.
func AlignDown8(n int) int {
	return n & ^AlignMask
}

// AlignPad returns the number of bytes needed to move addr up to the next
// word boundary.
func AlignPad(addr uintptr) int {
	return int((WordSize - addr%WordSize) % WordSize)
}

// IsAligned reports whether n is a multiple of WordSize.
func IsAligned(n int) bool {
	return n&AlignMask == 0
}
