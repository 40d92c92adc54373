package format

import "errors"

var (
	// ErrTruncated indicates the buffer lacked the bytes required for a header.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrMisaligned indicates a header offset or size off the word grid.
	ErrMisaligned = errors.New("format: misaligned block")
	// ErrOverrun indicates a block whose payload runs past the pool end.
	ErrOverrun = errors.New("format: block overruns pool")
)
