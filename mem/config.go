package mem

import (
	"io"
	"log/slog"
	"os"

	"github.com/joshuapare/memkit/mem/region"
)

// DefaultSize is the primary pool size used when Config.Size is zero.
const DefaultSize = 64 << 10

// TraceEnv enables per-call trace logging when set to any non-empty value.
const TraceEnv = "MEMKIT_LOG_ALLOC"

// Config configures a Heap.
type Config struct {
	// Region is caller-owned memory for the primary pool. When nil, the heap
	// acquires Size bytes from Source and releases them on Close.
	Region []byte
	Size   int
	Source region.Source

	// Junk fills allocated memory with 0xAA and freed memory with 0xBB.
	Junk bool
	// StrictRemove refuses to remove pools that still hold live blocks.
	StrictRemove bool
	// Trace logs every alloc/realloc/free at debug level. Also enabled by
	// the MEMKIT_LOG_ALLOC environment variable.
	Trace bool

	Logger *slog.Logger // nil discards
}

func (c Config) withDefaults() Config {
	if c.Size == 0 {
		c.Size = DefaultSize
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if os.Getenv(TraceEnv) != "" {
		c.Trace = true
	}
	return c
}
