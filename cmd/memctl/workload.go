package main

import (
	"errors"
	"fmt"
	"math/rand"
	"unsafe"

	"github.com/spf13/pflag"

	"github.com/joshuapare/memkit/mem"
	"github.com/joshuapare/memkit/mem/region"
	"github.com/joshuapare/memkit/mem/tlsf"
)

// poolToggleEvery is the mean number of steps between attempts to detach
// or reattach the extra pool.
const poolToggleEvery = 50

// workload describes a seeded random mix of heap calls.
type workload struct {
	pool       int
	extra      int
	ops        int
	maxSize    int
	seed       int64
	source     region.Source
	regionFile string
	junk       bool
	strict     bool
}

// workloadResult counts what a run did.
type workloadResult struct {
	Ops      int `json:"ops"`
	Allocs   int `json:"allocs"`
	Frees    int `json:"frees"`
	Reallocs int `json:"reallocs"`
	OOM      int `json:"out_of_memory"`
	Live     int `json:"live"`

	// Extra pool churn. Refused counts removals the heap rejected with
	// ErrPoolInUse; Skipped counts removals the runner withheld because the
	// pool held live blocks and the heap was not strict.
	PoolRemoves int `json:"pool_removes"`
	PoolAdds    int `json:"pool_adds"`
	PoolRefused int `json:"pool_refused"`
	PoolSkipped int `json:"pool_skipped"`
}

// session owns a heap and every region backing it.
type session struct {
	heap    *mem.Heap
	regions []*region.Region

	extraMem  []byte
	extraPool *tlsf.Pool // nil while detached
}

func openSession(w workload) (*session, error) {
	s := &session{}
	cfg := mem.Config{
		Size:         w.pool,
		Source:       w.source,
		Junk:         w.junk,
		StrictRemove: w.strict,
		Trace:        trace,
		Logger:       newLogger(),
	}
	if w.regionFile != "" {
		r, err := region.FromFile(w.regionFile)
		if err != nil {
			return nil, err
		}
		s.regions = append(s.regions, r)
		cfg.Region = r.Bytes()
	}

	h, err := mem.New(cfg)
	if err != nil {
		s.close()
		return nil, err
	}
	s.heap = h

	if w.extra > 0 {
		r, err := region.New(w.source, w.extra)
		if err != nil {
			s.close()
			return nil, err
		}
		s.regions = append(s.regions, r)
		p, err := h.AddPool(r.Bytes())
		if err != nil {
			s.close()
			return nil, fmt.Errorf("add extra pool: %w", err)
		}
		s.extraMem, s.extraPool = r.Bytes(), p
	}
	return s, nil
}

func (s *session) close() {
	if s.heap != nil {
		_ = s.heap.Close()
	}
	for _, r := range s.regions {
		_ = r.Close()
	}
}

type liveBlock struct {
	ptr  unsafe.Pointer
	size int
}

// run executes the workload. After every step, check (if non-nil) is
// called and a failure stops the run.
func (w workload) run(s *session, check func(step int) error) (workloadResult, error) {
	h := s.heap
	rng := rand.New(rand.NewSource(w.seed))
	var live []liveBlock
	var res workloadResult

	maxSize := max(w.maxSize, 1)
	for step := 0; step < w.ops; step++ {
		res.Ops++
		if s.extraMem != nil && rng.Intn(poolToggleEvery) == 0 {
			if err := w.togglePool(s, live, &res); err != nil {
				return res, fmt.Errorf("step %d: %w", step, err)
			}
		}
		switch op := rng.Intn(4); {
		case op == 2 && len(live) > 0:
			i := rng.Intn(len(live))
			if err := h.Free(live[i].ptr); err != nil {
				return res, fmt.Errorf("step %d: free: %w", step, err)
			}
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]
			res.Frees++
		case op == 3 && len(live) > 0:
			i := rng.Intn(len(live))
			size := 1 + rng.Intn(maxSize)
			ptr, err := h.Realloc(live[i].ptr, size)
			switch {
			case errors.Is(err, mem.ErrOutOfMemory):
				res.OOM++
			case err != nil:
				return res, fmt.Errorf("step %d: realloc: %w", step, err)
			default:
				live[i] = liveBlock{ptr, size}
				res.Reallocs++
			}
		default:
			size := 1 + rng.Intn(maxSize)
			ptr, err := h.Alloc(size)
			switch {
			case errors.Is(err, mem.ErrOutOfMemory):
				res.OOM++
			case err != nil:
				return res, fmt.Errorf("step %d: alloc: %w", step, err)
			default:
				live = append(live, liveBlock{ptr, size})
				res.Allocs++
			}
		}
		if check != nil {
			if err := check(step); err != nil {
				return res, fmt.Errorf("step %d: %w", step, err)
			}
		}
	}
	res.Live = len(live)
	return res, nil
}

// togglePool detaches the extra pool when attached and reattaches it
// otherwise. A non-strict heap cannot tell whether the pool is in use, so
// the runner checks its own live blocks first.
func (w workload) togglePool(s *session, live []liveBlock, res *workloadResult) error {
	h := s.heap
	if s.extraPool == nil {
		p, err := h.AddPool(s.extraMem)
		if err != nil {
			return fmt.Errorf("reattach pool: %w", err)
		}
		s.extraPool = p
		res.PoolAdds++
		return nil
	}

	if !w.strict {
		for _, b := range live {
			if h.PoolOf(b.ptr) == s.extraPool {
				res.PoolSkipped++
				return nil
			}
		}
	}
	err := h.RemovePool(s.extraPool)
	switch {
	case errors.Is(err, mem.ErrPoolInUse):
		res.PoolRefused++
		return nil
	case err != nil:
		return fmt.Errorf("detach pool: %w", err)
	}
	s.extraPool = nil
	res.PoolRemoves++
	return nil
}

// workloadFlags holds the raw flag values shared by simulate and check.
type workloadFlags struct {
	pool, extra, maxSize, source string
	w                            workload
}

func (f *workloadFlags) register(fs *pflag.FlagSet) {
	w := &f.w
	fs.StringVar(&f.pool, "pool", "64KiB", "Primary pool size")
	fs.StringVar(&f.extra, "extra", "0", "Size of an additional pool (0 for none)")
	fs.StringVar(&f.maxSize, "max-size", "512", "Largest single request")
	fs.StringVar(&f.source, "source", "static", "Region source: static or mapped")
	fs.IntVar(&w.ops, "ops", 1000, "Number of heap calls")
	fs.Int64Var(&w.seed, "seed", 1, "Random seed")
	fs.StringVar(&w.regionFile, "region-file", "", "Use this file, mapped copy-on-write, as backing memory for the primary pool")
	fs.BoolVar(&w.junk, "junk", false, "Fill allocated and freed memory with junk bytes")
	fs.BoolVar(&w.strict, "strict", false, "Let the heap refuse removal of the extra pool while it holds live blocks")
}

// resolve parses the string flags into a workload.
func (f *workloadFlags) resolve() (workload, error) {
	w := f.w
	var err error
	if w.pool, err = parseSize(f.pool); err != nil {
		return w, fmt.Errorf("--pool: %w", err)
	}
	if w.extra, err = parseSize(f.extra); err != nil {
		return w, fmt.Errorf("--extra: %w", err)
	}
	if w.maxSize, err = parseSize(f.maxSize); err != nil {
		return w, fmt.Errorf("--max-size: %w", err)
	}
	if w.source, err = region.ParseSource(f.source); err != nil {
		return w, fmt.Errorf("--source: %w", err)
	}
	if w.ops < 0 {
		return w, errors.New("--ops must not be negative")
	}
	return w, nil
}
