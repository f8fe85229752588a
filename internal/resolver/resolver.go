package resolver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tanko/internal/logging"
	"tanko/internal/naming"
)

// Kind classifies the physical asset behind a logical page.
type Kind int

const (
	// KindSingle is a confirmed single-page asset at the declared URL.
	KindSingle Kind = iota
	// KindSpread is a confirmed merged double-spread asset covering two
	// adjacent logical pages.
	KindSpread
	// KindUnresolved means no asset could be confirmed; the declared URL is
	// used and the page behaves like a single.
	KindUnresolved
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindSpread:
		return "spread"
	default:
		return "unresolved"
	}
}

// Volume describes one volume view. Immutable for the lifetime of a resolver
// generation; switching volumes goes through Reset.
type Volume struct {
	MangaID      string
	Slug         string
	Number       int
	PageCount    int
	ChapterRange string
	BaseURL      string
}

// DeclaredURL is the deterministic single-page URL for a 0-based logical index.
func (v Volume) DeclaredURL(index int) string {
	return naming.PageURL(v.BaseURL, v.Slug, v.Number, index+1)
}

func (v Volume) spreadURL(first, second int) string {
	return naming.SpreadURL(v.BaseURL, v.Slug, v.Number, first+1, second+1)
}

// Result is the outcome of probing one logical index. It covers every logical
// index in [Start, End]; singles have Start == End.
type Result struct {
	Kind  Kind
	URL   string
	Start int
	End   int
}

// Covers reports whether the result spans the given logical index.
func (r Result) Covers(index int) bool {
	return index >= r.Start && index <= r.End
}

// Prober confirms asset existence for a candidate URL. Failure is a boolean
// signal, never an error: a probe that cannot complete reports false.
type Prober interface {
	Exists(ctx context.Context, url string) bool
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, url string) bool

// Exists implements Prober.
func (f ProberFunc) Exists(ctx context.Context, url string) bool { return f(ctx, url) }

// Direction selects which way Advance moves.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// Options tunes resolver behaviour.
type Options struct {
	// Preload warms the next navigable stop after each successful probe by
	// running the same probe path in the background.
	Preload bool
	// ProbeTimeout bounds each existence check. Zero means no extra bound
	// beyond the caller's context.
	ProbeTimeout time.Duration
	Logger       *slog.Logger
}

// Resolver resolves logical page indices for a single volume view.
//
// The cache is append-only within a generation: once an index is probed its
// result never changes until Reset. Both indices of a spread are committed in
// one critical section so readers never observe one side without the other.
type Resolver struct {
	prober Prober
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	vol      Volume
	gen      uint64
	cache    map[int]*Result
	inflight map[int]chan struct{}
}

// New constructs a resolver for the given volume view.
func New(vol Volume, prober Prober, opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{
		prober:   prober,
		opts:     opts,
		logger:   logger.With(slog.String(logging.FieldComponent, "resolver")),
		vol:      vol,
		cache:    make(map[int]*Result),
		inflight: make(map[int]chan struct{}),
	}
}

// Volume returns the volume view currently being resolved.
func (r *Resolver) Volume() Volume {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vol
}

// Reset switches the resolver to a different volume view. The cache is
// discarded and completions from probes still in flight for the previous
// volume are ignored when they land.
func (r *Resolver) Reset(vol Volume) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vol = vol
	r.gen++
	r.cache = make(map[int]*Result)
	r.inflight = make(map[int]chan struct{})
}

// Peek returns the best currently-known result for index without probing:
// the cached result when present, otherwise a provisional single at the
// declared URL. The boolean reports whether the index has been resolved.
func (r *Resolver) Peek(index int) (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	index = r.clampLocked(index)
	if res, ok := r.cache[index]; ok {
		return *res, true
	}
	return Result{Kind: KindUnresolved, URL: r.vol.DeclaredURL(index), Start: index, End: index}, false
}

// Probe resolves the physical asset for index. It is idempotent: a cached
// index returns immediately without new existence checks, and concurrent
// probes of the same index share one set of checks. The result is cached
// under every covered index.
func (r *Resolver) Probe(ctx context.Context, index int) Result {
	return r.probe(ctx, index, true)
}

// probe is the shared resolution path. Preload probes pass warm=false so a
// background warmup resolves exactly one stop instead of cascading through
// the volume.
func (r *Resolver) probe(ctx context.Context, index int, warm bool) Result {
	for {
		r.mu.Lock()
		index = r.clampLocked(index)
		if r.vol.PageCount == 0 {
			vol := r.vol
			r.mu.Unlock()
			return Result{Kind: KindUnresolved, URL: vol.DeclaredURL(0)}
		}
		if res, ok := r.cache[index]; ok {
			out := *res
			r.mu.Unlock()
			return out
		}
		if wait, ok := r.inflight[index]; ok {
			r.mu.Unlock()
			select {
			case <-wait:
			case <-ctx.Done():
				res, _ := r.Peek(index)
				return res
			}
			// Re-check the cache; a volume switch may have dropped the
			// completion, in which case we probe again.
			continue
		}

		done := make(chan struct{})
		r.inflight[index] = done
		gen := r.gen
		vol := r.vol
		r.mu.Unlock()

		res := r.classify(ctx, vol, index)
		r.commit(gen, index, done, res)
		if warm && r.opts.Preload {
			r.preload(ctx, res)
		}
		return res
	}
}

// classify runs the existence checks for one logical index against a volume
// snapshot. Declared single first, then the merged candidate covering the
// previous slot, then the one covering the next.
func (r *Resolver) classify(ctx context.Context, vol Volume, index int) Result {
	declared := vol.DeclaredURL(index)
	if r.exists(ctx, declared) {
		return Result{Kind: KindSingle, URL: declared, Start: index, End: index}
	}

	if index-1 >= 0 {
		url := vol.spreadURL(index-1, index)
		if r.exists(ctx, url) {
			return Result{Kind: KindSpread, URL: url, Start: index - 1, End: index}
		}
	}
	if index+1 < vol.PageCount {
		url := vol.spreadURL(index, index+1)
		if r.exists(ctx, url) {
			return Result{Kind: KindSpread, URL: url, Start: index, End: index + 1}
		}
	}

	r.logger.Debug("page unresolved, using declared url",
		slog.String(logging.FieldManga, vol.Slug),
		slog.Int(logging.FieldVolume, vol.Number),
		slog.Int(logging.FieldPage, index+1))
	return Result{Kind: KindUnresolved, URL: declared, Start: index, End: index}
}

func (r *Resolver) exists(ctx context.Context, url string) bool {
	if r.opts.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.ProbeTimeout)
		defer cancel()
	}
	return r.prober.Exists(ctx, url)
}

// commit publishes a probe result under every covered index in one critical
// section. A completion for a superseded generation is dropped so a volume
// switch never surfaces stale results.
func (r *Resolver) commit(gen uint64, index int, done chan struct{}, res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer close(done)
	if gen != r.gen {
		return
	}
	delete(r.inflight, index)
	stored := res
	for i := stored.Start; i <= stored.End; i++ {
		r.cache[i] = &stored
	}
}

// preload warms the stop that follows the just-resolved asset. It goes
// through the normal Probe path so all cache writes stay centralized.
func (r *Resolver) preload(ctx context.Context, res Result) {
	next := res.End + 1
	r.mu.Lock()
	pageCount := r.vol.PageCount
	_, cached := r.cache[next]
	_, pending := r.inflight[next]
	r.mu.Unlock()
	if next >= pageCount || cached || pending {
		return
	}
	go r.probe(context.WithoutCancel(ctx), next, false)
}

// Advance computes the next logical index from current in the given
// direction, honouring spread boundaries.
//
// Forward motion from a confirmed spread lands one past its highest covered
// index. Backward motion consults the cache for a spread covering the
// preceding slot and lands on its start; spreads are only detected going
// forward, so an unprobed preceding slot falls back to a plain decrement.
func (r *Resolver) Advance(current int, dir Direction) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	current = r.clampLocked(current)

	switch dir {
	case Forward:
		next := current + 1
		if res, ok := r.cache[current]; ok && res.Kind == KindSpread {
			next = res.End + 1
		}
		return r.clampLocked(next)
	default:
		prev := current - 1
		if prev < 0 {
			return 0
		}
		if res, ok := r.cache[prev]; ok && res.Kind == KindSpread && res.Covers(prev) {
			return res.Start
		}
		return prev
	}
}

// EffectivePageCount is the number of navigable stops after collapsing
// confirmed spreads. Unprobed indices count as provisional singles, so the
// value refines monotonically toward the exact count as probing proceeds.
func (r *Resolver) EffectivePageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	stops := 0
	for i := 0; i < r.vol.PageCount; {
		if res, ok := r.cache[i]; ok && res.Kind == KindSpread {
			i = res.End + 1
		} else {
			i++
		}
		stops++
	}
	return stops
}

func (r *Resolver) clampLocked(index int) int {
	if index < 0 {
		return 0
	}
	if r.vol.PageCount > 0 && index >= r.vol.PageCount {
		return r.vol.PageCount - 1
	}
	return index
}
