package resolver_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"tanko/internal/naming"
	"tanko/internal/resolver"
)

type fakeProber struct {
	mu       sync.Mutex
	existing map[string]bool
	calls    []string
	gate     chan struct{}
}

func newFakeProber(urls ...string) *fakeProber {
	existing := make(map[string]bool, len(urls))
	for _, u := range urls {
		existing[u] = true
	}
	return &fakeProber{existing: existing}
}

func (p *fakeProber) Exists(ctx context.Context, url string) bool {
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return false
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, url)
	return p.existing[url]
}

func (p *fakeProber) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

const base = "https://cdn.test"

func testVolume(pages int) resolver.Volume {
	return resolver.Volume{
		MangaID:   "id-1",
		Slug:      "steel-ball-run",
		Number:    2,
		PageCount: pages,
		BaseURL:   base,
	}
}

func declared(index int) string {
	return naming.PageURL(base, "steel-ball-run", 2, index+1)
}

func spread(first, second int) string {
	return naming.SpreadURL(base, "steel-ball-run", 2, first+1, second+1)
}

func TestProbeSingle(t *testing.T) {
	prober := newFakeProber(declared(3))
	r := resolver.New(testVolume(10), prober, resolver.Options{})

	res := r.Probe(context.Background(), 3)
	if res.Kind != resolver.KindSingle {
		t.Fatalf("expected single, got %v", res.Kind)
	}
	if res.URL != declared(3) || res.Start != 3 || res.End != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if prober.callCount() != 1 {
		t.Fatalf("expected one existence check, got %d", prober.callCount())
	}
}

func TestProbeSpreadCoversNextAndCachesSibling(t *testing.T) {
	// Declared asset for index 5 is absent; the merged (5,6) asset exists.
	prober := newFakeProber(spread(5, 6))
	r := resolver.New(testVolume(10), prober, resolver.Options{})

	res := r.Probe(context.Background(), 5)
	if res.Kind != resolver.KindSpread {
		t.Fatalf("expected spread, got %v", res.Kind)
	}
	if res.Start != 5 || res.End != 6 || res.URL != spread(5, 6) {
		t.Fatalf("unexpected result: %+v", res)
	}

	checks := prober.callCount()
	sibling := r.Probe(context.Background(), 6)
	if sibling != res {
		t.Fatalf("sibling probe should return the cached result: %+v vs %+v", sibling, res)
	}
	if prober.callCount() != checks {
		t.Fatal("sibling probe must not issue new existence checks")
	}
}

func TestProbeSpreadCoversPrevious(t *testing.T) {
	// Declared asset for index 6 is absent; the merged (5,6) asset exists.
	prober := newFakeProber(spread(5, 6))
	r := resolver.New(testVolume(10), prober, resolver.Options{})

	res := r.Probe(context.Background(), 6)
	if res.Kind != resolver.KindSpread || res.Start != 5 || res.End != 6 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if cached, ok := r.Peek(5); !ok || cached != res {
		t.Fatalf("expected index 5 cached with the same result, got %+v ok=%v", cached, ok)
	}
}

func TestProbeUnresolvedFallsBack(t *testing.T) {
	prober := newFakeProber() // nothing exists
	r := resolver.New(testVolume(10), prober, resolver.Options{})

	res := r.Probe(context.Background(), 4)
	if res.Kind != resolver.KindUnresolved {
		t.Fatalf("expected unresolved, got %v", res.Kind)
	}
	if res.URL != declared(4) || res.Start != 4 || res.End != 4 {
		t.Fatalf("fallback must use the declared url: %+v", res)
	}
	// Declared plus both merged candidates.
	if prober.callCount() != 3 {
		t.Fatalf("expected 3 checks, got %d", prober.callCount())
	}
}

func TestProbeIdempotent(t *testing.T) {
	prober := newFakeProber(declared(0))
	r := resolver.New(testVolume(10), prober, resolver.Options{})

	first := r.Probe(context.Background(), 0)
	second := r.Probe(context.Background(), 0)
	if first != second {
		t.Fatalf("results differ: %+v vs %+v", first, second)
	}
	if prober.callCount() != 1 {
		t.Fatalf("second probe re-issued checks: %d", prober.callCount())
	}
}

func TestProbeFirstPageSkipsInvalidPreviousCandidate(t *testing.T) {
	prober := newFakeProber(spread(0, 1))
	r := resolver.New(testVolume(10), prober, resolver.Options{})

	res := r.Probe(context.Background(), 0)
	if res.Kind != resolver.KindSpread || res.Start != 0 || res.End != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	// Declared plus the (0,1) candidate only; no (-1,0) probe.
	if prober.callCount() != 2 {
		t.Fatalf("expected 2 checks, got %d", prober.callCount())
	}
}

func TestProbeLastPageSkipsInvalidNextCandidate(t *testing.T) {
	prober := newFakeProber()
	r := resolver.New(testVolume(10), prober, resolver.Options{})

	res := r.Probe(context.Background(), 9)
	if res.Kind != resolver.KindUnresolved {
		t.Fatalf("unexpected result: %+v", res)
	}
	// Declared plus the (8,9) candidate only; no (9,10) probe.
	if prober.callCount() != 2 {
		t.Fatalf("expected 2 checks, got %d", prober.callCount())
	}
}

func TestAdvanceForwardOverSpread(t *testing.T) {
	prober := newFakeProber(spread(5, 6))
	r := resolver.New(testVolume(10), prober, resolver.Options{})
	r.Probe(context.Background(), 5)

	if next := r.Advance(5, resolver.Forward); next != 7 {
		t.Fatalf("expected forward advance to 7, got %d", next)
	}
	if next := r.Advance(2, resolver.Forward); next != 3 {
		t.Fatalf("expected plain increment to 3, got %d", next)
	}
	if next := r.Advance(9, resolver.Forward); next != 9 {
		t.Fatalf("expected clamp at last index, got %d", next)
	}
}

func TestAdvanceBackwardLandsOnSpreadStart(t *testing.T) {
	prober := newFakeProber(spread(5, 6))
	r := resolver.New(testVolume(10), prober, resolver.Options{})
	r.Probe(context.Background(), 5)

	if prev := r.Advance(7, resolver.Backward); prev != 5 {
		t.Fatalf("expected backward advance to land on spread start 5, got %d", prev)
	}
	// Without cache knowledge the preceding slot is a plain decrement.
	if prev := r.Advance(3, resolver.Backward); prev != 2 {
		t.Fatalf("expected plain decrement to 2, got %d", prev)
	}
	if prev := r.Advance(0, resolver.Backward); prev != 0 {
		t.Fatalf("expected clamp at 0, got %d", prev)
	}
}

func TestEffectivePageCount(t *testing.T) {
	prober := newFakeProber(spread(5, 6))
	r := resolver.New(testVolume(10), prober, resolver.Options{})

	if count := r.EffectivePageCount(); count > 10 {
		t.Fatalf("unprobed count must not exceed declared count, got %d", count)
	}

	r.Probe(context.Background(), 5)
	if count := r.EffectivePageCount(); count != 9 {
		t.Fatalf("expected 9 stops with one confirmed spread, got %d", count)
	}
}

func TestPeekBeforeAndAfterProbe(t *testing.T) {
	prober := newFakeProber(declared(2))
	r := resolver.New(testVolume(10), prober, resolver.Options{})

	res, resolved := r.Peek(2)
	if resolved {
		t.Fatal("peek before probing should report unresolved")
	}
	if res.URL != declared(2) || res.Kind != resolver.KindUnresolved {
		t.Fatalf("peek should fall back to the declared url: %+v", res)
	}

	r.Probe(context.Background(), 2)
	res, resolved = r.Peek(2)
	if !resolved || res.Kind != resolver.KindSingle {
		t.Fatalf("peek after probing should be resolved: %+v resolved=%v", res, resolved)
	}
}

func TestResetClearsCache(t *testing.T) {
	prober := newFakeProber(declared(0))
	r := resolver.New(testVolume(10), prober, resolver.Options{})

	r.Probe(context.Background(), 0)
	checks := prober.callCount()

	other := testVolume(8)
	other.Number = 3
	r.Reset(other)

	if _, resolved := r.Peek(0); resolved {
		t.Fatal("cache should be empty after volume switch")
	}
	r.Probe(context.Background(), 0)
	if prober.callCount() == checks {
		t.Fatal("probe after reset must re-run existence checks")
	}
}

func TestResetDropsStaleInFlightCompletion(t *testing.T) {
	prober := newFakeProber(declared(0))
	prober.gate = make(chan struct{})
	r := resolver.New(testVolume(10), prober, resolver.Options{})

	done := make(chan resolver.Result, 1)
	go func() {
		done <- r.Probe(context.Background(), 0)
	}()

	// Let the probe start, switch volumes, then release the probe.
	time.Sleep(10 * time.Millisecond)
	other := testVolume(8)
	other.Number = 3
	r.Reset(other)
	close(prober.gate)

	<-done
	if _, resolved := r.Peek(0); resolved {
		t.Fatal("stale completion for the previous volume must not populate the cache")
	}
}

func TestPreloadWarmsNextStop(t *testing.T) {
	prober := newFakeProber(declared(0), declared(1))
	r := resolver.New(testVolume(10), prober, resolver.Options{Preload: true})

	r.Probe(context.Background(), 0)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, resolved := r.Peek(1); resolved {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected background preload to resolve the next stop")
}

func TestConcurrentProbesShareOneCheck(t *testing.T) {
	prober := newFakeProber(declared(4))
	r := resolver.New(testVolume(10), prober, resolver.Options{})

	var wg sync.WaitGroup
	results := make([]resolver.Result, 8)
	for i := range results {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			results[slot] = r.Probe(context.Background(), 4)
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		if res.Kind != resolver.KindSingle || res.URL != declared(4) {
			t.Fatalf("unexpected result: %+v", res)
		}
	}
	if prober.callCount() != 1 {
		t.Fatalf("expected one shared check, got %d", prober.callCount())
	}
}
