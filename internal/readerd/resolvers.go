package readerd

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tanko/internal/catalog"
	"tanko/internal/resolver"
)

// resolverSet hands out one resolver per open volume view. Resolvers are kept
// for the life of the daemon so their probe caches survive across requests.
type resolverSet struct {
	prober  resolver.Prober
	baseURL string
	opts    resolver.Options

	mu        sync.Mutex
	resolvers map[string]*resolver.Resolver
}

func newResolverSet(prober resolver.Prober, baseURL string, preload bool, probeTimeout time.Duration, logger *slog.Logger) *resolverSet {
	return &resolverSet{
		prober:  prober,
		baseURL: baseURL,
		opts: resolver.Options{
			Preload:      preload,
			ProbeTimeout: probeTimeout,
			Logger:       logger,
		},
		resolvers: make(map[string]*resolver.Resolver),
	}
}

func (rs *resolverSet) get(manga *catalog.Manga, vol *catalog.Volume) *resolver.Resolver {
	view := resolver.Volume{
		MangaID:      manga.ID,
		Slug:         manga.Slug,
		Number:       vol.VolumeNumber,
		PageCount:    vol.PageCount,
		ChapterRange: vol.ChapterRange,
		BaseURL:      rs.baseURL,
	}
	key := fmt.Sprintf("%s/%d", manga.Slug, vol.VolumeNumber)

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if existing, ok := rs.resolvers[key]; ok {
		// A republished volume can grow; pick up the new page count.
		if existing.Volume().PageCount != view.PageCount {
			existing.Reset(view)
		}
		return existing
	}
	created := resolver.New(view, rs.prober, rs.opts)
	rs.resolvers[key] = created
	return created
}
