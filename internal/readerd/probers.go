package readerd

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"tanko/internal/bucket"
	"tanko/internal/resolver"
)

// urlToKey maps a CDN page URL back to its bucket object key. Returns "" for
// URLs outside the CDN base.
func urlToKey(cdnBase, url string) string {
	base := strings.TrimRight(cdnBase, "/") + "/"
	key, ok := strings.CutPrefix(url, base)
	if !ok {
		return ""
	}
	return key
}

// bucketProber answers resolver probes with bucket object existence checks.
func bucketProber(svc bucket.Service, cdnBase string) resolver.Prober {
	return resolver.ProberFunc(func(ctx context.Context, url string) bool {
		key := urlToKey(cdnBase, url)
		if key == "" {
			return false
		}
		return svc.Exists(ctx, key)
	})
}

// dirProber answers resolver probes against the local output tree, which
// mirrors the bucket key layout. Used when uploads are disabled.
func dirProber(outputRoot, cdnBase string) resolver.Prober {
	return resolver.ProberFunc(func(_ context.Context, url string) bool {
		key := urlToKey(cdnBase, url)
		if key == "" {
			return false
		}
		rel, ok := strings.CutPrefix(key, "manga/")
		if !ok {
			return false
		}
		path := filepath.Join(outputRoot, filepath.FromSlash(rel))
		info, err := os.Stat(path)
		return err == nil && !info.IsDir()
	})
}
