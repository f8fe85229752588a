package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"tanko/internal/catalog"
	"tanko/internal/logging"
	"tanko/internal/naming"
)

// reconcileFailureLimit aborts an apply run after this many consecutive write
// failures so a broken database does not get hammered volume by volume.
const reconcileFailureLimit = 3

// ErrReconcileAborted is returned when apply stops at the failure limit.
var ErrReconcileAborted = errors.New("reconcile aborted after repeated failures")

// ReconcileState classifies one manga/volume pair during reconciliation.
type ReconcileState string

const (
	StateMatch             ReconcileState = "match"
	StateNeedsUpdate       ReconcileState = "needs-update"
	StateMissingFromDB     ReconcileState = "missing-from-db"
	StateMissingFromBucket ReconcileState = "missing-from-bucket"
)

// ReconcileEntry is one volume-level finding.
type ReconcileEntry struct {
	Slug    string
	Volume  int
	State   ReconcileState
	Objects int
	Pages   int
	Applied bool
}

// ReconcileReport is the outcome of one reconcile pass.
type ReconcileReport struct {
	Entries []ReconcileEntry
	Applied int
	Failed  int
}

// Reconcile compares bucket contents against the catalog. With dryRun set it
// only reports; otherwise it registers bucket volumes the catalog is missing
// and refreshes stale page counts. Volumes recorded in the catalog but absent
// from the bucket are reported, never deleted: the bucket listing could be the
// stale side.
func (p *Pipeline) Reconcile(ctx context.Context, dryRun bool) (*ReconcileReport, error) {
	if p.bucket == nil {
		return nil, errors.New("reconcile requires bucket access")
	}

	slugs, err := p.bucket.ListSlugs(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{}
	failures := 0
	for _, slug := range slugs {
		remote, err := p.bucket.ListVolumes(ctx, slug)
		if err != nil {
			return report, err
		}

		manga, recorded, err := p.recordedVolumes(ctx, slug)
		if err != nil {
			return report, err
		}

		seen := make(map[int]bool, len(remote))
		for _, vol := range remote {
			seen[vol.Number] = true
			entry := ReconcileEntry{Slug: slug, Volume: vol.Number, Objects: vol.Objects}

			local, ok := recorded[vol.Number]
			switch {
			case !ok:
				entry.State = StateMissingFromDB
			case local.PageCount < vol.Objects:
				// Object count is a floor on the page count: merged
				// spreads make pages outnumber files, never the reverse.
				entry.State = StateNeedsUpdate
				entry.Pages = local.PageCount
			default:
				entry.State = StateMatch
				entry.Pages = local.PageCount
			}

			if !dryRun && entry.State != StateMatch {
				updated, err := p.applyEntry(ctx, slug, manga, entry)
				if err != nil {
					p.logger.Error("reconcile write failed",
						slog.String(logging.FieldManga, slug),
						slog.Int(logging.FieldVolume, vol.Number),
						slog.Any("error", err))
					report.Failed++
					failures++
					if failures >= reconcileFailureLimit {
						report.Entries = append(report.Entries, entry)
						return report, ErrReconcileAborted
					}
				} else {
					manga = updated
					entry.Applied = true
					report.Applied++
					failures = 0
				}
			}
			report.Entries = append(report.Entries, entry)
		}

		for number, local := range recorded {
			if seen[number] {
				continue
			}
			report.Entries = append(report.Entries, ReconcileEntry{
				Slug:   slug,
				Volume: number,
				State:  StateMissingFromBucket,
				Pages:  local.PageCount,
			})
		}
	}

	sortEntries(report.Entries)
	return report, nil
}

func (p *Pipeline) recordedVolumes(ctx context.Context, slug string) (*catalog.Manga, map[int]catalog.Volume, error) {
	manga, err := p.store.GetMangaBySlug(ctx, slug)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, map[int]catalog.Volume{}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	volumes, err := p.store.ListVolumes(ctx, manga.ID)
	if err != nil {
		return nil, nil, err
	}
	byNumber := make(map[int]catalog.Volume, len(volumes))
	for _, vol := range volumes {
		byNumber[vol.VolumeNumber] = vol
	}
	return manga, byNumber, nil
}

func (p *Pipeline) applyEntry(ctx context.Context, slug string, manga *catalog.Manga, entry ReconcileEntry) (*catalog.Manga, error) {
	if manga == nil {
		created, err := p.store.CreateManga(ctx, catalog.Manga{
			Title:    slug,
			Slug:     slug,
			CoverURL: naming.CoverURL(p.cfg.Bucket.CDNBaseURL, slug),
			Status:   catalog.StatusOngoing,
		})
		if err != nil {
			return nil, fmt.Errorf("create manga %s: %w", slug, err)
		}
		manga = created
	}

	switch entry.State {
	case StateMissingFromDB:
		_, err := p.store.UpsertVolume(ctx, catalog.Volume{
			MangaID:      manga.ID,
			VolumeNumber: entry.Volume,
			PageCount:    entry.Objects,
		})
		return manga, err
	case StateNeedsUpdate:
		return manga, p.store.UpdateVolumePages(ctx, manga.ID, entry.Volume, entry.Objects)
	}
	return manga, nil
}

func sortEntries(entries []ReconcileEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Slug != entries[j].Slug {
			return entries[i].Slug < entries[j].Slug
		}
		return entries[i].Volume < entries[j].Volume
	})
}
