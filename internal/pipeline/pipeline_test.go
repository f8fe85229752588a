package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"tanko/internal/bucket"
	"tanko/internal/catalog"
	"tanko/internal/config"
	"tanko/internal/convert"
	"tanko/internal/logging"
)

type fakeBucket struct {
	slugs    []string
	volumes  map[string][]bucket.VolumeObjects
	uploads  []string
	uploadFn func(slug string, volume int, dir string) (bucket.UploadResult, error)
}

func (f *fakeBucket) UploadVolume(_ context.Context, slug string, volume int, dir string) (bucket.UploadResult, error) {
	f.uploads = append(f.uploads, fmt.Sprintf("%s/%d", slug, volume))
	if f.uploadFn != nil {
		return f.uploadFn(slug, volume, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return bucket.UploadResult{}, err
	}
	return bucket.UploadResult{Uploaded: len(entries)}, nil
}

func (f *fakeBucket) ListSlugs(context.Context) ([]string, error) {
	return f.slugs, nil
}

func (f *fakeBucket) ListVolumes(_ context.Context, slug string) ([]bucket.VolumeObjects, error) {
	return f.volumes[slug], nil
}

func (f *fakeBucket) Exists(context.Context, string) bool { return false }

type fakeEncoder struct{}

func (fakeEncoder) Encode(_ context.Context, _, outputPath string, _ int) error {
	return os.WriteFile(outputPath, []byte("webp"), 0o644)
}

func writePNG(t *testing.T, path string, width, height int) {
	t.Helper()
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer file.Close()
	if err := png.Encode(file, image.NewGray(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func newTestPipeline(t *testing.T, bucketSvc bucket.Service) (*Pipeline, *catalog.Store, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.SourceDir = t.TempDir()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Manga.Title = "Steel Ball Run"
	cfg.Manga.Slug = "steel-ball-run"
	cfg.Bucket.CDNBaseURL = "https://cdn.example.com"

	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	converter := convert.NewConverter(fakeEncoder{}, cfg.Convert.Quality, logging.NewNop())
	return New(&cfg, store, bucketSvc, converter, logging.NewNop()), store, &cfg
}

func addSourceVolume(t *testing.T, sourceDir string, number, pages int) {
	t.Helper()
	dir := filepath.Join(sourceDir, fmt.Sprintf("v%d", number))
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= pages; i++ {
		writePNG(t, filepath.Join(dir, fmt.Sprintf("%03d.png", i)), 2, 3)
	}
}

func TestPublishVolume(t *testing.T) {
	fb := &fakeBucket{}
	p, store, cfg := newTestPipeline(t, fb)
	addSourceVolume(t, cfg.Paths.SourceDir, 1, 3)

	report, err := p.PublishVolume(context.Background(), 1)
	if err != nil {
		t.Fatalf("PublishVolume: %v", err)
	}
	if report.Converted != 3 || report.PageCount != 3 || report.Uploaded != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(fb.uploads) != 1 || fb.uploads[0] != "steel-ball-run/1" {
		t.Fatalf("unexpected uploads: %v", fb.uploads)
	}

	manga, err := store.GetMangaBySlug(context.Background(), "steel-ball-run")
	if err != nil {
		t.Fatalf("manga not recorded: %v", err)
	}
	if manga.CoverURL != "https://cdn.example.com/manga/steel-ball-run/volume-001/001.webp" {
		t.Fatalf("unexpected cover url: %s", manga.CoverURL)
	}
	vol, err := store.GetVolume(context.Background(), manga.ID, 1)
	if err != nil {
		t.Fatalf("volume not recorded: %v", err)
	}
	if vol.PageCount != 3 {
		t.Fatalf("recorded page count %d", vol.PageCount)
	}
}

func TestPublishVolumeWithoutBucket(t *testing.T) {
	p, store, cfg := newTestPipeline(t, nil)
	addSourceVolume(t, cfg.Paths.SourceDir, 2, 2)

	report, err := p.PublishVolume(context.Background(), 2)
	if err != nil {
		t.Fatalf("PublishVolume: %v", err)
	}
	if report.Uploaded != 0 || report.Converted != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}

	manga, err := store.GetMangaBySlug(context.Background(), "steel-ball-run")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetVolume(context.Background(), manga.ID, 2); err != nil {
		t.Fatalf("volume not recorded: %v", err)
	}
}

func TestPublishAll(t *testing.T) {
	p, _, cfg := newTestPipeline(t, &fakeBucket{})
	addSourceVolume(t, cfg.Paths.SourceDir, 1, 2)
	addSourceVolume(t, cfg.Paths.SourceDir, 2, 2)

	reports, err := p.PublishAll(context.Background())
	if err != nil {
		t.Fatalf("PublishAll: %v", err)
	}
	if len(reports) != 2 || reports[0].Volume != 1 || reports[1].Volume != 2 {
		t.Fatalf("unexpected reports: %+v", reports)
	}
}

func TestUploadRequiresBucket(t *testing.T) {
	p, _, _ := newTestPipeline(t, nil)
	if _, err := p.Upload(context.Background(), 1); err != bucket.ErrDisabled {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestReconcileDryRun(t *testing.T) {
	fb := &fakeBucket{
		slugs: []string{"steel-ball-run"},
		volumes: map[string][]bucket.VolumeObjects{
			"steel-ball-run": {
				{Number: 1, Objects: 3},
				{Number: 2, Objects: 5},
			},
		},
	}
	p, store, _ := newTestPipeline(t, fb)

	ctx := context.Background()
	manga, err := p.EnsureManga(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// Volume 1 matches: four logical pages over three objects means one
	// merged spread. Volume 3 exists only in the catalog.
	if _, err := store.AddVolume(ctx, catalog.Volume{MangaID: manga.ID, VolumeNumber: 1, PageCount: 4}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddVolume(ctx, catalog.Volume{MangaID: manga.ID, VolumeNumber: 3, PageCount: 9}); err != nil {
		t.Fatal(err)
	}

	report, err := p.Reconcile(ctx, true)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if report.Applied != 0 {
		t.Fatalf("dry run applied %d changes", report.Applied)
	}
	states := map[int]ReconcileState{}
	for _, entry := range report.Entries {
		states[entry.Volume] = entry.State
	}
	if states[1] != StateMatch {
		t.Fatalf("volume 1 state %s", states[1])
	}
	if states[2] != StateMissingFromDB {
		t.Fatalf("volume 2 state %s", states[2])
	}
	if states[3] != StateMissingFromBucket {
		t.Fatalf("volume 3 state %s", states[3])
	}

	// Dry run must not have written volume 2.
	if _, err := store.GetVolume(ctx, manga.ID, 2); err == nil {
		t.Fatal("dry run wrote volume 2")
	}
}

func TestReconcileApply(t *testing.T) {
	fb := &fakeBucket{
		slugs: []string{"steel-ball-run"},
		volumes: map[string][]bucket.VolumeObjects{
			"steel-ball-run": {
				{Number: 1, Objects: 6},
				{Number: 2, Objects: 4},
			},
		},
	}
	p, store, _ := newTestPipeline(t, fb)

	ctx := context.Background()
	manga, err := p.EnsureManga(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// Stale: fewer recorded pages than bucket objects.
	if _, err := store.AddVolume(ctx, catalog.Volume{MangaID: manga.ID, VolumeNumber: 1, PageCount: 2}); err != nil {
		t.Fatal(err)
	}

	report, err := p.Reconcile(ctx, false)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if report.Applied != 2 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	vol1, err := store.GetVolume(ctx, manga.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if vol1.PageCount != 6 {
		t.Fatalf("volume 1 page count %d", vol1.PageCount)
	}
	vol2, err := store.GetVolume(ctx, manga.ID, 2)
	if err != nil {
		t.Fatalf("volume 2 not created: %v", err)
	}
	if vol2.PageCount != 4 {
		t.Fatalf("volume 2 page count %d", vol2.PageCount)
	}
}

func TestReconcileApplyRegistersUnknownManga(t *testing.T) {
	fb := &fakeBucket{
		slugs: []string{"found-in-bucket"},
		volumes: map[string][]bucket.VolumeObjects{
			"found-in-bucket": {{Number: 1, Objects: 8}},
		},
	}
	p, store, _ := newTestPipeline(t, fb)

	ctx := context.Background()
	report, err := p.Reconcile(ctx, false)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if report.Applied != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	manga, err := store.GetMangaBySlug(ctx, "found-in-bucket")
	if err != nil {
		t.Fatalf("manga not registered: %v", err)
	}
	vol, err := store.GetVolume(ctx, manga.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if vol.PageCount != 8 {
		t.Fatalf("page count %d", vol.PageCount)
	}
}
