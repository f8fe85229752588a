package catalog_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"tanko/internal/catalog"
)

func mustOpen(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateAndFetchManga(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	created, err := store.CreateManga(ctx, catalog.Manga{
		Title:        "Steel Ball Run",
		Slug:         "steel-ball-run",
		CoverURL:     "https://cdn.example.com/manga/steel-ball-run/volume-001/001.webp",
		TotalVolumes: 24,
		Status:       catalog.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("CreateManga failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected assigned manga ID")
	}

	fetched, err := store.GetMangaBySlug(ctx, "steel-ball-run")
	if err != nil {
		t.Fatalf("GetMangaBySlug failed: %v", err)
	}
	if fetched.ID != created.ID || fetched.Title != "Steel Ball Run" {
		t.Fatalf("unexpected manga: %+v", fetched)
	}
	if fetched.Status != catalog.StatusCompleted {
		t.Fatalf("unexpected status: %q", fetched.Status)
	}
}

func TestCreateMangaRejectsDuplicateSlug(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	if _, err := store.CreateManga(ctx, catalog.Manga{Title: "A", Slug: "dup"}); err != nil {
		t.Fatalf("first CreateManga failed: %v", err)
	}
	_, err := store.CreateManga(ctx, catalog.Manga{Title: "B", Slug: "dup"})
	if !errors.Is(err, catalog.ErrDuplicateSlug) {
		t.Fatalf("expected ErrDuplicateSlug, got %v", err)
	}
}

func TestGetMangaBySlugNotFound(t *testing.T) {
	store := mustOpen(t)
	_, err := store.GetMangaBySlug(context.Background(), "missing")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVolumeLifecycle(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	manga, err := store.CreateManga(ctx, catalog.Manga{Title: "Test", Slug: "test"})
	if err != nil {
		t.Fatalf("CreateManga failed: %v", err)
	}

	vol, err := store.AddVolume(ctx, catalog.Volume{
		MangaID:      manga.ID,
		VolumeNumber: 2,
		PageCount:    188,
		ChapterRange: "ch. 7-13",
	})
	if err != nil {
		t.Fatalf("AddVolume failed: %v", err)
	}
	if vol.ID == "" {
		t.Fatal("expected assigned volume ID")
	}

	if _, err := store.AddVolume(ctx, catalog.Volume{MangaID: manga.ID, VolumeNumber: 2}); err == nil {
		t.Fatal("expected duplicate volume number to fail")
	}

	if err := store.UpdateVolumePages(ctx, manga.ID, 2, 190); err != nil {
		t.Fatalf("UpdateVolumePages failed: %v", err)
	}
	fetched, err := store.GetVolume(ctx, manga.ID, 2)
	if err != nil {
		t.Fatalf("GetVolume failed: %v", err)
	}
	if fetched.PageCount != 190 {
		t.Fatalf("expected 190 pages, got %d", fetched.PageCount)
	}
	if fetched.ChapterRange != "ch. 7-13" {
		t.Fatalf("unexpected chapter range %q", fetched.ChapterRange)
	}

	if err := store.UpdateVolumePages(ctx, manga.ID, 9, 10); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown volume, got %v", err)
	}
}

func TestUpsertVolume(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	manga, err := store.CreateManga(ctx, catalog.Manga{Title: "Test", Slug: "test"})
	if err != nil {
		t.Fatalf("CreateManga failed: %v", err)
	}

	first, err := store.UpsertVolume(ctx, catalog.Volume{MangaID: manga.ID, VolumeNumber: 1, PageCount: 100})
	if err != nil {
		t.Fatalf("first UpsertVolume failed: %v", err)
	}
	second, err := store.UpsertVolume(ctx, catalog.Volume{MangaID: manga.ID, VolumeNumber: 1, PageCount: 104})
	if err != nil {
		t.Fatalf("second UpsertVolume failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert should keep the row identity: %q vs %q", second.ID, first.ID)
	}
	if second.PageCount != 104 {
		t.Fatalf("expected refreshed page count, got %d", second.PageCount)
	}

	vols, err := store.ListVolumes(ctx, manga.ID)
	if err != nil {
		t.Fatalf("ListVolumes failed: %v", err)
	}
	if len(vols) != 1 {
		t.Fatalf("expected one volume, got %d", len(vols))
	}
}

func TestListMangaWithVolumeCounts(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	a, _ := store.CreateManga(ctx, catalog.Manga{Title: "Alpha", Slug: "alpha"})
	if _, err := store.CreateManga(ctx, catalog.Manga{Title: "Beta", Slug: "beta"}); err != nil {
		t.Fatalf("CreateManga failed: %v", err)
	}
	for n := 1; n <= 3; n++ {
		if _, err := store.AddVolume(ctx, catalog.Volume{MangaID: a.ID, VolumeNumber: n, PageCount: 10}); err != nil {
			t.Fatalf("AddVolume failed: %v", err)
		}
	}

	list, err := store.ListManga(ctx)
	if err != nil {
		t.Fatalf("ListManga failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 manga, got %d", len(list))
	}
	if list[0].Slug != "alpha" || list[0].VolumeCount != 3 {
		t.Fatalf("unexpected first summary: %+v", list[0])
	}
	if list[1].Slug != "beta" || list[1].VolumeCount != 0 {
		t.Fatalf("unexpected second summary: %+v", list[1])
	}
}

func TestBookmarkRoundTrip(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	manga, err := store.CreateManga(ctx, catalog.Manga{Title: "Test", Slug: "test"})
	if err != nil {
		t.Fatalf("CreateManga failed: %v", err)
	}

	if _, err := store.GetBookmark(ctx, manga.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before set, got %v", err)
	}

	spreadURL := "https://cdn.example.com/manga/test/volume-002/006-007.webp"
	if err := store.SetBookmark(ctx, catalog.Bookmark{
		MangaID:      manga.ID,
		VolumeNumber: 2,
		PageNumber:   6,
		PageURL:      spreadURL,
	}); err != nil {
		t.Fatalf("SetBookmark failed: %v", err)
	}

	bm, err := store.GetBookmark(ctx, manga.ID)
	if err != nil {
		t.Fatalf("GetBookmark failed: %v", err)
	}
	if bm.PageURL != spreadURL || bm.PageNumber != 6 || bm.VolumeNumber != 2 {
		t.Fatalf("unexpected bookmark: %+v", bm)
	}

	// Replacing moves the single bookmark rather than adding rows.
	if err := store.SetBookmark(ctx, catalog.Bookmark{
		MangaID:      manga.ID,
		VolumeNumber: 3,
		PageNumber:   1,
		PageURL:      "https://cdn.example.com/manga/test/volume-003/001.webp",
	}); err != nil {
		t.Fatalf("second SetBookmark failed: %v", err)
	}
	bm, err = store.GetBookmark(ctx, manga.ID)
	if err != nil {
		t.Fatalf("GetBookmark after replace failed: %v", err)
	}
	if bm.VolumeNumber != 3 || bm.PageNumber != 1 {
		t.Fatalf("bookmark not replaced: %+v", bm)
	}
}

func TestDeleteMangaCascades(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	manga, _ := store.CreateManga(ctx, catalog.Manga{Title: "Gone", Slug: "gone"})
	if _, err := store.AddVolume(ctx, catalog.Volume{MangaID: manga.ID, VolumeNumber: 1, PageCount: 5}); err != nil {
		t.Fatalf("AddVolume failed: %v", err)
	}
	if err := store.DeleteManga(ctx, manga.ID); err != nil {
		t.Fatalf("DeleteManga failed: %v", err)
	}
	if _, err := store.GetMangaBySlug(ctx, "gone"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected manga gone, got %v", err)
	}
	vols, err := store.ListVolumes(ctx, manga.ID)
	if err != nil {
		t.Fatalf("ListVolumes failed: %v", err)
	}
	if len(vols) != 0 {
		t.Fatalf("expected cascade delete of volumes, got %d", len(vols))
	}
}
