package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SetBookmark records the user's current reading position for a manga,
// replacing any previous bookmark. PageURL must be the physical URL actually
// rendered so resuming shows the exact image, spreads included.
func (s *Store) SetBookmark(ctx context.Context, bm Bookmark) error {
	ctx = ensureContext(ctx)
	if bm.MangaID == "" {
		return errors.New("catalog: bookmark requires a manga id")
	}
	if bm.PageURL == "" {
		return errors.New("catalog: bookmark requires the displayed page url")
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO bookmarks (manga_id, volume_number, page_number, page_url, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(manga_id) DO UPDATE SET
		   volume_number = excluded.volume_number,
		   page_number = excluded.page_number,
		   page_url = excluded.page_url,
		   updated_at = excluded.updated_at`,
		bm.MangaID, bm.VolumeNumber, bm.PageNumber, bm.PageURL, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("set bookmark: %w", err)
	}
	return nil
}

// GetBookmark fetches the reading position for a manga.
func (s *Store) GetBookmark(ctx context.Context, mangaID string) (*Bookmark, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT manga_id, volume_number, page_number, page_url, updated_at FROM bookmarks WHERE manga_id = ?",
		mangaID)
	var (
		bm      Bookmark
		updated string
	)
	err := row.Scan(&bm.MangaID, &bm.VolumeNumber, &bm.PageNumber, &bm.PageURL, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: bookmark for manga %s", ErrNotFound, mangaID)
	}
	if err != nil {
		return nil, fmt.Errorf("get bookmark: %w", err)
	}
	bm.UpdatedAt = parseTime(updated)
	return &bm, nil
}
