package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AddVolume inserts a volume record for a manga. Adding the same volume number
// twice is an error; use UpsertVolume when re-publishing.
func (s *Store) AddVolume(ctx context.Context, vol Volume) (*Volume, error) {
	ctx = ensureContext(ctx)
	if vol.MangaID == "" {
		return nil, errors.New("catalog: volume requires a manga id")
	}
	if vol.VolumeNumber <= 0 {
		return nil, fmt.Errorf("catalog: volume number must be positive, got %d", vol.VolumeNumber)
	}
	vol.ID = uuid.NewString()
	now := time.Now()
	vol.CreatedAt = now
	vol.UpdatedAt = now

	_, err := s.execWithRetry(ctx,
		`INSERT INTO volumes (id, manga_id, volume_number, page_count, chapter_range, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		vol.ID, vol.MangaID, vol.VolumeNumber, vol.PageCount, vol.ChapterRange,
		formatTime(now), formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("catalog: volume %d already recorded for manga %s", vol.VolumeNumber, vol.MangaID)
		}
		return nil, fmt.Errorf("insert volume: %w", err)
	}
	return &vol, nil
}

// UpsertVolume inserts the volume or, when the number already exists for the
// manga, refreshes its page count and chapter range.
func (s *Store) UpsertVolume(ctx context.Context, vol Volume) (*Volume, error) {
	existing, err := s.GetVolume(ctx, vol.MangaID, vol.VolumeNumber)
	if errors.Is(err, ErrNotFound) {
		return s.AddVolume(ctx, vol)
	}
	if err != nil {
		return nil, err
	}
	existing.PageCount = vol.PageCount
	if vol.ChapterRange != "" {
		existing.ChapterRange = vol.ChapterRange
	}
	existing.UpdatedAt = time.Now()
	_, err = s.execWithRetry(ensureContext(ctx),
		`UPDATE volumes SET page_count = ?, chapter_range = ?, updated_at = ? WHERE id = ?`,
		existing.PageCount, existing.ChapterRange, formatTime(existing.UpdatedAt), existing.ID)
	if err != nil {
		return nil, fmt.Errorf("update volume: %w", err)
	}
	return existing, nil
}

// UpdateVolumePages sets the page count of an existing volume.
func (s *Store) UpdateVolumePages(ctx context.Context, mangaID string, volumeNumber, pageCount int) error {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx,
		`UPDATE volumes SET page_count = ?, updated_at = ? WHERE manga_id = ? AND volume_number = ?`,
		pageCount, formatTime(time.Now()), mangaID, volumeNumber)
	if err != nil {
		return fmt.Errorf("update volume pages: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update volume pages rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: volume %d of manga %s", ErrNotFound, volumeNumber, mangaID)
	}
	return nil
}

const volumeColumns = "id, manga_id, volume_number, page_count, chapter_range, created_at, updated_at"

func scanVolume(row interface{ Scan(...any) error }) (*Volume, error) {
	var (
		v                  Volume
		createdAt, updated string
	)
	if err := row.Scan(&v.ID, &v.MangaID, &v.VolumeNumber, &v.PageCount, &v.ChapterRange, &createdAt, &updated); err != nil {
		return nil, err
	}
	v.CreatedAt = parseTime(createdAt)
	v.UpdatedAt = parseTime(updated)
	return &v, nil
}

// GetVolume fetches a single volume of a manga by number.
func (s *Store) GetVolume(ctx context.Context, mangaID string, volumeNumber int) (*Volume, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+volumeColumns+" FROM volumes WHERE manga_id = ? AND volume_number = ?",
		mangaID, volumeNumber)
	vol, err := scanVolume(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: volume %d of manga %s", ErrNotFound, volumeNumber, mangaID)
	}
	if err != nil {
		return nil, fmt.Errorf("get volume: %w", err)
	}
	return vol, nil
}

// ListVolumes returns every recorded volume of a manga ordered by number.
func (s *Store) ListVolumes(ctx context.Context, mangaID string) ([]Volume, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+volumeColumns+" FROM volumes WHERE manga_id = ? ORDER BY volume_number",
		mangaID)
	if err != nil {
		return nil, fmt.Errorf("list volumes: %w", err)
	}
	defer rows.Close()

	var out []Volume
	for rows.Next() {
		vol, err := scanVolume(rows)
		if err != nil {
			return nil, fmt.Errorf("scan volume: %w", err)
		}
		out = append(out, *vol)
	}
	return out, rows.Err()
}
