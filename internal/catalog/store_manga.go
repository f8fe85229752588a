package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateManga inserts a new manga row and returns it with an assigned ID.
func (s *Store) CreateManga(ctx context.Context, manga Manga) (*Manga, error) {
	ctx = ensureContext(ctx)
	manga.Title = strings.TrimSpace(manga.Title)
	manga.Slug = strings.TrimSpace(manga.Slug)
	if manga.Title == "" {
		return nil, errors.New("catalog: manga title is required")
	}
	if manga.Slug == "" {
		return nil, errors.New("catalog: manga slug is required")
	}
	if manga.Status == "" {
		manga.Status = StatusOngoing
	}
	manga.ID = uuid.NewString()
	now := time.Now()
	manga.CreatedAt = now
	manga.UpdatedAt = now

	_, err := s.execWithRetry(ctx,
		`INSERT INTO manga (id, title, slug, cover_url, total_volumes, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		manga.ID, manga.Title, manga.Slug, manga.CoverURL, manga.TotalVolumes,
		string(manga.Status), formatTime(now), formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSlug, manga.Slug)
		}
		return nil, fmt.Errorf("insert manga: %w", err)
	}
	return &manga, nil
}

const mangaColumns = "id, title, slug, cover_url, total_volumes, status, created_at, updated_at"

func scanManga(row interface{ Scan(...any) error }) (*Manga, error) {
	var (
		m                  Manga
		status             string
		createdAt, updated string
	)
	if err := row.Scan(&m.ID, &m.Title, &m.Slug, &m.CoverURL, &m.TotalVolumes, &status, &createdAt, &updated); err != nil {
		return nil, err
	}
	m.Status = Status(status)
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updated)
	return &m, nil
}

// GetMangaBySlug fetches a manga by its slug.
func (s *Store) GetMangaBySlug(ctx context.Context, slug string) (*Manga, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+mangaColumns+" FROM manga WHERE slug = ?", strings.TrimSpace(slug))
	manga, err := scanManga(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: manga %q", ErrNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("get manga by slug: %w", err)
	}
	return manga, nil
}

// GetMangaByID fetches a manga by its ID.
func (s *Store) GetMangaByID(ctx context.Context, id string) (*Manga, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+mangaColumns+" FROM manga WHERE id = ?", id)
	manga, err := scanManga(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: manga id %q", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get manga by id: %w", err)
	}
	return manga, nil
}

// ListManga returns every manga with its recorded volume count, ordered by title.
func (s *Store) ListManga(ctx context.Context) ([]MangaSummary, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.title, m.slug, m.cover_url, m.total_volumes, m.status,
		       m.created_at, m.updated_at, COUNT(v.id)
		FROM manga m
		LEFT JOIN volumes v ON v.manga_id = m.id
		GROUP BY m.id
		ORDER BY m.title COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("list manga: %w", err)
	}
	defer rows.Close()

	var out []MangaSummary
	for rows.Next() {
		var (
			summary            MangaSummary
			status             string
			createdAt, updated string
		)
		if err := rows.Scan(&summary.ID, &summary.Title, &summary.Slug, &summary.CoverURL,
			&summary.TotalVolumes, &status, &createdAt, &updated, &summary.VolumeCount); err != nil {
			return nil, fmt.Errorf("scan manga summary: %w", err)
		}
		summary.Status = Status(status)
		summary.CreatedAt = parseTime(createdAt)
		summary.UpdatedAt = parseTime(updated)
		out = append(out, summary)
	}
	return out, rows.Err()
}

// DeleteManga removes a manga and, via cascade, its volumes and bookmark.
func (s *Store) DeleteManga(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, "DELETE FROM manga WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete manga: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete manga rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: manga id %q", ErrNotFound, id)
	}
	return nil
}
