package readerd

import "time"

// StatusResponse reports daemon runtime information.
type StatusResponse struct {
	Running      bool   `json:"running"`
	PID          int    `json:"pid"`
	DatabasePath string `json:"database_path"`
	LockFilePath string `json:"lock_file_path"`
	MangaCount   int    `json:"manga_count"`
}

// MangaPayload is one catalog series.
type MangaPayload struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	CoverURL     string    `json:"cover_url"`
	TotalVolumes int       `json:"total_volumes"`
	VolumeCount  int       `json:"volume_count,omitempty"`
	Status       string    `json:"status"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MangaListResponse wraps the catalog listing.
type MangaListResponse struct {
	Manga []MangaPayload `json:"manga"`
}

// VolumePayload is one published volume.
type VolumePayload struct {
	VolumeNumber int    `json:"volume_number"`
	PageCount    int    `json:"page_count"`
	ChapterRange string `json:"chapter_range,omitempty"`
}

// MangaDetailResponse is one series with its volumes.
type MangaDetailResponse struct {
	Manga   MangaPayload    `json:"manga"`
	Volumes []VolumePayload `json:"volumes"`
}

// VolumeDetailResponse is one volume plus the effective page count the
// resolver has established so far.
type VolumeDetailResponse struct {
	Volume             VolumePayload `json:"volume"`
	EffectivePageCount int           `json:"effective_page_count"`
}

// PageResponse is a resolved page view. Page numbers are 1-based; for a
// spread, FirstPage and LastPage differ and URL points at the merged asset.
type PageResponse struct {
	Page               int    `json:"page"`
	Kind               string `json:"kind"`
	URL                string `json:"url"`
	FirstPage          int    `json:"first_page"`
	LastPage           int    `json:"last_page"`
	EffectivePageCount int    `json:"effective_page_count"`
}

// BookmarkPayload is the user's reading position in a manga.
type BookmarkPayload struct {
	VolumeNumber int       `json:"volume_number"`
	PageNumber   int       `json:"page_number"`
	PageURL      string    `json:"page_url"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}
