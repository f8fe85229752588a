package catalog

import "time"

// Status describes the publication state of a manga.
type Status string

const (
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
)

// Manga is one hosted series.
type Manga struct {
	ID           string
	Title        string
	Slug         string
	CoverURL     string
	TotalVolumes int
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MangaSummary is a manga row joined with its recorded volume count.
type MangaSummary struct {
	Manga
	VolumeCount int
}

// Volume is one published tankobon of a manga.
type Volume struct {
	ID           string
	MangaID      string
	VolumeNumber int
	PageCount    int
	ChapterRange string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Bookmark is the user's current reading position in a manga. PageURL holds
// the physical asset actually displayed, which for a double spread differs
// from the declared single-page URL, so resuming reproduces the exact image.
type Bookmark struct {
	MangaID      string
	VolumeNumber int
	PageNumber   int
	PageURL      string
	UpdatedAt    time.Time
}
