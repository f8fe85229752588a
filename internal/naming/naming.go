// Package naming centralizes the identifier rules shared by every part of
// tanko: manga slugs, zero-padded page and volume numbers, bucket object keys,
// and CDN page URLs. Keeping these in one place guarantees the converter, the
// uploader, the catalog, and the reader agree on the same layout.
package naming

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PadWidth is the zero-pad width used for page and volume numbers.
const PadWidth = 3

// PageExtension is the fixed extension of every published page asset.
const PageExtension = ".webp"

var (
	slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)
	volumePattern  = regexp.MustCompile(`(?i)v(?:ol(?:ume)?)?[ ._-]?(\d+)`)
)

// Slug derives a URL-safe slug from a manga title. Diacritics are folded to
// their base letters, everything outside [a-z0-9] collapses to a single
// hyphen.
func Slug(title string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, title)
	if err != nil {
		folded = title
	}
	lowered := strings.ToLower(folded)
	slug := slugSeparators.ReplaceAllString(lowered, "-")
	return strings.Trim(slug, "-")
}

// Pad renders n with the standard zero padding ("7" -> "007").
func Pad(n int) string {
	return fmt.Sprintf("%0*d", PadWidth, n)
}

// PageFile is the file name of a single page ("007.webp").
func PageFile(page int) string {
	return Pad(page) + PageExtension
}

// SpreadFile is the file name of a merged double spread ("006-007.webp").
func SpreadFile(first, second int) string {
	return Pad(first) + "-" + Pad(second) + PageExtension
}

// VolumeDir is the per-volume directory name ("volume-002").
func VolumeDir(volume int) string {
	return "volume-" + Pad(volume)
}

// ObjectKey is the bucket key of a file within a volume
// ("manga/<slug>/volume-NNN/<file>").
func ObjectKey(slug string, volume int, file string) string {
	return VolumePrefix(slug, volume) + file
}

// VolumePrefix is the bucket key prefix of a volume, trailing slash included.
func VolumePrefix(slug string, volume int) string {
	return MangaPrefix(slug) + VolumeDir(volume) + "/"
}

// MangaPrefix is the bucket key prefix of a manga, trailing slash included.
func MangaPrefix(slug string) string {
	return "manga/" + slug + "/"
}

// PageURL is the declared CDN URL of a single page.
func PageURL(baseURL, slug string, volume, page int) string {
	return strings.TrimRight(baseURL, "/") + "/" + ObjectKey(slug, volume, PageFile(page))
}

// SpreadURL is the CDN URL of a merged double spread.
func SpreadURL(baseURL, slug string, volume, first, second int) string {
	return strings.TrimRight(baseURL, "/") + "/" + ObjectKey(slug, volume, SpreadFile(first, second))
}

// CoverURL is the conventional cover image for a manga: the first page of the
// first volume.
func CoverURL(baseURL, slug string) string {
	return PageURL(baseURL, slug, 1, 1)
}

// VolumeNumber extracts the volume number from a source folder name such as
// "v02", "Vol 12", or "volume-003". Returns 0 when the name carries none.
func VolumeNumber(folderName string) int {
	match := volumePattern.FindStringSubmatch(folderName)
	if match == nil {
		return 0
	}
	n := 0
	for _, r := range match[1] {
		n = n*10 + int(r-'0')
	}
	return n
}
