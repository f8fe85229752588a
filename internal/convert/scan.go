package convert

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"tanko/internal/naming"
)

// VolumeSource is one volume folder found in the source tree.
type VolumeSource struct {
	Number int
	Dir    string
	Pages  []string
}

var pageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// ScanSource walks the source directory for volume folders and lists the page
// images inside each one. Folders without a recognizable volume number are
// skipped; page files sort by name, which is the page order.
func ScanSource(sourceDir string) ([]VolumeSource, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("read source dir: %w", err)
	}

	var volumes []VolumeSource
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		number := naming.VolumeNumber(entry.Name())
		if number == 0 {
			continue
		}
		dir := filepath.Join(sourceDir, entry.Name())
		pages, err := listPages(dir)
		if err != nil {
			return nil, err
		}
		if len(pages) == 0 {
			continue
		}
		volumes = append(volumes, VolumeSource{Number: number, Dir: dir, Pages: pages})
	}
	sort.Slice(volumes, func(i, j int) bool { return volumes[i].Number < volumes[j].Number })
	return volumes, nil
}

// FindVolume scans the source tree for a single volume by number.
func FindVolume(sourceDir string, number int) (VolumeSource, error) {
	volumes, err := ScanSource(sourceDir)
	if err != nil {
		return VolumeSource{}, err
	}
	for _, vol := range volumes {
		if vol.Number == number {
			return vol, nil
		}
	}
	return VolumeSource{}, fmt.Errorf("volume %d not found under %s", number, sourceDir)
}

func listPages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read volume dir: %w", err)
	}
	var pages []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !pageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		pages = append(pages, entry.Name())
	}
	sort.Strings(pages)
	return pages, nil
}

// isLandscape reports whether an image is wider than tall. Landscape scans are
// pre-merged double spreads and take two page numbers.
func isLandscape(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return false, fmt.Errorf("decode image header %s: %w", filepath.Base(path), err)
	}
	return cfg.Width > cfg.Height, nil
}
