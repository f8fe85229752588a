package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tanko/internal/logging"
	"tanko/internal/naming"
)

// Result summarizes one volume conversion.
type Result struct {
	// PageCount is the number of logical page slots the volume occupies.
	// A double spread occupies two.
	PageCount int
	Converted int
	Skipped   int
	Errors    int
	OutputDir string
}

// Converter encodes source volumes into the published WebP layout.
type Converter struct {
	encoder Encoder
	quality int
	logger  *slog.Logger
}

// NewConverter wires an encoder with the configured quality.
func NewConverter(encoder Encoder, quality int, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Converter{
		encoder: encoder,
		quality: quality,
		logger:  logger.With(slog.String(logging.FieldComponent, "convert")),
	}
}

// ConvertVolume encodes every page of a source volume into
// <outputRoot>/<slug>/volume-NNN/. Pages are numbered in file order; landscape
// images are written under the hyphenated spread name and consume two numbers.
// Existing outputs are kept as-is and counted as skipped, so re-running after
// a partial failure only encodes what is missing.
func (c *Converter) ConvertVolume(ctx context.Context, slug string, vol VolumeSource, outputRoot string) (Result, error) {
	if len(vol.Pages) == 0 {
		return Result{}, fmt.Errorf("volume %d has no page images", vol.Number)
	}

	outDir := filepath.Join(outputRoot, slug, naming.VolumeDir(vol.Number))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}

	result := Result{OutputDir: outDir}
	page := 1
	for _, name := range vol.Pages {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		inputPath := filepath.Join(vol.Dir, name)
		landscape, err := isLandscape(inputPath)
		if err != nil {
			c.logger.Error("unreadable page image",
				slog.Int(logging.FieldVolume, vol.Number),
				slog.String("file", name),
				slog.Any("error", err))
			result.Errors++
			page++
			continue
		}

		outName := naming.PageFile(page)
		span := 1
		if landscape {
			outName = naming.SpreadFile(page, page+1)
			span = 2
		}
		outputPath := filepath.Join(outDir, outName)

		if _, err := os.Stat(outputPath); err == nil {
			result.Skipped++
			page += span
			continue
		}

		if err := c.encoder.Encode(ctx, inputPath, outputPath, c.quality); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			c.logger.Error("encode failed",
				slog.Int(logging.FieldVolume, vol.Number),
				slog.String("file", name),
				slog.Any("error", err))
			result.Errors++
			page += span
			continue
		}

		c.logger.Info("encoded page",
			slog.Int(logging.FieldVolume, vol.Number),
			slog.String("file", outName))
		result.Converted++
		page += span
	}

	result.PageCount = page - 1
	if result.Converted == 0 && result.Skipped == 0 {
		return result, errors.New("no pages converted")
	}
	return result, nil
}
