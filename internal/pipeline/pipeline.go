package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"tanko/internal/bucket"
	"tanko/internal/catalog"
	"tanko/internal/config"
	"tanko/internal/convert"
	"tanko/internal/logging"
	"tanko/internal/naming"
)

// VolumeReport summarizes one volume's trip through the pipeline.
type VolumeReport struct {
	Volume    int
	PageCount int
	Converted int
	Skipped   int
	Uploaded  int
	Errors    int
}

// Pipeline runs the convert, upload, and record stages.
type Pipeline struct {
	cfg       *config.Config
	store     *catalog.Store
	bucket    bucket.Service
	converter *convert.Converter
	logger    *slog.Logger
}

// New wires the pipeline. The bucket service may be nil when uploads are
// disabled; upload stages then report an error, but convert and record work.
func New(cfg *config.Config, store *catalog.Store, bucketSvc bucket.Service, converter *convert.Converter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:       cfg,
		store:     store,
		bucket:    bucketSvc,
		converter: converter,
		logger:    logger.With(slog.String(logging.FieldComponent, "pipeline")),
	}
}

// EnsureManga returns the configured manga's catalog row, creating it on first
// use from the [manga] config section.
func (p *Pipeline) EnsureManga(ctx context.Context) (*catalog.Manga, error) {
	slug := p.cfg.Manga.Slug
	if slug == "" {
		return nil, errors.New("no manga configured: set manga.title or manga.slug")
	}

	manga, err := p.store.GetMangaBySlug(ctx, slug)
	if err == nil {
		return manga, nil
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		return nil, err
	}

	title := p.cfg.Manga.Title
	if title == "" {
		title = slug
	}
	created, err := p.store.CreateManga(ctx, catalog.Manga{
		Title:        title,
		Slug:         slug,
		CoverURL:     naming.CoverURL(p.cfg.Bucket.CDNBaseURL, slug),
		TotalVolumes: p.cfg.Manga.TotalVolumes,
		Status:       catalog.StatusOngoing,
	})
	if err != nil {
		return nil, fmt.Errorf("create manga %s: %w", slug, err)
	}
	p.logger.Info("registered manga", slog.String(logging.FieldManga, slug))
	return created, nil
}

// Convert runs only the conversion stage for one volume.
func (p *Pipeline) Convert(ctx context.Context, volume int) (convert.Result, error) {
	src, err := convert.FindVolume(p.cfg.Paths.SourceDir, volume)
	if err != nil {
		return convert.Result{}, err
	}
	return p.converter.ConvertVolume(ctx, p.cfg.Manga.Slug, src, p.cfg.Paths.OutputDir)
}

// Upload pushes an already-converted volume directory to the bucket.
func (p *Pipeline) Upload(ctx context.Context, volume int) (bucket.UploadResult, error) {
	if p.bucket == nil {
		return bucket.UploadResult{}, bucket.ErrDisabled
	}
	dir := p.volumeOutputDir(volume)
	return p.bucket.UploadVolume(ctx, p.cfg.Manga.Slug, volume, dir)
}

// Record writes or updates the volume's catalog row.
func (p *Pipeline) Record(ctx context.Context, volume, pageCount int, chapterRange string) (*catalog.Volume, error) {
	manga, err := p.EnsureManga(ctx)
	if err != nil {
		return nil, err
	}
	vol, err := p.store.UpsertVolume(ctx, catalog.Volume{
		MangaID:      manga.ID,
		VolumeNumber: volume,
		PageCount:    pageCount,
		ChapterRange: chapterRange,
	})
	if err != nil {
		return nil, fmt.Errorf("record volume %d: %w", volume, err)
	}
	return vol, nil
}

// PublishVolume runs the full pipeline for one volume: convert, upload,
// record. Page-level errors are carried in the report; a stage that cannot run
// at all fails the publish.
func (p *Pipeline) PublishVolume(ctx context.Context, volume int) (VolumeReport, error) {
	report := VolumeReport{Volume: volume}

	conv, err := p.Convert(ctx, volume)
	report.Converted = conv.Converted
	report.Skipped = conv.Skipped
	report.Errors = conv.Errors
	report.PageCount = conv.PageCount
	if err != nil {
		return report, fmt.Errorf("convert volume %d: %w", volume, err)
	}

	if p.bucket != nil {
		up, err := p.bucket.UploadVolume(ctx, p.cfg.Manga.Slug, volume, conv.OutputDir)
		report.Uploaded = up.Uploaded
		report.Errors += up.Errors
		if err != nil {
			return report, fmt.Errorf("upload volume %d: %w", volume, err)
		}
	}

	if _, err := p.Record(ctx, volume, conv.PageCount, ""); err != nil {
		return report, err
	}

	p.logger.Info("published volume",
		slog.String(logging.FieldManga, p.cfg.Manga.Slug),
		slog.Int(logging.FieldVolume, volume),
		slog.Int("pages", conv.PageCount),
		slog.Int("uploaded", report.Uploaded),
		slog.Int("errors", report.Errors))
	return report, nil
}

// PublishAll publishes every volume folder found in the source tree.
func (p *Pipeline) PublishAll(ctx context.Context) ([]VolumeReport, error) {
	sources, err := convert.ScanSource(p.cfg.Paths.SourceDir)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no volume folders found under %s", p.cfg.Paths.SourceDir)
	}

	var reports []VolumeReport
	for _, src := range sources {
		report, err := p.PublishVolume(ctx, src.Number)
		reports = append(reports, report)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

func (p *Pipeline) volumeOutputDir(volume int) string {
	return filepath.Join(p.cfg.Paths.OutputDir, p.cfg.Manga.Slug, naming.VolumeDir(volume))
}
