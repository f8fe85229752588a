package bucket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"tanko/internal/config"
	"tanko/internal/logging"
	"tanko/internal/naming"
)

const (
	pageContentType  = "image/webp"
	pageCacheControl = "public, max-age=31536000, immutable"
)

// ErrDisabled is returned when bucket operations run without bucket.enabled.
var ErrDisabled = errors.New("bucket: disabled in configuration")

// VolumeObjects reports one volume folder found in the bucket and how many
// objects it holds.
type VolumeObjects struct {
	Number  int
	Objects int
}

// UploadResult summarizes one volume upload.
type UploadResult struct {
	Uploaded int
	Errors   int
}

// Service is the object-store surface the pipeline and reader depend on.
type Service interface {
	UploadVolume(ctx context.Context, slug string, volume int, dir string) (UploadResult, error)
	ListSlugs(ctx context.Context) ([]string, error)
	ListVolumes(ctx context.Context, slug string) ([]VolumeObjects, error)
	Exists(ctx context.Context, key string) bool
}

// Client implements Service against an S3-compatible endpoint.
type Client struct {
	api     *minio.Client
	bucket  string
	timeout time.Duration
	retries int
	logger  *slog.Logger
}

var _ Service = (*Client)(nil)

// NewFromConfig builds a client from configuration. Returns ErrDisabled when
// the bucket section is switched off.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil || !cfg.Bucket.Enabled {
		return nil, ErrDisabled
	}
	host, secure, err := parseEndpoint(cfg.Bucket.Endpoint)
	if err != nil {
		return nil, err
	}
	api, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Bucket.AccessKey, cfg.Bucket.SecretKey, ""),
		Secure: secure,
		Region: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("bucket: create client: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		api:     api,
		bucket:  cfg.Bucket.Name,
		timeout: time.Duration(cfg.Bucket.RequestTimeout) * time.Second,
		retries: cfg.Bucket.UploadRetries,
		logger:  logger.With(slog.String(logging.FieldComponent, "bucket")),
	}, nil
}

func parseEndpoint(endpoint string) (host string, secure bool, err error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return "", false, errors.New("bucket: endpoint is empty")
	}
	if !strings.Contains(trimmed, "://") {
		return trimmed, true, nil
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", false, fmt.Errorf("bucket: parse endpoint: %w", err)
	}
	if parsed.Host == "" {
		return "", false, fmt.Errorf("bucket: endpoint %q has no host", endpoint)
	}
	return parsed.Host, parsed.Scheme != "http", nil
}

// UploadVolume uploads every .webp file in dir under the volume's key prefix.
// Individual upload failures are counted, not fatal; the batch keeps going so
// one broken page does not abandon the volume.
func (c *Client) UploadVolume(ctx context.Context, slug string, volume int, dir string) (UploadResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return UploadResult{}, fmt.Errorf("bucket: read volume dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), naming.PageExtension) {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	if len(files) == 0 {
		return UploadResult{}, fmt.Errorf("bucket: no webp files found in %s", dir)
	}

	var result UploadResult
	for _, name := range files {
		key := naming.ObjectKey(slug, volume, name)
		if err := c.putFile(ctx, key, filepath.Join(dir, name)); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			c.logger.Error("upload failed", slog.String("key", key), slog.Any("error", err))
			result.Errors++
			continue
		}
		c.logger.Info("uploaded", slog.String("key", key))
		result.Uploaded++
	}
	return result, nil
}

func (c *Client) putFile(ctx context.Context, key, path string) error {
	return retry.Do(
		func() error {
			opCtx, cancel := c.opContext(ctx)
			defer cancel()
			_, err := c.api.FPutObject(opCtx, c.bucket, key, path, minio.PutObjectOptions{
				ContentType:  pageContentType,
				CacheControl: pageCacheControl,
			})
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.retries)),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// ListSlugs lists the manga folders present in the bucket.
func (c *Client) ListSlugs(ctx context.Context) ([]string, error) {
	opCtx, cancel := c.opContext(ctx)
	defer cancel()

	var slugs []string
	for object := range c.api.ListObjects(opCtx, c.bucket, minio.ListObjectsOptions{Prefix: "manga/"}) {
		if object.Err != nil {
			return nil, fmt.Errorf("bucket: list slugs: %w", object.Err)
		}
		if slug := slugFromPrefix(object.Key); slug != "" {
			slugs = append(slugs, slug)
		}
	}
	sort.Strings(slugs)
	return slugs, nil
}

// ListVolumes returns each volume folder under the manga prefix with its
// object count, sorted by volume number.
func (c *Client) ListVolumes(ctx context.Context, slug string) ([]VolumeObjects, error) {
	opCtx, cancel := c.opContext(ctx)
	defer cancel()

	prefix := naming.MangaPrefix(slug)
	var volumes []VolumeObjects
	for object := range c.api.ListObjects(opCtx, c.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if object.Err != nil {
			return nil, fmt.Errorf("bucket: list volumes: %w", object.Err)
		}
		number := volumeFromPrefix(prefix, object.Key)
		if number == 0 {
			continue
		}
		count, err := c.countObjects(ctx, object.Key)
		if err != nil {
			return nil, err
		}
		volumes = append(volumes, VolumeObjects{Number: number, Objects: count})
	}
	sort.Slice(volumes, func(i, j int) bool { return volumes[i].Number < volumes[j].Number })
	return volumes, nil
}

func (c *Client) countObjects(ctx context.Context, prefix string) (int, error) {
	opCtx, cancel := c.opContext(ctx)
	defer cancel()

	count := 0
	for object := range c.api.ListObjects(opCtx, c.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return 0, fmt.Errorf("bucket: count objects under %s: %w", prefix, object.Err)
		}
		count++
	}
	return count, nil
}

// Exists reports whether a key is present. Any stat failure reads as absent;
// the reader treats existence as a boolean signal, never an error.
func (c *Client) Exists(ctx context.Context, key string) bool {
	opCtx, cancel := c.opContext(ctx)
	defer cancel()
	_, err := c.api.StatObject(opCtx, c.bucket, key, minio.StatObjectOptions{})
	return err == nil
}

func (c *Client) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// slugFromPrefix extracts the manga slug from a common prefix such as
// "manga/steel-ball-run/".
func slugFromPrefix(key string) string {
	rest, ok := strings.CutPrefix(key, "manga/")
	if !ok {
		return ""
	}
	slug, _, found := strings.Cut(rest, "/")
	if !found {
		return ""
	}
	return slug
}

// volumeFromPrefix extracts the volume number from a common prefix such as
// "manga/<slug>/volume-002/". Returns 0 for anything else.
func volumeFromPrefix(mangaPrefix, key string) int {
	rest, ok := strings.CutPrefix(key, mangaPrefix)
	if !ok {
		return 0
	}
	folder, _, found := strings.Cut(rest, "/")
	if !found || !strings.HasPrefix(folder, "volume-") {
		return 0
	}
	return naming.VolumeNumber(folder)
}
