package config

import (
	"fmt"
	"os"
	"strings"

	"tanko/internal/naming"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeManga()
	c.normalizeBucket()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.SourceDir, err = expandPath(c.Paths.SourceDir); err != nil {
		return fmt.Errorf("paths.source_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeManga() {
	c.Manga.Title = strings.TrimSpace(c.Manga.Title)
	c.Manga.Slug = strings.TrimSpace(c.Manga.Slug)
	if c.Manga.Slug == "" && c.Manga.Title != "" {
		c.Manga.Slug = naming.Slug(c.Manga.Title)
	}
}

func (c *Config) normalizeBucket() {
	if c.Bucket.AccessKey == "" {
		if value, ok := os.LookupEnv("R2_ACCESS_KEY_ID"); ok {
			c.Bucket.AccessKey = value
		}
	}
	if c.Bucket.SecretKey == "" {
		if value, ok := os.LookupEnv("R2_SECRET_ACCESS_KEY"); ok {
			c.Bucket.SecretKey = value
		}
	}
	if c.Bucket.Endpoint == "" {
		if value, ok := os.LookupEnv("R2_BUCKET_URL"); ok {
			c.Bucket.Endpoint = value
		}
	}
	c.Bucket.Endpoint = strings.TrimSpace(c.Bucket.Endpoint)
	c.Bucket.Name = strings.TrimSpace(c.Bucket.Name)
	if c.Bucket.Name == "" {
		c.Bucket.Name = defaultBucketName
	}
	c.Bucket.CDNBaseURL = strings.TrimRight(strings.TrimSpace(c.Bucket.CDNBaseURL), "/")
	if c.Bucket.RequestTimeout <= 0 {
		c.Bucket.RequestTimeout = defaultBucketRequestTimeout
	}
	if c.Bucket.UploadRetries <= 0 {
		c.Bucket.UploadRetries = defaultBucketUploadRetries
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
