package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBucket(); err != nil {
		return err
	}
	if err := c.validateConvert(); err != nil {
		return err
	}
	if err := c.validateReader(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBucket() error {
	if !c.Bucket.Enabled {
		return nil
	}
	if c.Bucket.Endpoint == "" {
		return errors.New("bucket.endpoint is required when bucket.enabled is true. Set R2_BUCKET_URL or edit the config (create with 'tanko config init')")
	}
	if c.Bucket.AccessKey == "" || c.Bucket.SecretKey == "" {
		return errors.New("bucket.access_key and bucket.secret_key are required when bucket.enabled is true. Set R2_ACCESS_KEY_ID / R2_SECRET_ACCESS_KEY or edit the config")
	}
	if c.Bucket.CDNBaseURL == "" {
		return errors.New("bucket.cdn_base_url must be set when bucket.enabled is true")
	}
	return nil
}

func (c *Config) validateConvert() error {
	if c.Convert.Quality < 1 || c.Convert.Quality > 100 {
		return fmt.Errorf("convert.quality must be between 1 and 100, got %d", c.Convert.Quality)
	}
	return nil
}

func (c *Config) validateReader() error {
	if c.Reader.ProbeTimeout <= 0 {
		return errors.New("reader.probe_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}
