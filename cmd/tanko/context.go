package main

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"tanko/internal/bucket"
	"tanko/internal/catalog"
	"tanko/internal/config"
	"tanko/internal/convert"
	"tanko/internal/logging"
	"tanko/internal/pipeline"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// openStore opens the catalog database. The caller closes it.
func (c *commandContext) openStore() (*catalog.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return catalog.Open(cfg.DatabasePath())
}

// bucketService builds the object-store client when uploads are enabled.
// Returns nil without error when the bucket section is switched off.
func (c *commandContext) bucketService() (bucket.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	client, err := bucket.NewFromConfig(cfg, logger)
	if errors.Is(err, bucket.ErrDisabled) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

// newPipeline wires the full publishing pipeline. The returned cleanup closes
// the catalog store.
func (c *commandContext) newPipeline() (*pipeline.Pipeline, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	store, err := c.openStore()
	if err != nil {
		return nil, nil, err
	}
	bucketSvc, err := c.bucketService()
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	converter := convert.NewConverter(
		convert.NewCLI(convert.WithBinary(cfg.CwebpBinary())),
		cfg.Convert.Quality,
		logger,
	)
	p := pipeline.New(cfg, store, bucketSvc, converter, logger)
	cleanup := func() { store.Close() }
	return p, cleanup, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
