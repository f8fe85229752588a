package convert

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// Encoder defines WebP encoding behaviour.
type Encoder interface {
	Encode(ctx context.Context, inputPath, outputPath string, quality int) error
}

// Option configures the CLI encoder.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the cwebp command-line encoder.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI encoder using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "cwebp"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Encode runs cwebp on a single image.
func (c *CLI) Encode(ctx context.Context, inputPath, outputPath string, quality int) error {
	if inputPath == "" {
		return errors.New("input path required")
	}
	if outputPath == "" {
		return errors.New("output path required")
	}
	if quality < 1 || quality > 100 {
		return fmt.Errorf("quality %d out of range", quality)
	}

	args := []string{"-quiet", "-q", strconv.Itoa(quality), inputPath, "-o", outputPath}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail != "" {
			return fmt.Errorf("cwebp failed: %w: %s", err, detail)
		}
		return fmt.Errorf("cwebp failed: %w", err)
	}
	return nil
}

var _ Encoder = (*CLI)(nil)
