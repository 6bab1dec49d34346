package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coachmart/preview-worker/internal/adapters/transcode"
	"github.com/coachmart/preview-worker/internal/core"
	"github.com/coachmart/preview-worker/internal/domain/model"
)

// CommandConfig configures a Command scanner.
type CommandConfig struct {
	Runner    transcode.Runner
	Path      string
	Args      []string
	Timeout   time.Duration
	Extractor Extractor
}

// Command runs a local scanner executable. The downloaded file path is appended as the
// last argument and the executable prints a JSON verdict on stdout.
type Command struct {
	cfg CommandConfig
}

var _ core.ContentScanner = (*Command)(nil)

// NewCommand validates cfg and returns a Command scanner.
func NewCommand(cfg CommandConfig) (*Command, error) {
	if cfg.Runner == nil {
		return nil, errors.New("scanner runner is required")
	}
	if cfg.Path == "" {
		return nil, errors.New("scanner command path is required")
	}
	if cfg.Extractor == (Extractor{}) {
		cfg.Extractor = DefaultExtractor()
	}
	if err := cfg.Extractor.Validate(); err != nil {
		return nil, err
	}
	return &Command{cfg: cfg}, nil
}

// Identity names the executable, its arguments and the result mapping.
func (c *Command) Identity() string {
	return strings.Join(append([]string{"command", c.cfg.Path}, c.cfg.Args...), " ") + " " + c.cfg.Extractor.identity()
}

// Scan runs the executable against req.LocalPath.
func (c *Command) Scan(ctx context.Context, req model.ScanRequest) (model.ScanResult, error) {
	args := append(append([]string{}, c.cfg.Args...), req.LocalPath)
	res, err := c.cfg.Runner.Run(ctx, transcode.Command{
		Path:    c.cfg.Path,
		Args:    args,
		Env:     []string{"SCAN_MIME_TYPE=" + req.MimeType, "SCAN_ORIGINAL_PATH=" + req.OriginalPath},
		Timeout: c.cfg.Timeout,
	})
	if err != nil {
		return model.ScanResult{}, fmt.Errorf("run scanner: %w", err)
	}
	return c.cfg.Extractor.Extract(res.Stdout)
}
