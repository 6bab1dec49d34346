package config

import (
	"os"
	"strings"
	"time"
)

// ProcessingConfig controls the external tools used by the format processor.
type ProcessingConfig struct {
	// WorkDir is the parent of the per-job temporary directories. Empty means os.TempDir().
	WorkDir string `env:"WORK_DIR" envDefault:""`

	PdftoppmPath string `env:"PDFTOPPM_PATH" envDefault:"pdftoppm"`
	FFmpegPath   string `env:"FFMPEG_PATH"   envDefault:"ffmpeg"`
	FFprobePath  string `env:"FFPROBE_PATH"  envDefault:"ffprobe"`
	SofficePath  string `env:"SOFFICE_PATH"  envDefault:"soffice"`

	// CommandTimeout bounds every external tool invocation.
	CommandTimeout time.Duration `env:"COMMAND_TIMEOUT" envDefault:"2m"`

	// StderrTailBytes caps how much subprocess stderr is kept for error messages.
	StderrTailBytes int `env:"STDERR_TAIL_BYTES" envDefault:"2048"`
}

// Sanitize applies guardrails to processing configuration values.
func (p *ProcessingConfig) Sanitize() {
	p.WorkDir = strings.TrimSpace(p.WorkDir)
	if p.WorkDir == "" {
		p.WorkDir = os.TempDir()
	}
	p.PdftoppmPath = fallback(p.PdftoppmPath, "pdftoppm")
	p.FFmpegPath = fallback(p.FFmpegPath, "ffmpeg")
	p.FFprobePath = fallback(p.FFprobePath, "ffprobe")
	p.SofficePath = fallback(p.SofficePath, "soffice")

	if p.CommandTimeout < 5*time.Second {
		p.CommandTimeout = 5 * time.Second
	}
	if p.CommandTimeout > 30*time.Minute {
		p.CommandTimeout = 30 * time.Minute
	}
	if p.StderrTailBytes < 256 {
		p.StderrTailBytes = 256
	}
}

// WatermarkConfig controls the label stamped onto every preview.
type WatermarkConfig struct {
	// ProductName is rendered as "<ProductName> • Preview" on images and "<ProductName> Preview" on video.
	ProductName string `env:"PRODUCT_NAME" envDefault:"CoachMart"`
}

// Sanitize applies guardrails to watermark configuration values.
func (w *WatermarkConfig) Sanitize() {
	w.ProductName = fallback(w.ProductName, "CoachMart")
}

func fallback(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}
