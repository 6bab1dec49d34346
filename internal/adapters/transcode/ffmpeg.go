package transcode

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FFmpeg produces short watermarked preview clips.
type FFmpeg struct {
	Runner      Runner
	FFmpegPath  string
	FFprobePath string
	Timeout     time.Duration
}

// VideoOptions controls the preview clip.
type VideoOptions struct {
	MaxDuration  time.Duration
	Width        int
	Height       int
	VideoBitrate string
	AudioBitrate string
	// Label is burned into the bottom centre of every frame.
	Label string
}

// TranscodePreview clips, scales and watermarks inputPath into an MP4 at outputPath.
func (f *FFmpeg) TranscodePreview(ctx context.Context, inputPath, outputPath string, opts VideoOptions) error {
	if _, err := f.Runner.Run(ctx, Command{
		Path:    fallback(f.FFmpegPath, "ffmpeg"),
		Args:    previewArgs(inputPath, outputPath, opts),
		Timeout: f.Timeout,
	}); err != nil {
		return fmt.Errorf("transcode video preview: %w", err)
	}
	return nil
}

func previewArgs(inputPath, outputPath string, opts VideoOptions) []string {
	filter := fmt.Sprintf("scale=%d:%d", opts.Width, opts.Height)
	if opts.Label != "" {
		filter += ",drawtext=text='" + escapeDrawtext(opts.Label) + "'" +
			":fontcolor=white@0.85:fontsize=20" +
			":box=1:boxcolor=black@0.45:boxborderw=8" +
			":x=(w-text_w)/2:y=h-text_h-24"
	}

	bufsize := opts.VideoBitrate
	if n, err := strconv.Atoi(strings.TrimSuffix(opts.VideoBitrate, "k")); err == nil {
		bufsize = strconv.Itoa(n*2) + "k"
	}

	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputPath,
		"-t", formatSeconds(opts.MaxDuration),
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-b:v", opts.VideoBitrate,
		"-maxrate", opts.VideoBitrate,
		"-bufsize", bufsize,
		"-c:a", "aac",
		"-b:a", opts.AudioBitrate,
		"-movflags", "+faststart",
		outputPath,
	}
}

// ProbeDuration reads the container duration with ffprobe.
func (f *FFmpeg) ProbeDuration(ctx context.Context, inputPath string) (time.Duration, error) {
	res, err := f.Runner.Run(ctx, Command{
		Path: fallback(f.FFprobePath, "ffprobe"),
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			inputPath,
		},
		Timeout: f.Timeout,
	})
	if err != nil {
		return 0, fmt.Errorf("probe duration: %w", err)
	}
	raw := strings.TrimSpace(string(res.Stdout))
	if raw == "" || raw == "N/A" {
		return 0, errors.New("probe duration: empty duration")
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("probe duration: parse %q: %w", raw, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// escapeDrawtext escapes characters that end or split a drawtext option value.
func escapeDrawtext(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`, `%`, `\%`).Replace(s)
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
