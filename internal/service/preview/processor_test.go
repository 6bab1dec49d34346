package preview

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachmart/preview-worker/internal/adapters/transcode"
)

const testResourceID = "9b2f6a4e-4f1e-4d8e-9a77-0c1e4c7d2b10"

type processorFixture struct {
	renderer  *fakeRenderer
	video     *fakeTranscoder
	converter *fakeConverter
	proc      *Processor
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	f := &processorFixture{
		renderer:  &fakeRenderer{},
		video:     &fakeTranscoder{},
		converter: &fakeConverter{produce: true},
	}
	proc, err := NewProcessor(ProcessorOptions{
		PDF:         f.renderer,
		Video:       f.video,
		Documents:   f.converter,
		Watermark:   newTestWatermark(t),
		ProductName: "CoachMart",
	})
	require.NoError(t, err)
	f.proc = proc
	return f
}

func TestProcessor_PDFPageCounts(t *testing.T) {
	tests := []struct {
		name      string
		pages     int
		wantPages int
	}{
		{name: "long document capped at three", pages: 5, wantPages: 3},
		{name: "short document", pages: 2, wantPages: 2},
		{name: "single page", pages: 1, wantPages: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProcessorFixture(t)
			f.renderer.pages = tt.pages
			workDir := t.TempDir()

			artifacts, err := f.proc.Process(context.Background(), ProcessInput{
				ResourceID: testResourceID,
				Kind:       KindPDF,
				SourcePath: "/in/doc.pdf",
				WorkDir:    workDir,
			})
			require.NoError(t, err)
			require.Len(t, artifacts, tt.wantPages)

			assert.Equal(t, transcode.RenderOptions{FirstPage: 1, LastPage: 3, Width: 800}, f.renderer.gotOpts)
			for i, a := range artifacts {
				assert.Equal(t, fmt.Sprintf("%s/page_%d.png", testResourceID, i+1), a.Key)
				assert.Equal(t, "image/png", a.ContentType)
				assert.FileExists(t, a.LocalPath)
			}
		})
	}
}

func TestProcessor_PDFRendererOverflowIsTrimmed(t *testing.T) {
	f := newProcessorFixture(t)
	f.renderer.pages = 5
	f.renderer.ignoreRange = true

	artifacts, err := f.proc.Process(context.Background(), ProcessInput{
		ResourceID: testResourceID, Kind: KindPDF, SourcePath: "/in/doc.pdf", WorkDir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.Len(t, artifacts, 3)
}

func TestProcessor_PDFZeroPagesFails(t *testing.T) {
	f := newProcessorFixture(t)
	f.renderer.pages = 0

	_, err := f.proc.Process(context.Background(), ProcessInput{
		ResourceID: testResourceID, Kind: KindPDF, SourcePath: "/in/doc.pdf", WorkDir: t.TempDir(),
	})
	require.ErrorIs(t, err, ErrNoPagesRendered)
}

func TestProcessor_PDFRenderTimeout(t *testing.T) {
	f := newProcessorFixture(t)
	f.renderer.err = &transcode.TimeoutError{Command: "pdftoppm", After: time.Second}

	_, err := f.proc.Process(context.Background(), ProcessInput{
		ResourceID: testResourceID, Kind: KindPDF, SourcePath: "/in/doc.pdf", WorkDir: t.TempDir(),
	})
	require.ErrorIs(t, err, transcode.ErrTimeout)
}

func TestProcessor_ImageFitsWithoutUpscaling(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{name: "landscape downscaled", w: 1600, h: 1200, wantW: 800, wantH: 600},
		{name: "tall downscaled", w: 1000, h: 2000, wantW: 300, wantH: 600},
		{name: "small kept", w: 200, h: 100, wantW: 200, wantH: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProcessorFixture(t)
			workDir := t.TempDir()
			src := filepath.Join(workDir, "original.jpg")
			mustWritePNG(t, src, tt.w, tt.h)

			artifacts, err := f.proc.Process(context.Background(), ProcessInput{
				ResourceID: testResourceID, Kind: KindImage, SourcePath: src, WorkDir: workDir,
			})
			require.NoError(t, err)
			require.Len(t, artifacts, 1)
			assert.Equal(t, testResourceID+"/preview.png", artifacts[0].Key)

			img, err := imaging.Open(artifacts[0].LocalPath)
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, img.Bounds().Dx())
			assert.Equal(t, tt.wantH, img.Bounds().Dy())
		})
	}
}

func TestProcessor_ImageDecodeError(t *testing.T) {
	f := newProcessorFixture(t)
	workDir := t.TempDir()
	src := filepath.Join(workDir, "original.png")
	require.NoError(t, os.WriteFile(src, []byte("not an image"), 0o600))

	_, err := f.proc.Process(context.Background(), ProcessInput{
		ResourceID: testResourceID, Kind: KindImage, SourcePath: src, WorkDir: workDir,
	})
	require.Error(t, err)
}

func TestProcessor_Video(t *testing.T) {
	f := newProcessorFixture(t)
	f.video.duration = 30*time.Second + 40*time.Millisecond

	artifacts, err := f.proc.Process(context.Background(), ProcessInput{
		ResourceID: testResourceID, Kind: KindVideo, SourcePath: "/in/clip.mov", WorkDir: t.TempDir(),
	})
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, artifacts[0].LocalPath, f.video.probed, "duration is checked on the output")
	assert.Equal(t, testResourceID+"/preview.mp4", artifacts[0].Key)
	assert.Equal(t, "video/mp4", artifacts[0].ContentType)

	assert.Equal(t, transcode.VideoOptions{
		MaxDuration:  30 * time.Second,
		Width:        640,
		Height:       360,
		VideoBitrate: "500k",
		AudioBitrate: "128k",
		Label:        "CoachMart Preview",
	}, f.video.gotOpts)
}

func TestProcessor_VideoDurationCheck(t *testing.T) {
	t.Run("output longer than the preview window", func(t *testing.T) {
		f := newProcessorFixture(t)
		f.video.duration = 90 * time.Second

		_, err := f.proc.Process(context.Background(), ProcessInput{
			ResourceID: testResourceID, Kind: KindVideo, SourcePath: "/in/clip.mov", WorkDir: t.TempDir(),
		})
		require.ErrorIs(t, err, ErrPreviewTooLong)
	})

	t.Run("duration read failure", func(t *testing.T) {
		f := newProcessorFixture(t)
		f.video.probeErr = errors.New("ffprobe missing")

		_, err := f.proc.Process(context.Background(), ProcessInput{
			ResourceID: testResourceID, Kind: KindVideo, SourcePath: "/in/clip.mov", WorkDir: t.TempDir(),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "measure video preview")
	})
}

func TestProcessor_VideoTranscodeFailure(t *testing.T) {
	f := newProcessorFixture(t)
	f.video.err = &transcode.ExitError{Command: "ffmpeg", ExitCode: 1, StderrTail: "Invalid data"}

	_, err := f.proc.Process(context.Background(), ProcessInput{
		ResourceID: testResourceID, Kind: KindVideo, SourcePath: "/in/clip.mov", WorkDir: t.TempDir(),
	})
	var exitErr *transcode.ExitError
	require.ErrorAs(t, err, &exitErr)
}

func TestProcessor_OfficeConvertsThenRendersPDF(t *testing.T) {
	f := newProcessorFixture(t)
	f.renderer.pages = 4
	workDir := t.TempDir()

	artifacts, err := f.proc.Process(context.Background(), ProcessInput{
		ResourceID: testResourceID, Kind: KindConvertThenPDF, SourcePath: "/in/slides.pptx", WorkDir: workDir,
	})
	require.NoError(t, err)
	assert.Len(t, artifacts, 3)
	assert.Equal(t, filepath.Join(workDir, "converted", "converted.pdf"), f.renderer.gotPDF)
}

func TestProcessor_OfficeMissingOutput(t *testing.T) {
	f := newProcessorFixture(t)
	f.converter.produce = false

	_, err := f.proc.Process(context.Background(), ProcessInput{
		ResourceID: testResourceID, Kind: KindConvertThenPDF, SourcePath: "/in/slides.pptx", WorkDir: t.TempDir(),
	})
	require.ErrorIs(t, err, ErrConversionNoOutput)
}

func TestProcessor_OfficeConverterError(t *testing.T) {
	f := newProcessorFixture(t)
	f.converter.err = errors.New("soffice crashed")

	_, err := f.proc.Process(context.Background(), ProcessInput{
		ResourceID: testResourceID, Kind: KindConvertThenPDF, SourcePath: "/in/slides.pptx", WorkDir: t.TempDir(),
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConversionNoOutput)
}

func TestProcessor_UnknownKind(t *testing.T) {
	f := newProcessorFixture(t)
	_, err := f.proc.Process(context.Background(), ProcessInput{Kind: Kind("audio"), WorkDir: t.TempDir()})
	require.Error(t, err)
}

func TestNewProcessor_RequiresDependencies(t *testing.T) {
	_, err := NewProcessor(ProcessorOptions{})
	require.Error(t, err)
}

func TestProcessor_RerunReusesArtifactKeys(t *testing.T) {
	f := newProcessorFixture(t)
	f.renderer.pages = 5

	keys := func() []string {
		artifacts, err := f.proc.Process(context.Background(), ProcessInput{
			ResourceID: testResourceID, Kind: KindPDF, SourcePath: "/in/doc.pdf", WorkDir: t.TempDir(),
		})
		require.NoError(t, err)
		out := make([]string, 0, len(artifacts))
		for _, a := range artifacts {
			out = append(out, a.Key)
		}
		return out
	}

	first := keys()
	f.renderer.pages = 2
	second := keys()
	require.Len(t, second, 2)
	assert.Equal(t, first[:2], second)
}
