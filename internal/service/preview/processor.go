package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"github.com/coachmart/preview-worker/internal/adapters/transcode"
	"github.com/coachmart/preview-worker/internal/domain/model"
)

var (
	// ErrNoPagesRendered is returned when a PDF render produced no page images.
	ErrNoPagesRendered = errors.New("pdf render produced no pages")
	// ErrConversionNoOutput is returned when the office converter exited without writing a PDF.
	ErrConversionNoOutput = errors.New("document conversion produced no output")
	// ErrPreviewTooLong is returned when the transcoded clip exceeds the preview duration.
	ErrPreviewTooLong = errors.New("video preview exceeds maximum duration")
)

// videoDurationTolerance absorbs container rounding on clips cut at MaxDuration.
const videoDurationTolerance = time.Second

// PDFRenderer rasterises a page range of a PDF.
type PDFRenderer interface {
	RenderPages(ctx context.Context, pdfPath, outDir string, opts transcode.RenderOptions) ([]string, error)
}

// VideoTranscoder produces a clipped, watermarked video preview.
type VideoTranscoder interface {
	TranscodePreview(ctx context.Context, inputPath, outputPath string, opts transcode.VideoOptions) error
	ProbeDuration(ctx context.Context, inputPath string) (time.Duration, error)
}

// DocumentConverter converts office documents to PDF and returns the expected output path.
type DocumentConverter interface {
	ConvertToPDF(ctx context.Context, inputPath, outDir string) (string, error)
}

// ProcessorOptions configures NewProcessor. Zero sizes take the defaults below.
type ProcessorOptions struct {
	PDF       PDFRenderer
	Video     VideoTranscoder
	Documents DocumentConverter
	Watermark *Watermark
	Logger    *slog.Logger

	// ProductName feeds the burned-in video label.
	ProductName string

	PDFMaxPages  int
	PDFWidth     int
	ImageMaxW    int
	ImageMaxH    int
	VideoOptions transcode.VideoOptions
}

// Processor turns a downloaded original into upload-ready artifacts.
type Processor struct {
	pdf       PDFRenderer
	video     VideoTranscoder
	docs      DocumentConverter
	watermark *Watermark
	logger    *slog.Logger

	pdfMaxPages int
	pdfWidth    int
	imageMaxW   int
	imageMaxH   int
	videoOpts   transcode.VideoOptions
}

// NewProcessor validates dependencies and applies defaults.
func NewProcessor(opts ProcessorOptions) (*Processor, error) {
	if opts.PDF == nil || opts.Video == nil || opts.Documents == nil {
		return nil, errors.New("pdf renderer, video transcoder and document converter are required")
	}
	if opts.Watermark == nil {
		return nil, errors.New("watermark is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Processor{
		pdf:         opts.PDF,
		video:       opts.Video,
		docs:        opts.Documents,
		watermark:   opts.Watermark,
		logger:      logger.With("component", "preview_processor"),
		pdfMaxPages: positiveOr(opts.PDFMaxPages, 3),
		pdfWidth:    positiveOr(opts.PDFWidth, 800),
		imageMaxW:   positiveOr(opts.ImageMaxW, 800),
		imageMaxH:   positiveOr(opts.ImageMaxH, 600),
		videoOpts:   opts.VideoOptions,
	}
	p.videoOpts = withVideoDefaults(p.videoOpts, opts.ProductName)
	return p, nil
}

func withVideoDefaults(v transcode.VideoOptions, productName string) transcode.VideoOptions {
	if v.MaxDuration <= 0 {
		v.MaxDuration = 30 * time.Second
	}
	v.Width = positiveOr(v.Width, 640)
	v.Height = positiveOr(v.Height, 360)
	if v.VideoBitrate == "" {
		v.VideoBitrate = "500k"
	}
	if v.AudioBitrate == "" {
		v.AudioBitrate = "128k"
	}
	if v.Label == "" && productName != "" {
		v.Label = VideoLabel(productName)
	}
	return v
}

// ProcessInput describes one job's processing request.
type ProcessInput struct {
	ResourceID string
	Kind       Kind
	SourcePath string
	// WorkDir is the job's scratch directory; outputs are written beneath it.
	WorkDir string
}

// Process dispatches on in.Kind and returns artifacts in publish order. The first
// artifact is the resource's primary preview.
func (p *Processor) Process(ctx context.Context, in ProcessInput) ([]model.Artifact, error) {
	switch in.Kind {
	case KindPDF:
		return p.processPDF(ctx, in.ResourceID, in.SourcePath, in.WorkDir)
	case KindVideo:
		return p.processVideo(ctx, in)
	case KindImage:
		return p.processImage(in)
	case KindConvertThenPDF:
		return p.processOffice(ctx, in)
	default:
		return nil, errUnknownKind(in.Kind)
	}
}

func (p *Processor) processPDF(ctx context.Context, resourceID, pdfPath, workDir string) ([]model.Artifact, error) {
	renderDir := filepath.Join(workDir, "pages")
	pages, err := p.pdf.RenderPages(ctx, pdfPath, renderDir, transcode.RenderOptions{
		FirstPage: 1,
		LastPage:  p.pdfMaxPages,
		Width:     p.pdfWidth,
	})
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, ErrNoPagesRendered
	}
	if len(pages) > p.pdfMaxPages {
		pages = pages[:p.pdfMaxPages]
	}

	outDir := filepath.Join(workDir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	artifacts := make([]model.Artifact, 0, len(pages))
	for i, page := range pages {
		name := fmt.Sprintf("page_%d.png", i+1)
		dst := filepath.Join(outDir, name)
		if err := p.watermark.ApplyFile(page, dst); err != nil {
			return nil, fmt.Errorf("watermark page %d: %w", i+1, err)
		}
		artifacts = append(artifacts, model.Artifact{
			Key:         artifactKey(resourceID, name),
			ContentType: "image/png",
			LocalPath:   dst,
		})
	}
	return artifacts, nil
}

func (p *Processor) processVideo(ctx context.Context, in ProcessInput) ([]model.Artifact, error) {
	dst := filepath.Join(in.WorkDir, "preview.mp4")
	if err := p.video.TranscodePreview(ctx, in.SourcePath, dst, p.videoOpts); err != nil {
		return nil, err
	}
	if _, err := os.Stat(dst); err != nil {
		return nil, fmt.Errorf("video preview missing: %w", err)
	}

	d, err := p.video.ProbeDuration(ctx, dst)
	if err != nil {
		return nil, fmt.Errorf("measure video preview: %w", err)
	}
	if d > p.videoOpts.MaxDuration+videoDurationTolerance {
		return nil, fmt.Errorf("%w: %s > %s", ErrPreviewTooLong, d, p.videoOpts.MaxDuration)
	}
	p.logger.DebugContext(ctx, "video preview transcoded", "resource_id", in.ResourceID, "duration", d)

	return []model.Artifact{{
		Key:         artifactKey(in.ResourceID, "preview.mp4"),
		ContentType: "video/mp4",
		LocalPath:   dst,
	}}, nil
}

func (p *Processor) processImage(in ProcessInput) ([]model.Artifact, error) {
	src, err := imaging.Open(in.SourcePath, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	// Fit never upscales an image already inside the bounds.
	fitted := imaging.Fit(src, p.imageMaxW, p.imageMaxH, imaging.Lanczos)

	dst := filepath.Join(in.WorkDir, "preview.png")
	if err := imaging.Save(p.watermark.Apply(fitted), dst); err != nil {
		return nil, fmt.Errorf("save image preview: %w", err)
	}
	return []model.Artifact{{
		Key:         artifactKey(in.ResourceID, "preview.png"),
		ContentType: "image/png",
		LocalPath:   dst,
	}}, nil
}

func (p *Processor) processOffice(ctx context.Context, in ProcessInput) ([]model.Artifact, error) {
	convDir := filepath.Join(in.WorkDir, "converted")
	pdfPath, err := p.docs.ConvertToPDF(ctx, in.SourcePath, convDir)
	if err != nil {
		return nil, err
	}
	if st, statErr := os.Stat(pdfPath); statErr != nil || st.Size() == 0 {
		return nil, ErrConversionNoOutput
	}
	return p.processPDF(ctx, in.ResourceID, pdfPath, in.WorkDir)
}

func artifactKey(resourceID, name string) string {
	return resourceID + "/" + name
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
