package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Poppler renders PDF pages to PNG with pdftoppm.
type Poppler struct {
	Runner  Runner
	Path    string
	Timeout time.Duration
}

// RenderOptions bounds the pages and width of a render.
type RenderOptions struct {
	FirstPage int
	LastPage  int
	Width     int
}

const pagePrefix = "page"

// RenderPages renders the requested page range into outDir and returns the PNG paths
// in page order. A PDF shorter than LastPage yields fewer files without an error.
func (p *Poppler) RenderPages(ctx context.Context, pdfPath, outDir string, opts RenderOptions) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}

	args := []string{
		"-png",
		"-f", strconv.Itoa(opts.FirstPage),
		"-l", strconv.Itoa(opts.LastPage),
		"-scale-to-x", strconv.Itoa(opts.Width),
		"-scale-to-y", "-1",
		pdfPath,
		filepath.Join(outDir, pagePrefix),
	}
	if _, err := p.Runner.Run(ctx, Command{Path: fallback(p.Path, "pdftoppm"), Args: args, Timeout: p.Timeout}); err != nil {
		return nil, fmt.Errorf("render pdf pages: %w", err)
	}

	return collectPages(outDir)
}

// collectPages finds "page-N.png" files and sorts them numerically. pdftoppm
// zero-pads N depending on the document's page count.
func collectPages(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pagePrefix+"-*.png"))
	if err != nil {
		return nil, fmt.Errorf("glob rendered pages: %w", err)
	}

	type page struct {
		n    int
		path string
	}
	pages := make([]page, 0, len(matches))
	for _, m := range matches {
		base := strings.TrimSuffix(filepath.Base(m), ".png")
		n, convErr := strconv.Atoi(strings.TrimPrefix(base, pagePrefix+"-"))
		if convErr != nil {
			continue
		}
		pages = append(pages, page{n: n, path: m})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].n < pages[j].n })

	out := make([]string, len(pages))
	for i, pg := range pages {
		out[i] = pg.path
	}
	return out, nil
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
