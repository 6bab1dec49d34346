package preview

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"github.com/coachmart/preview-worker/internal/adapters/transcode"
)

func writePNG(path string, w, h int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return imaging.Save(imaging.New(w, h, color.NRGBA{R: 240, G: 240, B: 240, A: 255}), path)
}

func mustWritePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, writePNG(path, w, h))
}

// fakeRenderer writes one PNG per page, honouring LastPage unless ignoreRange is set.
type fakeRenderer struct {
	pages       int
	ignoreRange bool
	err         error

	gotPDF  string
	gotOpts transcode.RenderOptions
}

func (f *fakeRenderer) RenderPages(_ context.Context, pdfPath, outDir string, opts transcode.RenderOptions) ([]string, error) {
	f.gotPDF = pdfPath
	f.gotOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	n := f.pages
	if !f.ignoreRange && n > opts.LastPage {
		n = opts.LastPage
	}
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := filepath.Join(outDir, fmt.Sprintf("page-%d.png", i))
		if err := writePNG(p, 400, 560); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

type fakeTranscoder struct {
	err      error
	probeErr error
	duration time.Duration
	gotOpts  transcode.VideoOptions
	probed   string
}

func (f *fakeTranscoder) TranscodePreview(_ context.Context, _, outputPath string, opts transcode.VideoOptions) error {
	f.gotOpts = opts
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outputPath, []byte("mp4"), 0o600)
}

func (f *fakeTranscoder) ProbeDuration(_ context.Context, path string) (time.Duration, error) {
	f.probed = path
	if f.probeErr != nil {
		return 0, f.probeErr
	}
	return f.duration, nil
}

// fakeConverter writes the converted PDF only when produce is set.
type fakeConverter struct {
	produce bool
	err     error
}

func (f *fakeConverter) ConvertToPDF(_ context.Context, inputPath, outDir string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	out := filepath.Join(outDir, "converted.pdf")
	if f.produce {
		if err := os.WriteFile(out, []byte("%PDF-1.4"), 0o600); err != nil {
			return "", err
		}
	}
	return out, nil
}

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []fakeWaiter
	waits   []time.Duration
}

type fakeWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	c.waiters = append(c.waiters, fakeWaiter{deadline: c.now.Add(d), ch: ch})
	c.waits = append(c.waits, d)
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	pending := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.deadline.After(c.now) {
			w.ch <- c.now
			continue
		}
		pending = append(pending, w)
	}
	c.waiters = pending
}

func (c *fakeClock) pendingWaiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

func (c *fakeClock) requestedWaits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

func newTestWatermark(t *testing.T) *Watermark {
	t.Helper()
	wm, err := NewWatermark("CoachMart")
	require.NoError(t, err)
	return wm
}
