package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LibreOffice converts office documents to PDF with a headless soffice.
type LibreOffice struct {
	Runner  Runner
	Path    string
	Timeout time.Duration
}

// ConvertToPDF converts inputPath into outDir and returns the path soffice writes to.
// The caller checks that the file exists; soffice exits 0 for some unconvertible inputs.
func (l *LibreOffice) ConvertToPDF(ctx context.Context, inputPath, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create conversion dir: %w", err)
	}

	// A private profile per conversion avoids the shared-profile lock soffice takes.
	profileDir := filepath.Join(outDir, ".lo-profile")
	args := []string{
		"-env:UserInstallation=file://" + filepath.ToSlash(profileDir),
		"--headless",
		"--norestore",
		"--convert-to", "pdf",
		"--outdir", outDir,
		inputPath,
	}
	if _, err := l.Runner.Run(ctx, Command{Path: fallback(l.Path, "soffice"), Args: args, Timeout: l.Timeout}); err != nil {
		return "", fmt.Errorf("convert document to pdf: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return filepath.Join(outDir, base+".pdf"), nil
}
