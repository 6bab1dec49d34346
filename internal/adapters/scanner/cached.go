package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/coachmart/preview-worker/internal/core"
	"github.com/coachmart/preview-worker/internal/domain/model"
)

// Identifier is implemented by scanners whose verdicts may be cached. The identity
// must change whenever the backend or its result mapping changes.
type Identifier interface {
	Identity() string
}

// Cached wraps a scanner with a content-addressed verdict cache. Cache failures are
// logged and never fail a scan.
type Cached struct {
	next      core.ContentScanner
	cache     core.ScanCache
	ttl       time.Duration
	namespace string
	logger    *slog.Logger
}

var _ core.ContentScanner = (*Cached)(nil)

// NewCached returns next unchanged when cache is nil, ttl is not positive, or next
// does not implement Identifier (Noop verdicts are never cached).
func NewCached(next core.ContentScanner, cache core.ScanCache, ttl time.Duration, logger *slog.Logger) core.ContentScanner {
	id, ok := next.(Identifier)
	if cache == nil || ttl <= 0 || !ok {
		return next
	}
	if logger == nil {
		logger = slog.Default()
	}
	sum := sha256.Sum256([]byte(id.Identity()))
	return &Cached{
		next:      next,
		cache:     cache,
		ttl:       ttl,
		namespace: hex.EncodeToString(sum[:8]),
		logger:    logger.With("component", "scan_cache"),
	}
}

// Scan serves a cached verdict for identical bytes or delegates and stores the result.
func (c *Cached) Scan(ctx context.Context, req model.ScanRequest) (model.ScanResult, error) {
	digest, err := fileDigest(req.LocalPath)
	if err != nil {
		c.logger.WarnContext(ctx, "scan cache digest failed", "error", err)
		return c.next.Scan(ctx, req)
	}
	key := c.namespace + ":" + digest

	if hit, getErr := c.cache.Get(ctx, key); getErr != nil {
		c.logger.WarnContext(ctx, "scan cache get failed", "error", getErr)
	} else if hit != nil {
		c.logger.DebugContext(ctx, "scan cache hit", "key", key)
		return *hit, nil
	}

	res, err := c.next.Scan(ctx, req)
	if err != nil {
		return model.ScanResult{}, err
	}
	if setErr := c.cache.Set(ctx, key, res, c.ttl); setErr != nil {
		c.logger.WarnContext(ctx, "scan cache set failed", "error", setErr)
	}
	return res, nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for digest: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
