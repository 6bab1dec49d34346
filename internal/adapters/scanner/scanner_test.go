package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/coachmart/preview-worker/internal/adapters/transcode"
	"github.com/coachmart/preview-worker/internal/core"
	"github.com/coachmart/preview-worker/internal/domain/model"
	"github.com/coachmart/preview-worker/internal/mocks"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "upload.bin")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestExtractor_Extract(t *testing.T) {
	tests := []struct {
		name      string
		extractor Extractor
		body      string
		want      model.ScanResult
		wantErr   bool
	}{
		{
			name:      "top level fields",
			extractor: DefaultExtractor(),
			body:      `{"risk_score": 0.42, "flags": ["nsfw", " ", "spam"]}`,
			want:      model.ScanResult{RiskScore: 0.42, Flags: []string{"nsfw", "spam"}},
		},
		{
			name:      "missing flags become empty",
			extractor: DefaultExtractor(),
			body:      `{"risk_score": 0}`,
			want:      model.ScanResult{RiskScore: 0, Flags: []string{}},
		},
		{
			name:      "nested expressions",
			extractor: Extractor{RiskScoreExpr: "verdict.score", FlagsExpr: "verdict.labels[?hit].name"},
			body:      `{"verdict": {"score": 0.9, "labels": [{"name": "violence", "hit": true}, {"name": "spam", "hit": false}]}}`,
			want:      model.ScanResult{RiskScore: 0.9, Flags: []string{"violence"}},
		},
		{
			name:      "missing score",
			extractor: DefaultExtractor(),
			body:      `{"flags": []}`,
			wantErr:   true,
		},
		{
			name:      "flags not a list",
			extractor: DefaultExtractor(),
			body:      `{"risk_score": 1, "flags": "nsfw"}`,
			wantErr:   true,
		},
		{
			name:      "not json",
			extractor: DefaultExtractor(),
			body:      `clean`,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.extractor.Extract([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractor_Validate(t *testing.T) {
	require.NoError(t, DefaultExtractor().Validate())
	require.Error(t, Extractor{RiskScoreExpr: "a[", FlagsExpr: "flags"}.Validate())
}

type stubRunner struct {
	got    transcode.Command
	stdout string
	err    error
}

func (s *stubRunner) Run(_ context.Context, cmd transcode.Command) (*transcode.Result, error) {
	s.got = cmd
	if s.err != nil {
		return nil, s.err
	}
	return &transcode.Result{Stdout: []byte(s.stdout)}, nil
}

func TestCommand_Scan(t *testing.T) {
	runner := &stubRunner{stdout: `{"risk_score": 0.1, "flags": ["ok"]}`}
	sc, err := NewCommand(CommandConfig{
		Runner:  runner,
		Path:    "/usr/local/bin/scan",
		Args:    []string{"--json"},
		Timeout: time.Minute,
	})
	require.NoError(t, err)

	res, err := sc.Scan(context.Background(), model.ScanRequest{
		LocalPath:    "/tmp/job/original",
		MimeType:     "application/pdf",
		OriginalPath: "res/file.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ScanResult{RiskScore: 0.1, Flags: []string{"ok"}}, res)
	assert.Equal(t, []string{"--json", "/tmp/job/original"}, runner.got.Args)
	assert.Contains(t, runner.got.Env, "SCAN_MIME_TYPE=application/pdf")
	assert.Equal(t, time.Minute, runner.got.Timeout)
}

func TestCommand_ScanFailure(t *testing.T) {
	sc, err := NewCommand(CommandConfig{
		Runner: &stubRunner{err: &transcode.ExitError{Command: "scan", ExitCode: 2}},
		Path:   "scan",
	})
	require.NoError(t, err)

	_, err = sc.Scan(context.Background(), model.ScanRequest{LocalPath: "/tmp/x"})
	var exitErr *transcode.ExitError
	require.ErrorAs(t, err, &exitErr)
}

func TestNewCommand_Validation(t *testing.T) {
	_, err := NewCommand(CommandConfig{Path: "scan"})
	require.Error(t, err)
	_, err = NewCommand(CommandConfig{Runner: &stubRunner{}})
	require.Error(t, err)
}

func TestHTTP_Scan(t *testing.T) {
	var gotBody, gotMime string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotMime = r.Header.Get("X-Content-Mime-Type")
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"score": 0.75, "tags": []string{"nsfw"}}})
	}))
	defer srv.Close()

	sc, err := NewHTTP(HTTPConfig{
		Endpoint:  srv.URL,
		Timeout:   5 * time.Second,
		Extractor: Extractor{RiskScoreExpr: "result.score", FlagsExpr: "result.tags"},
	})
	require.NoError(t, err)

	res, err := sc.Scan(context.Background(), model.ScanRequest{
		LocalPath: writeTempFile(t, "file-bytes"),
		MimeType:  "image/png",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ScanResult{RiskScore: 0.75, Flags: []string{"nsfw"}}, res)
	assert.Equal(t, "file-bytes", gotBody)
	assert.Equal(t, "image/png", gotMime)
}

func TestHTTP_ScanWithOAuth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/scan", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"risk_score": 0.2, "flags": []}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sc, err := NewHTTP(HTTPConfig{
		Endpoint: srv.URL + "/scan",
		Timeout:  5 * time.Second,
		OAuth: &OAuthConfig{
			TokenURL:     srv.URL + "/token",
			ClientID:     "worker",
			ClientSecret: "secret",
		},
	})
	require.NoError(t, err)

	res, err := sc.Scan(context.Background(), model.ScanRequest{LocalPath: writeTempFile(t, "x")})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, res.RiskScore, 1e-9)
}

func TestHTTP_ScanStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream down")
	}))
	defer srv.Close()

	sc, err := NewHTTP(HTTPConfig{Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = sc.Scan(context.Background(), model.ScanRequest{LocalPath: writeTempFile(t, "x")})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "scanner_http_status", statusErr.ErrorClass())
}

func TestNoop_Scan(t *testing.T) {
	res, err := Noop{}.Scan(context.Background(), model.ScanRequest{})
	require.NoError(t, err)
	assert.Zero(t, res.RiskScore)
	assert.Empty(t, res.Flags)
}

// identified gives a mock scanner a cache identity.
type identified struct {
	core.ContentScanner
	id string
}

func (i identified) Identity() string { return i.id }

// memCache is an in-process ScanCache shared across scanner instances.
type memCache struct {
	entries map[string]model.ScanResult
}

func (m *memCache) Get(_ context.Context, key string) (*model.ScanResult, error) {
	res, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

func (m *memCache) Set(_ context.Context, key string, res model.ScanResult, _ time.Duration) error {
	if m.entries == nil {
		m.entries = map[string]model.ScanResult{}
	}
	m.entries[key] = res
	return nil
}

func TestCached_HitSkipsScanner(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockScanCache(ctrl)
	next := mocks.NewMockContentScanner(ctrl)

	cached := &model.ScanResult{RiskScore: 0.3, Flags: []string{"cached"}}
	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(cached, nil)

	sc := NewCached(identified{next, "http https://scanner"}, cache, time.Hour, nil)
	res, err := sc.Scan(context.Background(), model.ScanRequest{LocalPath: writeTempFile(t, "same")})
	require.NoError(t, err)
	assert.Equal(t, *cached, res)
}

func TestCached_MissStoresResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockScanCache(ctrl)
	next := mocks.NewMockContentScanner(ctrl)

	// sha256("abc")
	const digest = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	want := model.ScanResult{RiskScore: 0.5, Flags: []string{}}

	var gotKey string
	cache.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, key string) (*model.ScanResult, error) {
			gotKey = key
			return nil, nil
		})
	next.EXPECT().Scan(gomock.Any(), gomock.Any()).Return(want, nil)
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), want, time.Hour).DoAndReturn(
		func(_ context.Context, key string, _ model.ScanResult, _ time.Duration) error {
			assert.Equal(t, gotKey, key)
			return nil
		})

	sc := NewCached(identified{next, "http https://scanner"}, cache, time.Hour, nil)
	res, err := sc.Scan(context.Background(), model.ScanRequest{LocalPath: writeTempFile(t, "abc")})
	require.NoError(t, err)
	assert.Equal(t, want, res)
	assert.True(t, strings.HasSuffix(gotKey, ":"+digest), "key %q", gotKey)
}

func TestCached_CacheErrorsAreIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockScanCache(ctrl)
	next := mocks.NewMockContentScanner(ctrl)

	want := model.ScanResult{RiskScore: 0.1, Flags: []string{}}
	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, errors.New("redis down"))
	next.EXPECT().Scan(gomock.Any(), gomock.Any()).Return(want, nil)
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), want, time.Hour).Return(errors.New("redis down"))

	sc := NewCached(identified{next, "http https://scanner"}, cache, time.Hour, nil)
	res, err := sc.Scan(context.Background(), model.ScanRequest{LocalPath: writeTempFile(t, "abc")})
	require.NoError(t, err)
	assert.Equal(t, want, res)
}

func TestNewCached_DisabledReturnsNext(t *testing.T) {
	next := identified{id: "http https://scanner"}
	assert.Equal(t, next, NewCached(next, nil, time.Hour, nil))
	assert.Equal(t, next, NewCached(next, &memCache{}, 0, nil))
}

func TestNewCached_NoopIsNeverCached(t *testing.T) {
	cache := &memCache{}
	sc := NewCached(Noop{}, cache, time.Hour, nil)
	assert.Equal(t, Noop{}, sc)

	_, err := sc.Scan(context.Background(), model.ScanRequest{LocalPath: writeTempFile(t, "deck")})
	require.NoError(t, err)
	assert.Empty(t, cache.entries)
}

func TestCached_BackendChangeMissesOldVerdicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := &memCache{}
	path := writeTempFile(t, "same bytes")
	flagged := model.ScanResult{RiskScore: 95, Flags: []string{"malware"}}

	lenient := mocks.NewMockContentScanner(ctrl)
	lenient.EXPECT().Scan(gomock.Any(), gomock.Any()).Return(model.ScanResult{Flags: []string{}}, nil)
	_, err := NewCached(identified{lenient, "http https://old-scanner risk=score"}, cache, time.Hour, nil).
		Scan(context.Background(), model.ScanRequest{LocalPath: path})
	require.NoError(t, err)

	strict := mocks.NewMockContentScanner(ctrl)
	strict.EXPECT().Scan(gomock.Any(), gomock.Any()).Return(flagged, nil).Times(1)
	sc := NewCached(identified{strict, "http https://new-scanner risk=score"}, cache, time.Hour, nil)
	res, err := sc.Scan(context.Background(), model.ScanRequest{LocalPath: path})
	require.NoError(t, err)
	assert.Equal(t, flagged, res)

	res, err = sc.Scan(context.Background(), model.ScanRequest{LocalPath: path})
	require.NoError(t, err)
	assert.Equal(t, flagged, res, "second scan served from the new backend's cache")
	assert.Len(t, cache.entries, 2)
}

func TestScannerIdentity(t *testing.T) {
	cmd, err := NewCommand(CommandConfig{Runner: &stubRunner{}, Path: "/usr/bin/scan", Args: []string{"--json"}})
	require.NoError(t, err)
	otherArgs, err := NewCommand(CommandConfig{Runner: &stubRunner{}, Path: "/usr/bin/scan", Args: []string{"--strict"}})
	require.NoError(t, err)
	assert.NotEqual(t, cmd.Identity(), otherArgs.Identity())

	h1, err := NewHTTP(HTTPConfig{Endpoint: "https://scanner/scan"})
	require.NoError(t, err)
	h2, err := NewHTTP(HTTPConfig{Endpoint: "https://scanner/scan", Extractor: Extractor{RiskScoreExpr: "result.score", FlagsExpr: "flags"}})
	require.NoError(t, err)
	assert.NotEqual(t, h1.Identity(), h2.Identity())
	assert.NotEqual(t, cmd.Identity(), h1.Identity())

	var _ Identifier = cmd
	var _ Identifier = h1
}
