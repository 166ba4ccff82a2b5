package download

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitegrab/sitegrab/internal/clock/system"
	"github.com/sitegrab/sitegrab/internal/crawler"
	"github.com/sitegrab/sitegrab/internal/hash/sha256"
	"github.com/sitegrab/sitegrab/internal/id/uuid"
)

type stubFetcher struct {
	bodies map[string][]byte
}

func (s *stubFetcher) Fetch(_ context.Context, rawURL string) (crawler.FetchResult, error) {
	body, ok := s.bodies[rawURL]
	if !ok {
		return crawler.FetchResult{}, errors.New("connection refused")
	}
	return crawler.FetchResult{URL: rawURL, StatusCode: 200, Body: body}, nil
}

func newTestManager(t *testing.T, fetcher crawler.Fetcher) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Root:       t.TempDir(),
		FolderName: "run",
		SeedURL:    "https://acme.example",
	}, fetcher, sha256.New(), system.New(), uuid.New(), zap.NewNop())
	require.NoError(t, err)
	return m
}

func readManifest(t *testing.T, dir string) Manifest {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	require.NoError(t, err)
	var m Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestNewManagerCreatesLayout(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &stubFetcher{})

	for _, sub := range []string{"images", "scripts", "styles", "html"} {
		info, err := os.Stat(filepath.Join(m.Dir(), sub))
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}

	manifest := readManifest(t, m.Dir())
	require.Equal(t, "https://acme.example", manifest.SeedURL)
	require.NotEmpty(t, manifest.SessionID)
	require.False(t, manifest.StartedAt.IsZero())
}

func TestNewManagerDirectoryFailureIsFatal(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := NewManager(Config{Root: blocker, FolderName: "run"},
		&stubFetcher{}, sha256.New(), system.New(), uuid.New(), zap.NewNop())
	require.Error(t, err)

	var ce *crawler.CrawlError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, crawler.KindDirectory, ce.Kind)
}

func TestDownloadWritesFileAndManifest(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{bodies: map[string][]byte{
		"https://acme.example/img/logo.png": []byte("png-bytes"),
	}}
	m := newTestManager(t, fetcher)

	rec, err := m.Download(context.Background(), "https://acme.example/img/logo.png", crawler.CategoryImage)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(m.Dir(), "images", "logo.png"), rec.LocalPath)
	require.Equal(t, crawler.CategoryImage, rec.Category)
	require.NotEmpty(t, rec.ContentHash)
	require.WithinDuration(t, time.Now(), rec.Timestamp, time.Minute)

	data, err := os.ReadFile(rec.LocalPath)
	require.NoError(t, err)
	require.Equal(t, []byte("png-bytes"), data)

	manifest := readManifest(t, m.Dir())
	require.Len(t, manifest.Downloads.Images, 1)
	require.Equal(t, rec.URL, manifest.Downloads.Images[0].URL)
}

func TestDownloadKeepsPreExistingFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	prior := filepath.Join(root, "run", "images", "logo.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(prior), 0o750))
	require.NoError(t, os.WriteFile(prior, []byte("prior-run-bytes"), 0o600))

	fetcher := &stubFetcher{bodies: map[string][]byte{
		"https://acme.example/img/logo.png": []byte("new-bytes"),
	}}
	m, err := NewManager(Config{
		Root:       root,
		FolderName: "run",
		SeedURL:    "https://acme.example",
	}, fetcher, sha256.New(), system.New(), uuid.New(), zap.NewNop())
	require.NoError(t, err)

	rec, err := m.Download(context.Background(), "https://acme.example/img/logo.png", crawler.CategoryImage)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(m.Dir(), "images", "logo_1.png"), rec.LocalPath)

	data, err := os.ReadFile(prior)
	require.NoError(t, err)
	require.Equal(t, []byte("prior-run-bytes"), data)
}

func TestDownloadNameCollision(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{bodies: map[string][]byte{
		"https://acme.example/a/logo.png": []byte("first"),
		"https://acme.example/b/logo.png": []byte("second"),
	}}
	m := newTestManager(t, fetcher)

	first, err := m.Download(context.Background(), "https://acme.example/a/logo.png", crawler.CategoryImage)
	require.NoError(t, err)
	second, err := m.Download(context.Background(), "https://acme.example/b/logo.png", crawler.CategoryImage)
	require.NoError(t, err)

	require.Equal(t, "logo.png", filepath.Base(first.LocalPath))
	require.Equal(t, "logo_1.png", filepath.Base(second.LocalPath))

	manifest := readManifest(t, m.Dir())
	require.Len(t, manifest.Downloads.Images, 2)
}

func TestDownloadSynthesizesNameWithoutExtension(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{bodies: map[string][]byte{
		"https://cdn.example/assets/12345": []byte("blob"),
	}}
	m := newTestManager(t, fetcher)

	rec, err := m.Download(context.Background(), "https://cdn.example/assets/12345", crawler.CategoryImage)
	require.NoError(t, err)
	require.Equal(t, "image_1.jpg", filepath.Base(rec.LocalPath))
}

func TestDownloadFetchFailure(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &stubFetcher{})

	_, err := m.Download(context.Background(), "https://acme.example/missing.png", crawler.CategoryImage)
	require.Error(t, err)

	var ce *crawler.CrawlError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, crawler.KindDownload, ce.Kind)
}

func TestSaveHTMLNaming(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &stubFetcher{})

	rec, err := m.SaveHTML("https://acme.example/docs/intro", []byte("<html></html>"))
	require.NoError(t, err)
	require.Equal(t, "acme.example_docs_intro.html", filepath.Base(rec.LocalPath))

	rec, err = m.SaveHTML("https://acme.example/", []byte("<html></html>"))
	require.NoError(t, err)
	require.Equal(t, "acme.example.html", filepath.Base(rec.LocalPath))

	rec, err = m.SaveHTML("https://acme.example/page.html", []byte("<html></html>"))
	require.NoError(t, err)
	require.Equal(t, "page.html", filepath.Base(rec.LocalPath))

	manifest := readManifest(t, m.Dir())
	require.Len(t, manifest.Downloads.HTML, 3)
}
