// Package download saves page assets beneath a per-run directory and
// keeps a JSON manifest of everything written.
package download

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sitegrab/sitegrab/internal/crawler"
)

// Subdirectories created under the run directory, one per asset kind.
var categoryDirs = map[crawler.DownloadCategory]string{
	crawler.CategoryImage:      "images",
	crawler.CategoryScript:     "scripts",
	crawler.CategoryStylesheet: "styles",
	crawler.CategoryHTML:       "html",
}

// Fallback extensions for URLs whose path carries no usable filename.
var synthExtensions = map[crawler.DownloadCategory]string{
	crawler.CategoryImage:      "jpg",
	crawler.CategoryScript:     "js",
	crawler.CategoryStylesheet: "css",
	crawler.CategoryHTML:       "html",
}

const unsafeFilenameChars = `\/*?:"<>|`

// Config captures where a run's downloads land on disk.
type Config struct {
	// Root is the parent directory for run folders.
	Root string
	// FolderName overrides the derived run folder name when non-empty.
	FolderName string
	// SeedURL is recorded in the manifest and names the auto folder.
	SeedURL string
}

// Manager owns one run directory. It fetches asset bodies, writes them
// under the category subdirectory, and rewrites the manifest after
// every successful save.
type Manager struct {
	dir      string
	fetcher  crawler.Fetcher
	hasher   crawler.Hasher
	clock    crawler.Clock
	logger   *zap.Logger
	manifest *Manifest
	used     map[string]struct{}
	synth    map[crawler.DownloadCategory]int
}

// NewManager creates the run directory and its category subdirectories
// up front. A directory that cannot be created fails the whole run, so
// the error here is fatal to the caller.
func NewManager(cfg Config, fetcher crawler.Fetcher, hasher crawler.Hasher, clock crawler.Clock, ids crawler.IDGenerator, logger *zap.Logger) (*Manager, error) {
	folder := cfg.FolderName
	if folder == "" {
		folder = autoFolderName(cfg.SeedURL, clock.Now())
	}
	dir := filepath.Join(cfg.Root, folder)

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, crawler.NewDirectoryError(dir, err)
	}
	for _, sub := range categoryDirs {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o750); err != nil {
			return nil, crawler.NewDirectoryError(filepath.Join(dir, sub), err)
		}
	}

	sessionID, err := ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}

	m := &Manager{
		dir:      dir,
		fetcher:  fetcher,
		hasher:   hasher,
		clock:    clock,
		logger:   logger,
		manifest: newManifest(cfg.SeedURL, sessionID, clock.Now()),
		used:     make(map[string]struct{}),
		synth:    make(map[crawler.DownloadCategory]int),
	}
	if err := m.manifest.save(m.dir); err != nil {
		return nil, crawler.NewDirectoryError(dir, err)
	}
	return m, nil
}

// Dir returns the run directory.
func (m *Manager) Dir() string { return m.dir }

// SessionID returns the manifest's session identifier.
func (m *Manager) SessionID() string { return m.manifest.SessionID }

// Download fetches rawURL and stores the body under the category's
// subdirectory.
func (m *Manager) Download(ctx context.Context, rawURL string, cat crawler.DownloadCategory) (crawler.DownloadRecord, error) {
	res, err := m.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return crawler.DownloadRecord{}, crawler.NewDownloadError(rawURL, err)
	}
	return m.store(rawURL, cat, m.assetFileName(rawURL, cat), res.Body)
}

// SaveHTML stores an already-fetched page body under the html
// subdirectory, named after the page URL.
func (m *Manager) SaveHTML(pageURL string, body []byte) (crawler.DownloadRecord, error) {
	return m.store(pageURL, crawler.CategoryHTML, pageFileName(pageURL), body)
}

func (m *Manager) store(rawURL string, cat crawler.DownloadCategory, name string, body []byte) (crawler.DownloadRecord, error) {
	sub := categoryDirs[cat]
	rel := filepath.Join(sub, m.reserve(sub, name))
	full := filepath.Join(m.dir, rel)

	if err := os.WriteFile(full, body, 0o600); err != nil {
		return crawler.DownloadRecord{}, crawler.NewDownloadError(rawURL, err)
	}

	digest, err := m.hasher.Hash(body)
	if err != nil {
		return crawler.DownloadRecord{}, crawler.NewDownloadError(rawURL, err)
	}

	rec := crawler.DownloadRecord{
		URL:         rawURL,
		LocalPath:   full,
		Category:    cat,
		ContentHash: digest,
		Timestamp:   m.clock.Now(),
	}
	m.manifest.add(rec)
	if err := m.manifest.save(m.dir); err != nil {
		// The asset itself is on disk; a stale manifest is recoverable.
		m.logger.Warn("manifest save failed", zap.String("url", rawURL), zap.Error(err))
	}
	return rec, nil
}

// reserve claims a filename within sub, suffixing _1, _2, ... when the
// name is already taken. A name counts as taken when this run claimed
// it or a file with that name already sits in the directory, so reruns
// into an existing folder never overwrite earlier downloads.
func (m *Manager) reserve(sub, name string) string {
	if m.claim(sub, name) {
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if m.claim(sub, candidate) {
			return candidate
		}
	}
}

func (m *Manager) claim(sub, name string) bool {
	key := sub + "/" + name
	if _, taken := m.used[key]; taken {
		return false
	}
	if _, err := os.Stat(filepath.Join(m.dir, sub, name)); err == nil {
		return false
	}
	m.used[key] = struct{}{}
	return true
}

// assetFileName derives a filename from the URL path's last segment.
// Segments without an extension get a synthesized name so the category
// counter keeps files distinguishable.
func (m *Manager) assetFileName(rawURL string, cat crawler.DownloadCategory) string {
	if u, err := url.Parse(rawURL); err == nil {
		base := path.Base(u.Path)
		if base != "" && base != "." && base != "/" && path.Ext(base) != "" {
			return sanitizeFilename(base)
		}
	}
	m.synth[cat]++
	return fmt.Sprintf("%s_%d.%s", cat, m.synth[cat], synthExtensions[cat])
}

// pageFileName names an archived page after its URL: the last path
// segment when it looks like a file, otherwise host and path joined
// with underscores.
func pageFileName(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return sanitizeFilename(pageURL) + ".html"
	}
	base := path.Base(u.Path)
	if base != "" && base != "." && base != "/" && path.Ext(base) != "" {
		return sanitizeFilename(base)
	}
	name := u.Host + strings.TrimSuffix(u.Path, "/")
	name = strings.ReplaceAll(name, "/", "_")
	return sanitizeFilename(name) + ".html"
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(unsafeFilenameChars, r) {
			return '_'
		}
		return r
	}, name)
}

// autoFolderName builds host_YYYYMMDD_HHMMSS for runs that do not name
// their own folder.
func autoFolderName(seedURL string, now time.Time) string {
	host := "crawl"
	if u, err := url.Parse(seedURL); err == nil && u.Host != "" {
		host = strings.ReplaceAll(u.Host, ":", "_")
	}
	return fmt.Sprintf("%s_%s", host, now.Format("20060102_150405"))
}
