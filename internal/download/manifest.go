package download

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sitegrab/sitegrab/internal/crawler"
)

// ManifestName is the fixed filename written inside the run directory.
const ManifestName = "manifest.json"

// Manifest records every asset saved during a run. It is rewritten to
// disk after each download so an interrupted run still leaves an
// accurate account of what was fetched.
type Manifest struct {
	SeedURL   string       `json:"seed_url"`
	SessionID string       `json:"session_id"`
	StartedAt time.Time    `json:"started_at"`
	Downloads ManifestSets `json:"downloads"`

	mu sync.Mutex
}

// ManifestSets groups download records by asset kind.
type ManifestSets struct {
	Images  []crawler.DownloadRecord `json:"images"`
	Scripts []crawler.DownloadRecord `json:"scripts"`
	Styles  []crawler.DownloadRecord `json:"styles"`
	HTML    []crawler.DownloadRecord `json:"html"`
}

func newManifest(seedURL, sessionID string, startedAt time.Time) *Manifest {
	return &Manifest{
		SeedURL:   seedURL,
		SessionID: sessionID,
		StartedAt: startedAt,
	}
}

func (m *Manifest) add(rec crawler.DownloadRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch rec.Category {
	case crawler.CategoryImage:
		m.Downloads.Images = append(m.Downloads.Images, rec)
	case crawler.CategoryScript:
		m.Downloads.Scripts = append(m.Downloads.Scripts, rec)
	case crawler.CategoryStylesheet:
		m.Downloads.Styles = append(m.Downloads.Styles, rec)
	case crawler.CategoryHTML:
		m.Downloads.HTML = append(m.Downloads.HTML, rec)
	}
}

// save writes the manifest to dir via a temp file and atomic rename so
// readers never observe a half-written document.
func (m *Manifest) save(dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	manifestPath := filepath.Join(dir, ManifestName)
	tempPath := manifestPath + ".tmp"

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tempPath, manifestPath); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	return nil
}
