package crawler

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultExcludedExtensions lists path suffixes that are never treated
// as crawlable pages.
var DefaultExcludedExtensions = []string{".pdf", ".doc", ".jpg", ".png", ".gif", ".zip"}

// CrawlConfig captures every knob that influences a single crawl run.
// It is created once per run and never mutated afterwards. All values
// originate from Viper so the engine can be configured via files, env
// vars, or CLI flags, but the struct itself is decoupled from Viper.
type CrawlConfig struct {
	SeedURL string

	// Extraction toggles. A disabled category yields an empty result
	// and costs no work.
	ExtractLinks     bool
	ExtractImages    bool
	ExtractText      bool
	ExtractContacts  bool
	ExtractMeta      bool
	ExtractForms     bool
	ExtractResources bool

	// Crawl depth control.
	CrawlEnabled bool
	MaxPages     int

	// Network parameters.
	Timeout         time.Duration
	Delay           time.Duration
	UserAgent       string
	FollowRedirects bool

	// Download parameters.
	DownloadImages    bool
	DownloadResources bool
	DownloadHTML      bool
	DownloadRoot      string
	FolderName        string

	// ExcludedExtensions extends the set of path suffixes dropped
	// during link validation.
	ExcludedExtensions []string
}

// LoadConfig constructs a CrawlConfig by reading from Viper.
func LoadConfig(v *viper.Viper) (CrawlConfig, error) {
	cfg := CrawlConfig{
		SeedURL:            v.GetString("crawl.seed_url"),
		ExtractLinks:       v.GetBool("extract.links"),
		ExtractImages:      v.GetBool("extract.images"),
		ExtractText:        v.GetBool("extract.text"),
		ExtractContacts:    v.GetBool("extract.contacts"),
		ExtractMeta:        v.GetBool("extract.meta"),
		ExtractForms:       v.GetBool("extract.forms"),
		ExtractResources:   v.GetBool("extract.resources"),
		CrawlEnabled:       v.GetBool("crawl.enabled"),
		MaxPages:           v.GetInt("crawl.max_pages"),
		Timeout:            v.GetDuration("http.timeout"),
		Delay:              v.GetDuration("crawl.delay"),
		UserAgent:          v.GetString("http.user_agent"),
		FollowRedirects:    v.GetBool("http.follow_redirects"),
		DownloadImages:     v.GetBool("download.images"),
		DownloadResources:  v.GetBool("download.resources"),
		DownloadHTML:       v.GetBool("download.html"),
		DownloadRoot:       v.GetString("download.root"),
		FolderName:         v.GetString("download.folder_name"),
		ExcludedExtensions: normalizeExtensions(v.GetStringSlice("crawl.excluded_extensions")),
	}
	if len(cfg.ExcludedExtensions) == 0 {
		cfg.ExcludedExtensions = DefaultExcludedExtensions
	}
	return cfg, cfg.Validate()
}

// Validate checks for obviously bad configuration combinations.
func (c CrawlConfig) Validate() error {
	if strings.TrimSpace(c.SeedURL) == "" {
		return fmt.Errorf("crawl.seed_url must be set")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("crawl.max_pages must be > 0")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.Delay < 0 {
		return fmt.Errorf("crawl.delay must be >= 0")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("http.user_agent must be set")
	}
	if c.DownloadsEnabled() && strings.TrimSpace(c.DownloadRoot) == "" {
		return fmt.Errorf("download.root must be set when downloads are enabled")
	}
	return nil
}

// DownloadsEnabled reports whether any download option is on.
func (c CrawlConfig) DownloadsEnabled() bool {
	return c.DownloadImages || c.DownloadResources || c.DownloadHTML
}

func normalizeExtensions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, ext := range in {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
