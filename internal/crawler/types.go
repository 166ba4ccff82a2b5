package crawler

import (
	"encoding/json"
	"mime"
	"net/http"
	"sort"
	"strings"
	"time"
)

// FetchResult is the outcome of a successful fetch attempt.
type FetchResult struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// IsHTML reports whether the response carries an HTML content type and
// should therefore be routed through extraction.
func (r FetchResult) IsHTML() bool {
	ct := r.Headers.Get("Content-Type")
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.HasPrefix(ct, "text/html")
	}
	return mediaType == "text/html" || strings.HasPrefix(mediaType, "text/html")
}

// PageText is one retained unit of heading/paragraph text.
type PageText struct {
	PageURL string `json:"url"`
	Tag     string `json:"tag"`
	Text    string `json:"text"`
}

// FormField describes one input, textarea, or select inside a form.
type FormField struct {
	Tag       string `json:"type"`
	Name      string `json:"name"`
	ID        string `json:"id"`
	Required  bool   `json:"required"`
	InputType string `json:"input_type,omitempty"`
}

// PageForm describes one form found on a page.
type PageForm struct {
	PageURL string      `json:"url"`
	Action  string      `json:"action"`
	Method  string      `json:"method"`
	Fields  []FormField `json:"fields"`
}

// DownloadCategory partitions downloaded assets by kind.
type DownloadCategory string

// Asset categories mapped to their subdirectories under the run root.
const (
	CategoryImage      DownloadCategory = "image"
	CategoryScript     DownloadCategory = "script"
	CategoryStylesheet DownloadCategory = "stylesheet"
	CategoryHTML       DownloadCategory = "html"
)

// DownloadRecord is appended, never modified, for every completed
// download.
type DownloadRecord struct {
	URL         string           `json:"url"`
	LocalPath   string           `json:"local_path"`
	Category    DownloadCategory `json:"category"`
	ContentHash string           `json:"content_hash,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// StringSet is a deduplicating collection that serializes as a sorted
// JSON array so exports are deterministic.
type StringSet map[string]struct{}

// NewStringSet allocates an empty set.
func NewStringSet() StringSet { return make(StringSet) }

// Add inserts v and reports whether it was newly added.
func (s StringSet) Add(v string) bool {
	if _, ok := s[v]; ok {
		return false
	}
	s[v] = struct{}{}
	return true
}

// Has reports membership.
func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the members in lexical order.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array back into set form.
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = make(StringSet, len(values))
	for _, v := range values {
		(*s)[v] = struct{}{}
	}
	return nil
}

// CrawlResult accumulates everything a run produces. It is mutated by
// the single crawl worker only and becomes effectively immutable once
// the run terminates and the pointer is handed to the caller.
type CrawlResult struct {
	Links         StringSet                    `json:"links"`
	InternalLinks StringSet                    `json:"internal_links"`
	ExternalLinks StringSet                    `json:"external_links"`
	Images        StringSet                    `json:"images"`
	Emails        StringSet                    `json:"emails"`
	Phones        StringSet                    `json:"phones"`
	Scripts       StringSet                    `json:"scripts"`
	Stylesheets   StringSet                    `json:"stylesheets"`
	Texts         []PageText                   `json:"texts"`
	Forms         []PageForm                   `json:"forms"`
	Meta          map[string]map[string]string `json:"meta"`
	Downloads     []DownloadRecord             `json:"downloads"`
	VisitedPages  int                          `json:"visited_pages"`
	TotalBytes    int64                        `json:"total_data_size"`
	Errors        []string                     `json:"errors"`
}

// NewCrawlResult allocates an empty accumulator.
func NewCrawlResult() *CrawlResult {
	return &CrawlResult{
		Links:         NewStringSet(),
		InternalLinks: NewStringSet(),
		ExternalLinks: NewStringSet(),
		Images:        NewStringSet(),
		Emails:        NewStringSet(),
		Phones:        NewStringSet(),
		Scripts:       NewStringSet(),
		Stylesheets:   NewStringSet(),
		Meta:          make(map[string]map[string]string),
	}
}

// DownloadsByCategory filters the download records.
func (r *CrawlResult) DownloadsByCategory(cat DownloadCategory) []DownloadRecord {
	var out []DownloadRecord
	for _, d := range r.Downloads {
		if d.Category == cat {
			out = append(out, d)
		}
	}
	return out
}

// RecordError appends a message to the error log.
func (r *CrawlResult) RecordError(msg string) {
	r.Errors = append(r.Errors, msg)
}
