// Package export renders a completed crawl result into the supported
// report formats: JSON, CSV, TXT, and HTML.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sitegrab/sitegrab/internal/crawler"
)

// Format names a report format.
type Format string

// Supported report formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatTXT  Format = "txt"
	FormatHTML Format = "html"
)

// ParseFormat normalizes a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatTXT:
		return FormatTXT, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// DefaultFileName builds the conventional report filename for the
// format, e.g. web_scrape_20240115_093000.json.
func DefaultFileName(f Format, now time.Time) string {
	return fmt.Sprintf("web_scrape_%s.%s", now.Format("20060102_150405"), f)
}

// Write renders result in the requested format.
func Write(w io.Writer, f Format, result *crawler.CrawlResult) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatCSV:
		return writeCSV(w, result)
	case FormatTXT:
		return writeTXT(w, result)
	case FormatHTML:
		return writeHTML(w, result)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

// FormatByteSize renders a byte count as a human-readable string.
func FormatByteSize(n int64) string {
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024.0 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024.0
	}
	return fmt.Sprintf("%.2f TB", size)
}

func writeJSON(w io.Writer, result *crawler.CrawlResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, result *crawler.CrawlResult) error {
	cw := csv.NewWriter(w)

	rows := [][]string{
		{"LINKS"},
		{"URL", "Type"},
	}
	for _, link := range result.InternalLinks.Sorted() {
		rows = append(rows, []string{link, "Internal"})
	}
	for _, link := range result.ExternalLinks.Sorted() {
		rows = append(rows, []string{link, "External"})
	}
	rows = append(rows, []string{}, []string{"IMAGES"}, []string{"URL"})
	for _, image := range result.Images.Sorted() {
		rows = append(rows, []string{image})
	}
	rows = append(rows, []string{}, []string{"TEXTS"}, []string{"URL", "Tag", "Text"})
	for _, text := range result.Texts {
		rows = append(rows, []string{text.PageURL, text.Tag, text.Text})
	}
	rows = append(rows, []string{}, []string{"CONTACTS"}, []string{"Type", "Value"})
	for _, email := range result.Emails.Sorted() {
		rows = append(rows, []string{"Email", email})
	}
	for _, phone := range result.Phones.Sorted() {
		rows = append(rows, []string{"Phone", phone})
	}

	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv report: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeTXT(w io.Writer, result *crawler.CrawlResult) error {
	var b strings.Builder
	b.WriteString("Web Scraper Results\n")
	b.WriteString("==================\n\n")
	fmt.Fprintf(&b, "Pages Visited: %d\n", result.VisitedPages)
	fmt.Fprintf(&b, "Total Data Size: %s\n\n", FormatByteSize(result.TotalBytes))

	b.WriteString("LINKS\n-----\n")
	b.WriteString("\nInternal Links:\n")
	for _, link := range result.InternalLinks.Sorted() {
		fmt.Fprintf(&b, "- %s\n", link)
	}
	b.WriteString("\nExternal Links:\n")
	for _, link := range result.ExternalLinks.Sorted() {
		fmt.Fprintf(&b, "- %s\n", link)
	}

	b.WriteString("\nIMAGES\n------\n")
	for _, image := range result.Images.Sorted() {
		fmt.Fprintf(&b, "- %s\n", image)
	}

	b.WriteString("\nCONTACTS\n--------\n")
	b.WriteString("\nEmails:\n")
	for _, email := range result.Emails.Sorted() {
		fmt.Fprintf(&b, "- %s\n", email)
	}
	b.WriteString("\nPhone Numbers:\n")
	for _, phone := range result.Phones.Sorted() {
		fmt.Fprintf(&b, "- %s\n", phone)
	}

	b.WriteString("\nTEXTS\n-----\n")
	for _, text := range result.Texts {
		fmt.Fprintf(&b, "[%s] %s\n", text.Tag, text.Text)
		fmt.Fprintf(&b, "   Source: %s\n\n", text.PageURL)
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write txt report: %w", err)
	}
	return nil
}

var htmlReport = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Web Scraper Results</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; }
h1, h2 { color: #333; }
.section { margin-bottom: 30px; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 8px; border: 1px solid #ddd; }
th { background-color: #f2f2f2; }
tr:nth-child(even) { background-color: #f9f9f9; }
</style>
</head>
<body>
<h1>Web Scraper Results</h1>
<div class="section">
<h2>Summary</h2>
<p>Pages Visited: {{.VisitedPages}}</p>
<p>Total Data Size: {{.TotalSize}}</p>
</div>
<div class="section">
<h2>Links ({{.LinkCount}})</h2>
<table>
<tr><th>URL</th><th>Type</th></tr>
{{range .InternalLinks}}<tr><td><a href="{{.}}" target="_blank">{{.}}</a></td><td>Internal</td></tr>
{{end}}{{range .ExternalLinks}}<tr><td><a href="{{.}}" target="_blank">{{.}}</a></td><td>External</td></tr>
{{end}}</table>
</div>
<div class="section">
<h2>Images ({{len .Images}})</h2>
<table>
<tr><th>URL</th></tr>
{{range .Images}}<tr><td><a href="{{.}}" target="_blank">{{.}}</a></td></tr>
{{end}}</table>
</div>
<div class="section">
<h2>Contacts</h2>
<h3>Emails ({{len .Emails}})</h3>
<ul>
{{range .Emails}}<li><a href="mailto:{{.}}">{{.}}</a></li>
{{end}}</ul>
<h3>Phone Numbers ({{len .Phones}})</h3>
<ul>
{{range .Phones}}<li>{{.}}</li>
{{end}}</ul>
</div>
<div class="section">
<h2>Texts ({{len .Texts}})</h2>
<table>
<tr><th>Source</th><th>Tag</th><th>Text</th></tr>
{{range .Texts}}<tr><td>{{.PageURL}}</td><td>{{.Tag}}</td><td>{{.Text}}</td></tr>
{{end}}</table>
</div>
</body>
</html>
`))

type htmlReportData struct {
	VisitedPages  int
	TotalSize     string
	LinkCount     int
	InternalLinks []string
	ExternalLinks []string
	Images        []string
	Emails        []string
	Phones        []string
	Texts         []crawler.PageText
}

func writeHTML(w io.Writer, result *crawler.CrawlResult) error {
	data := htmlReportData{
		VisitedPages:  result.VisitedPages,
		TotalSize:     FormatByteSize(result.TotalBytes),
		LinkCount:     len(result.Links),
		InternalLinks: result.InternalLinks.Sorted(),
		ExternalLinks: result.ExternalLinks.Sorted(),
		Images:        result.Images.Sorted(),
		Emails:        result.Emails.Sorted(),
		Phones:        result.Phones.Sorted(),
		Texts:         result.Texts,
	}
	if err := htmlReport.Execute(w, data); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}
