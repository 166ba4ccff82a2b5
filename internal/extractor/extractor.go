// Package extractor pulls structured content out of parsed HTML
// documents. Extraction is a pure function of the document and the
// enabled categories: running it twice on the same input yields the
// same output.
package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sitegrab/sitegrab/internal/crawler"
)

// Contact patterns are deliberately loose heuristics carried over from
// the product's original matching behavior: the email pattern accepts
// any local@domain.tld with a 2+ letter TLD, and the phone pattern is
// a permissive international-leaning match tolerant of separators.
// Both admit false positives; do not tighten them without flagging the
// behavior change.
var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d{1,4}?[-.\s]?\(?\d{1,3}?\)?[-.\s]?\d{1,4}[-.\s]?\d{1,4}[-.\s]?\d{1,9}`)
)

var textTags = "h1, h2, h3, h4, h5, h6, p"

// Options selects which extraction categories run. A disabled category
// yields an empty result and costs no work.
type Options struct {
	Links     bool
	Images    bool
	Text      bool
	Contacts  bool
	Meta      bool
	Forms     bool
	Resources bool
}

// OptionsFromConfig maps the per-run configuration onto Options.
func OptionsFromConfig(cfg crawler.CrawlConfig) Options {
	return Options{
		Links:     cfg.ExtractLinks,
		Images:    cfg.ExtractImages,
		Text:      cfg.ExtractText,
		Contacts:  cfg.ExtractContacts,
		Meta:      cfg.ExtractMeta,
		Forms:     cfg.ExtractForms,
		Resources: cfg.ExtractResources,
	}
}

// Link is a normalized anchor target with its domain-scope class.
type Link struct {
	URL      string
	Internal bool
}

// Output gathers every extracted category for one page.
type Output struct {
	Links       []Link
	Images      []string
	Texts       []crawler.PageText
	Emails      []string
	Phones      []string
	Meta        map[string]string
	Forms       []crawler.PageForm
	Scripts     []string
	Stylesheets []string
}

// Parse turns a fetched body into a goquery document.
func Parse(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Extract runs the enabled extraction rules against doc. References
// are resolved against the page's scheme://host origin, and links are
// classified internal/external against seedHost.
func Extract(pageURL string, doc *goquery.Document, seedHost string, opts Options, excludedExts []string) (Output, error) {
	base, err := crawler.BaseOf(pageURL)
	if err != nil {
		return Output{}, err
	}

	out := Output{}
	if opts.Links {
		out.Links = extractLinks(doc, base, seedHost, excludedExts)
	}
	if opts.Images {
		out.Images = extractAttrURLs(doc, "img[src]", "src", base)
	}
	if opts.Text {
		out.Texts = extractTexts(doc, pageURL)
	}
	if opts.Contacts {
		pageText := doc.Text()
		out.Emails = dedupe(emailPattern.FindAllString(pageText, -1))
		out.Phones = dedupe(phonePattern.FindAllString(pageText, -1))
	}
	if opts.Meta {
		out.Meta = extractMeta(doc)
	}
	if opts.Forms {
		out.Forms = extractForms(doc, pageURL)
	}
	if opts.Resources {
		out.Scripts = extractAttrURLs(doc, "script[src]", "src", base)
		out.Stylesheets = extractAttrURLs(doc, "link[rel=stylesheet][href]", "href", base)
	}
	return out, nil
}

func extractLinks(doc *goquery.Document, base *url.URL, seedHost string, excludedExts []string) []Link {
	var links []Link
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "#") {
			return
		}
		full, err := crawler.NormalizeURL(href, base)
		if err != nil {
			return
		}
		if !crawler.IsCrawlable(full, excludedExts) {
			return
		}
		links = append(links, Link{URL: full, Internal: crawler.IsInternal(full, seedHost)})
	})
	return links
}

func extractAttrURLs(doc *goquery.Document, selector, attr string, base *url.URL) []string {
	var urls []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.AttrOr(attr, ""))
		if raw == "" {
			return
		}
		full, err := crawler.NormalizeURL(raw, base)
		if err != nil {
			return
		}
		urls = append(urls, full)
	})
	return urls
}

func extractTexts(doc *goquery.Document, pageURL string) []crawler.PageText {
	var texts []crawler.PageText
	doc.Find(textTags).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		texts = append(texts, crawler.PageText{
			PageURL: pageURL,
			Tag:     goquery.NodeName(s),
			Text:    text,
		})
	})
	return texts
}

func extractMeta(doc *goquery.Document) map[string]string {
	meta := make(map[string]string)
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		meta["title"] = title
	}
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name := s.AttrOr("name", "")
		if name == "" {
			name = s.AttrOr("property", "")
		}
		content := s.AttrOr("content", "")
		if name != "" && content != "" {
			meta[name] = content
		}
	})
	return meta
}

func extractForms(doc *goquery.Document, pageURL string) []crawler.PageForm {
	var forms []crawler.PageForm
	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		method := strings.ToUpper(strings.TrimSpace(form.AttrOr("method", "")))
		if method == "" {
			method = "GET"
		}
		pf := crawler.PageForm{
			PageURL: pageURL,
			Action:  form.AttrOr("action", ""),
			Method:  method,
		}
		form.Find("input, textarea, select").Each(func(_ int, field *goquery.Selection) {
			tag := goquery.NodeName(field)
			_, required := field.Attr("required")
			ff := crawler.FormField{
				Tag:      tag,
				Name:     field.AttrOr("name", ""),
				ID:       field.AttrOr("id", ""),
				Required: required,
			}
			if tag == "input" {
				ff.InputType = field.AttrOr("type", "text")
			}
			pf.Fields = append(pf.Fields, ff)
		})
		forms = append(forms, pf)
	})
	return forms
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
