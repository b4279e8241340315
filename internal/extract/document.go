package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is a parsed HTML document.
type Page struct {
	doc *goquery.Document
}

// ParseDocument parses raw HTML. goquery tolerates malformed markup, so an
// error here means the reader itself failed.
func ParseDocument(html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Page{doc: doc}, nil
}

// RawTitle prefers og:title metadata and falls back to the <title> element.
func (p *Page) RawTitle() string {
	if og, ok := p.doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if og = collapse(og); og != "" {
			return og
		}
	}
	return collapse(p.doc.Find("title").First().Text())
}

// PlainText returns the visible text with whitespace collapsed to single spaces.
func (p *Page) PlainText() string {
	body := p.doc.Selection.Clone()
	body.Find("script, style, noscript, template").Remove()
	return collapse(body.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TitleCleaner strips trailing site-name suffixes such as " : 알라딘" or "- YES24".
type TitleCleaner struct {
	suffixes []*regexp.Regexp
}

// NewTitleCleaner builds a cleaner for the given site names.
func NewTitleCleaner(siteNames ...string) TitleCleaner {
	c := TitleCleaner{}
	for _, name := range siteNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		c.suffixes = append(c.suffixes, regexp.MustCompile(`(?i)\s*[:|\-–]\s*`+regexp.QuoteMeta(name)+`.*$`))
	}
	return c
}

// Clean removes the first matching suffix.
func (c TitleCleaner) Clean(title string) string {
	title = strings.TrimSpace(title)
	for _, re := range c.suffixes {
		if loc := re.FindStringIndex(title); loc != nil && loc[0] > 0 {
			return strings.TrimSpace(title[:loc[0]])
		}
	}
	return title
}
