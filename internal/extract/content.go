package extract

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/alvmarrod/site-spider/internal/scope"
)

// MinTextLength is the minimum number of characters of body text a page
// needs before it is worth storing
const MinTextLength = 200

// ErrNotEnoughContent is returned by Content for pages with too little text
var ErrNotEnoughContent = errors.New("not enough content")

// PageRecord is the structured content of one crawled page
type PageRecord struct {
	URL      string   `json:"url"`
	Domain   string   `json:"domain"`
	Links    []string `json:"links"`
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	Headings string   `json:"headings"`
	Code     string   `json:"code"`
}

// Content reduces a parsed page to a PageRecord. Links are left empty for the
// caller to fill in.
func Content(doc *goquery.Document, pageURL string) (*PageRecord, error) {
	fields := Channels(doc)

	if utf8.RuneCountInString(fields[ChannelText]) < MinTextLength {
		return nil, ErrNotEnoughContent
	}

	return &PageRecord{
		URL:      pageURL,
		Domain:   scope.Domain(pageURL),
		Links:    []string{},
		Title:    fields[ChannelTitle],
		Text:     fields[ChannelText],
		Headings: fields[ChannelHeadings],
		Code:     fields[ChannelCode],
	}, nil
}

// Channels walks the document once and returns every channel's joined text
func Channels(doc *goquery.Document) map[string]string {
	parts := make(map[string][]string, len(channels))

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for _, ch := range channels {
			s, ok := ch.match(n)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				parts[ch.name] = append(parts[ch.name], s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, root := range doc.Nodes {
		walk(root)
	}

	fields := make(map[string]string, len(channels))
	for _, ch := range channels {
		fields[ch.name] = strings.Join(parts[ch.name], "\n")
	}
	return fields
}
