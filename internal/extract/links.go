package extract

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/alvmarrod/site-spider/internal/scope"
)

// Links returns the distinct in-scope targets of every a[href] on the page,
// in order of first appearance
func Links(doc *goquery.Document, originURL string, f *scope.Filter) []string {
	seen := make(map[string]bool)
	links := []string{}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		target, ok := f.Resolve(originURL, href)
		if !ok || seen[target] {
			return
		}
		seen[target] = true
		links = append(links, target)
	})

	return links
}
