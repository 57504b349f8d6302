package extract

import (
	"golang.org/x/net/html"
)

// Channel names, also used as the JSON field names of a PageRecord
const (
	ChannelTitle    = "title"
	ChannelText     = "text"
	ChannelHeadings = "headings"
	ChannelCode     = "code"
)

type tagSet map[string]struct{}

func newTagSet(tags ...string) tagSet {
	s := make(tagSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

func (s tagSet) has(tag string) bool {
	_, ok := s[tag]
	return ok
}

var (
	titleTags   = newTagSet("title")
	headingTags = newTagSet("title", "h1", "h2", "h3", "h4", "h5", "h6")
	codeTags    = newTagSet("code", "tt", "pre", "kbd", "samp", "var")
	hiddenTags  = newTagSet("script", "style")
	metaNames   = newTagSet("keywords", "description")
)

// matcher inspects one node and returns the fragment it contributes to a
// channel, if any. Nodes are visited in document order.
type matcher func(n *html.Node) (string, bool)

type channel struct {
	name  string
	match matcher
}

// channels is the fixed extraction taxonomy
var channels = []channel{
	{ChannelTitle, ownText(titleTags)},
	{ChannelText, bodyText},
	{ChannelHeadings, anyOf(nestedText(headingTags), metaContent(metaNames))},
	{ChannelCode, nestedText(codeTags)},
}

// ownText matches text nodes that are direct children of a tag in the set
func ownText(tags tagSet) matcher {
	return func(n *html.Node) (string, bool) {
		if n.Type != html.TextNode || n.Parent == nil || n.Parent.Type != html.ElementNode {
			return "", false
		}
		if !tags.has(n.Parent.Data) {
			return "", false
		}
		return n.Data, true
	}
}

// nestedText matches text nodes with any ancestor element in the set
func nestedText(tags tagSet) matcher {
	return func(n *html.Node) (string, bool) {
		if n.Type != html.TextNode {
			return "", false
		}
		for p := n.Parent; p != nil; p = p.Parent {
			if p.Type == html.ElementNode && tags.has(p.Data) {
				return n.Data, true
			}
		}
		return "", false
	}
}

// bodyText matches text nodes whose parent element is nested inside <body>
// and is not a script or style element
func bodyText(n *html.Node) (string, bool) {
	if n.Type != html.TextNode || n.Parent == nil || n.Parent.Type != html.ElementNode {
		return "", false
	}
	parent := n.Parent
	if hiddenTags.has(parent.Data) {
		return "", false
	}
	for p := parent.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "body" {
			return n.Data, true
		}
	}
	return "", false
}

// metaContent matches <meta name="..." content="..."> for the given names
func metaContent(names tagSet) matcher {
	return func(n *html.Node) (string, bool) {
		if n.Type != html.ElementNode || n.Data != "meta" {
			return "", false
		}
		if !names.has(attr(n, "name")) {
			return "", false
		}
		content, ok := attrLookup(n, "content")
		return content, ok
	}
}

func anyOf(matchers ...matcher) matcher {
	return func(n *html.Node) (string, bool) {
		for _, m := range matchers {
			if s, ok := m(n); ok {
				return s, true
			}
		}
		return "", false
	}
}

func attr(n *html.Node, key string) string {
	v, _ := attrLookup(n, key)
	return v
}

func attrLookup(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
