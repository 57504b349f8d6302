package crawler

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/alvmarrod/site-spider/internal/extract"
	"github.com/alvmarrod/site-spider/internal/scope"
)

// Status is the outcome of visiting one page
type Status string

const (
	StatusStored     Status = "stored"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
	StatusFetchError Status = "fetch_error"
)

// Skip reasons, as printed in the crawl report
const (
	ReasonNotInWhitelist   = "URL NOT IN WHITELIST"
	ReasonNotEnoughContent = "NOT ENOUGH CONTENT"
)

var acceptedContentTypes = map[string]bool{
	"text/html":               true,
	"text/html;charset=utf-8": true,
}

// BadCharsetReason is the skip reason for a page with an unusable content type
func BadCharsetReason(contentType string) string {
	return `BAD CHARSET "` + contentType + `"`
}

// AcceptsContentType reports whether a Content-Type header names UTF-8 HTML
func AcceptsContentType(contentType string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(contentType, " ", ""))
	return acceptedContentTypes[normalized]
}

// RecordPersister stores extracted page records
type RecordPersister interface {
	Persist(rec *extract.PageRecord) (string, error)
}

// FetchedPage is a document delivered by the fetch engine
type FetchedPage struct {
	URL         string
	ContentType string
	Body        []byte
}

// Result describes what happened to one page and which links it leads to
type Result struct {
	URL    string
	Status Status
	Reason string
	Record *extract.PageRecord
	Path   string
	Links  []string
	Err    error
}

// Driver runs one page-visit cycle: scope check, content type check,
// extraction, persistence and link discovery. It keeps no state between
// visits and is safe for concurrent use.
type Driver struct {
	filter *scope.Filter
	store  RecordPersister
}

// NewDriver creates a driver for the given filter and record store
func NewDriver(filter *scope.Filter, store RecordPersister) *Driver {
	return &Driver{filter: filter, store: store}
}

// Visit processes a fetched page. Links are only returned for pages whose
// URL is in scope and whose content type is HTML; a page with too little
// text still contributes its links.
func (d *Driver) Visit(page FetchedPage) Result {
	res := Result{URL: page.URL}

	if _, ok := d.filter.Resolve(page.URL, ""); !ok {
		res.Status = StatusSkipped
		res.Reason = ReasonNotInWhitelist
		return res
	}

	if !AcceptsContentType(page.ContentType) {
		res.Status = StatusSkipped
		res.Reason = BadCharsetReason(page.ContentType)
		return res
	}

	doc, err := extract.Parse(bytes.NewReader(page.Body))
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}

	res.Links = extract.Links(doc, page.URL, d.filter)

	rec, err := extract.Content(doc, page.URL)
	if errors.Is(err, extract.ErrNotEnoughContent) {
		res.Status = StatusSkipped
		res.Reason = ReasonNotEnoughContent
		return res
	}
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}

	rec.Links = res.Links
	res.Record = rec

	path, err := d.store.Persist(rec)
	if err != nil {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("failed to persist %s: %w", page.URL, err)
		return res
	}

	res.Status = StatusStored
	res.Path = path
	return res
}
