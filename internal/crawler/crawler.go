package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"

	"github.com/alvmarrod/site-spider/internal/config"
	"github.com/alvmarrod/site-spider/internal/metrics"
	"github.com/alvmarrod/site-spider/internal/profile"
	"github.com/alvmarrod/site-spider/internal/scope"
	"github.com/alvmarrod/site-spider/internal/storage"
)

// Termination reasons reported by Run
const (
	TerminationQueueEmpty = "queue_empty"
	TerminationStopped    = "stopped"
)

const fetchStartedKey = "fetch_started"

// VisitRecorder keeps a durable account of visited pages
type VisitRecorder interface {
	RecordVisit(v storage.PageVisit) error
	RecordLinks(fromURL string, targets []string) error
}

// Options wires a Crawler to its collaborators
type Options struct {
	Config  *config.Config
	Profile profile.Profile
	Store   RecordPersister
	Ledger  VisitRecorder
	Tracker *metrics.Tracker
	// Console receives one line per page: the URL when stored, or a SKIP line
	Console logrus.FieldLogger
}

// Crawler is the fetch engine around the Driver. Workers pop URLs from the
// frontier and fetch them through a shared colly collector.
type Crawler struct {
	cfg       *config.Config
	profile   profile.Profile
	driver    *Driver
	ledger    VisitRecorder
	tracker   *metrics.Tracker
	console   logrus.FieldLogger
	queue     *Queue
	collector *colly.Collector
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// NewCrawler creates a crawler for one profile
func NewCrawler(opts Options) (*Crawler, error) {
	if err := opts.Profile.Validate(); err != nil {
		return nil, err
	}
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Tracker == nil {
		opts.Tracker = metrics.NewTracker(opts.Profile.Name)
	}
	if opts.Console == nil {
		opts.Console = logrus.StandardLogger()
	}

	c := &Crawler{
		cfg:     opts.Config,
		profile: opts.Profile,
		driver:  NewDriver(scope.NewFilter(opts.Profile), opts.Store),
		ledger:  opts.Ledger,
		tracker: opts.Tracker,
		console: opts.Console,
		queue:   NewQueue(),
	}

	if err := c.setupColly(); err != nil {
		return nil, err
	}
	return c, nil
}

// setupColly configures the Colly collector with callbacks
func (c *Crawler) setupColly() error {
	c.collector = colly.NewCollector(
		colly.AllowedDomains(c.profile.RootHost()),
		colly.UserAgent(c.cfg.UserAgent),
		colly.MaxBodySize(c.cfg.MaxBodyBytes),
		// The frontier queue owns de-duplication
		colly.AllowURLRevisit(),
	)

	c.collector.SetRequestTimeout(time.Duration(c.cfg.RequestTimeoutMs) * time.Millisecond)

	// Redirects are never followed: every page must be scope checked under
	// the exact URL that was requested
	c.collector.SetRedirectHandler(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	})

	if err := c.collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: c.cfg.ConcurrentWorkers,
	}); err != nil {
		return fmt.Errorf("failed to set limit rule: %w", err)
	}

	c.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put(fetchStartedKey, time.Now())
	})

	c.collector.OnResponse(func(r *colly.Response) {
		c.recordFetchTime(r.Ctx)
		c.tracker.IncrementPagesFetched()

		res := c.driver.Visit(FetchedPage{
			URL:         r.Request.URL.String(),
			ContentType: r.Headers.Get("Content-Type"),
			Body:        r.Body,
		})
		c.handleResult(res)
	})

	c.collector.OnError(func(r *colly.Response, err error) {
		c.tracker.IncrementFetchErrors()

		if r == nil || r.Request == nil {
			logrus.Errorf("Fetch failed with nil response: %v", err)
			return
		}
		c.recordFetchTime(r.Ctx)

		target := r.Request.URL.String()
		logrus.Warnf("Fetch failed for %s: %v (status: %d)", target, err, r.StatusCode)
		c.recordVisit(storage.PageVisit{
			URL:    target,
			Domain: scope.Domain(target),
			Status: string(StatusFetchError),
			Reason: err.Error(),
		})
	})

	return nil
}

// handleResult reports a visited page and feeds its links to the frontier
func (c *Crawler) handleResult(res Result) {
	visit := storage.PageVisit{
		URL:    res.URL,
		Domain: scope.Domain(res.URL),
		Status: string(res.Status),
		Reason: res.Reason,
	}

	switch res.Status {
	case StatusStored:
		c.console.Info(res.URL)
		c.tracker.IncrementPagesStored()
		visit.RecordPath = res.Path
		visit.Title = res.Record.Title
		if c.ledger != nil {
			if err := c.ledger.RecordLinks(res.URL, res.Links); err != nil {
				logrus.Warnf("Failed to record links of %s: %v", res.URL, err)
			}
		}
	case StatusSkipped:
		c.console.Infof("SKIP %s: %s", res.URL, res.Reason)
		c.tracker.IncrementPagesSkipped(res.Reason)
	case StatusFailed:
		logrus.Errorf("Failed to process %s: %v", res.URL, res.Err)
		c.tracker.IncrementPagesFailed()
		if res.Err != nil {
			visit.Reason = res.Err.Error()
		}
	}
	c.recordVisit(visit)

	enqueued := 0
	for _, link := range res.Links {
		if c.queue.Push(frontierURL(link)) {
			enqueued++
		}
	}
	c.tracker.AddLinks(len(res.Links), enqueued)

	if len(res.Links) > 0 {
		logrus.Debugf("%s: %d in-scope links, %d new", res.URL, len(res.Links), enqueued)
	}
}

// frontierURL drops the fragment so every section link of a page maps to
// one fetch and one record
func frontierURL(link string) string {
	if i := strings.IndexByte(link, '#'); i >= 0 {
		return link[:i]
	}
	return link
}

func (c *Crawler) recordVisit(v storage.PageVisit) {
	if c.ledger == nil {
		return
	}
	if err := c.ledger.RecordVisit(v); err != nil {
		logrus.Warnf("Failed to record visit of %s: %v", v.URL, err)
	}
}

func (c *Crawler) recordFetchTime(ctx *colly.Context) {
	if started, ok := ctx.GetAny(fetchStartedKey).(time.Time); ok {
		c.tracker.RecordFetchTime(time.Since(started))
	}
}

// Run seeds the frontier with the profile's whitelist and crawls until the
// frontier is exhausted or ctx is cancelled. It returns the termination reason.
func (c *Crawler) Run(ctx context.Context) string {
	root := c.profile.RootHost()
	for _, seed := range c.profile.Seeds() {
		if u, err := url.Parse(seed); err != nil || u.Hostname() != root {
			logrus.Warnf("Skipping seed %s: outside crawl root %s", seed, root)
			continue
		}
		c.queue.Push(frontierURL(seed))
	}

	logrus.Infof("Starting %d crawler workers for profile %s (%s)",
		c.cfg.ConcurrentWorkers, c.profile.Name, c.profile.RootDomain())

	for i := 0; i < c.cfg.ConcurrentWorkers; i++ {
		c.wg.Add(1)
		go c.worker(i + 1)
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if c.queue.Stopped() {
			return TerminationStopped
		}
		return TerminationQueueEmpty
	case <-ctx.Done():
		logrus.Infof("Crawl interrupted: %v", ctx.Err())
		c.Stop()
		<-done
		return TerminationStopped
	}
}

// worker fetches URLs from the frontier until it is stopped or drained
func (c *Crawler) worker(id int) {
	defer c.wg.Done()

	logrus.Debugf("Worker %d started", id)

	for {
		target, ok := c.queue.Pop()
		if !ok {
			logrus.Debugf("Worker %d: queue closed, exiting", id)
			return
		}

		logrus.Debugf("Worker %d: visiting %s", id, target)

		// Visit is synchronous; OnResponse has pushed the page's links
		// before it returns. Fetch failures were already reported by OnError.
		if err := c.collector.Visit(target); err != nil {
			logrus.Debugf("Worker %d: visit failed for %s: %v", id, target, err)
		}
		c.queue.Done()
	}
}

// Stop makes workers exit after their current page (safe to call multiple times)
func (c *Crawler) Stop() {
	c.stopOnce.Do(func() {
		logrus.Info("Stopping crawler...")
		c.queue.Stop()
	})
}

// Pending returns the number of URLs waiting in the frontier and in flight
func (c *Crawler) Pending() (queued, inFlight int) {
	return c.queue.Size(), c.queue.InFlight()
}
