package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alvmarrod/site-spider/internal/storage"
)

// Tracker holds and manages crawl metrics
type Tracker struct {
	mu               sync.Mutex
	data             storage.Metrics
	totalFetchTimeMs int64
	fetchCount       int
}

// NewTracker creates a new metrics tracker
func NewTracker(profile string) *Tracker {
	return &Tracker{
		data: storage.Metrics{
			Profile:     profile,
			StartTime:   time.Now(),
			SkipReasons: make(map[string]int),
		},
	}
}

// IncrementPagesFetched increments the successful fetch counter
func (t *Tracker) IncrementPagesFetched() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFetched++
}

// IncrementPagesStored increments the persisted pages counter
func (t *Tracker) IncrementPagesStored() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesStored++
}

// IncrementPagesSkipped counts a page dropped for the given reason
func (t *Tracker) IncrementPagesSkipped(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesSkipped++
	t.data.SkipReasons[reason]++
}

// IncrementPagesFailed increments the counter of pages that could not be processed
func (t *Tracker) IncrementPagesFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFailed++
}

// IncrementFetchErrors increments the failed request counter
func (t *Tracker) IncrementFetchErrors() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.FetchErrors++
}

// AddLinks records how many in-scope links a page had and how many of them
// were new to the frontier
func (t *Tracker) AddLinks(discovered, enqueued int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.LinksDiscovered += discovered
	t.data.LinksEnqueued += enqueued
}

// RecordFetchTime records a page fetch duration
func (t *Tracker) RecordFetchTime(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalFetchTimeMs += duration.Milliseconds()
	t.fetchCount++
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.data
	snapshot.SkipReasons = make(map[string]int, len(t.data.SkipReasons))
	for k, v := range t.data.SkipReasons {
		snapshot.SkipReasons[k] = v
	}
	snapshot.TotalFetchTimeMs = t.totalFetchTimeMs

	// Calculate average fetch time
	if t.fetchCount > 0 {
		snapshot.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}

	return snapshot
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason
	t.mu.Unlock()

	jsonData, err := json.MarshalIndent(t.GetSnapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress formats current metrics for periodic console updates
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Pages: %d fetched, %d stored, %d skipped, %d failed | Links: %d found, %d enqueued | Fetch errors: %d",
		t.data.PagesFetched,
		t.data.PagesStored,
		t.data.PagesSkipped,
		t.data.PagesFailed,
		t.data.LinksDiscovered,
		t.data.LinksEnqueued,
		t.data.FetchErrors,
	)
}
