package storage

import "time"

// PageVisit is the ledger entry for one crawled URL
type PageVisit struct {
	URL           string
	Domain        string
	Status        string
	Reason        string
	RecordPath    string
	Title         string
	VisitCount    int
	LastVisitedAt time.Time
}

// Link is a directed edge between two crawled pages
type Link struct {
	FromURL string
	ToURL   string
	Weight  int
}

// Metrics tracks crawl statistics for export on exit
type Metrics struct {
	Profile           string         `json:"profile"`
	StartTime         time.Time      `json:"start_time"`
	EndTime           time.Time      `json:"end_time"`
	PagesFetched      int            `json:"pages_fetched"`
	PagesStored       int            `json:"pages_stored"`
	PagesSkipped      int            `json:"pages_skipped"`
	PagesFailed       int            `json:"pages_failed"`
	FetchErrors       int            `json:"fetch_errors"`
	LinksDiscovered   int            `json:"links_discovered"`
	LinksEnqueued     int            `json:"links_enqueued"`
	SkipReasons       map[string]int `json:"skip_reasons"`
	TotalFetchTimeMs  int64          `json:"total_fetch_time_ms"`
	AvgFetchTimeMs    int64          `json:"avg_fetch_time_ms"`
	TerminationReason string         `json:"termination_reason"`
}
