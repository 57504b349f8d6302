package crawler

import (
	"sync"
)

// Queue is the crawl frontier: a thread-safe FIFO of URLs that accepts each
// URL at most once. It tracks URLs handed to workers so it can tell when the
// crawl has run dry.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []string
	seen    map[string]bool
	active  int
	stopped bool
}

// NewQueue creates an empty frontier
func NewQueue() *Queue {
	q := &Queue{
		items: make([]string, 0),
		seen:  make(map[string]bool),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push adds a URL if it has never been queued before
// Returns true if added, false if duplicate or stopped
func (q *Queue) Push(url string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped || q.seen[url] {
		return false
	}

	q.seen[url] = true
	q.items = append(q.items, url)

	// Signal waiting workers
	q.cond.Signal()

	return true
}

// Pop removes and returns the first URL, marking it in progress until Done
// is called. It blocks while the queue is empty but other URLs are still in
// progress, since those may yet push more.
// Returns ("", false) once the queue is stopped or drained.
func (q *Queue) Pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.stopped {
			return "", false
		}

		if len(q.items) > 0 {
			url := q.items[0]
			q.items = q.items[1:]
			q.active++
			return url, true
		}

		if q.active == 0 {
			// Nothing queued and nothing in progress: wake everyone to exit
			q.cond.Broadcast()
			return "", false
		}

		q.cond.Wait()
	}
}

// Done marks a popped URL as finished
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.active--
	if q.active == 0 && len(q.items) == 0 {
		q.cond.Broadcast()
	}
}

// IsEmpty returns true if no URLs are waiting
func (q *Queue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Size returns the number of URLs waiting
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// InFlight returns the number of URLs popped but not yet done
func (q *Queue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// Stopped reports whether Stop has been called
func (q *Queue) Stopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}

// Stop rejects further pushes and releases every worker blocked in Pop.
// URLs still waiting are abandoned.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopped = true
	// Broadcast to wake all waiting workers
	q.cond.Broadcast()
}
