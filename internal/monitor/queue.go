package monitor

import (
	"sync"

	"github.com/HerbHall/fleetpulse/internal/probe"
)

// ResultQueue buffers probe results between the scheduler and the
// reconciler. Pushes never block and nothing is dropped; the reconciler
// drains the whole buffer in one atomic swap.
type ResultQueue struct {
	mu      sync.Mutex
	results []probe.Result
}

// NewResultQueue creates an empty queue.
func NewResultQueue() *ResultQueue {
	return &ResultQueue{}
}

// Push appends a result to the queue.
func (q *ResultQueue) Push(r probe.Result) {
	q.mu.Lock()
	q.results = append(q.results, r)
	q.mu.Unlock()
}

// DrainAll removes and returns all queued results in push order. Results
// pushed concurrently with the drain land in the next batch.
func (q *ResultQueue) DrainAll() []probe.Result {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.results) == 0 {
		return nil
	}
	batch := q.results
	q.results = nil
	return batch
}

// Len reports the number of queued results.
func (q *ResultQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.results)
}
