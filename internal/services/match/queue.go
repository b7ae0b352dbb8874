package match

import "sync"

// matchQueue holds connections waiting for an anonymous opponent, in
// arrival order. Entries of vanished connections are pruned lazily on
// dequeue instead of on every disconnect.
type matchQueue struct {
	mu      sync.Mutex
	waiting []string
}

func newMatchQueue() *matchQueue { return &matchQueue{} }

func (q *matchQueue) enqueue(connID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range q.waiting {
		if id == connID {
			return
		}
	}
	q.waiting = append(q.waiting, connID)
}

func (q *matchQueue) remove(connID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.waiting[:0]
	for _, id := range q.waiting {
		if id != connID {
			kept = append(kept, id)
		}
	}
	q.waiting = kept
}

// dequeueActive pops entries from the front, dropping the excluded id
// and anything no longer live, until it finds a candidate or runs dry.
func (q *matchQueue) dequeueActive(excluding string, live func(string) bool) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.waiting) > 0 {
		id := q.waiting[0]
		q.waiting = q.waiting[1:]
		if id == excluding {
			continue
		}
		if live(id) {
			return id, true
		}
	}
	return "", false
}

func (q *matchQueue) contains(connID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range q.waiting {
		if id == connID {
			return true
		}
	}
	return false
}

func (q *matchQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}
