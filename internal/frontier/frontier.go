// Package frontier owns the crawl work queue and the visited set,
// together enforcing single-visit semantics and the page-count ceiling.
package frontier

// Frontier is a FIFO, insertion-ordered URL queue backed by a visited
// set. The visited set both deduplicates URLs and enforces the ceiling,
// so every dequeued URL, successful or not, consumes budget. The page
// counter tracks only pages whose content was extracted. It is not
// safe for concurrent use: the single crawl worker is its only client.
type Frontier struct {
	maxPages int
	pages    int
	visited  map[string]struct{}
	queued   map[string]struct{}
	queue    []string
}

// New builds a Frontier with the given page-count ceiling.
func New(maxPages int) *Frontier {
	return &Frontier{
		maxPages: maxPages,
		visited:  make(map[string]struct{}),
		queued:   make(map[string]struct{}),
	}
}

// Enqueue appends url and returns true, or returns false as a no-op
// when url is already visited, already queued, or the ceiling has been
// reached.
func (f *Frontier) Enqueue(url string) bool {
	if len(f.visited) >= f.maxPages {
		return false
	}
	if _, ok := f.visited[url]; ok {
		return false
	}
	if _, ok := f.queued[url]; ok {
		return false
	}
	f.queued[url] = struct{}{}
	f.queue = append(f.queue, url)
	return true
}

// Next pops the oldest queued URL. The second return is false when the
// queue is empty.
func (f *Frontier) Next() (string, bool) {
	if len(f.queue) == 0 {
		return "", false
	}
	url := f.queue[0]
	f.queue = f.queue[1:]
	delete(f.queued, url)
	return url, true
}

// MarkVisited moves url into the visited set so it is never queued
// again, regardless of whether processing it succeeded.
func (f *Frontier) MarkVisited(url string) {
	f.visited[url] = struct{}{}
}

// Visited reports whether url has been marked visited.
func (f *Frontier) Visited(url string) bool {
	_, ok := f.visited[url]
	return ok
}

// CountPage advances the page counter, which tracks pages whose
// content was actually extracted. Fetch failures and non-HTML
// responses are excluded here but still consume ceiling budget through
// the visited set.
func (f *Frontier) CountPage() {
	f.pages++
}

// PagesCounted returns the number of pages counted by CountPage.
func (f *Frontier) PagesCounted() int { return f.pages }

// VisitedCount returns the number of URLs marked visited.
func (f *Frontier) VisitedCount() int { return len(f.visited) }

// QueueLen returns the number of URLs waiting in the queue.
func (f *Frontier) QueueLen() int { return len(f.queue) }

// Exhausted is true when there is no more work: the queue is empty or
// the visited count has reached the ceiling.
func (f *Frontier) Exhausted() bool {
	return len(f.queue) == 0 || len(f.visited) >= f.maxPages
}
