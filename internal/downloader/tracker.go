package downloader

import (
	"github.com/brogergvhs/noveld/internal/chapters"
)

// Tracker folds the update stream of one run into per-chapter state.
type Tracker struct {
	order     []string
	records   map[string]chapters.Chapter
	fromCache map[string]bool
	succeeded int
	failed    int
	cached    int
}

func NewTracker(selected []chapters.Stub) *Tracker {
	t := &Tracker{
		records:   make(map[string]chapters.Chapter, len(selected)),
		fromCache: make(map[string]bool),
	}
	for _, ch := range chapters.Pending(selected) {
		t.order = append(t.order, ch.URL)
		t.records[ch.URL] = ch
	}
	return t
}

func (t *Tracker) Apply(u Update) {
	prev, ok := t.records[u.Chapter.URL]
	if !ok {
		return
	}

	switch prev.Status {
	case chapters.StatusSuccess:
		t.succeeded--
	case chapters.StatusError:
		t.failed--
	}
	if t.fromCache[u.Chapter.URL] {
		t.cached--
		delete(t.fromCache, u.Chapter.URL)
	}

	switch u.Chapter.Status {
	case chapters.StatusSuccess:
		t.succeeded++
		if u.Cached {
			t.cached++
			t.fromCache[u.Chapter.URL] = true
		}
	case chapters.StatusError:
		t.failed++
	}

	t.records[u.Chapter.URL] = u.Chapter
}

func (t *Tracker) Total() int     { return len(t.order) }
func (t *Tracker) Succeeded() int { return t.succeeded }
func (t *Tracker) Failed() int    { return t.failed }
func (t *Tracker) Cached() int    { return t.cached }

// Percent is (succeeded+failed)/selected in the range 0..100.
func (t *Tracker) Percent() float64 {
	if len(t.order) == 0 {
		return 100
	}
	return float64(t.succeeded+t.failed) * 100 / float64(len(t.order))
}

// Chapters returns every tracked chapter sorted by order.
func (t *Tracker) Chapters() []chapters.Chapter {
	out := make([]chapters.Chapter, 0, len(t.order))
	for _, u := range t.order {
		out = append(out, t.records[u])
	}
	chapters.SortByOrder(out)
	return out
}

func (t *Tracker) filter(keep func(chapters.Chapter) bool) []chapters.Chapter {
	var out []chapters.Chapter
	for _, ch := range t.Chapters() {
		if keep(ch) {
			out = append(out, ch)
		}
	}
	return out
}

func (t *Tracker) Successful() []chapters.Chapter {
	return t.filter(func(c chapters.Chapter) bool { return c.Status == chapters.StatusSuccess })
}

func (t *Tracker) Errored() []chapters.Chapter {
	return t.filter(func(c chapters.Chapter) bool { return c.Status == chapters.StatusError })
}

// Incomplete lists chapters that never reached a terminal state, which
// happens when the run was cancelled.
func (t *Tracker) Incomplete() []chapters.Chapter {
	return t.filter(func(c chapters.Chapter) bool { return !c.Done() })
}

// Retry resets errored chapters to pending and returns their stubs for a
// second pass.
func (t *Tracker) Retry() []chapters.Stub {
	var stubs []chapters.Stub
	for _, ch := range t.Errored() {
		stubs = append(stubs, ch.Stub)
		t.records[ch.URL] = chapters.Chapter{Stub: ch.Stub, Status: chapters.StatusPending, Err: ch.Err}
		t.failed--
	}
	return stubs
}
