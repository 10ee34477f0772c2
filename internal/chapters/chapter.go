package chapters

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/brogergvhs/noveld/internal/fetch"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusSuccess     Status = "success"
	StatusError       Status = "error"
)

// Stub identifies a chapter by URL. ID and Order are only meaningful once
// the whole list is known.
type Stub struct {
	ID    string
	Title string
	URL   string
	Order int
}

// Chapter is a stub plus the result of downloading it. Content is the
// cleaned body markup without any wrapping container.
type Chapter struct {
	Stub
	Content  string
	Status   Status
	Err      *fetch.FetchError
	Attempts int
}

func (c Chapter) Done() bool {
	return c.Status == StatusSuccess || c.Status == StatusError
}

// ID formats the identifier for a 1-based rank.
func ID(order int) string {
	return fmt.Sprintf("chapter-%d", order)
}

// Renumber assigns order 1..N and matching ids by slice position.
func Renumber(stubs []Stub) []Stub {
	out := make([]Stub, len(stubs))
	for i, s := range stubs {
		s.Order = i + 1
		s.ID = ID(s.Order)
		out[i] = s
	}
	return out
}

// Normalize re-derives a dense order after manual edits: stubs are sorted
// by their current Order (stable for ties) and renumbered.
func Normalize(stubs []Stub) []Stub {
	sorted := make([]Stub, len(stubs))
	copy(sorted, stubs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	return Renumber(sorted)
}

// Move relocates the stub at index from to index to and renumbers.
func Move(stubs []Stub, from, to int) []Stub {
	if from < 0 || from >= len(stubs) || to < 0 || to >= len(stubs) || from == to {
		return Renumber(stubs)
	}

	out := make([]Stub, 0, len(stubs))
	moved := stubs[from]
	for i, s := range stubs {
		if i == from {
			continue
		}
		out = append(out, s)
	}
	out = append(out[:to], append([]Stub{moved}, out[to:]...)...)

	return Renumber(out)
}

// URLSet returns the set of chapter URLs in stubs.
func URLSet(stubs []Stub) mapset.Set[string] {
	set := mapset.NewSetWithSize[string](len(stubs))
	for _, s := range stubs {
		set.Add(s.URL)
	}
	return set
}

// Pending wraps stubs as chapters that have not been attempted yet.
func Pending(stubs []Stub) []Chapter {
	out := make([]Chapter, len(stubs))
	for i, s := range stubs {
		out[i] = Chapter{Stub: s, Status: StatusPending}
	}
	return out
}

// SortByOrder orders chapters by their Order field.
func SortByOrder(chs []Chapter) {
	sort.SliceStable(chs, func(i, j int) bool { return chs[i].Order < chs[j].Order })
}
