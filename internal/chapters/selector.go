package chapters

import (
	"strconv"
	"strings"
)

// Filter picks the chapters to download. chapter is a 1-based index or an
// exact title; rng is "a-b" and list is "a,b,c", both 1-based. With no
// criteria every stub is returned.
func Filter(all []Stub, chapter, rng, list string) []Stub {
	if chapter != "" {
		byTitle := FilterByTitle(all, chapter)
		if len(byTitle) > 0 {
			return byTitle
		}
		if idx, err := atoi(chapter); err == nil {
			if idx > 0 && idx <= len(all) {
				return []Stub{all[idx-1]}
			}
		}
		return []Stub{}
	}
	if rng != "" {
		return FilterRange(all, rng)
	}
	if list != "" {
		return FilterList(all, list)
	}
	return all
}

func FilterByTitle(all []Stub, title string) []Stub {
	var out []Stub
	for _, s := range all {
		if strings.EqualFold(strings.TrimSpace(s.Title), strings.TrimSpace(title)) {
			out = append(out, s)
		}
	}
	return out
}

func FilterRange(all []Stub, rng string) []Stub {
	parts := strings.Split(rng, "-")
	if len(parts) != 2 {
		return nil
	}
	start, err1 := atoi(parts[0])
	end, err2 := atoi(parts[1])
	if err1 != nil || err2 != nil {
		return nil
	}
	if end > len(all) {
		end = len(all)
	}
	if start <= 0 || end <= 0 || start > end {
		return nil
	}
	return all[start-1 : end]
}

func FilterList(all []Stub, list string) []Stub {
	out := []Stub{}
	for n := range strings.SplitSeq(list, ",") {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		idx, err := atoi(n)
		if err != nil {
			continue
		}
		if idx > 0 && idx <= len(all) {
			out = append(out, all[idx-1])
		}
	}
	return out
}

// Only keeps the stubs whose URL is in urls, preserving order.
func Only(all []Stub, urls []string) []Stub {
	want := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		want[u] = struct{}{}
	}

	var out []Stub
	for _, s := range all {
		if _, ok := want[s.URL]; ok {
			out = append(out, s)
		}
	}
	return out
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
