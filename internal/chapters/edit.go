package chapters

import (
	"fmt"
	"regexp"
	"strings"
)

// TransformTitles replaces every match of the regular expression find in
// each title. replace may use $1 style group references. An empty find
// leaves the stubs unchanged.
func TransformTitles(stubs []Stub, find, replace string) ([]Stub, error) {
	if find == "" {
		return stubs, nil
	}

	re, err := regexp.Compile(find)
	if err != nil {
		return nil, fmt.Errorf("invalid title pattern %q: %w", find, err)
	}

	out := make([]Stub, len(stubs))
	for i, s := range stubs {
		s.Title = strings.TrimSpace(re.ReplaceAllString(s.Title, replace))
		if s.Title == "" {
			s.Title = "Untitled Chapter"
		}
		out[i] = s
	}
	return out, nil
}

// ApplyMoves runs Move for each "from:to" pair in turn. Positions are
// 1-based, as shown by the toc command.
func ApplyMoves(stubs []Stub, moves []string) ([]Stub, error) {
	for _, m := range moves {
		from, to, ok := strings.Cut(m, ":")
		if !ok {
			return nil, fmt.Errorf("invalid move %q (want from:to)", m)
		}
		f, err1 := atoi(from)
		t, err2 := atoi(to)
		if err1 != nil || err2 != nil || f < 1 || t < 1 || f > len(stubs) || t > len(stubs) {
			return nil, fmt.Errorf("invalid move %q for %d chapters", m, len(stubs))
		}
		stubs = Move(stubs, f-1, t-1)
	}
	return stubs, nil
}

// Reorder puts the chapters at the listed 1-based positions first, in the
// listed order, followed by the rest in their current order.
func Reorder(stubs []Stub, order string) ([]Stub, error) {
	if strings.TrimSpace(order) == "" {
		return stubs, nil
	}

	out := make([]Stub, len(stubs))
	copy(out, stubs)
	for i := range out {
		out[i].Order = len(stubs) + i + 1
	}

	seen := make(map[int]bool)
	rank := 0
	for n := range strings.SplitSeq(order, ",") {
		if strings.TrimSpace(n) == "" {
			continue
		}
		idx, err := atoi(n)
		if err != nil || idx < 1 || idx > len(stubs) {
			return nil, fmt.Errorf("invalid position %q in order for %d chapters", strings.TrimSpace(n), len(stubs))
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		rank++
		out[idx-1].Order = rank
	}

	return Normalize(out), nil
}

// Arrangement is the user's edits to a resolved table of contents.
type Arrangement struct {
	TitleFind    string
	TitleReplace string
	Moves        []string
	Order        string
}

// Arrange applies the title transform, then the explicit order, then the
// moves. The result is always numbered 1..N.
func Arrange(stubs []Stub, a Arrangement) ([]Stub, error) {
	out, err := TransformTitles(stubs, a.TitleFind, a.TitleReplace)
	if err != nil {
		return nil, err
	}
	if out, err = Reorder(out, a.Order); err != nil {
		return nil, err
	}
	if out, err = ApplyMoves(out, a.Moves); err != nil {
		return nil, err
	}
	return Normalize(out), nil
}
