package chapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func urlsOf(s []Stub) []string {
	out := make([]string, len(s))
	for i, st := range s {
		out[i] = st.URL
	}
	return out
}

func TestTransformTitles(t *testing.T) {
	in := []Stub{
		{Title: "Vol. 1 Chapter 12 - The Gate", URL: "a"},
		{Title: "Chapter 13", URL: "b"},
		{Title: "Vol. 2 ", URL: "c"},
	}

	got, err := TransformTitles(in, `^Vol\. \d+ ?`, "")
	require.NoError(t, err)
	assert.Equal(t, "Chapter 12 - The Gate", got[0].Title)
	assert.Equal(t, "Chapter 13", got[1].Title)
	assert.Equal(t, "Untitled Chapter", got[2].Title)
	assert.Equal(t, "Vol. 1 Chapter 12 - The Gate", in[0].Title)

	got, err = TransformTitles(in[:2], `Chapter (\d+)`, "Ch.$1")
	require.NoError(t, err)
	assert.Equal(t, "Vol. 1 Ch.12 - The Gate", got[0].Title)
	assert.Equal(t, "Ch.13", got[1].Title)

	same, err := TransformTitles(in, "", "x")
	require.NoError(t, err)
	assert.Equal(t, in, same)

	_, err = TransformTitles(in, "(", "")
	assert.Error(t, err)
}

func TestApplyMoves(t *testing.T) {
	all := Renumber(stubs("a", "b", "c", "d"))

	got, err := ApplyMoves(all, []string{"4:1", "2:3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "b", "a", "c"}, urlsOf(got))
	assert.Equal(t, []int{1, 2, 3, 4}, []int{got[0].Order, got[1].Order, got[2].Order, got[3].Order})
	assert.Equal(t, "chapter-1", got[0].ID)

	for _, bad := range []string{"1", "0:1", "1:5", "x:2"} {
		_, err := ApplyMoves(all, []string{bad})
		assert.Error(t, err, bad)
	}
}

func TestReorder(t *testing.T) {
	all := Renumber(stubs("a", "b", "c", "d", "e"))

	got, err := Reorder(all, "3, 1,3")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b", "d", "e"}, urlsOf(got))
	assert.Equal(t, 5, got[4].Order)
	assert.Equal(t, "chapter-2", got[1].ID)

	same, err := Reorder(all, " ")
	require.NoError(t, err)
	assert.Equal(t, all, same)

	_, err = Reorder(all, "1,9")
	assert.Error(t, err)
}

func TestArrangeFeedsFilter(t *testing.T) {
	all := Renumber([]Stub{
		{Title: "Book 1: Prologue", URL: "p"},
		{Title: "Book 1: Arrival", URL: "a"},
		{Title: "Book 1: Side Story", URL: "s"},
	})

	got, err := Arrange(all, Arrangement{
		TitleFind: `^Book 1: `,
		Order:     "2,1",
		Moves:     []string{"3:1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "a", "p"}, urlsOf(got))
	assert.Equal(t, "Side Story", got[0].Title)

	picked := Filter(got, "Arrival", "", "")
	require.Len(t, picked, 1)
	assert.Equal(t, 2, picked[0].Order)

	_, err = Arrange(all, Arrangement{Moves: []string{"1-2"}})
	assert.Error(t, err)
}
