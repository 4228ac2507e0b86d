package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func seededCatalog() *BookRegistry {
	r := NewBookRegistry()
	r.Add("Clean Code", "Robert C. Martin", "Programming")
	r.Add("Effective Java", "Joshua Bloch", "Programming")
	r.Add("Head First Design Patterns", "Eric Freeman", "Programming")
	r.Add("The Alchemist", "Paulo Coelho", "Fiction")
	for i := 0; i < 8; i++ {
		r.Add("Filler", "Nobody", "Misc")
	}
	r.Add("Dune", "Frank Herbert", "fiction")
	return r
}

func ids(books []Book) []int64 {
	out := make([]int64, 0, len(books))
	for _, b := range books {
		out = append(out, b.ID)
	}
	return out
}

func TestSearch(t *testing.T) {
	r := seededCatalog()

	tests := []struct {
		name     string
		query    string
		scope    Scope
		category string
		want     []int64
	}{
		{"empty query returns everything", "", ScopeAll, "All", []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}},
		{"title substring", "alc", ScopeTitle, "All", []int64{4}},
		{"title is case-insensitive", "CLEAN", ScopeTitle, "", []int64{1}},
		{"author", "bloch", ScopeAuthor, "All", []int64{2}},
		{"title scope ignores author", "bloch", ScopeTitle, "All", []int64{}},
		{"category scope", "fic", ScopeCategory, "All", []int64{4, 13}},
		{"id substring", "1", ScopeID, "All", []int64{1, 10, 11, 12, 13}},
		{"all scope spans fields", "e", ScopeAll, "Fiction", []int64{4, 13}},
		{"all scope matches id", "13", ScopeAll, "", []int64{13}},
		{"category filter is exact and case-insensitive", "", ScopeTitle, "FICTION", []int64{4, 13}},
		{"category filter all is case-insensitive", "dune", ScopeAll, "all", []int64{13}},
		{"unknown category", "", ScopeAll, "Poetry", []int64{}},
		{"unknown scope matches nothing", "dune", Scope("Publisher"), "All", []int64{}},
		{"unknown scope with empty query matches all in category", "", Scope("Publisher"), "Fiction", []int64{4, 13}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(r.Search(tc.query, tc.scope, tc.category)))
		})
	}
}

func TestSearch_ViaEngineSeesRemovals(t *testing.T) {
	e := newTestEngine(t, newTestClock())
	e.AddBook("The Alchemist", "Paulo Coelho", "Fiction")
	b := e.AddBook("The Alchemist's Apprentice", "Someone", "Fiction")

	assert.Len(t, e.Search("alc", ScopeTitle, "All"), 2)
	assert.NoError(t, e.RemoveBook(b.ID))
	assert.Equal(t, []int64{1}, ids(e.Search("alc", ScopeTitle, "All")))
}

func TestParseScope(t *testing.T) {
	s, ok := ParseScope("title")
	assert.True(t, ok)
	assert.Equal(t, ScopeTitle, s)

	s, ok = ParseScope("id")
	assert.True(t, ok)
	assert.Equal(t, ScopeID, s)

	_, ok = ParseScope("isbn")
	assert.False(t, ok)
}
