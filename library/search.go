package library

import (
	"strconv"
	"strings"
)

// Scope selects which book fields a search query is matched against.
type Scope string

const (
	ScopeAll      Scope = "All"
	ScopeTitle    Scope = "Title"
	ScopeAuthor   Scope = "Author"
	ScopeCategory Scope = "Category"
	ScopeID       Scope = "ID"
)

// Scopes lists the search scopes in display order.
var Scopes = []Scope{ScopeAll, ScopeTitle, ScopeAuthor, ScopeCategory, ScopeID}

// ParseScope maps a case-insensitive scope name to a Scope.
func ParseScope(s string) (Scope, bool) {
	for _, sc := range Scopes {
		if strings.EqualFold(s, string(sc)) {
			return sc, true
		}
	}
	return "", false
}

// Search returns the books in the category that match query within scope,
// in insertion order. An empty category or "All" disables the category
// filter; an empty query matches every book that passes it. Matching is a
// case-insensitive substring test; ScopeID matches the decimal id.
func (r *BookRegistry) Search(query string, scope Scope, category string) []Book {
	q := strings.ToLower(query)
	noCategory := category == "" || strings.EqualFold(category, "All")

	result := []Book{}
	for _, id := range r.order {
		b := r.byID[id]
		if !noCategory && !strings.EqualFold(b.Category, category) {
			continue
		}
		if q == "" || matches(*b, q, scope) {
			result = append(result, *b)
		}
	}
	return result
}

func matches(b Book, q string, scope Scope) bool {
	title := strings.Contains(strings.ToLower(b.Title), q)
	author := strings.Contains(strings.ToLower(b.Author), q)
	category := strings.Contains(strings.ToLower(b.Category), q)
	id := strings.Contains(strconv.FormatInt(b.ID, 10), q)

	switch scope {
	case ScopeTitle:
		return title
	case ScopeAuthor:
		return author
	case ScopeCategory:
		return category
	case ScopeID:
		return id
	case ScopeAll:
		return title || author || category || id
	}
	return false
}
