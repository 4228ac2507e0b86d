package library

import (
	"slices"
	"strings"
)

// BookRegistry owns the book records. Records are keyed by id and kept in
// insertion order; callers only ever receive copies.
type BookRegistry struct {
	byID   map[int64]*Book
	order  []int64
	nextID int64
}

func NewBookRegistry() *BookRegistry {
	return &BookRegistry{byID: make(map[int64]*Book), nextID: 1}
}

// NextID is the id the next added book will receive.
func (r *BookRegistry) NextID() int64 { return r.nextID }

// Add creates an available book with the next id. An empty category becomes
// DefaultCategory.
func (r *BookRegistry) Add(title, author, category string) Book {
	if category == "" {
		category = DefaultCategory
	}
	b := &Book{
		ID:        r.nextID,
		Title:     title,
		Author:    author,
		Category:  category,
		Available: true,
	}
	r.nextID++
	r.insert(b)
	return *b
}

func (r *BookRegistry) insert(b *Book) {
	r.byID[b.ID] = b
	r.order = append(r.order, b.ID)
}

// Update replaces title, author and category; blank arguments keep the
// current value. Lending state is left alone.
func (r *BookRegistry) Update(id int64, title, author, category string) (Book, error) {
	b, ok := r.byID[id]
	if !ok {
		return Book{}, ErrBookNotFound
	}
	if title != "" {
		b.Title = title
	}
	if author != "" {
		b.Author = author
	}
	if category != "" {
		b.Category = category
	}
	return *b, nil
}

// RemoveByID deletes an available book. Borrowed books are never removed.
func (r *BookRegistry) RemoveByID(id int64) error {
	b, ok := r.byID[id]
	if !ok {
		return ErrBookNotFound
	}
	if !b.Available {
		return ErrBookBorrowed
	}
	delete(r.byID, id)
	r.order = slices.DeleteFunc(r.order, func(v int64) bool { return v == id })
	return nil
}

func (r *BookRegistry) GetByID(id int64) (Book, bool) {
	b, ok := r.byID[id]
	if !ok {
		return Book{}, false
	}
	return *b, true
}

// All returns every book in insertion order.
func (r *BookRegistry) All() []Book {
	books := make([]Book, 0, len(r.order))
	for _, id := range r.order {
		books = append(books, *r.byID[id])
	}
	return books
}

func (r *BookRegistry) Len() int { return len(r.order) }

// BorrowedCount is the number of books currently out on loan.
func (r *BookRegistry) BorrowedCount() int {
	n := 0
	for _, b := range r.byID {
		if !b.Available {
			n++
		}
	}
	return n
}

// Categories returns "All" followed by every distinct category in first-seen
// order, compared case-insensitively.
func (r *BookRegistry) Categories() []string {
	cats := []string{"All"}
	for _, id := range r.order {
		c := r.byID[id].Category
		if c == "" {
			c = DefaultCategory
		}
		if !slices.ContainsFunc(cats, func(s string) bool { return strings.EqualFold(s, c) }) {
			cats = append(cats, c)
		}
	}
	return cats
}

// record hands out the live record for engine transitions.
func (r *BookRegistry) record(id int64) (*Book, bool) {
	b, ok := r.byID[id]
	return b, ok
}
