package library

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

const snapshotVersion = 1

// Snapshot is a self-contained copy of both registries and their id counters.
// Its shape is independent of the live registries.
type Snapshot struct {
	Version    int       `json:"version"`
	Revision   uuid.UUID `json:"revision"`
	TakenAt    time.Time `json:"taken_at"`
	NextBookID int64     `json:"next_book_id"`
	NextUserID int64     `json:"next_user_id"`
	Books      []Book    `json:"books"`
	Users      []User    `json:"users"`
}

// Snapshot captures the current state under a fresh revision id.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		Version:    snapshotVersion,
		Revision:   uuid.New(),
		TakenAt:    e.now().UTC(),
		NextBookID: e.books.nextID,
		NextUserID: e.users.nextID,
		Books:      e.books.All(),
		Users:      e.users.All(),
	}
}

// Serialize encodes the current state.
func (e *Engine) Serialize() ([]byte, error) {
	return EncodeSnapshot(e.Snapshot())
}

func EncodeSnapshot(s Snapshot) ([]byte, error) {
	data, err := jsoniter.ConfigFastest.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses and validates an encoded snapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	if len(data) == 0 {
		return Snapshot{}, errors.New("decode snapshot: empty")
	}
	var s Snapshot
	if err := jsoniter.ConfigFastest.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := s.validate(); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

func (s Snapshot) validate() error {
	if s.Version != snapshotVersion {
		return fmt.Errorf("unsupported version %d", s.Version)
	}
	if s.NextBookID < 1 || s.NextUserID < 1 {
		return errors.New("id counters must start at 1")
	}

	seen := make(map[int64]bool, len(s.Books))
	for _, b := range s.Books {
		if b.ID < 1 || b.ID >= s.NextBookID || seen[b.ID] {
			return fmt.Errorf("book id %d out of range or duplicated", b.ID)
		}
		seen[b.ID] = true
		lent := b.BorrowerUsername != "" || b.BorrowDate != "" || b.DueDate != ""
		complete := b.BorrowerUsername != "" && b.BorrowDate != "" && b.DueDate != ""
		if b.Available && lent || !b.Available && !complete {
			return fmt.Errorf("book %d has partial lending state", b.ID)
		}
	}

	books := make(map[int64]Book, len(s.Books))
	for _, b := range s.Books {
		books[b.ID] = b
	}

	clear(seen)
	held := make(map[int64]bool)
	for _, u := range s.Users {
		if u.ID < 1 || u.ID >= s.NextUserID || seen[u.ID] {
			return fmt.Errorf("user id %d out of range or duplicated", u.ID)
		}
		seen[u.ID] = true
		if len(u.BorrowedBookIDs) > BorrowLimit {
			return fmt.Errorf("user %d holds more than %d books", u.ID, BorrowLimit)
		}
		for _, id := range u.BorrowedBookIDs {
			b, ok := books[id]
			if !ok || b.Available || !strings.EqualFold(b.BorrowerUsername, u.Username) || held[id] {
				return fmt.Errorf("user %d lists book %d it does not hold", u.ID, id)
			}
			held[id] = true
		}
	}

	// A borrower with no user record is stale and allowed. A known borrower
	// must list the book.
	for _, b := range s.Books {
		if b.Available || held[b.ID] {
			continue
		}
		for _, u := range s.Users {
			if strings.EqualFold(u.Username, b.BorrowerUsername) {
				return fmt.Errorf("book %d missing from borrower %q", b.ID, b.BorrowerUsername)
			}
		}
	}
	return nil
}

// FromSnapshot rebuilds an engine from a decoded snapshot.
func FromSnapshot(s Snapshot, opts ...Option) *Engine {
	e := NewEngine(opts...)
	for _, b := range s.Books {
		b := b
		e.books.insert(&b)
	}
	for _, u := range s.Users {
		u := u.clone()
		e.users.insert(&u)
	}
	e.books.nextID = s.NextBookID
	e.users.nextID = s.NextUserID
	return e
}

// Restore decodes data into an engine. Missing or corrupt data yields an
// empty engine rather than an error.
func Restore(data []byte, opts ...Option) *Engine {
	s, err := DecodeSnapshot(data)
	if err != nil {
		return NewEngine(opts...)
	}
	return FromSnapshot(s, opts...)
}
