package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func populatedEngine(t *testing.T, clock *testClock) *Engine {
	t.Helper()
	e := newTestEngine(t, clock)
	admin := mustAddUser(t, e, "admin", RoleAdmin)
	alice := mustAddUser(t, e, "alice", RoleUser)
	mustAddUser(t, e, "bob", RoleUser)
	e.AddBook("Clean Code", "Robert C. Martin", "Programming")
	dune := e.AddBook("Dune", "Frank Herbert", "Fiction")
	gone := e.AddBook("Gone", "Nobody", "")
	e.AddBook("The Alchemist", "Paulo Coelho", "Fiction")
	require.NoError(t, e.RemoveBook(gone.ID))
	_, err := e.Borrow(alice, dune.ID)
	require.NoError(t, err)
	_, err = e.Borrow(admin, 1)
	require.NoError(t, err)
	return e
}

func TestSnapshot_RoundTrip(t *testing.T) {
	clock := newTestClock()
	e := populatedEngine(t, clock)

	data, err := e.Serialize()
	require.NoError(t, err)
	restored := Restore(data, WithClock(clock.Now), WithBcryptCost(bcrypt.MinCost))

	assert.Equal(t, e.Books(), restored.Books())
	assert.Equal(t, e.Users(), restored.Users())
	assertLendingInvariant(t, restored)

	// Counters survive: the removed book's id is not handed out again.
	b := restored.AddBook("Next", "Author", "")
	assert.Equal(t, int64(5), b.ID)
	u, err := restored.AddUser("carol", "pw", RoleUser)
	require.NoError(t, err)
	assert.Equal(t, int64(4), u.ID)
}

func TestSnapshot_RestoredStateIsLive(t *testing.T) {
	clock := newTestClock()
	e := populatedEngine(t, clock)
	data, err := e.Serialize()
	require.NoError(t, err)

	restored := Restore(data, WithClock(clock.Now))
	alice, ok := restored.FindUser("alice")
	require.True(t, ok)

	r, err := restored.Return(alice, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Fine)

	_, err = restored.Authenticate("alice", "alice-pw")
	assert.NoError(t, err)
}

func TestSnapshot_RevisionChangesPerCapture(t *testing.T) {
	e := newTestEngine(t, newTestClock())

	assert.NotEqual(t, e.Snapshot().Revision, e.Snapshot().Revision)
}

func TestRestore_FailsOpenToEmpty(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"nil", nil},
		{"garbage", []byte("\x00\x01not json")},
		{"truncated", []byte(`{"version":1,"next_book_id":3,"books":[{"id":1`)},
		{"wrong version", []byte(`{"version":99,"next_book_id":1,"next_user_id":1}`)},
		{"zero counters", []byte(`{"version":1}`)},
		{"id beyond counter", []byte(`{"version":1,"next_book_id":1,"next_user_id":1,"books":[{"id":1,"title":"x","author":"y","available":true}]}`)},
		{"partial lending state", []byte(`{"version":1,"next_book_id":2,"next_user_id":1,"books":[{"id":1,"title":"x","author":"y","available":false,"borrower_username":"a"}]}`)},
		{"available with borrower", []byte(`{"version":1,"next_book_id":2,"next_user_id":1,"books":[{"id":1,"title":"x","author":"y","available":true,"due_date":"2024-01-01"}]}`)},
		{"duplicate borrowed ids", []byte(`{"version":1,"next_book_id":2,"next_user_id":3,"books":[{"id":1,"title":"x","author":"y","available":false,"borrower_username":"ann","borrow_date":"2024-01-01","due_date":"2024-01-15"}],"users":[{"id":1,"username":"ann","role":"USER","borrowed_book_ids":[1,1]}]}`)},
		{"borrowed id of missing book", []byte(`{"version":1,"next_book_id":2,"next_user_id":3,"books":[{"id":1,"title":"x","author":"y","available":false,"borrower_username":"ann","borrow_date":"2024-01-01","due_date":"2024-01-15"}],"users":[{"id":1,"username":"ann","role":"USER","borrowed_book_ids":[1,9]}]}`)},
		{"borrowed id of available book", []byte(`{"version":1,"next_book_id":2,"next_user_id":3,"books":[{"id":1,"title":"x","author":"y","available":true}],"users":[{"id":1,"username":"ann","role":"USER","borrowed_book_ids":[1]}]}`)},
		{"borrowed id held by someone else", []byte(`{"version":1,"next_book_id":2,"next_user_id":3,"books":[{"id":1,"title":"x","author":"y","available":false,"borrower_username":"ann","borrow_date":"2024-01-01","due_date":"2024-01-15"}],"users":[{"id":1,"username":"ann","role":"USER","borrowed_book_ids":[]},{"id":2,"username":"bob","role":"USER","borrowed_book_ids":[1]}]}`)},
		{"borrower set lacks the book", []byte(`{"version":1,"next_book_id":2,"next_user_id":3,"books":[{"id":1,"title":"x","author":"y","available":false,"borrower_username":"ann","borrow_date":"2024-01-01","due_date":"2024-01-15"}],"users":[{"id":1,"username":"ann","role":"USER","borrowed_book_ids":[]}]}`)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeSnapshot(tc.data)
			assert.Error(t, err)

			e := Restore(tc.data)
			require.NotNil(t, e)
			assert.Empty(t, e.Books())
			assert.Empty(t, e.Users())
			assert.Equal(t, int64(1), e.AddBook("First", "Author", "").ID)
		})
	}
}

func TestDecodeSnapshot_AcceptsStaleBorrower(t *testing.T) {
	data := []byte(`{"version":1,"next_book_id":2,"next_user_id":3,"books":[{"id":1,"title":"x","author":"y","available":false,"borrower_username":"gone","borrow_date":"2024-01-01","due_date":"2024-01-15"}],"users":[{"id":1,"username":"ann","role":"USER","borrowed_book_ids":[]}]}`)

	s, err := DecodeSnapshot(data)
	require.NoError(t, err)

	e := FromSnapshot(s)
	b, ok := e.Book(1)
	require.True(t, ok)
	assert.Equal(t, "gone", b.BorrowerUsername)
	assert.Equal(t, 0, e.Users()[0].BorrowedCount())
}

func TestDecodeSnapshot_MatchesBorrowerCaseInsensitively(t *testing.T) {
	data := []byte(`{"version":1,"next_book_id":2,"next_user_id":3,"books":[{"id":1,"title":"x","author":"y","available":false,"borrower_username":"ann","borrow_date":"2024-01-01","due_date":"2024-01-15"}],"users":[{"id":1,"username":"ANN","role":"USER","borrowed_book_ids":[1]}]}`)

	_, err := DecodeSnapshot(data)
	assert.NoError(t, err)
}
