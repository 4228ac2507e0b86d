package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) advanceDays(n int) { c.now = c.now.AddDate(0, 0, n) }

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, time.March, 1, 15, 30, 0, 0, time.UTC)}
}

func newTestEngine(t *testing.T, clock *testClock) *Engine {
	t.Helper()
	return NewEngine(WithClock(clock.Now), WithBcryptCost(bcrypt.MinCost))
}

func mustAddUser(t *testing.T, e *Engine, name string, role Role) User {
	t.Helper()
	u, err := e.AddUser(name, name+"-pw", role)
	require.NoError(t, err)
	return u
}

// assertLendingInvariant checks that no book is ever partially borrowed.
func assertLendingInvariant(t *testing.T, e *Engine) {
	t.Helper()
	for _, b := range e.Books() {
		if b.Available {
			require.Empty(t, b.BorrowerUsername, "book %d", b.ID)
			require.Empty(t, b.BorrowDate, "book %d", b.ID)
			require.Empty(t, b.DueDate, "book %d", b.ID)
		} else {
			require.NotEmpty(t, b.BorrowerUsername, "book %d", b.ID)
			require.NotEmpty(t, b.BorrowDate, "book %d", b.ID)
			require.NotEmpty(t, b.DueDate, "book %d", b.ID)
		}
	}
	for _, u := range e.Users() {
		require.LessOrEqual(t, u.BorrowedCount(), BorrowLimit)
	}
}
