package library

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"time"
)

// Engine runs borrow and return transitions against the book and user
// registries. All access goes through one mutex so the check-then-mark steps
// of a borrow or return are never interleaved.
type Engine struct {
	mu    sync.Mutex
	books *BookRegistry
	users *UserRegistry
	now   func() time.Time
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	now        func() time.Time
	bcryptCost int
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) { o.now = now }
}

// WithBcryptCost sets the cost used to hash new user passwords.
func WithBcryptCost(cost int) Option {
	return func(o *engineOptions) { o.bcryptCost = cost }
}

func buildOptions(opts []Option) engineOptions {
	o := engineOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewEngine returns an engine with empty registries.
func NewEngine(opts ...Option) *Engine {
	o := buildOptions(opts)
	return &Engine{
		books: NewBookRegistry(),
		users: NewUserRegistry(o.bcryptCost),
		now:   o.now,
	}
}

func (e *Engine) today() time.Time { return calendarDay(e.now()) }

// ---------------------------------------------------------------------------
// Circulation
// ---------------------------------------------------------------------------

// Borrow lends bookID to user for BorrowDays days starting today.
func (e *Engine) Borrow(user User, bookID int64) (BorrowReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.books.record(bookID)
	if !ok {
		return BorrowReceipt{}, ErrBookNotFound
	}
	if !b.Available {
		return BorrowReceipt{}, ErrAlreadyBorrowed
	}
	u, ok := e.users.byID[user.ID]
	if !ok {
		return BorrowReceipt{}, ErrUserNotFound
	}
	if !u.CanBorrowMore() {
		return BorrowReceipt{}, ErrBorrowLimitReached
	}

	today := e.today()
	borrowDate := today.Format(DateLayout)
	dueDate := today.AddDate(0, 0, BorrowDays).Format(DateLayout)
	b.markBorrowed(u.Username, borrowDate, dueDate)
	u.addBorrowed(bookID)

	return BorrowReceipt{BookID: bookID, Username: u.Username, BorrowDate: borrowDate, DueDate: dueDate}, nil
}

// Return makes bookID available again and computes the late fine. Only an
// admin or the borrower may return a book. The id is always removed from the
// original borrower's set, whoever performs the return.
func (e *Engine) Return(actor User, bookID int64) (ReturnReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.books.record(bookID)
	if !ok {
		return ReturnReceipt{}, ErrBookNotFound
	}
	if b.Available {
		return ReturnReceipt{}, ErrNotBorrowed
	}
	a, ok := e.users.byID[actor.ID]
	if !ok {
		return ReturnReceipt{}, ErrUserNotFound
	}
	if !a.IsAdmin() && !strings.EqualFold(a.Username, b.BorrowerUsername) {
		return ReturnReceipt{}, ErrNotOwner
	}

	daysLate, fine := computeFine(b.DueDate, e.today())
	borrower := b.BorrowerUsername
	b.markReturned()

	// A stale borrower name leaves nothing to update.
	if u, ok := e.users.recordByUsername(borrower); ok {
		u.removeBorrowed(bookID)
	}

	return ReturnReceipt{BookID: bookID, Borrower: borrower, DaysLate: daysLate, Fine: fine}, nil
}

// computeFine charges FinePerDay for every calendar day after dueDate. An
// unreadable due date is charged nothing.
func computeFine(dueDate string, today time.Time) (daysLate, fine int) {
	due, err := time.Parse(DateLayout, dueDate)
	if err != nil {
		return 0, 0
	}
	daysLate = daysBetween(due, today)
	if daysLate <= 0 {
		return 0, 0
	}
	return daysLate, daysLate * FinePerDay
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

func (e *Engine) AddBook(title, author, category string) Book {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.books.Add(title, author, category)
}

func (e *Engine) UpdateBook(id int64, title, author, category string) (Book, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.books.Update(id, title, author, category)
}

func (e *Engine) RemoveBook(id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.books.RemoveByID(id)
}

func (e *Engine) Book(id int64) (Book, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.books.GetByID(id)
}

func (e *Engine) Books() []Book {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.books.All()
}

func (e *Engine) Categories() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.books.Categories()
}

// Search runs a catalog query. See BookRegistry.Search.
func (e *Engine) Search(query string, scope Scope, category string) []Book {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.books.Search(query, scope, category)
}

// BooksBorrowedBy resolves a user's borrowed ids into books, skipping ids that
// no longer resolve.
func (e *Engine) BooksBorrowedBy(username string) ([]Book, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	u, ok := e.users.recordByUsername(username)
	if !ok {
		return nil, ErrUserNotFound
	}
	books := make([]Book, 0, len(u.BorrowedBookIDs))
	for _, id := range u.BorrowedBookIDs {
		if b, ok := e.books.GetByID(id); ok {
			books = append(books, b)
		}
	}
	slices.SortFunc(books, func(a, b Book) int { return cmp.Compare(a.ID, b.ID) })
	return books, nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// AddUser stores a user without checking for duplicate usernames.
func (e *Engine) AddUser(username, password string, role Role) (User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.users.Add(username, password, role)
}

// RegisterUser is AddUser for callers that need unique, non-blank usernames.
func (e *Engine) RegisterUser(username, password string, role Role) (User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if username == "" || password == "" {
		return User{}, ErrInvalidInput
	}
	if _, taken := e.users.recordByUsername(username); taken {
		return User{}, ErrDuplicateUsername
	}
	return e.users.Add(username, password, role)
}

func (e *Engine) FindUser(username string) (User, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.users.FindByUsername(username)
}

func (e *Engine) User(id int64) (User, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.users.GetByID(id)
}

func (e *Engine) Users() []User {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.users.All()
}

// Authenticate returns the user whose username and password both match.
func (e *Engine) Authenticate(username, password string) (User, error) {
	u, ok := e.FindUser(username)
	if !ok || !CheckPassword(u, password) {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Stats summarises the catalog. The acting user's count is read fresh from
// the registry.
func (e *Engine) Stats(actor User) Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{
		TotalBooks:    e.books.Len(),
		TotalBorrowed: e.books.BorrowedCount(),
		TotalUsers:    e.users.Len(),
		BorrowLimit:   BorrowLimit,
	}
	if u, ok := e.users.byID[actor.ID]; ok {
		s.YourBorrowed = u.BorrowedCount()
	}
	return s
}

// Today is the engine's current calendar day.
func (e *Engine) Today() time.Time { return e.today() }
