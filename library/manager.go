package library

import (
	"fmt"
	"log/slog"
)

// LibraryManager ties the lending engine to its SQLite snapshot store and is
// what the CLI talks to.
type LibraryManager struct {
	db     *Database
	engine *Engine
	logger *slog.Logger
}

// NewLibraryManager opens the SQLite database at dbPath and restores the saved
// state. A missing or unreadable snapshot starts an empty library instead of
// failing.
func NewLibraryManager(dbPath string, logger *slog.Logger, opts ...Option) (*LibraryManager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	m := &LibraryManager{db: db, logger: logger}
	m.engine = m.load(opts)
	return m, nil
}

func (m *LibraryManager) load(opts []Option) *Engine {
	data, err := m.db.LoadSnapshot()
	if err != nil {
		m.logger.Warn("snapshot unavailable, starting empty", "error", err)
		return NewEngine(opts...)
	}
	if data == nil {
		m.logger.Info("no saved snapshot, starting empty")
		return NewEngine(opts...)
	}
	s, err := DecodeSnapshot(data)
	if err != nil {
		m.logger.Warn("snapshot unreadable, starting empty", "error", err)
		return NewEngine(opts...)
	}
	m.logger.Info("snapshot restored",
		"revision", s.Revision.String(),
		"books", len(s.Books),
		"users", len(s.Users))
	return FromSnapshot(s, opts...)
}

// Close closes the underlying database.
func (m *LibraryManager) Close() error { return m.db.Close() }

// Engine exposes the lending engine for read-only views and tests.
func (m *LibraryManager) Engine() *Engine { return m.engine }

// Save writes the current state. A failure is logged and returned; the
// in-memory state is kept as is.
func (m *LibraryManager) Save() error {
	s := m.engine.Snapshot()
	if err := m.db.SaveSnapshot(s); err != nil {
		m.logger.Error("save snapshot", "error", err)
		return err
	}
	m.logger.Debug("snapshot saved", "revision", s.Revision.String())
	return nil
}

// ------------------ Seeding ------------------

var defaultBooks = [][3]string{
	{"Clean Code", "Robert C. Martin", "Programming"},
	{"Effective Java", "Joshua Bloch", "Programming"},
	{"Head First Design Patterns", "Eric Freeman", "Programming"},
	{"The Alchemist", "Paulo Coelho", "Fiction"},
}

// SeedDefaults adds the default admin, a regular user and a starter catalog
// when no users exist yet, then saves. It reports whether anything was added.
func (m *LibraryManager) SeedDefaults() (bool, error) {
	if len(m.engine.Users()) > 0 {
		return false, nil
	}
	if _, err := m.engine.AddUser("admin", "admin123", RoleAdmin); err != nil {
		return false, err
	}
	if _, err := m.engine.AddUser("user1", "1234", RoleUser); err != nil {
		return false, err
	}
	for _, b := range defaultBooks {
		m.engine.AddBook(b[0], b[1], b[2])
	}
	m.logger.Info("seeded default users and books", "books", len(defaultBooks))
	return true, m.Save()
}

// ------------------ Session ------------------

// Login checks the credentials and returns the matching user.
func (m *LibraryManager) Login(username, password string) (User, error) {
	u, err := m.engine.Authenticate(username, password)
	if err != nil {
		m.logger.Info("login failed", "username", username)
		return User{}, err
	}
	m.logger.Info("login", "username", u.Username, "role", u.Role)
	return u, nil
}

// Refresh rereads the acting user's record so views reflect borrow changes.
func (m *LibraryManager) Refresh(actor User) (User, error) {
	u, ok := m.engine.User(actor.ID)
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *LibraryManager) requireAdmin(actor User) error {
	u, ok := m.engine.User(actor.ID)
	if !ok {
		return ErrUserNotFound
	}
	if !u.IsAdmin() {
		return ErrAdminOnly
	}
	return nil
}

// ------------------ Book helpers ------------------

func (m *LibraryManager) AddBook(actor User, title, author, category string) (Book, error) {
	if err := m.requireAdmin(actor); err != nil {
		return Book{}, err
	}
	if title == "" || author == "" {
		return Book{}, fmt.Errorf("%w: title and author are required", ErrInvalidInput)
	}
	return m.engine.AddBook(title, author, category), nil
}

func (m *LibraryManager) UpdateBook(actor User, id int64, title, author, category string) (Book, error) {
	if err := m.requireAdmin(actor); err != nil {
		return Book{}, err
	}
	return m.engine.UpdateBook(id, title, author, category)
}

func (m *LibraryManager) DeleteBook(actor User, id int64) error {
	if err := m.requireAdmin(actor); err != nil {
		return err
	}
	return m.engine.RemoveBook(id)
}

func (m *LibraryManager) GetBook(id int64) (Book, error) {
	b, ok := m.engine.Book(id)
	if !ok {
		return Book{}, ErrBookNotFound
	}
	return b, nil
}

func (m *LibraryManager) GetAllBooks() []Book   { return m.engine.Books() }
func (m *LibraryManager) Categories() []string { return m.engine.Categories() }

func (m *LibraryManager) SearchBooks(query string, scope Scope, category string) []Book {
	return m.engine.Search(query, scope, category)
}

// ------------------ Member helpers ------------------

// AddUser registers a new account. Usernames must be unique.
func (m *LibraryManager) AddUser(actor User, username, password string, role Role) (User, error) {
	if err := m.requireAdmin(actor); err != nil {
		return User{}, err
	}
	return m.engine.RegisterUser(username, password, role)
}

func (m *LibraryManager) GetAllUsers() []User { return m.engine.Users() }

func (m *LibraryManager) BorrowedBooks(actor User) ([]Book, error) {
	return m.engine.BooksBorrowedBy(actor.Username)
}

func (m *LibraryManager) Stats(actor User) Stats { return m.engine.Stats(actor) }

// ------------------ Circulation ------------------

func (m *LibraryManager) BorrowBook(actor User, bookID int64) (BorrowReceipt, error) {
	r, err := m.engine.Borrow(actor, bookID)
	if err != nil {
		return r, err
	}
	m.logger.Info("book borrowed", "book_id", bookID, "username", r.Username, "due", r.DueDate)
	return r, nil
}

func (m *LibraryManager) ReturnBook(actor User, bookID int64) (ReturnReceipt, error) {
	r, err := m.engine.Return(actor, bookID)
	if err != nil {
		return r, err
	}
	m.logger.Info("book returned",
		"book_id", bookID,
		"borrower", r.Borrower,
		"returned_by", actor.Username,
		"fine", r.Fine)
	return r, nil
}
