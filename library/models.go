package library

import (
	"slices"
	"strings"
	"time"
)

const (
	// BorrowLimit is the maximum number of books a user may hold at once.
	BorrowLimit = 5
	// BorrowDays is the loan period added to the borrow date to get the due date.
	BorrowDays = 14
	// FinePerDay is charged for every full day a book is returned past its due date.
	FinePerDay = 10

	// DefaultCategory is used when a book is added without a category.
	DefaultCategory = "General"

	// DateLayout is the calendar-day format of borrow and due dates.
	DateLayout = "2006-01-02"

	dueSoonDays = 3
)

// Role decides what a user is allowed to do.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ParseRole maps a case-insensitive role name to a Role.
func ParseRole(s string) (Role, bool) {
	switch {
	case strings.EqualFold(s, string(RoleAdmin)):
		return RoleAdmin, true
	case strings.EqualFold(s, string(RoleUser)):
		return RoleUser, true
	}
	return "", false
}

// Book is a catalog entry together with its current lending state.
// A book is either available with no borrower and no dates, or borrowed with
// all three set.
type Book struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	Author           string `json:"author"`
	Category         string `json:"category"`
	Available        bool   `json:"available"`
	BorrowerUsername string `json:"borrower_username,omitempty"`
	BorrowDate       string `json:"borrow_date,omitempty"`
	DueDate          string `json:"due_date,omitempty"`
}

// DueStatus describes how close a borrowed book is to its due date.
type DueStatus string

const (
	DueNone    DueStatus = ""
	DueSoon    DueStatus = "due soon"
	DueOverdue DueStatus = "overdue"
)

// DueStatus reports whether the book is overdue or due within three days of today.
// Available books and unparseable due dates report DueNone.
func (b Book) DueStatus(today time.Time) DueStatus {
	if b.Available {
		return DueNone
	}
	due, err := time.Parse(DateLayout, b.DueDate)
	if err != nil {
		return DueNone
	}
	days := daysBetween(calendarDay(today), due)
	switch {
	case days < 0:
		return DueOverdue
	case days <= dueSoonDays:
		return DueSoon
	}
	return DueNone
}

func (b *Book) markBorrowed(username, borrowDate, dueDate string) {
	b.Available = false
	b.BorrowerUsername = username
	b.BorrowDate = borrowDate
	b.DueDate = dueDate
}

func (b *Book) markReturned() {
	b.Available = true
	b.BorrowerUsername = ""
	b.BorrowDate = ""
	b.DueDate = ""
}

// User is a registered account. Passwords are stored as bcrypt hashes.
type User struct {
	ID              int64   `json:"id"`
	Username        string  `json:"username"`
	PasswordHash    string  `json:"password_hash"`
	Role            Role    `json:"role"`
	BorrowedBookIDs []int64 `json:"borrowed_book_ids"`
}

func (u User) IsAdmin() bool { return strings.EqualFold(string(u.Role), string(RoleAdmin)) }

func (u User) BorrowedCount() int { return len(u.BorrowedBookIDs) }

func (u User) CanBorrowMore() bool { return len(u.BorrowedBookIDs) < BorrowLimit }

// HasBorrowed reports whether bookID is in the user's borrowed set.
func (u User) HasBorrowed(bookID int64) bool { return slices.Contains(u.BorrowedBookIDs, bookID) }

func (u *User) addBorrowed(bookID int64) {
	if !slices.Contains(u.BorrowedBookIDs, bookID) {
		u.BorrowedBookIDs = append(u.BorrowedBookIDs, bookID)
	}
}

func (u *User) removeBorrowed(bookID int64) {
	u.BorrowedBookIDs = slices.DeleteFunc(u.BorrowedBookIDs, func(id int64) bool { return id == bookID })
}

// clone detaches the borrowed id slice so a view cannot alias registry state.
func (u User) clone() User {
	u.BorrowedBookIDs = slices.Clone(u.BorrowedBookIDs)
	if u.BorrowedBookIDs == nil {
		u.BorrowedBookIDs = []int64{}
	}
	return u
}

// Stats summarises the catalog for the acting user.
type Stats struct {
	TotalBooks    int
	TotalBorrowed int
	TotalUsers    int
	YourBorrowed  int
	BorrowLimit   int
}

// BorrowReceipt is the outcome of a successful borrow.
type BorrowReceipt struct {
	BookID     int64
	Username   string
	BorrowDate string
	DueDate    string
}

// ReturnReceipt is the outcome of a successful return. Fine is zero when the
// book came back on time or its due date could not be read.
type ReturnReceipt struct {
	BookID   int64
	Borrower string
	DaysLate int
	Fine     int
}

func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole calendar days from a to b; both must be UTC midnights.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
