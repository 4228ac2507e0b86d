package library

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the lending engine unwraps to one of these.
var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidOperation       = errors.New("invalid operation")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)

type lendingError struct {
	kind error
	msg  string
}

func (e *lendingError) Error() string { return e.msg }
func (e *lendingError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error { return &lendingError{kind: kind, msg: msg} }

var (
	ErrBookNotFound       = newError(ErrNotFound, "book not found")
	ErrUserNotFound       = newError(ErrNotFound, "user not found")
	ErrAlreadyBorrowed    = newError(ErrInvalidOperation, "book is already borrowed")
	ErrNotBorrowed        = newError(ErrInvalidOperation, "book is not borrowed")
	ErrBorrowLimitReached = newError(ErrInvalidOperation, fmt.Sprintf("borrow limit reached (max %d books)", BorrowLimit))
	ErrBookBorrowed       = newError(ErrInvalidOperation, "cannot delete a borrowed book")
	ErrDuplicateUsername  = newError(ErrInvalidOperation, "username already exists")
	ErrInvalidInput       = newError(ErrInvalidOperation, "invalid input")
	ErrNotOwner           = newError(ErrUnauthorized, "cannot return a book borrowed by another user")
	ErrAdminOnly          = newError(ErrUnauthorized, "admin privileges required")
	ErrInvalidCredentials = newError(ErrUnauthorized, "invalid credentials")
)
