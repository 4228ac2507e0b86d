package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"library-lending/library"
)

// session is one interactive login: it reads line commands and prints the
// outcome of each library operation.
type session struct {
	mgr          *library.LibraryManager
	sc           *bufio.Scanner
	out          io.Writer
	readPassword func(prompt string) (string, error)

	user library.User
}

func newSession(mgr *library.LibraryManager, in io.Reader, out io.Writer, readPassword func(string) (string, error)) *session {
	s := &session{mgr: mgr, sc: bufio.NewScanner(in), out: out}
	s.readPassword = readPassword
	if s.readPassword == nil {
		s.readPassword = s.readLine
	}
	return s
}

func (s *session) printf(format string, args ...any) { fmt.Fprintf(s.out, format, args...) }
func (s *session) println(args ...any)               { fmt.Fprintln(s.out, args...) }

// readLine prompts and reads one trimmed line, returning io.EOF when input ends.
func (s *session) readLine(prompt string) (string, error) {
	s.printf("%s", prompt)
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(s.sc.Text()), nil
}

func (s *session) readID(prompt string) (int64, bool) {
	raw, err := s.readLine(prompt)
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.printf("Invalid ID: %s\n", raw)
		return 0, false
	}
	return id, true
}

// login prompts until valid credentials are entered. It returns false when
// input runs out.
func (s *session) login() bool {
	for {
		username, err := s.readLine("Username: ")
		if err != nil {
			return false
		}
		password, err := s.readPassword("Password: ")
		if err != nil {
			return false
		}
		u, err := s.mgr.Login(username, password)
		if err != nil {
			s.println("Invalid credentials. Try again.")
			continue
		}
		s.user = u
		s.printf("Logged in as: %s (%s)\n", u.Username, u.Role)
		return true
	}
}

func (s *session) printHelp() {
	s.println("Available commands:")
	s.println("  Books: list books, search book, categories, details")
	s.println("  Circulation: borrow, return, my books, stats")
	if s.user.IsAdmin() {
		s.println("  Admin: add book, update book, delete book, add user, list users")
	}
	s.println("  System: save, logout, help, exit")
}

// run drives the session until exit or end of input.
func (s *session) run() {
	s.println("Welcome to the Library Management System!")
	if !s.login() {
		return
	}
	s.printHelp()

	for {
		cmd, err := s.readLine("\n> ")
		if err != nil {
			s.save()
			return
		}

		switch cmd {
		case "list books":
			s.handleListBooks(s.mgr.GetAllBooks())
		case "search book":
			s.handleSearchBooks()
		case "categories":
			s.println(strings.Join(s.mgr.Categories(), ", "))
		case "details":
			s.handleDetails()
		case "borrow":
			s.handleBorrow()
		case "return":
			s.handleReturn()
		case "my books":
			s.handleMyBooks()
		case "stats":
			s.handleStats()
		case "add book":
			s.handleAddBook()
		case "update book":
			s.handleUpdateBook()
		case "delete book":
			s.handleDeleteBook()
		case "add user":
			s.handleAddUser()
		case "list users":
			s.handleListUsers()
		case "save":
			if s.save() {
				s.println("Saved!")
			}
		case "logout":
			s.save()
			if !s.login() {
				return
			}
		case "help":
			s.printHelp()
		case "exit":
			s.save()
			s.println("Goodbye!")
			return
		case "":
		default:
			s.println("Unknown command. Type 'help' to list the available commands.")
		}
	}
}

// save persists the library. A failure is reported but the session goes on.
func (s *session) save() bool {
	if err := s.mgr.Save(); err != nil {
		s.printf("Warning: could not save library state: %v\n", err)
		return false
	}
	return true
}

func (s *session) report(err error) {
	switch {
	case errors.Is(err, library.ErrNotFound):
		s.printf("Not found: %v\n", err)
	case errors.Is(err, library.ErrUnauthorized):
		s.printf("Not allowed: %v\n", err)
	default:
		s.printf("Error: %v\n", err)
	}
}

func (s *session) handleListBooks(books []library.Book) {
	if len(books) == 0 {
		s.println("No books found.")
		return
	}
	writeBookTable(s.out, books, s.mgr.Engine().Today())
}

func (s *session) handleSearchBooks() {
	query, err := s.readLine("Search for: ")
	if err != nil {
		return
	}
	rawScope, err := s.readLine("Search by (All/Title/Author/Category/ID) [All]: ")
	if err != nil {
		return
	}
	scope := library.ScopeAll
	if rawScope != "" {
		var ok bool
		if scope, ok = library.ParseScope(rawScope); !ok {
			s.printf("Unknown search field: %s\n", rawScope)
			return
		}
	}
	category, err := s.readLine(fmt.Sprintf("Category (%s) [All]: ", strings.Join(s.mgr.Categories(), "/")))
	if err != nil {
		return
	}
	s.handleListBooks(s.mgr.SearchBooks(query, scope, category))
}

func (s *session) handleDetails() {
	id, ok := s.readID("Book ID: ")
	if !ok {
		return
	}
	b, err := s.mgr.GetBook(id)
	if err != nil {
		s.report(err)
		return
	}
	s.printf("ID: %d\n", b.ID)
	s.printf("Title: %s\n", b.Title)
	s.printf("Author: %s\n", b.Author)
	s.printf("Category: %s\n", b.Category)
	s.printf("Status: %s\n", statusLabel(b))
	s.printf("Borrower: %s\n", orDash(b.BorrowerUsername))
	s.printf("Borrow Date: %s\n", orDash(b.BorrowDate))
	s.printf("Due Date: %s\n", orDash(b.DueDate))
	if st := b.DueStatus(s.mgr.Engine().Today()); st != library.DueNone {
		s.printf("Note: %s\n", st)
	}
}

func (s *session) handleBorrow() {
	id, ok := s.readID("Book ID: ")
	if !ok {
		return
	}
	r, err := s.mgr.BorrowBook(s.user, id)
	if err != nil {
		s.report(err)
		return
	}
	s.printf("Borrowed successfully. Due date: %s\n", r.DueDate)
	s.save()
}

func (s *session) handleReturn() {
	id, ok := s.readID("Book ID: ")
	if !ok {
		return
	}
	r, err := s.mgr.ReturnBook(s.user, id)
	if err != nil {
		s.report(err)
		return
	}
	if r.Fine > 0 {
		s.printf("Returned. Fine due: %d (%d days late)\n", r.Fine, r.DaysLate)
	} else {
		s.println("Returned successfully.")
	}
	s.save()
}

func (s *session) handleMyBooks() {
	books, err := s.mgr.BorrowedBooks(s.user)
	if err != nil {
		s.report(err)
		return
	}
	s.handleListBooks(books)
}

func (s *session) handleStats() {
	st := s.mgr.Stats(s.user)
	s.printf("Total Books:   %d\n", st.TotalBooks)
	s.printf("Borrowed:      %d\n", st.TotalBorrowed)
	s.printf("Total Users:   %d\n", st.TotalUsers)
	s.printf("Your borrowed: %d\n", st.YourBorrowed)
	s.printf("Borrow limit:  %d\n", st.BorrowLimit)
}

func (s *session) handleAddBook() {
	if !s.user.IsAdmin() {
		s.report(library.ErrAdminOnly)
		return
	}
	title, err := s.readLine("Title: ")
	if err != nil {
		return
	}
	author, err := s.readLine("Author: ")
	if err != nil {
		return
	}
	category, err := s.readLine("Category [General]: ")
	if err != nil {
		return
	}
	b, err := s.mgr.AddBook(s.user, title, author, category)
	if err != nil {
		s.report(err)
		return
	}
	s.printf("Added book ID %d.\n", b.ID)
	s.save()
}

func (s *session) handleUpdateBook() {
	if !s.user.IsAdmin() {
		s.report(library.ErrAdminOnly)
		return
	}
	id, ok := s.readID("Book ID: ")
	if !ok {
		return
	}
	current, err := s.mgr.GetBook(id)
	if err != nil {
		s.report(err)
		return
	}
	title, err := s.readLine(fmt.Sprintf("Title [%s]: ", current.Title))
	if err != nil {
		return
	}
	author, err := s.readLine(fmt.Sprintf("Author [%s]: ", current.Author))
	if err != nil {
		return
	}
	category, err := s.readLine(fmt.Sprintf("Category [%s]: ", current.Category))
	if err != nil {
		return
	}
	b, err := s.mgr.UpdateBook(s.user, id, title, author, category)
	if err != nil {
		s.report(err)
		return
	}
	s.printf("Updated book '%s'.\n", b.Title)
	s.save()
}

func (s *session) handleDeleteBook() {
	if !s.user.IsAdmin() {
		s.report(library.ErrAdminOnly)
		return
	}
	id, ok := s.readID("Book ID: ")
	if !ok {
		return
	}
	if err := s.mgr.DeleteBook(s.user, id); err != nil {
		s.report(err)
		return
	}
	s.printf("Deleted book ID %d.\n", id)
	s.save()
}

func (s *session) handleAddUser() {
	if !s.user.IsAdmin() {
		s.report(library.ErrAdminOnly)
		return
	}
	username, err := s.readLine("Username: ")
	if err != nil {
		return
	}
	password, err := s.readPassword(fmt.Sprintf("Password for %s: ", username))
	if err != nil {
		return
	}
	rawRole, err := s.readLine("Role (ADMIN/USER) [USER]: ")
	if err != nil {
		return
	}
	role := library.RoleUser
	if rawRole != "" {
		var ok bool
		if role, ok = library.ParseRole(rawRole); !ok {
			s.printf("Unknown role: %s\n", rawRole)
			return
		}
	}
	u, err := s.mgr.AddUser(s.user, username, password, role)
	if err != nil {
		s.report(err)
		return
	}
	s.printf("Added user '%s' with ID %d\n", u.Username, u.ID)
	s.save()
}

func (s *session) handleListUsers() {
	if !s.user.IsAdmin() {
		s.report(library.ErrAdminOnly)
		return
	}
	s.printf("%-5s %-25s %-8s %s\n", "ID", "Username", "Role", "Borrowed")
	s.println(strings.Repeat("-", 50))
	for _, u := range s.mgr.GetAllUsers() {
		s.printf("%-5d %-25s %-8s %d/%d\n", u.ID, truncateString(u.Username, 25), u.Role, u.BorrowedCount(), library.BorrowLimit)
	}
}
