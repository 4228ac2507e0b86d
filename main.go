package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-lending/library"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg    Config
	logger *slog.Logger
	mgr    *library.LibraryManager
}

type rootFlags struct {
	dbPath     string
	bcryptCost int
	logLevel   string
	logFormat  string
	noSeed     bool
}

func newRootCmd() *cobra.Command {
	return (&app{}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:           "library",
		Short:         "Lend books to registered users and track overdue fines",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd, flags)
		},
		RunE: a.closing(func(cmd *cobra.Command, args []string) error {
			return a.runShell(cmd)
		}),
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.dbPath, "db", "", "path to the SQLite state file (env LIBRARY_DB_PATH)")
	pf.IntVar(&flags.bcryptCost, "bcrypt-cost", 0, "bcrypt cost for new passwords, 4-14 (env LIBRARY_BCRYPT_COST)")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error (env LIBRARY_LOG_LEVEL)")
	pf.StringVar(&flags.logFormat, "log-format", "", "text or json (env LIBRARY_LOG_FORMAT)")
	pf.BoolVar(&flags.noSeed, "no-seed", false, "do not seed default users and books into an empty library")

	root.AddCommand(newShellCmd(a), newBooksCmd(a), newStatsCmd(a))
	return root
}

func (a *app) open(cmd *cobra.Command, flags rootFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fs := cmd.Flags()
	if fs.Changed("db") {
		cfg.DBPath = flags.dbPath
	}
	if fs.Changed("bcrypt-cost") {
		cfg.BcryptCost = flags.bcryptCost
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if fs.Changed("log-format") {
		cfg.LogFormat = flags.logFormat
	}
	if flags.noSeed {
		cfg.Seed = false
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(a.logger)

	a.mgr, err = library.NewLibraryManager(cfg.DBPath, a.logger, library.WithBcryptCost(cfg.BcryptCost))
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	return nil
}

// closing wraps a RunE so the manager is closed whether or not it fails.
// Cobra skips post-run hooks after an error.
func (a *app) closing(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() { err = errors.Join(err, a.close()) }()
		return run(cmd, args)
	}
}

func (a *app) close() error {
	if a.mgr == nil {
		return nil
	}
	err := a.mgr.Close()
	a.mgr = nil
	return err
}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Log in and run the interactive library session (default)",
		Args:  cobra.NoArgs,
		RunE: a.closing(func(cmd *cobra.Command, args []string) error {
			return a.runShell(cmd)
		}),
	}
}

// runShell seeds an empty library before logging in; the read-only
// subcommands never write.
func (a *app) runShell(cmd *cobra.Command) error {
	if a.cfg.Seed {
		if _, err := a.mgr.SeedDefaults(); err != nil {
			a.logger.Error("seed defaults", "error", err)
		}
	}
	in := cmd.InOrStdin()
	out := cmd.OutOrStdout()
	s := newSession(a.mgr, in, out, nil)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		s.readPassword = terminalPassword(f, out)
	}
	s.run()
	return nil
}

// terminalPassword reads a password from a terminal without echoing it.
func terminalPassword(f *os.File, out io.Writer) func(string) (string, error) {
	return func(prompt string) (string, error) {
		fmt.Fprint(out, prompt)
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		fmt.Fprintln(out) // Add newline after password input
		return strings.TrimSpace(string(bytePassword)), nil
	}
}

func newBooksCmd(a *app) *cobra.Command {
	var (
		query    string
		by       string
		category string
	)
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List or search the catalog",
		Args:  cobra.NoArgs,
		RunE: a.closing(func(cmd *cobra.Command, args []string) error {
			scope, ok := library.ParseScope(by)
			if !ok {
				return fmt.Errorf("unknown search field %q", by)
			}
			books := a.mgr.SearchBooks(query, scope, category)
			out := cmd.OutOrStdout()
			if len(books) == 0 {
				fmt.Fprintln(out, "No books found.")
				return nil
			}
			writeBookTable(out, books, a.mgr.Engine().Today())
			return nil
		}),
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "text to search for")
	cmd.Flags().StringVar(&by, "by", string(library.ScopeAll), "field to search: All, Title, Author, Category or ID")
	cmd.Flags().StringVarP(&category, "category", "c", "All", "only books in this category")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print catalog totals",
		Args:  cobra.NoArgs,
		RunE: a.closing(func(cmd *cobra.Command, args []string) error {
			st := a.mgr.Stats(library.User{})
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total Books: %d\n", st.TotalBooks)
			fmt.Fprintf(out, "Borrowed:    %d\n", st.TotalBorrowed)
			fmt.Fprintf(out, "Total Users: %d\n", st.TotalUsers)
			fmt.Fprintf(out, "Categories:  %s\n", strings.Join(a.mgr.Categories()[1:], ", "))
			return nil
		}),
	}
}

// writeBookTable prints books one per row with their lending state.
func writeBookTable(out io.Writer, books []library.Book, today time.Time) {
	w := bufio.NewWriter(out)
	defer w.Flush()

	fmt.Fprintf(w, "%-5s %-30s %-20s %-12s %-10s %-15s %-10s %-10s\n",
		"ID", "Title", "Author", "Category", "Status", "Borrower", "Borrowed", "Due")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, b := range books {
		due := orDash(b.DueDate)
		if st := b.DueStatus(today); st != library.DueNone {
			due += " (" + string(st) + ")"
		}
		fmt.Fprintf(w, "%-5d %-30s %-20s %-12s %-10s %-15s %-10s %s\n",
			b.ID,
			truncateString(b.Title, 30),
			truncateString(b.Author, 20),
			truncateString(b.Category, 12),
			statusLabel(b),
			truncateString(orDash(b.BorrowerUsername), 15),
			orDash(b.BorrowDate),
			due)
	}
}

func statusLabel(b library.Book) string {
	if b.Available {
		return "Available"
	}
	return "Borrowed"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString shortens s to maxLength runes, marking the cut with "...".
func truncateString(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(r[:maxLength])
	}
	return string(r[:maxLength-3]) + "..."
}
