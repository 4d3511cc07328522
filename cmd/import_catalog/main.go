package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-lending/config"
	"library-lending/library"
)

var header = []string{"isbn", "title", "author", "category", "total_copies"}

type summary struct {
	Imported   int
	Duplicates int
	Failed     int
}

func main() {
	var file, driver, dsn string
	cmd := &cobra.Command{
		Use:          "import_catalog",
		Short:        "Import books from a CSV file (isbn,title,author,category,total_copies)",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("driver") {
				driver = cfg.DBDriver
			}
			if !cmd.Flags().Changed("db") {
				dsn = cfg.DBDSN
			}

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			db, err := library.Open(driver, dsn, library.WithLogger(cfg.Logger(cmd.ErrOrStderr())))
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			s, err := importBooks(cmd.Context(), db, f, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nImport complete!\n")
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully imported: %d books\n", s.Imported)
			fmt.Fprintf(cmd.OutOrStdout(), "Duplicates skipped: %d\n", s.Duplicates)
			fmt.Fprintf(cmd.OutOrStdout(), "Errors: %d\n", s.Failed)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "books.csv", "CSV file to import")
	cmd.Flags().StringVar(&driver, "driver", "", "database driver (default from LIBRARY_DB_DRIVER)")
	cmd.Flags().StringVar(&dsn, "db", "", "database DSN or SQLite path (default from LIBRARY_DB_DSN)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type bookCreator interface {
	CreateBook(ctx context.Context, in library.NewBook) (library.Book, error)
}

// importBooks creates one book per CSV row. Duplicate ISBNs and invalid rows are reported and skipped.
func importBooks(ctx context.Context, books bookCreator, r io.Reader, out io.Writer) (summary, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	first, err := cr.Read()
	if err != nil {
		return summary{}, fmt.Errorf("read header: %w", err)
	}
	for i, col := range header {
		if i >= len(first) || !strings.EqualFold(strings.TrimSpace(first[i]), col) {
			return summary{}, fmt.Errorf("unexpected header %v, want %v", first, header)
		}
	}

	var s summary
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return s, err
			}
			fmt.Fprintf(out, "line %d: ERROR - %v\n", pe.StartLine, pe.Err)
			s.Failed++
			continue
		}
		line, _ := cr.FieldPos(0)

		copies, err := strconv.Atoi(strings.TrimSpace(rec[4]))
		if err != nil {
			fmt.Fprintf(out, "line %d: ERROR - invalid total_copies %q\n", line, rec[4])
			s.Failed++
			continue
		}
		in := library.NewBook{ISBN: rec[0], Title: rec[1], Author: rec[2], Category: rec[3], TotalCopies: copies}

		fmt.Fprintf(out, "Importing: %s by %s... ", in.Title, in.Author)
		book, err := books.CreateBook(ctx, in)
		switch {
		case errors.Is(err, library.ErrDuplicate):
			fmt.Fprintf(out, "SKIPPED - ISBN %s already in catalog\n", in.ISBN)
			s.Duplicates++
		case err != nil:
			fmt.Fprintf(out, "ERROR - %v\n", err)
			s.Failed++
			if errors.Is(err, library.ErrStoreFailure) {
				return s, err
			}
		default:
			fmt.Fprintf(out, "SUCCESS (ID: %s)\n", book.ID)
			s.Imported++
		}
	}
}
