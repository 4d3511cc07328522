package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"library-lending/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// emit prints v as indented JSON when output is piped or --json is set, otherwise as a table.
func (a *app) emit(v any, table func(w io.Writer)) error {
	if a.jsonOut {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	table(a.out)
	return nil
}

func printBooks(w io.Writer, books []library.Book) {
	fmt.Fprintf(w, "%-36s %-17s %-40s %-25s %-6s %s\n", "ID", "ISBN", "Title", "Author", "Avail", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 140))
	for _, b := range books {
		fmt.Fprintf(w, "%-36s %-17s %-40s %-25s %-6s %s\n",
			b.ID, b.ISBN, truncateString(b.Title, 40), truncateString(b.Author, 25),
			fmt.Sprintf("%d/%d", b.AvailableCopies, b.TotalCopies), b.Status)
	}
	if len(books) == 0 {
		fmt.Fprintln(w, "No books found.")
	}
}

func printMembers(w io.Writer, members []library.Member) {
	fmt.Fprintf(w, "%-36s %-12s %-30s %-30s %s\n", "ID", "Number", "Name", "Email", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 125))
	for _, m := range members {
		fmt.Fprintf(w, "%-36s %-12s %-30s %-30s %s\n",
			m.ID, truncateString(m.MembershipNumber, 12), truncateString(m.Name, 30), truncateString(m.Email, 30), m.Status)
	}
	if len(members) == 0 {
		fmt.Fprintln(w, "No members found.")
	}
}

func printLoans(w io.Writer, loans []library.Loan) {
	fmt.Fprintf(w, "%-36s %-30s %-25s %-10s %-10s %s\n", "Transaction", "Book", "Member", "Borrowed", "Due", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 130))
	for _, l := range loans {
		fmt.Fprintf(w, "%-36s %-30s %-25s %-10s %-10s %s\n",
			l.ID, truncateString(l.Book.Title, 30), truncateString(l.Member.Name, 25),
			shortDate(l.BorrowedAt), shortDate(l.DueDate), l.Status)
	}
	if len(loans) == 0 {
		fmt.Fprintln(w, "No transactions found.")
	}
}

func printFines(w io.Writer, fines []library.FineDetail) {
	fmt.Fprintf(w, "%-36s %-25s %-30s %8s %s\n", "ID", "Member", "Book", "Amount", "Paid")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, f := range fines {
		paid := "no"
		if f.PaidAt != nil {
			paid = shortDate(*f.PaidAt)
		}
		fmt.Fprintf(w, "%-36s %-25s %-30s %8s %s\n",
			f.ID, truncateString(f.Member.Name, 25), truncateString(f.Book.Title, 30), f.Amount.StringFixed(2), paid)
	}
	if len(fines) == 0 {
		fmt.Fprintln(w, "No fines found.")
	}
}

func printTransaction(w io.Writer, tr library.Transaction) {
	fmt.Fprintf(w, "Transaction %s\n", tr.ID)
	fmt.Fprintf(w, "  Member:   %s\n", tr.MemberID)
	fmt.Fprintf(w, "  Book:     %s\n", tr.BookID)
	fmt.Fprintf(w, "  Borrowed: %s\n", tr.BorrowedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "  Due:      %s\n", tr.DueDate.Format(time.RFC3339))
	if tr.ReturnedAt != nil {
		fmt.Fprintf(w, "  Returned: %s\n", tr.ReturnedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "  Status:   %s\n", tr.Status)
}

func shortDate(t time.Time) string { return t.Format(time.DateOnly) }

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
