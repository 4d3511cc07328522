package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"library-lending/library"
)

func newBookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "book", Short: "Manage the catalog"}

	var in library.NewBook
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a title to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			book, err := a.mgr.CreateBook(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.emit(book, func(w io.Writer) {
				fmt.Fprintf(w, "Added %q with ID %s (%d copies)\n", book.Title, book.ID, book.TotalCopies)
			})
		},
	}
	add.Flags().StringVar(&in.ISBN, "isbn", "", "ISBN-10 or ISBN-13")
	add.Flags().StringVar(&in.Title, "title", "", "title")
	add.Flags().StringVar(&in.Author, "author", "", "author")
	add.Flags().StringVar(&in.Category, "category", "", "category")
	add.Flags().IntVar(&in.TotalCopies, "copies", 1, "number of copies")

	var filter library.BookFilter
	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter.Status = library.BookStatus(strings.ToUpper(status))
			books, err := a.mgr.ListBooks(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return a.emit(books, func(w io.Writer) { printBooks(w, books) })
		},
	}
	list.Flags().StringVar(&status, "status", "", "AVAILABLE, BORROWED, RESERVED or MAINTENANCE")
	list.Flags().StringVar(&filter.Category, "category", "", "exact category")
	list.Flags().StringVar(&filter.Author, "author", "", "author contains")
	list.Flags().StringVar(&filter.Title, "title", "", "title contains")

	available := &cobra.Command{
		Use:   "available",
		Short: "List titles that can be borrowed now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			books, err := a.mgr.ListAvailableBooks(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(books, func(w io.Writer) { printBooks(w, books) })
		},
	}

	show := &cobra.Command{
		Use:   "show BOOK_ID",
		Short: "Show a book and its open loans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			detail, err := a.mgr.GetBook(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(detail, func(w io.Writer) {
				printBooks(w, []library.Book{detail.Book})
				fmt.Fprintln(w)
				printLoans(w, detail.Loans)
			})
		},
	}

	check := &cobra.Command{
		Use:   "availability BOOK_ID",
		Short: "Report whether a copy can be lent now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			book, err := a.mgr.CheckAvailability(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(book, func(w io.Writer) {
				fmt.Fprintf(w, "%q is available (%d of %d copies on the shelf)\n", book.Title, book.AvailableCopies, book.TotalCopies)
			})
		},
	}

	var (
		patch      library.BookPatch
		isbn       string
		title      string
		author     string
		category   string
		copies     int
		bookStatus string
	)
	update := &cobra.Command{
		Use:   "update BOOK_ID",
		Short: "Change the fields given as flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("isbn") {
				patch.ISBN = &isbn
			}
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("author") {
				patch.Author = &author
			}
			if flags.Changed("category") {
				patch.Category = &category
			}
			if flags.Changed("copies") {
				patch.TotalCopies = &copies
			}
			if flags.Changed("status") {
				s := library.BookStatus(strings.ToUpper(bookStatus))
				patch.Status = &s
			}
			book, err := a.mgr.UpdateBook(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			return a.emit(book, func(w io.Writer) { printBooks(w, []library.Book{book}) })
		},
	}
	update.Flags().StringVar(&isbn, "isbn", "", "new ISBN")
	update.Flags().StringVar(&title, "title", "", "new title")
	update.Flags().StringVar(&author, "author", "", "new author")
	update.Flags().StringVar(&category, "category", "", "new category")
	update.Flags().IntVar(&copies, "copies", 0, "new total copies")
	update.Flags().StringVar(&bookStatus, "status", "", "new status")

	del := &cobra.Command{
		Use:   "delete BOOK_ID",
		Short: "Remove a title that was never lent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			if err := a.mgr.DeleteBook(cmd.Context(), id); err != nil {
				return err
			}
			return a.emit(map[string]string{"deleted": id.String()}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted book %s\n", id)
			})
		},
	}

	cmd.AddCommand(add, list, available, show, check, update, del)
	return cmd
}

func newMemberCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "member", Short: "Manage members"}

	var in library.NewMember
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			member, err := a.mgr.CreateMember(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.emit(member, func(w io.Writer) {
				fmt.Fprintf(w, "Added member '%s' with ID %s\n", member.Name, member.ID)
			})
		},
	}
	add.Flags().StringVar(&in.Name, "name", "", "full name")
	add.Flags().StringVar(&in.Email, "email", "", "email address")
	add.Flags().StringVar(&in.MembershipNumber, "number", "", "membership number")

	var filter library.MemberFilter
	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter.Status = library.MemberStatus(strings.ToUpper(status))
			members, err := a.mgr.ListMembers(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return a.emit(members, func(w io.Writer) { printMembers(w, members) })
		},
	}
	list.Flags().StringVar(&status, "status", "", "ACTIVE or SUSPENDED")
	list.Flags().StringVar(&filter.Name, "name", "", "name contains")
	list.Flags().StringVar(&filter.Email, "email", "", "email contains")

	show := &cobra.Command{
		Use:   "show MEMBER_ID",
		Short: "Show a member with open loans and unpaid fines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("member", args[0])
			if err != nil {
				return err
			}
			detail, err := a.mgr.GetMember(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(detail, func(w io.Writer) {
				printMembers(w, []library.Member{detail.Member})
				fmt.Fprintln(w)
				printLoans(w, detail.Loans)
				fmt.Fprintf(w, "\nUnpaid fines: %d\n", len(detail.UnpaidFines))
			})
		},
	}

	loans := &cobra.Command{
		Use:   "loans MEMBER_ID",
		Short: "List books the member has out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("member", args[0])
			if err != nil {
				return err
			}
			out, err := a.mgr.MemberLoans(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(out, func(w io.Writer) { printLoans(w, out) })
		},
	}

	eligibility := &cobra.Command{
		Use:   "eligibility MEMBER_ID",
		Short: "Report whether the member may borrow now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("member", args[0])
			if err != nil {
				return err
			}
			standing, err := a.mgr.CheckBorrow(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(standing, func(w io.Writer) {
				fmt.Fprintf(w, "%s may borrow (%d of %d loans open)\n", standing.Member.Name, standing.OpenLoans, library.MaxBorrows)
			})
		},
	}

	var (
		patch        library.MemberPatch
		name         string
		email        string
		memberStatus string
	)
	update := &cobra.Command{
		Use:   "update MEMBER_ID",
		Short: "Change the fields given as flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("member", args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("email") {
				patch.Email = &email
			}
			if flags.Changed("status") {
				s := library.MemberStatus(strings.ToUpper(memberStatus))
				patch.Status = &s
			}
			member, err := a.mgr.UpdateMember(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			return a.emit(member, func(w io.Writer) { printMembers(w, []library.Member{member}) })
		},
	}
	update.Flags().StringVar(&name, "name", "", "new name")
	update.Flags().StringVar(&email, "email", "", "new email")
	update.Flags().StringVar(&memberStatus, "status", "", "ACTIVE or SUSPENDED")

	del := &cobra.Command{
		Use:   "delete MEMBER_ID",
		Short: "Remove a member without history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("member", args[0])
			if err != nil {
				return err
			}
			if err := a.mgr.DeleteMember(cmd.Context(), id); err != nil {
				return err
			}
			return a.emit(map[string]string{"deleted": id.String()}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted member %s\n", id)
			})
		},
	}

	cmd.AddCommand(add, list, show, loans, eligibility, update, del)
	return cmd
}
