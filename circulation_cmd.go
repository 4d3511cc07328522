package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-lending/library"
)

func newBorrowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "borrow MEMBER_ID BOOK_ID",
		Short: "Lend a copy of a book to a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			memberID, err := parseID("member", args[0])
			if err != nil {
				return err
			}
			bookID, err := parseID("book", args[1])
			if err != nil {
				return err
			}
			tr, err := a.mgr.Borrow(cmd.Context(), memberID, bookID)
			if err != nil {
				return err
			}
			return a.emit(tr, func(w io.Writer) {
				fmt.Fprintf(w, "Borrowed. Due back %s\n", shortDate(tr.DueDate))
				printTransaction(w, tr)
			})
		},
	}
}

func newReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return TRANSACTION_ID",
		Short: "Take a borrowed copy back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("transaction", args[0])
			if err != nil {
				return err
			}
			res, err := a.mgr.Return(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(res, func(w io.Writer) {
				fmt.Fprintf(w, "Returned %q\n", res.Book.Title)
				if res.Fine != nil {
					fmt.Fprintf(w, "Late return: fine of %s recorded (ID %s)\n", res.Fine.Amount.StringFixed(2), res.Fine.ID)
				}
			})
		},
	}
}

func newOverdueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "overdue",
		Aliases: []string{"sweep"},
		Short:   "Mark late loans overdue, apply suspensions and list every overdue loan",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loans, err := a.mgr.Overdue(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(loans, func(w io.Writer) { printLoans(w, loans) })
		},
	}
}

func newTransactionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "transaction", Aliases: []string{"tx"}, Short: "Inspect borrowing transactions"}

	var memberID, bookID, statuses string
	list := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var f library.TransactionFilter
			if memberID != "" {
				id, err := parseID("member", memberID)
				if err != nil {
					return err
				}
				f.MemberID = &id
			}
			if bookID != "" {
				id, err := parseID("book", bookID)
				if err != nil {
					return err
				}
				f.BookID = &id
			}
			if statuses != "" {
				for _, s := range strings.Split(statuses, ",") {
					f.Statuses = append(f.Statuses, library.TransactionStatus(strings.ToUpper(strings.TrimSpace(s))))
				}
			}
			loans, err := a.mgr.ListTransactions(cmd.Context(), f)
			if err != nil {
				return err
			}
			return a.emit(loans, func(w io.Writer) { printLoans(w, loans) })
		},
	}
	list.Flags().StringVar(&memberID, "member", "", "member ID")
	list.Flags().StringVar(&bookID, "book", "", "book ID")
	list.Flags().StringVar(&statuses, "status", "", "comma separated statuses")

	show := &cobra.Command{
		Use:   "show TRANSACTION_ID",
		Short: "Show one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("transaction", args[0])
			if err != nil {
				return err
			}
			loan, err := a.mgr.GetTransaction(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(loan, func(w io.Writer) {
				printTransaction(w, loan.Transaction)
				fmt.Fprintf(w, "  Title:    %s\n", loan.Book.Title)
				fmt.Fprintf(w, "  Borrower: %s\n", loan.Member.Name)
			})
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func newFineCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "fine", Short: "Inspect and settle fines"}

	var memberID, paid string
	list := &cobra.Command{
		Use:   "list",
		Short: "List fines, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var f library.FineFilter
			if memberID != "" {
				id, err := parseID("member", memberID)
				if err != nil {
					return err
				}
				f.MemberID = &id
			}
			if paid != "" {
				p, err := strconv.ParseBool(paid)
				if err != nil {
					return fmt.Errorf("invalid --paid %q", paid)
				}
				f.Paid = &p
			}
			fines, err := a.mgr.ListFines(cmd.Context(), f)
			if err != nil {
				return err
			}
			return a.emit(fines, func(w io.Writer) { printFines(w, fines) })
		},
	}
	list.Flags().StringVar(&memberID, "member", "", "member ID")
	list.Flags().StringVar(&paid, "paid", "", "true or false")

	show := &cobra.Command{
		Use:   "show FINE_ID",
		Short: "Show one fine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("fine", args[0])
			if err != nil {
				return err
			}
			fine, err := a.mgr.GetFine(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(fine, func(w io.Writer) { printFines(w, []library.FineDetail{fine}) })
		},
	}

	pay := &cobra.Command{
		Use:   "pay FINE_ID",
		Short: "Record payment of a fine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("fine", args[0])
			if err != nil {
				return err
			}
			fine, err := a.mgr.PayFine(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(fine, func(w io.Writer) {
				fmt.Fprintf(w, "Paid fine %s of %s\n", fine.ID, fine.Amount.StringFixed(2))
			})
		},
	}

	cmd.AddCommand(list, show, pay)
	return cmd
}
