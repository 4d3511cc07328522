package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-lending/config"
	"library-lending/library"
)

// app is shared by every command. The root command's pre-run hook fills it in; main closes it.
type app struct {
	envFile string
	jsonOut bool
	cfg     config.Config
	logger  *slog.Logger
	mgr     *library.LibraryManager
	out     io.Writer
}

func main() {
	a := &app{out: os.Stdout}
	err := newRootCmd(a).Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "library",
		Short:         "Library lending: catalog, members, loans and fines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "optional file of environment variables")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print JSON even when stdout is a terminal")

	root.AddCommand(
		newServeCmd(a),
		newBookCmd(a),
		newMemberCmd(a),
		newBorrowCmd(a),
		newReturnCmd(a),
		newOverdueCmd(a),
		newTransactionCmd(a),
		newFineCmd(a),
	)
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.Logger(cmd.ErrOrStderr())
	a.out = cmd.OutOrStdout()
	if f, ok := a.out.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		a.jsonOut = true
	}

	db, err := library.Open(cfg.DBDriver, cfg.DBDSN, library.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	mgr, err := library.NewLibraryManager(db, library.WithLenderLogger(a.logger))
	if err != nil {
		db.Close()
		return err
	}
	a.mgr = mgr
	return nil
}

func (a *app) close() error {
	if a.mgr == nil {
		return nil
	}
	err := a.mgr.Close()
	a.mgr = nil
	return err
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s ID %q", kind, raw)
	}
	return id, nil
}
