package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"library-lending/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled overdue sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           server.NewRouter(a.mgr, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("listening", "addr", srv.Addr, "driver", a.cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if a.cfg.SweepInterval > 0 {
		g.Go(func() error {
			a.sweepEvery(ctx, a.cfg.SweepInterval)
			return nil
		})
	}
	return g.Wait()
}

// sweepEvery runs the overdue sweep at startup and then on every tick until ctx is done.
// A failed sweep is logged and retried on the next tick.
func (a *app) sweepEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if loans, err := a.mgr.Overdue(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.Error("scheduled sweep failed", "error", err)
		} else {
			a.logger.Debug("scheduled sweep", "overdue", len(loans))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
