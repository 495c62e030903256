// Command exchanged runs the exchange's HTTP server: it restores state
// from its durable store, starts the matching engine and the persistence
// flush loop, and serves the HTTP surface until signaled to shut down.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	tomb "gopkg.in/tomb.v2"

	"fenrir/internal/api"
	"fenrir/internal/engine"
	"fenrir/internal/persistence"
	"fenrir/internal/store"
	"fenrir/internal/webhook"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("exchanged exited with error")
	}
}

func newRootCmd() *cobra.Command {
	var (
		listenAddr  string
		dbPath      string
		adminSecret string
	)

	cmd := &cobra.Command{
		Use:   "exchanged",
		Short: "Run the exchange's matching engine and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if adminSecret == "" {
				return fmt.Errorf("--admin-secret is required")
			}
			return run(cmd.Context(), listenAddr, dbPath, adminSecret)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&listenAddr, "listen", ":8080", "HTTP listen address")
	flags.StringVar(&dbPath, "db", "exchange.sqlite3", "path to the sqlite database file")
	flags.StringVar(&adminSecret, "admin-secret", os.Getenv("EXCHANGED_ADMIN_SECRET"), "bearer token for admin routes")

	return cmd
}

func run(ctx context.Context, listenAddr, dbPath, adminSecret string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	queue := persistence.NewQueue()
	eng := engine.New(queue)

	if err := eng.LoadFrom(st, time.Now()); err != nil {
		return fmt.Errorf("restoring state: %w", err)
	}

	t, ctx := tomb.WithContext(ctx)
	eng.Run(t)

	webhooks := webhook.NewDispatcher(t)
	flushLoop := persistence.NewLoop(queue, st, eng, webhooks)
	flushLoop.Start(t, ctx)

	srv := api.New(eng, st, adminSecret, func() error {
		// The flush loop and engine command loop survive a reset; only
		// their owned state (book, orders, durable rows) is wiped.
		return nil
	})

	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: srv.Router(),
	}

	t.Go(func() error {
		log.Info().Str("addr", listenAddr).Msg("exchanged listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	t.Go(func() error {
		<-t.Dying()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	<-ctx.Done()
	t.Kill(nil)
	return t.Wait()
}
