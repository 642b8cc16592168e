package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vrsleep/vrsleep/internal/adapters/httpapi"
)

const shutdownGrace = 10 * time.Second

// newServeCmd runs the local HTTP bridge: the UI process and the
// sleep start/stop/status commands all talk to this.
func newServeCmd(app *app) *cobra.Command {
	var sleepOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent with its local HTTP control surface",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			handler := httpapi.NewServer(app.auth, app.engine, app.messages, app.whitelist, app.settings, app.client, app.logger)
			server := &http.Server{
				Addr:              app.listenAddr,
				Handler:           handler,
				ReadHeaderTimeout: 5 * time.Second,
			}

			closeWatcher, err := watchSettings(app)
			if err != nil {
				app.logger.Warn("settings watch unavailable", "error", err)
			} else {
				defer closeWatcher()
			}

			if sleepOnStart {
				app.engine.Start(ctx)
			}

			errCh := make(chan error, 1)
			go func() {
				app.logger.Info("listening", "addr", app.listenAddr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				app.engine.Stop(context.Background())
				return fmt.Errorf("serve: %w", err)
			case <-ctx.Done():
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "shutting down")
			app.engine.Stop(context.Background())

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&sleepOnStart, "sleep", false, "Enable sleep mode immediately")

	return cmd
}
