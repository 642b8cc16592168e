package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newSleepCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sleep",
		Short: "Control sleep mode",
	}

	cmd.AddCommand(
		newSleepRunCmd(app),
		newSleepStartCmd(app),
		newSleepStopCmd(app),
		newSleepStatusCmd(app),
	)

	return cmd
}

// newSleepRunCmd holds the engine in the foreground until SIGINT or
// SIGTERM, then stops it so the status restoration path runs before the
// process exits.
func newSleepRunCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run sleep mode in the foreground until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app.engine.Start(ctx)
			defer app.engine.Stop(context.Background())

			closeWatcher, err := watchSettings(app)
			if err != nil {
				app.logger.Warn("settings watch unavailable", "error", err)
			} else {
				defer closeWatcher()
			}

			<-ctx.Done()
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "shutting down")
			return nil
		},
	}
}

func newSleepStartCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Enable sleep mode on the running agent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return callSleep(cmd, app, http.MethodPost, "/sleep/start")
		},
	}
}

func newSleepStopCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Disable sleep mode on the running agent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return callSleep(cmd, app, http.MethodPost, "/sleep/stop")
		},
	}
}

func newSleepStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether sleep mode is enabled on the running agent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return callSleep(cmd, app, http.MethodGet, "/sleep/status")
		},
	}
}

// callSleep talks to a `vrsleep serve` instance; start/stop/status are
// meaningless in a one-shot process, the engine must outlive the
// command.
func callSleep(cmd *cobra.Command, app *app, method string, path string) error {
	client := &http.Client{Timeout: 10 * time.Second}

	req, err := http.NewRequestWithContext(cmd.Context(), method, "http://"+app.listenAddr+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("reach agent at %s (is `vrsleep serve` running?): %w", app.listenAddr, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("read agent response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("agent returned %s: %s", resp.Status, body)
	}

	var payload struct {
		SleepMode bool `json:"sleepMode"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decode agent response: %w", err)
	}

	if payload.SleepMode {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "sleep mode: on")
	} else {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "sleep mode: off")
	}
	return nil
}

// watchSettings re-applies the status rotation when the settings file
// changes on disk, so edits from another process take effect without a
// restart. The parent directory is watched because atomic writes
// replace the file by rename.
func watchSettings(app *app) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	settingsPath := app.settings.Path()
	if err := watcher.Add(filepath.Dir(settingsPath)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(settingsPath), err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != settingsPath {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				app.logger.Debug("settings file changed, refreshing status")
				app.engine.RefreshStatus(context.Background())
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				app.logger.Warn("settings watch error", "error", err)
			}
		}
	}()

	return func() { _ = watcher.Close() }, nil
}
