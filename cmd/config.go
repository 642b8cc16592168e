package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/vrsleep/vrsleep/internal/adapters/vrchat"
	"github.com/vrsleep/vrsleep/internal/application"
)

type configFile struct {
	Poll struct {
		IntervalMS int `toml:"interval_ms"`
	} `toml:"poll"`
	API struct {
		BaseURL   string `toml:"base_url"`
		UserAgent string `toml:"user_agent"`
		Key       string `toml:"key"`
	} `toml:"api"`
	HTTP struct {
		Listen string `toml:"listen"`
	} `toml:"http"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

func newConfigCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}

	cmd.AddCommand(newConfigInitCmd(app))

	return cmd
}

func newConfigInitCmd(app *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config.toml to the data directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := filepath.Join(app.dataDir, configName+"."+configType)

			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				} else if !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("check %s: %w", path, err)
				}
			}

			var defaults configFile
			defaults.Poll.IntervalMS = int(application.DefaultPollInterval / time.Millisecond)
			defaults.API.BaseURL = vrchat.DefaultBaseURL
			defaults.API.UserAgent = vrchat.DefaultUserAgent
			defaults.HTTP.Listen = defaultListenAddr
			defaults.Log.Level = "info"

			data, err := toml.Marshal(defaults)
			if err != nil {
				return fmt.Errorf("encode defaults: %w", err)
			}

			if err := os.MkdirAll(app.dataDir, 0o700); err != nil {
				return fmt.Errorf("create data directory: %w", err)
			}
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return fmt.Errorf("write config file: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}
