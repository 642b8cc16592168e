package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vrsleep/vrsleep/internal/domain"
)

func newWhitelistCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whitelist",
		Short: "Manage the auto-invite whitelist",
	}

	cmd.AddCommand(
		newWhitelistGetCmd(app),
		newWhitelistSetCmd(app),
		newWhitelistAddCmd(app),
		newWhitelistRemoveCmd(app),
	)

	return cmd
}

func newWhitelistGetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the whitelist, one entry per line",
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := app.whitelist.Get(cmd.Context())
			if err != nil {
				return err
			}
			for _, entry := range list {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), entry)
			}
			return nil
		},
	}
}

func newWhitelistSetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <entry>...",
		Short: "Replace the whitelist with the given entries",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			saved, err := app.whitelist.Set(cmd.Context(), domain.Whitelist(args))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d entries\n", len(saved))
			return nil
		},
	}
}

func newWhitelistAddCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <entry>...",
		Short: "Append entries that are not already present",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := app.whitelist.Get(cmd.Context())
			if err != nil {
				return err
			}

			present := map[string]struct{}{}
			for _, entry := range list {
				present[domain.NormalizeEntry(entry)] = struct{}{}
			}
			for _, entry := range args {
				if _, ok := present[domain.NormalizeEntry(entry)]; ok {
					continue
				}
				present[domain.NormalizeEntry(entry)] = struct{}{}
				list = append(list, entry)
			}

			saved, err := app.whitelist.Set(cmd.Context(), list)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d entries\n", len(saved))
			return nil
		},
	}
}

func newWhitelistRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <entry>...",
		Short: "Remove entries, matched case-insensitively",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := app.whitelist.Get(cmd.Context())
			if err != nil {
				return err
			}

			drop := map[string]struct{}{}
			for _, entry := range args {
				drop[domain.NormalizeEntry(entry)] = struct{}{}
			}

			kept := list[:0]
			for _, entry := range list {
				if _, ok := drop[domain.NormalizeEntry(entry)]; ok {
					continue
				}
				kept = append(kept, entry)
			}

			saved, err := app.whitelist.Set(cmd.Context(), kept)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d entries\n", len(saved))
			return nil
		},
	}
}
