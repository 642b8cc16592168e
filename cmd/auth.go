package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Inspect the stored session",
	}

	cmd.AddCommand(newAuthStatusCmd(app), newAuthUserCmd(app))

	return cmd
}

func newAuthStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a usable session is stored",
		RunE: func(cmd *cobra.Command, _ []string) error {
			status := app.auth.Status(cmd.Context())
			if !status.Authenticated {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			name := status.UserID
			if status.User != nil && status.User.DisplayName != "" {
				name = status.User.DisplayName
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", name, status.UserID)
			return nil
		},
	}
}

func newAuthUserCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "user",
		Short: "Fetch the live profile from the API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := app.client.GetCurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\nstatus: %s\ndescription: %s\n", user.DisplayName, user.ID, user.Status, user.StatusDescription)
			return nil
		},
	}
}
