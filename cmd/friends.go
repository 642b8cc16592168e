package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFriendsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "friends",
		Short: "Query the friends list",
	}

	cmd.AddCommand(newFriendsListCmd(app))

	return cmd
}

func newFriendsListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all friends with their status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			friends, err := app.client.GetFriends(cmd.Context())
			if err != nil {
				return err
			}
			for _, friend := range friends {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", friend.ID, friend.DisplayName, friend.Status)
			}
			return nil
		},
	}
}
