package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vrsleep/vrsleep/internal/domain"
)

func newSettingsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change agent settings",
	}

	cmd.AddCommand(newSettingsGetCmd(app), newSettingsSetCmd(app))

	return cmd
}

func newSettingsGetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the effective settings as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := app.settings.Get(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, settings)
		},
	}
}

func newSettingsSetCmd(app *app) *cobra.Command {
	var (
		sleepStatus            string
		sleepStatusDescription string
		inviteMessageSlot      int
		inviteMessageType      string
		autoStatusEnabled      bool
		inviteMessageEnabled   bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change settings; only the flags you pass are changed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var patch domain.SettingsPatch
			if cmd.Flags().Changed("sleep-status") {
				patch.SleepStatus = &sleepStatus
			}
			if cmd.Flags().Changed("sleep-description") {
				patch.SleepStatusDescription = &sleepStatusDescription
			}
			if cmd.Flags().Changed("invite-message-slot") {
				patch.InviteMessageSlot = &inviteMessageSlot
			}
			if cmd.Flags().Changed("invite-message-type") {
				t := domain.MessageType(inviteMessageType)
				if !t.Valid() {
					return fmt.Errorf("set invite message type: %w", domain.ErrInvalidMessageType)
				}
				patch.InviteMessageType = &t
			}
			if cmd.Flags().Changed("auto-status") {
				patch.AutoStatusEnabled = &autoStatusEnabled
			}
			if cmd.Flags().Changed("invite-message") {
				patch.InviteMessageEnabled = &inviteMessageEnabled
			}

			merged, err := app.settings.Set(cmd.Context(), patch)
			if err != nil {
				return err
			}
			return printJSON(cmd, merged)
		},
	}

	cmd.Flags().StringVar(&sleepStatus, "sleep-status", "", `Status while asleep (active, join me, ask me, busy, or "none" to keep the current one)`)
	cmd.Flags().StringVar(&sleepStatusDescription, "sleep-description", "", "Status description while asleep")
	cmd.Flags().IntVar(&inviteMessageSlot, "invite-message-slot", 0, "Template slot (0-11) attached to auto-invites")
	cmd.Flags().StringVar(&inviteMessageType, "invite-message-type", "", "Template type attached to auto-invites (message, response, request, requestResponse)")
	cmd.Flags().BoolVar(&autoStatusEnabled, "auto-status", false, "Rotate the status while asleep")
	cmd.Flags().BoolVar(&inviteMessageEnabled, "invite-message", false, "Attach a message template to auto-invites")

	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
