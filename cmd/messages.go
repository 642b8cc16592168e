package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vrsleep/vrsleep/internal/domain"
)

func newMessagesCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Manage the invite message templates",
	}

	cmd.AddCommand(
		newMessagesGetCmd(app),
		newMessagesGetAllCmd(app),
		newMessagesUpdateCmd(app),
		newMessagesCooldownsCmd(app),
	)

	return cmd
}

func newMessagesGetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <type> <slot>",
		Short: "Fetch one template slot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, slot, err := parseSlotRef(args[0], args[1])
			if err != nil {
				return err
			}

			fetched, err := app.messages.GetSlot(cmd.Context(), t, slot)
			if err != nil {
				return err
			}
			printSlot(cmd, fetched)
			return nil
		},
	}
}

func newMessagesGetAllCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get-all <type>",
		Short: "Fetch all 12 slots of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slots, err := app.messages.GetAllSlots(cmd.Context(), domain.MessageType(args[0]))
			if err != nil {
				return err
			}
			for _, slot := range slots {
				printSlot(cmd, slot)
			}
			return nil
		},
	}
}

func newMessagesUpdateCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update <type> <slot> <text>",
		Short: "Overwrite one template slot",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, slot, err := parseSlotRef(args[0], args[1])
			if err != nil {
				return err
			}

			update, err := app.messages.UpdateSlot(cmd.Context(), t, slot, args[2])
			if err != nil {
				return err
			}
			if len(update.All) > 0 {
				for _, s := range update.All {
					printSlot(cmd, s)
				}
				return nil
			}
			printSlot(cmd, update.Slot)
			return nil
		},
	}
}

func newMessagesCooldownsCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cooldowns",
		Short: "Print the stored per-slot cooldown unlock times",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cooldowns, err := app.messages.Cooldowns(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, cooldowns)
		},
	}
}

func parseSlotRef(rawType string, rawSlot string) (domain.MessageType, int, error) {
	slot, err := strconv.Atoi(rawSlot)
	if err != nil {
		return "", 0, fmt.Errorf("parse slot %q: %w", rawSlot, domain.ErrInvalidMessageSlot)
	}
	return domain.MessageType(rawType), slot, nil
}

func printSlot(cmd *cobra.Command, slot domain.MessageSlot) {
	suffix := ""
	if slot.RemainingCooldownMinutes > 0 {
		suffix = fmt.Sprintf("  (cooldown %dm)", slot.RemainingCooldownMinutes)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%2d  %s%s\n", slot.Slot, slot.Message, suffix)
}
