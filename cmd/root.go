package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vrsleep",
		Short:         "VRChat sleep-mode agent: auto-invite whitelisted friends while you sleep",
		Long:          "vrsleep keeps a VRChat session alive while you are asleep: it watches incoming invite requests, invites back whitelisted friends, rotates your status, and restores everything when you wake up.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newConfigCmd(app),
		newLoginCmd(app),
		newVerifyCmd(app),
		newLogoutCmd(app),
		newAuthCmd(app),
		newSleepCmd(app),
		newWhitelistCmd(app),
		newSettingsCmd(app),
		newMessagesCmd(app),
		newFriendsCmd(app),
		newServeCmd(app),
	)

	return rootCmd
}
