package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ess",
		Short:         "Essência directory client: browse professionals and manage your profile",
		Long:          "ess is the terminal client for the Essência holistic-health directory. It browses and filters professionals, handles registration and login, and edits your public profile with conflict-aware partial updates.",
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
		newLoginCmd(app),
		newLogoutCmd(app),
		newWhoamiCmd(app),
		newRegisterCmd(app),
		newProfileCmd(app),
		newBrowseCmd(app),
		newCitiesCmd(app),
		newServicesCmd(app),
		newVerifyEmailCmd(app),
		newResendVerificationCmd(app),
	)

	return rootCmd
}
