package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func newVerifyEmailCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-email <token>",
		Short: "Confirm your email with the token received by mail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Verificando email...", func(ctx context.Context) error {
				return app.client.VerifyEmailToken(ctx, args[0])
			})
			if err != nil {
				app.reportError(err)
				printFeed(cmd, app)
				return err
			}

			// Remember the verification so the next login can greet it.
			if err := app.session.MarkJustVerified(cmd.Context()); err != nil {
				app.log.Warn(cmd.Context(), "record just-verified flag", "error", err)
			}

			app.center.Success("Email verificado", "Agora você já pode entrar.")
			printFeed(cmd, app)
			return nil
		},
	}
}

func newResendVerificationCmd(app *app) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "resend-verification",
		Short: "Resend the email verification message",
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Reenviando...", func(ctx context.Context) error {
				return app.client.ResendVerification(ctx, email)
			})
			if err != nil {
				app.reportError(err)
				printFeed(cmd, app)
				return err
			}

			app.center.Success("Email enviado", "Confira sua caixa de entrada.")
			printFeed(cmd, app)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
