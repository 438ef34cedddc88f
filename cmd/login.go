package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/essencia-app/essencia-cli/internal/domain"
)

func newLoginCmd(app *app) *cobra.Command {
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with your Essência account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				var err error
				password, err = readPassword(cmd.ErrOrStderr(), "Senha: ")
				if err != nil {
					return err
				}
			}

			var user domain.User
			err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Entrando...", func(ctx context.Context) error {
				var err error
				user, err = app.session.Login(ctx, email, password)
				return err
			})
			if err != nil {
				app.reportError(err)
				printFeed(cmd, app)
				return err
			}

			if app.session.ConsumeJustVerified(cmd.Context()) {
				app.center.Success("Email verificado", "Seu email foi confirmado com sucesso.")
			}
			app.center.Success("Bem-vindo", user.Email)
			printFeed(cmd, app)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Logout never fails from the user's point of view; a rejected
			// server-side revocation is logged and ignored.
			app.session.Logout(cmd.Context())
			app.center.Info("Sessão encerrada", "Até logo.")
			printFeed(cmd, app)
			return nil
		},
	}
}

func newWhoamiCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.ensureSession(cmd.Context()); err != nil {
				return err
			}

			user := app.session.Current()
			if user == nil {
				return errors.New("não autenticado: use 'ess login'")
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "id: %d\nemail: %s\n", user.ID, user.Email)
			if user.ProfessionalID != 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "professional_id: %d\n", user.ProfessionalID)
			}
			return nil
		},
	}
}
