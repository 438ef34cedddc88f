package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/essencia-app/essencia-cli/internal/adapters/api"
	"github.com/essencia-app/essencia-cli/internal/domain"
)

func newRegisterCmd(app *app) *cobra.Command {
	var form api.RegisterForm
	var password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register as a professional in the directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				var err error
				password, err = readPassword(cmd.ErrOrStderr(), "Senha: ")
				if err != nil {
					return err
				}
			}
			form.Password = password

			var user domain.User
			err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Registrando...", func(ctx context.Context) error {
				var err error
				user, err = app.session.Register(ctx, form)
				return err
			})
			if err != nil {
				app.reportError(err)
				printFeed(cmd, app)
				return err
			}

			app.center.Success("Cadastro concluído", "Verifique seu email para ativar a conta.")
			printFeed(cmd, app)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "professional_id: %d\n", user.ProfessionalID)
			return nil
		},
	}

	cmd.Flags().StringVar(&form.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	cmd.Flags().StringVar(&form.FullName, "name", "", "Full name")
	cmd.Flags().StringVar(&form.PhotoPath, "photo", "", "Path to a profile photo")
	cmd.Flags().StringSliceVar(&form.Services, "service", nil, "Offered service (repeatable)")
	cmd.Flags().StringVar(&form.PricePerSession, "price", "", "Price per session")
	cmd.Flags().StringVar(&form.AttendanceType, "attendance", string(domain.AttendanceOnline), "Attendance type: online, in_person or both")
	cmd.Flags().StringVar(&form.State, "state", "", "State (UF)")
	cmd.Flags().StringVar(&form.City, "city", "", "City")
	cmd.Flags().StringVar(&form.Neighborhood, "neighborhood", "", "Neighborhood")
	cmd.Flags().StringVar(&form.Bio, "bio", "", "Public bio")
	cmd.Flags().StringVar(&form.Whatsapp, "whatsapp", "", "WhatsApp number")
	cmd.Flags().StringVar(&form.Instagram, "instagram", "", "Instagram handle")

	for _, flag := range []string{"email", "name", "service", "price", "state", "city", "bio", "whatsapp"} {
		_ = cmd.MarkFlagRequired(flag)
	}

	return cmd
}
