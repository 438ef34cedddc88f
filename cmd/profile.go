package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/essencia-app/essencia-cli/internal/domain"
)

func newProfileCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Edit your professional profile",
	}

	cmd.AddCommand(
		newProfileLoadCmd(app),
		newProfileShowCmd(app),
		newProfileSetCmd(app),
		newProfileCheckCmd(app),
		newProfileSaveCmd(app),
		newProfilePhotoCmd(app),
		newProfileDiscardCmd(app),
	)

	return cmd
}

// resolveProfessionalID prefers the explicit flag, then the session.
func resolveProfessionalID(ctx context.Context, app *app, flagID int64) (int64, error) {
	if flagID != 0 {
		return flagID, nil
	}
	if err := app.ensureSession(ctx); err != nil {
		return 0, err
	}
	return app.session.ProfessionalID(ctx)
}

func newProfileLoadCmd(app *app) *cobra.Command {
	var id int64

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Fetch the remote profile and start a fresh edit draft",
		RunE: func(cmd *cobra.Command, _ []string) error {
			professionalID, err := resolveProfessionalID(cmd.Context(), app, id)
			if err != nil {
				return err
			}

			var draft domain.ProfileDraft
			err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Carregando perfil...", func(ctx context.Context) error {
				var err error
				draft, err = app.profiles.LoadDraft(ctx, professionalID)
				return err
			})
			if err != nil {
				printFeed(cmd, app)
				return err
			}

			printFields(cmd, draft.Fields)
			printFeed(cmd, app)
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "Professional ID (default: your own)")
	return cmd
}

func newProfileShowCmd(app *app) *cobra.Command {
	var id int64

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the draft and its pending changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			professionalID, err := resolveProfessionalID(cmd.Context(), app, id)
			if err != nil {
				return err
			}

			draft, err := app.profiles.Draft(cmd.Context(), professionalID)
			if err != nil {
				return err
			}

			printFields(cmd, draft.Fields)
			if draft.Photo != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "foto pendente: %s\n", draft.Photo.Path)
			}

			changes := draft.Changes()
			if len(changes) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "sem alterações pendentes")
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d campo(s) alterado(s)\n", len(changes))
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "Professional ID (default: your own)")
	return cmd
}

func newProfileSetCmd(app *app) *cobra.Command {
	var id int64
	var fields struct {
		name, email, phone, bio, city, state, attendance string
		services                                         []string
		addServices, removeServices                      []string
	}

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change draft fields locally (no network)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			professionalID, err := resolveProfessionalID(cmd.Context(), app, id)
			if err != nil {
				return err
			}

			draft, err := app.profiles.Draft(cmd.Context(), professionalID)
			if err != nil {
				if errors.Is(err, domain.ErrDraftNotFound) {
					return errors.New("nenhum rascunho: use 'ess profile load' primeiro")
				}
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("name") {
				draft.Fields.Name = fields.name
			}
			if flags.Changed("email") {
				draft.Fields.Email = fields.email
			}
			if flags.Changed("phone") {
				draft.Fields.Phone = fields.phone
			}
			if flags.Changed("bio") {
				draft.Fields.Bio = fields.bio
			}
			if flags.Changed("city") {
				draft.Fields.City = fields.city
			}
			if flags.Changed("state") {
				draft.Fields.State = fields.state
			}
			if flags.Changed("attendance") {
				draft.Fields.AttendanceType = fields.attendance
			}
			if flags.Changed("services") {
				draft.Fields.Services = fields.services
			}
			for _, service := range fields.addServices {
				draft.Fields.Services = append(draft.Fields.Services, service)
			}
			for _, service := range fields.removeServices {
				kept := draft.Fields.Services[:0]
				for _, existing := range draft.Fields.Services {
					if existing != service {
						kept = append(kept, existing)
					}
				}
				draft.Fields.Services = kept
			}

			if err := app.profiles.UpdateDraft(cmd.Context(), draft); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d campo(s) alterado(s)\n", len(draft.Changes()))
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "Professional ID (default: your own)")
	cmd.Flags().StringVar(&fields.name, "name", "", "Full name")
	cmd.Flags().StringVar(&fields.email, "email", "", "Contact email")
	cmd.Flags().StringVar(&fields.phone, "phone", "", "WhatsApp number")
	cmd.Flags().StringVar(&fields.bio, "bio", "", "Public bio")
	cmd.Flags().StringVar(&fields.city, "city", "", "City")
	cmd.Flags().StringVar(&fields.state, "state", "", "State (UF)")
	cmd.Flags().StringVar(&fields.attendance, "attendance", "", "Attendance type: online, in_person or both")
	cmd.Flags().StringSliceVar(&fields.services, "services", nil, "Replace the whole service set")
	cmd.Flags().StringSliceVar(&fields.addServices, "add-service", nil, "Add a service (repeatable)")
	cmd.Flags().StringSliceVar(&fields.removeServices, "remove-service", nil, "Remove a service (repeatable)")

	return cmd
}

func newProfileCheckCmd(app *app) *cobra.Command {
	var id int64

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether the remote profile changed since the draft was loaded",
		RunE: func(cmd *cobra.Command, _ []string) error {
			professionalID, err := resolveProfessionalID(cmd.Context(), app, id)
			if err != nil {
				return err
			}

			draft, err := app.profiles.Draft(cmd.Context(), professionalID)
			if err != nil {
				return err
			}

			var conflict bool
			err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Verificando...", func(ctx context.Context) error {
				var err error
				conflict, err = app.profiles.CheckConflict(ctx, professionalID, draft)
				return err
			})
			if err != nil {
				app.reportError(err)
				printFeed(cmd, app)
				return err
			}

			if conflict {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "conflito: o perfil mudou no servidor, recarregue antes de salvar")
			} else {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "sem conflito")
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "Professional ID (default: your own)")
	return cmd
}

func newProfileSaveCmd(app *app) *cobra.Command {
	var id int64

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Validate and send only the changed fields",
		RunE: func(cmd *cobra.Command, _ []string) error {
			professionalID, err := resolveProfessionalID(cmd.Context(), app, id)
			if err != nil {
				return err
			}

			err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Salvando...", func(ctx context.Context) error {
				_, err := app.profiles.Save(ctx, professionalID)
				return err
			})
			printFeed(cmd, app)

			// These two leave the draft intact and are already reported
			// through the notification queue.
			if errors.Is(err, domain.ErrNothingToSave) || errors.Is(err, domain.ErrConflict) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "Professional ID (default: your own)")
	return cmd
}

func newProfilePhotoCmd(app *app) *cobra.Command {
	var id int64

	cmd := &cobra.Command{
		Use:   "photo",
		Short: "Stage and upload a profile photo",
	}

	stageCmd := &cobra.Command{
		Use:   "stage <path>",
		Short: "Select a local photo without uploading it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			professionalID, err := resolveProfessionalID(cmd.Context(), app, id)
			if err != nil {
				return err
			}
			if err := app.profiles.StagePhoto(cmd.Context(), professionalID, args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "foto selecionada: %s\n", args[0])
			return nil
		},
	}

	uploadCmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload the staged photo",
		RunE: func(cmd *cobra.Command, _ []string) error {
			professionalID, err := resolveProfessionalID(cmd.Context(), app, id)
			if err != nil {
				return err
			}

			err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Enviando foto...", func(ctx context.Context) error {
				_, err := app.profiles.UploadPhoto(ctx, professionalID)
				return err
			})
			printFeed(cmd, app)
			return err
		},
	}

	cmd.PersistentFlags().Int64Var(&id, "id", 0, "Professional ID (default: your own)")
	cmd.AddCommand(stageCmd, uploadCmd)
	return cmd
}

func newProfileDiscardCmd(app *app) *cobra.Command {
	var id int64

	cmd := &cobra.Command{
		Use:   "discard",
		Short: "Drop the draft and its pending changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			professionalID, err := resolveProfessionalID(cmd.Context(), app, id)
			if err != nil {
				return err
			}
			if err := app.profiles.Discard(cmd.Context(), professionalID); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "rascunho descartado")
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "Professional ID (default: your own)")
	return cmd
}

func printFields(cmd *cobra.Command, fields domain.ProfileFields) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "nome: %s\n", fields.Name)
	_, _ = fmt.Fprintf(out, "email: %s\n", fields.Email)
	_, _ = fmt.Fprintf(out, "telefone: %s\n", fields.Phone)
	_, _ = fmt.Fprintf(out, "cidade: %s/%s\n", fields.City, fields.State)
	_, _ = fmt.Fprintf(out, "atendimento: %s\n", fields.AttendanceType)
	_, _ = fmt.Fprintf(out, "serviços: %s\n", strings.Join(fields.Services, ", "))
	_, _ = fmt.Fprintf(out, "bio: %s\n", fields.Bio)
}
