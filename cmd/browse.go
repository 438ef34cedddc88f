package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/essencia-app/essencia-cli/internal/adapters/api"
	"github.com/essencia-app/essencia-cli/internal/domain"
)

func newBrowseCmd(app *app) *cobra.Command {
	var filters api.ListFilters

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse and filter professionals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var page domain.ProfessionalPage
			err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Buscando profissionais...", func(ctx context.Context) error {
				var err error
				page, err = app.client.ListProfessionals(ctx, filters)
				return err
			})
			if err != nil {
				app.reportError(err)
				printFeed(cmd, app)
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%d profissional(is) encontrado(s)\n", page.Count)
			for _, p := range page.Results {
				_, _ = fmt.Fprintf(out, "  #%d %s (%s/%s) %s\n", p.ID, p.FullName, p.City, p.State, strings.Join(p.Services, ", "))
			}
			if page.Next != "" {
				_, _ = fmt.Fprintf(out, "use --page %d para a próxima página\n", filters.Page+1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filters.State, "state", "", "Filter by state (UF)")
	cmd.Flags().StringVar(&filters.City, "city", "", "Filter by city")
	cmd.Flags().StringVar(&filters.Service, "service", "", "Filter by service type")
	cmd.Flags().StringVar(&filters.AttendanceType, "attendance", "", "Filter by attendance type")
	cmd.Flags().StringVar(&filters.Search, "search", "", "Free text search")
	cmd.Flags().IntVar(&filters.Page, "page", 1, "Result page")

	return cmd
}

func newCitiesCmd(app *app) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "cities <state>",
		Short: "List the cities of a state with registered professionals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state := args[0]

			var cities []string
			err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Buscando cidades...", func(ctx context.Context) error {
				var err error
				if refresh {
					cities, err = app.client.RefetchCities(ctx, state)
				} else {
					cities, err = app.client.Cities(ctx, state)
				}
				return err
			})
			if err != nil {
				app.reportError(err)
				printFeed(cmd, app)
				return err
			}

			for _, city := range cities {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), city)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the cache for this state")
	return cmd
}

func newServicesCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the available service types",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var services []string
			err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Buscando serviços...", func(ctx context.Context) error {
				var err error
				services, err = app.client.ServiceTypes(ctx)
				return err
			})
			if err != nil {
				app.reportError(err)
				printFeed(cmd, app)
				return err
			}

			for _, service := range services {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), service)
			}
			return nil
		},
	}
}
