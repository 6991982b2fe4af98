package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/marquee/internal/observability"
)

func newFixturesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixtures",
		Short: "Manage the backend fixture data",
	}
	cmd.AddCommand(newFixturesResetCmd())
	return cmd
}

func newFixturesResetCmd() *cobra.Command {
	var users []string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear bookings and drop leftover test films",
		Long: `Performs the same reset as the acceptance suite setup. Use --user to
also delete accounts, e.g. the one the registration scenario creates.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := observability.GetLogger()
			fx := cfg.Fixture()

			store, err := openFixtureStore(ctx, fx, logger)
			if err != nil {
				return fmt.Errorf("failed to open fixture store: %w", err)
			}
			defer store.Close()

			if err := store.ClearCollections(ctx, fx.Collections...); err != nil {
				return err
			}
			if err := store.RemoveTestFilms(ctx, fx.FilmMarker); err != nil {
				return err
			}
			for _, email := range users {
				if err := store.RemoveUser(ctx, email); err != nil {
					return err
				}
			}
			logger.Info("Fixtures reset", zap.String("driver", fx.Driver), zap.Strings("removed_users", users))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&users, "user", nil, "email of an account to delete (repeatable)")
	return cmd
}
