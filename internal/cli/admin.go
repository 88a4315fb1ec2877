package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tally-ledger/backend/internal/ledger"
	"github.com/tally-ledger/backend/internal/models"
)

func newMigrateCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := o.cfg.ValidateDatabase(); err != nil {
				return err
			}

			db, err := openDatabase(o.cfg)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			log.Info().Msg("Database migrated")
			return nil
		},
	}
}

func newResetCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Start a new month now",
		Long: `Reset sets the current value of every category to zero and every
alert back to Active. serve does this on its own at the start of each month.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := o.cfg.ValidateDatabase(); err != nil {
				return err
			}

			db, err := openDatabase(o.cfg)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			if err := ledger.New(db).ResetMonthly(cmd.Context()); err != nil {
				return fmt.Errorf("monthly reset failed: %w", err)
			}

			fmt.Fprintln(o.out, "Monthly reset done")
			return nil
		},
	}
}

func newPromoteCommand(o *options) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "promote EMAIL",
		Short: "Change the role of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.cfg.ValidateDatabase(); err != nil {
				return err
			}

			db, err := openDatabase(o.cfg)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			users := ledger.New(db).Users
			user, err := users.FindByEmail(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			user, err = users.SetRole(cmd.Context(), user.ID, models.Role(role))
			if err != nil {
				return err
			}

			fmt.Fprintf(o.out, "%s is now %s\n", user.Email, user.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", string(models.RoleAdmin), "role to set")
	return cmd
}
