// Package cli implements the tally command line.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tally-ledger/backend/internal/config"
	"github.com/tally-ledger/backend/internal/models"
	"github.com/tally-ledger/backend/internal/router"
	"gorm.io/gorm"
)

// options are shared by all commands. cfg is loaded before any command runs.
type options struct {
	configFile string
	cfg        config.Config
	out        io.Writer
}

// NewRootCommand returns the tally command with all sub-commands.
func NewRootCommand() *cobra.Command {
	o := &options{out: os.Stdout}

	root := &cobra.Command{
		Use:   "tally",
		Short: "Tally - personal bookkeeping backend",
		Long: `Tally keeps track of expenses per category and raises alerts
when the spending of the current month crosses a threshold.

Configuration is read from a YAML file, a .env file and the environment,
in increasing order of precedence.`,
		Version:       router.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(o.configFile)
			if err != nil {
				return err
			}
			o.cfg = cfg
			o.out = cmd.OutOrStdout()

			setupLogging(cfg, cmd.ErrOrStderr())
			return nil
		},
	}

	root.PersistentFlags().StringVar(&o.configFile, "config", "", fmt.Sprintf("config file (default: %s if it exists)", config.DefaultFile))

	root.AddCommand(newServeCommand(o))
	root.AddCommand(newMigrateCommand(o))
	root.AddCommand(newResetCommand(o))
	root.AddCommand(newPromoteCommand(o))

	return root
}

// Execute runs the root command and exits with a non-zero code on errors.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		log.Error().Err(err).Msg("tally")
		os.Exit(1)
	}
}

// setupLogging sets the gin mode and configures the global logger.
//
// The log format defaults to human readable in debug mode and JSON
// otherwise.
func setupLogging(cfg config.Config, w io.Writer) {
	// gin panics on unknown modes, Validate reports them
	switch cfg.GinMode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.GinMode)
	}

	output := w
	if (cfg.LogFormat == "" && gin.IsDebugging()) || cfg.LogFormat == "human" {
		output = zerolog.ConsoleWriter{Out: w}
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if gin.IsDebugging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(output).With().Timestamp().Logger()
}

// openDatabase connects to the configured database and migrates it.
func openDatabase(cfg config.Config) (*gorm.DB, error) {
	if cfg.Postgres() {
		log.Info().Str("host", cfg.DBHost).Str("database", cfg.DBName).Msg("Connecting to PostgreSQL")
		return models.ConnectPostgres(cfg.PostgresDSN())
	}

	if dir := filepath.Dir(cfg.DBDSN); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	log.Info().Str("path", cfg.DBDSN).Msg("Connecting to SQLite")
	return models.Connect(cfg.DBDSN)
}

func closeDatabase(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Error().Err(err).Msg("Closing database")
	}
}
