// Package main is the entry point for the fan hub. The root command loads
// configuration; subcommands serve the site, run migrations, and manage
// admin accounts.
package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"fanhub/internal/config"
	"fanhub/internal/database"
)

var (
	envFile string
	verbose bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "fanhub",
	Short:         "Fan hub news site with a live admin console",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})))

		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, migrateCmd, adminCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// openDatabase connects to the configured database and applies pending
// migrations.
func openDatabase() (*sql.DB, database.Driver, error) {
	driver, err := database.ParseDriver(cfg.DBDriver)
	if err != nil {
		return nil, "", err
	}

	dsn := cfg.DSN()
	if driver == database.SQLite {
		dsn = database.SQLiteDSN(cfg.SQLitePath)
	}
	db, err := database.Connect(driver, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("connect to database: %w", err)
	}

	if err := database.Migrate(db, driver); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("run migrations: %w", err)
	}
	return db, driver, nil
}
