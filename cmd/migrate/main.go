package main

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-shift-scheduling/internal/config"
	"github.com/hackgods/clinic-shift-scheduling/internal/db"
	"github.com/hackgods/clinic-shift-scheduling/internal/logging"
	"github.com/hackgods/clinic-shift-scheduling/migrations"
)

func main() {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("LOG_LEVEL", "info")

	logger, err := logging.New(config.EnvDev, v.GetString("LOG_LEVEL"), "console")
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	var dsn string
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply the clinic scheduling schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			dsn = v.GetString("POSTGRES_DSN")
			if dsn == "" {
				return errors.New("POSTGRES_DSN is required")
			}
			return nil
		},
	}
	root.PersistentFlags().String("dsn", "", "postgres DSN (defaults to $POSTGRES_DSN)")
	if err := v.BindPFlag("POSTGRES_DSN", root.PersistentFlags().Lookup("dsn")); err != nil {
		logger.Fatal("bind dsn flag", zap.Error(err))
	}

	withMigrator := func(fn func(m *db.Migrator) error) error {
		m, err := db.NewMigrator(dsn, migrations.FS)
		if err != nil {
			return err
		}
		defer func() { _ = m.Close() }()
		return fn(m)
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *db.Migrator) error {
					if err := m.Up(); err != nil {
						return err
					}
					logger.Info("migrations complete")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *db.Migrator) error {
					if err := m.Down(); err != nil {
						return err
					}
					logger.Info("migrations rolled back")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Mark a version as applied without running it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version: %w", err)
				}
				return withMigrator(func(m *db.Migrator) error {
					if err := m.Force(version); err != nil {
						return err
					}
					logger.Info("forced schema version", zap.Int("version", version))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *db.Migrator) error {
					ver, dirty, err := m.Version()
					if err != nil {
						return err
					}
					logger.Info("schema version", zap.Uint("version", ver), zap.Bool("dirty", dirty))
					return nil
				})
			},
		},
	)

	if err := root.Execute(); err != nil {
		logger.Fatal("migrate failed", zap.Error(err))
	}
}
