package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pointlog/internal/config"
	"github.com/pointlog/internal/db"
	"github.com/pointlog/internal/observability"
	"github.com/pointlog/internal/seed"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

var (
	databasePath  string
	fixturesPath  string
	adminPassword string
	resetAll      bool
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:          "seed",
	Short:        "Populate the database with templates, challenge maps, users and activities",
	SilenceUsage: true,
	RunE:         runSeed,
}

func init() {
	// .env 中的 DATABASE_PATH 作为默认值，命令行参数优先
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	cfg := config.Load()

	flags := rootCmd.Flags()
	flags.StringVar(&databasePath, "database", cfg.DatabasePath, "sqlite database path")
	flags.StringVar(&fixturesPath, "fixtures", "", "YAML fixtures file (defaults to the built-in data set)")
	flags.StringVar(&adminPassword, "admin-password", cfg.AdminPassword, "password for admin fixtures; empty leaves them without a login")
	flags.BoolVar(&resetAll, "reset-all", false, "also delete existing activities, challenge maps and templates")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	level := "info"
	if verbose {
		level = "debug"
	}
	log, err := observability.NewLogger(level)
	if err != nil {
		return err
	}
	defer log.Sync()

	fixtures, err := loadFixtures()
	if err != nil {
		return err
	}

	gdb, err := db.Open(databasePath, logger.Warn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			log.Warn("close database failed", zap.Error(err))
		}
	}()

	if err := gdb.AutoMigrate(db.Models()...); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := seed.NewLoader(gdb, log, fixtures, seed.Options{
		ResetAll:      resetAll,
		AdminPassword: adminPassword,
	}).Run(ctx)
	if err != nil {
		log.Error("seed failed", zap.Error(err))
		return err
	}

	log.Debug("seed summary",
		zap.Int("templates", len(result.Templates)),
		zap.Int("challenge_point_maps", len(result.ChallengePointMaps)),
		zap.Int("users", len(result.Users)),
		zap.Int("activities", len(result.Activities)),
	)
	return nil
}

func loadFixtures() (seed.Fixtures, error) {
	if fixturesPath == "" {
		return seed.DefaultFixtures()
	}
	return seed.LoadFixtures(fixturesPath)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
