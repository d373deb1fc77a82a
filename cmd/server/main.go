package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pointlog/internal/config"
	"github.com/pointlog/internal/db"
	"github.com/pointlog/internal/observability"
	"github.com/pointlog/internal/router"
	"github.com/pointlog/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "Serve the PointLog board, push endpoints and PWA assets",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServer,
}

func init() {
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg := config.Load()

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err := observability.NewLogger(level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close(db.DB)

	if err := db.EnsureAdmin(db.DB, "Admin", cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("failed to ensure admin account: %w", err)
	}

	settings := service.NewSystemSettingService(db.DB, cfg.SiteName)
	push := service.NewPushService(db.DB, settings, logger, cfg.VAPIDSubject)
	if _, err := push.EnsureVAPIDKeys(service.VAPIDKeys{
		PublicKey:  cfg.VAPIDPublicKey,
		PrivateKey: cfg.VAPIDPrivateKey,
	}); err != nil {
		return fmt.Errorf("failed to prepare vapid keys: %w", err)
	}

	// 设置并运行 Gin 服务器
	r, err := router.SetupRouter(db.DB, cfg, push, logger)
	if err != nil {
		return fmt.Errorf("failed to set up router: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.ListenAddr), zap.String("base_url", cfg.SiteBaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to run server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
