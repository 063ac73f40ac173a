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

	"crew-connect/internal/changeorder"
	"crew-connect/internal/config"
	"crew-connect/internal/database"
	"crew-connect/internal/logger"
	"crew-connect/internal/metrics"
	"crew-connect/internal/notify"
	"crew-connect/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "crew-connect",
	Short:         "Construction back-office API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		log, err = logger.New(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations and seed the default admin, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Connect(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		return database.SeedDefaultAdmin(db, log)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	db, err := database.Connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	if err := database.SeedDefaultAdmin(db, log); err != nil {
		log.Warn("default admin not seeded", zap.Error(err))
	}

	metrics.Register()
	gin.SetMode(gin.ReleaseMode)

	r := server.NewRouter(cfg, db, newWorkflow(db), log)
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr), zap.Bool("strict_budget_items", cfg.StrictBudgetItems))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("server shutdown complete")
	return nil
}

func newWorkflow(db *gorm.DB) *changeorder.Workflow {
	notifier := notify.Multi(notify.NewLog(log), notify.NewAudit(db, log))
	applier := changeorder.NewApplier(changeorder.NewGormStore(db), notifier, log,
		changeorder.Options{StrictBudgetItems: cfg.StrictBudgetItems})
	return changeorder.NewWorkflow(db, applier, log)
}
