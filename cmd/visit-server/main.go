package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carebridge/visitengine/internal/config"
	"github.com/carebridge/visitengine/internal/domain/coding"
	"github.com/carebridge/visitengine/internal/domain/evidence"
	"github.com/carebridge/visitengine/internal/domain/readiness"
	"github.com/carebridge/visitengine/internal/domain/triggers"
	"github.com/carebridge/visitengine/internal/domain/visit"
	"github.com/carebridge/visitengine/internal/platform/audit"
	"github.com/carebridge/visitengine/internal/platform/auth"
	"github.com/carebridge/visitengine/internal/platform/db"
	"github.com/carebridge/visitengine/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "visit-server",
		Short: "Visit compliance and coding API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the visit API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Restore from a database backup instead.")
			return nil
		},
	})

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load default trigger and evidence rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			withPack, _ := cmd.Flags().GetBool("with-plan-pack")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			triggerCount, err := triggers.SeedRules(ctx, triggers.NewTriggerRuleRepoPG(pool))
			if err != nil {
				return fmt.Errorf("seeding trigger rules: %w", err)
			}
			fmt.Printf("Seeded %d trigger rule(s).\n", triggerCount)

			evidenceCount, err := evidence.SeedRules(ctx, evidence.NewEvidenceRuleRepoPG(pool))
			if err != nil {
				return fmt.Errorf("seeding evidence rules: %w", err)
			}
			fmt.Printf("Seeded %d evidence rule(s).\n", evidenceCount)

			if withPack {
				if err := visit.SeedAnnualWellnessPack(ctx, visit.NewPlanPackRepoPG(pool)); err != nil {
					return fmt.Errorf("seeding plan pack: %w", err)
				}
				fmt.Println("Seeded annual wellness plan pack.")
			}
			return nil
		},
	}
	cmd.Flags().Bool("with-plan-pack", false, "Also create a default annual wellness plan pack")
	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}))
	}

	// API group
	apiV1 := e.Group("/api/v1")

	// Rate limiting middleware
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	auditor := audit.NewLogRecorder(logger)

	// Visit domain
	visitService := visit.NewService(
		visit.NewVisitRepoPG(pool),
		visit.NewVitalsRepoPG(pool),
		visit.NewAssessmentRepoPG(pool),
		visit.NewMeasureRepoPG(pool),
		visit.NewMedRecRepoPG(pool),
		visit.NewLabRepoPG(pool),
		visit.NewChecklistRepoPG(pool),
		visit.NewPlanPackRepoPG(pool),
	)
	visitService.SetAuditRecorder(auditor)
	visitHandler := visit.NewHandler(visitService)
	visitHandler.RegisterRoutes(apiV1)

	// Coding domain
	codingService := coding.NewService(coding.NewVisitCodeRepoPG(pool), visitService, pool)
	visitService.SetDiagnosisCounter(codingService)
	codingHandler := coding.NewHandler(codingService)
	codingHandler.RegisterRoutes(apiV1)

	// Trigger rules and recommendations
	triggerService := triggers.NewService(
		triggers.NewTriggerRuleRepoPG(pool),
		triggers.NewRecommendationRepoPG(pool),
		visitService,
	)
	triggerHandler := triggers.NewHandler(triggerService)
	triggerHandler.RegisterRoutes(apiV1)

	// Diagnosis evidence
	evidenceService := evidence.NewService(evidence.NewEvidenceRuleRepoPG(pool), visitService, codingService)
	evidenceHandler := evidence.NewHandler(evidenceService)
	evidenceHandler.RegisterRoutes(apiV1)

	// Billing readiness
	readinessService := readiness.NewService(readiness.NewReadinessRepoPG(pool), visitService, evidenceService, codingService)
	readinessService.SetAuditRecorder(auditor)
	readinessHandler := readiness.NewHandler(readinessService)
	readinessHandler.RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
