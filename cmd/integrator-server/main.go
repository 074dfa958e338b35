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

	"github.com/emr/integrator/internal/config"
	"github.com/emr/integrator/internal/domain/consent"
	"github.com/emr/integrator/internal/domain/demographic"
	"github.com/emr/integrator/internal/domain/facility"
	"github.com/emr/integrator/internal/domain/linkage"
	"github.com/emr/integrator/internal/domain/merge"
	"github.com/emr/integrator/internal/domain/records"
	"github.com/emr/integrator/internal/platform/auth"
	"github.com/emr/integrator/internal/platform/db"
	"github.com/emr/integrator/internal/platform/middleware"
)

// demographicLinkAdapter adapts the linkage service to the
// demographic.LinkResolver interface, avoiding a circular import between the
// demographic and linkage packages.
type demographicLinkAdapter struct {
	svc *linkage.Service
}

func (a *demographicLinkAdapter) DirectLinked(ctx context.Context, facilityID, demographicID int) ([]demographic.LinkedNode, error) {
	nodes, err := a.svc.DirectLinks(ctx, linkage.Node{FacilityID: facilityID, DemographicID: demographicID})
	if err != nil {
		return nil, err
	}
	out := make([]demographic.LinkedNode, len(nodes))
	for i, n := range nodes {
		out[i] = demographic.LinkedNode{FacilityID: n.FacilityID, DemographicID: n.DemographicID}
	}
	return out, nil
}

func (a *demographicLinkAdapter) AllLinked(ctx context.Context, facilityID, demographicID int) ([]demographic.LinkedNode, error) {
	nodes, err := a.svc.AllLinked(ctx, linkage.Node{FacilityID: facilityID, DemographicID: demographicID})
	if err != nil {
		return nil, err
	}
	out := make([]demographic.LinkedNode, len(nodes))
	for i, n := range nodes {
		out[i] = demographic.LinkedNode{FacilityID: n.FacilityID, DemographicID: n.DemographicID}
	}
	return out, nil
}

// recordsLinkAdapter adapts the linkage service to records.LinkResolver.
type recordsLinkAdapter struct {
	svc *linkage.Service
}

func (a *recordsLinkAdapter) AllLinked(ctx context.Context, facilityID, demographicID int) ([]records.LinkedNode, error) {
	nodes, err := a.svc.AllLinked(ctx, linkage.Node{FacilityID: facilityID, DemographicID: demographicID})
	if err != nil {
		return nil, err
	}
	out := make([]records.LinkedNode, len(nodes))
	for i, n := range nodes {
		out[i] = records.LinkedNode{FacilityID: n.FacilityID, DemographicID: n.DemographicID}
	}
	return out, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "integrator-server",
		Short: "Cross-facility EMR integrator server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the integrator server",
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

	return cmd
}

// tokenCmd mints a facility credential, mainly for onboarding and testing.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a facility access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			facilityID, _ := cmd.Flags().GetInt("facility-id")
			name, _ := cmd.Flags().GetString("facility-name")
			providerID, _ := cmd.Flags().GetString("provider-id")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			if facilityID <= 0 {
				return fmt.Errorf("--facility-id is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			token, err := auth.IssueToken([]byte(cfg.AuthSigningKey), facilityID, name, providerID, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().Int("facility-id", 0, "Facility identifier")
	cmd.Flags().String("facility-name", "", "Facility display name")
	cmd.Flags().String("provider-id", "", "Acting provider identifier")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.BodyLimit(cfg.BodyLimit))
	if len(cfg.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		}))
	}

	e.GET("/health", db.HealthHandler(pool))

	facilityRepo := facility.NewFacilityRepoPG(pool)
	facilitySvc := facility.NewService(facilityRepo)

	// Everything under /api/v1 requires a facility token. Group middleware is
	// captured when a route is registered, so both middlewares go on before
	// any handler does.
	apiV1 := e.Group("/api/v1")
	apiV1.Use(auth.Middleware([]byte(cfg.AuthSigningKey)))
	apiV1.Use(facility.TouchConnectedMiddleware(facilitySvc, logger))

	// Facility directory
	facilityHandler := facility.NewHandler(facilitySvc)
	facilityHandler.RegisterRoutes(apiV1)

	// Link graph
	linkRepo := linkage.NewLinkRepoPG(pool)
	linkSvc := linkage.NewService(linkRepo, cfg.LinkMaxHops)
	linkHandler := linkage.NewHandler(linkSvc)
	linkHandler.RegisterRoutes(apiV1)

	// Consent
	consentRepo := consent.NewConsentRepoPG(pool)
	consentSvc := consent.NewService(consentRepo)
	consentHandler := consent.NewHandler(consentSvc)
	consentHandler.RegisterRoutes(apiV1)

	// Demographics
	demoRepo := demographic.NewDemographicRepoPG(pool)
	demoSvc := demographic.NewService(demoRepo, &demographicLinkAdapter{svc: linkSvc}, consentSvc)
	demoHandler := demographic.NewHandler(demoSvc)
	demoHandler.RegisterRoutes(apiV1)

	// Clinical record caches
	recordRepos := records.Repos{
		Allergies:    records.NewAllergyRepoPG(pool),
		Drugs:        records.NewDrugRepoPG(pool),
		Notes:        records.NewNoteRepoPG(pool),
		LabResults:   records.NewLabResultRepoPG(pool),
		Preventions:  records.NewPreventionRepoPG(pool),
		Documents:    records.NewDocumentRepoPG(pool),
		Appointments: records.NewAppointmentRepoPG(pool),
		Forms:        records.NewFormRepoPG(pool),
		Admissions:   records.NewAdmissionRepoPG(pool),
		Measurements: records.NewMeasurementRepoPG(pool),
		BillingItems: records.NewBillingItemRepoPG(pool),
		EformData:    records.NewEformDataRepoPG(pool),
		EformValues:  records.NewEformValueRepoPG(pool),
		Issues:       records.NewIssueRepoPG(pool),
	}
	recordSvc := records.NewService(recordRepos, &recordsLinkAdapter{svc: linkSvc}, consentSvc)
	recordHandler := records.NewHandler(recordSvc)
	recordHandler.RegisterRoutes(apiV1)

	// Merge manager
	mergeRepo := merge.NewMergeRepoPG(pool)
	mergeSvc := merge.NewService(mergeRepo)
	mergeHandler := merge.NewHandler(mergeSvc)
	mergeHandler.RegisterRoutes(apiV1)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")

		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
