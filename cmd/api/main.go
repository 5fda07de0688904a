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
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/auth"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/config"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/database"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/handlers"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/services"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration and logging
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	if cfg.LogMode == "production" || cfg.LogMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database
	db, err := database.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	// 3. Core services
	llm, err := services.NewLLMService(ctx, cfg.GeminiAPIKey, cfg.AnalysisModel, cfg.LLMTimeout, log)
	if err != nil {
		return err
	}
	classifier := services.NewClassifier(llm, cfg.ClassifierModel, cfg.MaxClassificationTextLength, log)
	analyzer := services.NewAnalyzer(llm, cfg.AnalysisModel, log)
	fetcher := services.NewHTTPFetcher(cfg.FetchTimeout, cfg.MaxJobTextLength, log)
	prober := services.NewHTTPProber(cfg.ProbeTimeout)

	userService := services.NewUserService(db, log)
	profileService := services.NewProfileService(db, log)
	trackedJobService := services.NewTrackedJobService(db, nil, log)
	resumeService := services.NewResumeService(db, classifier, log)
	recommendationService := services.NewRecommendationService(db, profileService, log)
	jobService := services.NewJobService(db, services.JobServiceDeps{
		Fetcher:         fetcher,
		Classifier:      classifier,
		Analyzer:        analyzer,
		Canonicalizer:   services.NewCanonicalizer(nil),
		Profiles:        profileService,
		TrackedJobs:     trackedJobService,
		ProtocolVersion: cfg.AnalysisProtocolVersion,
	}, log)
	sweeper := services.NewSweeper(db, prober, jobService, services.SweeperConfig{
		ProtocolVersion:      cfg.AnalysisProtocolVersion,
		JobPostingMaxAgeDays: cfg.JobPostingMaxAgeDays,
		TrackedJobStaleDays:  cfg.TrackedJobStaleDays,
		BatchSize:            cfg.SweepBatchSize,
		RateLimit:            cfg.SweepRateLimit,
		Interval:             cfg.SweepInterval,
	}, nil, log)

	// 4. Authentication
	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		Issuer:             cfg.ClerkIssuer,
		AuthorizedParties:  cfg.ClerkAuthorizedParties,
		PreviewPartyRegexp: cfg.ClerkPreviewPartyPattern,
	})
	if err != nil {
		return err
	}

	// 5. Router
	router := handlers.NewRouter(handlers.RouterConfig{
		DB:          db,
		Verifier:    verifier,
		Users:       userService,
		AdminAPIKey: cfg.AdminAPIKey,
		CORSOrigins: cfg.CORSAllowedOrigins,
		Jobs:        handlers.NewJobHandler(jobService, recommendationService, log),
		TrackedJobs: handlers.NewTrackedJobHandler(trackedJobService, log),
		Profiles:    handlers.NewProfileHandler(profileService, resumeService, log),
		Admin:       handlers.NewAdminHandler(sweeper, log),
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Serve until a signal arrives, with the sweeper alongside
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
