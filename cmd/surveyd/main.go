package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dadok-care/survey-engine/internal/cache"
	"github.com/dadok-care/survey-engine/internal/client"
	"github.com/dadok-care/survey-engine/internal/config"
	"github.com/dadok-care/survey-engine/internal/handlers"
	"github.com/dadok-care/survey-engine/internal/identity"
	"github.com/dadok-care/survey-engine/internal/models"
	"github.com/dadok-care/survey-engine/internal/repositories/gormstore"
	"github.com/dadok-care/survey-engine/internal/services"
	"github.com/dadok-care/survey-engine/internal/utils"
	"github.com/dadok-care/survey-engine/internal/validator"
	"github.com/dadok-care/survey-engine/pkg"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	var logger *slog.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultSlog()
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger = utils.NewDevelopmentSlog()
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("surveyd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// Registry storage
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return err
	}
	if err := gormstore.Migrate(db); err != nil {
		return err
	}
	registry := gormstore.NewRegistryRepository(db, logger)

	// Question cache (optional)
	var questionCache *cache.QuestionCache
	if cfg.RedisURL != "" {
		redisClient, err := pkg.NewRedisClient(cfg)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		questionCache = cache.NewQuestionCache(
			cache.NewRedisCache(redisClient, logger),
			cfg.QuestionCacheTTL,
			logger,
		)
	}

	// Survey backend client
	backend := client.NewClient(cfg.SurveyAPIBaseURL, logger,
		client.WithDefaultNumericUserID(cfg.DefaultNumericUserID))

	// Identity fallback chain: token-based sources first, constant default
	// last. The request header is consulted before the chain, in handlers.
	providers := []identity.Provider{}
	if cfg.CasdoorEnabled() {
		providers = append(providers, identity.NewCasdoorProvider(identity.CasdoorConfig{
			Endpoint:     cfg.CasdoorEndpoint,
			ClientID:     cfg.CasdoorClientID,
			ClientSecret: cfg.CasdoorClientSecret,
			Certificate:  cfg.CasdoorCertificate,
			Organization: cfg.CasdoorOrganization,
			Application:  cfg.CasdoorApplication,
		}))
	}
	providers = append(providers, &identity.StaticProvider{ID: cfg.DefaultUserID})
	identities := identity.NewChain(logger, providers...)

	// Survey events
	publisher, err := cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	promptService := services.NewPromptService(
		backend,
		registry,
		questionCache,
		publisher,
		validator.New(),
		logger,
		services.PromptConfig{
			TotalQuestions: cfg.TotalQuestions,
			FallbackQuestion: &models.Question{
				ID:           cfg.FallbackQuestionID,
				Content:      cfg.FallbackQuestionContent,
				ResponseType: models.ResponseShortText,
			},
		},
	)
	exportService := services.NewExportService(registry, logger)

	// Daily registry reset
	scheduler := services.NewResetScheduler(promptService, cfg.ResetCron, logger)
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	// HTTP facade
	router := gin.New()
	router.Use(gin.Recovery())
	appLogger := utils.NewSlogLogger(logger)
	router.Use(utils.LoggerMiddleware(appLogger))

	handlerManager := handlers.NewHandlerManager(promptService, exportService, identities, appLogger)
	handlerManager.SetupRoutes(router, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("surveyd listening",
			"port", cfg.Port,
			"backend", cfg.SurveyAPIBaseURL,
			"registry_driver", cfg.RegistryDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
