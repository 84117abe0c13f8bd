package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"planwise/internal/auth"
	"planwise/internal/capabilities"
	"planwise/internal/config"
	planningSvc "planwise/internal/domain/services/planning"
	"planwise/internal/handler"
	"planwise/internal/middleware"
	"planwise/internal/repository"
	serviceAuth "planwise/internal/service/auth"
	serviceLLM "planwise/internal/service/llm"
	"planwise/internal/service/llm/assistant"
	servicePlanning "planwise/internal/service/planning"
	"planwise/internal/service/propagation"
	"planwise/internal/workflow"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, closeLog, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	origin := uuid.NewString()
	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"db_driver", cfg.DBDriver,
		"table_prefix", cfg.TablePrefix,
		"origin", origin,
	)

	// JWT verifier for Supabase authentication
	jwtVerifier, err := auth.NewJWTVerifier(ctx, cfg.SupabaseJWKSURL, logger)
	if err != nil {
		return fmt.Errorf("create JWT verifier: %w", err)
	}
	defer jwtVerifier.Close()

	store, closeStore, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Static registries
	steps, err := workflow.NewRegistry()
	if err != nil {
		return fmt.Errorf("load workflow steps: %w", err)
	}
	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		return fmt.Errorf("load model capabilities: %w", err)
	}

	selection, err := serviceLLM.SetupProviders(cfg, capabilityRegistry, logger)
	if err != nil {
		return fmt.Errorf("set up LLM provider: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	// Change propagation: local registry, plus Redis fan-out across processes
	registry := propagation.NewRegistry(origin, propagation.DefaultBufferSize, logger)
	publishers := []planningSvc.EventPublisher{registry}
	if cfg.RedisURL != "" {
		client, err := propagation.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()

		redisPublisher := propagation.NewRedisPublisher(client, propagation.DefaultChannel, logger)
		publishers = append(publishers, redisPublisher)
		g.Go(func() error {
			return redisPublisher.Run(gctx)
		})
		relay := propagation.NewRelay(client, propagation.DefaultChannel, origin, registry, logger)
		g.Go(func() error {
			if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("event relay: %w", err)
			}
			return nil
		})
	}
	publisher := propagation.NewFanout(origin, publishers...)

	// Services
	authorizer := serviceAuth.NewMembershipAuthorizer(store.Members)
	userService := servicePlanning.NewUserService(store.Users, cfg.AdminUserIDs, logger)
	projectService := servicePlanning.NewProjectService(store, authorizer, logger)
	documentService := servicePlanning.NewDocumentService(store, authorizer, publisher, logger)
	versionService := servicePlanning.NewVersionService(store, authorizer, publisher, logger)
	assistantService := assistant.NewService(store, authorizer, selection.Provider, steps, assistant.Config{
		Model:             selection.Model,
		Timeout:           cfg.AITimeout,
		RequestsPerMinute: cfg.AIRequestsPerMinute,
	}, logger)

	autosaver := propagation.NewAutosaver(documentService, propagation.AutosaveConfig{Delay: cfg.AutosaveDelay},
		func(result propagation.SaveResult) {
			if result.Err != nil {
				logger.Warn("autosave failed",
					"document_id", result.DocumentID,
					"user_id", result.UserID,
					"attempts", result.Attempts,
					"error", result.Err,
				)
			}
		}, logger)

	logger.Info("services initialized",
		"provider", selection.Provider.Name(),
		"model", selection.Model.ID,
	)

	// Create HTTP router (Go 1.22+ enhanced patterns)
	handlers := &handler.Handlers{
		Projects:  handler.NewProjectHandler(projectService, logger),
		Documents: handler.NewDocumentHandler(documentService, versionService, autosaver, logger),
		Assistant: handler.NewAssistantHandler(assistantService, projectService, nil, logger),
		Events:    handler.NewEventsHandler(registry, authorizer, nil, logger),
	}
	mux := http.NewServeMux()
	handlers.Register(mux)

	// Order: CORS → Recovery → Auth → Routes
	var h http.Handler = mux
	h = middleware.Auth(jwtVerifier, userService, logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
		// Request contexts end with gctx so open SSE streams let Shutdown finish
		BaseContext:  func(_ net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Stop accepting requests first so no edit is scheduled after the flush
		serverErr := server.Shutdown(shutdownCtx)
		if err := autosaver.Close(shutdownCtx); err != nil {
			logger.Error("pending autosaves lost", "error", err)
		}
		return serverErr
	})

	return g.Wait()
}
