package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edulane/contest-backend/internal/config"
	"github.com/edulane/contest-backend/internal/database"
	"github.com/edulane/contest-backend/internal/gateway"
	"github.com/edulane/contest-backend/internal/handler"
	"github.com/edulane/contest-backend/internal/logger"
	"github.com/edulane/contest-backend/internal/repository"
	"github.com/edulane/contest-backend/internal/router"
	"github.com/edulane/contest-backend/internal/service"
	"github.com/edulane/contest-backend/internal/session"
	"github.com/edulane/contest-backend/internal/validator"
	"github.com/edulane/contest-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Contest Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	studentRepo := repository.NewStudentRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	contestRepo := repository.NewContestRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	contestService := service.NewContestService(contestRepo, questionRepo, rdb, log)
	questionService := service.NewQuestionService(questionRepo, contestRepo)
	queue := gateway.NewQueueGateway(rdb, log)
	portalService := service.NewPortalService(sessionRepo, answerRepo, contestRepo, contestService, queue, rdb, log)

	// ─── Live Session Manager ─────────────────────────────────────────
	manager := session.NewManager(log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(authService, studentRepo, adminRepo),
		Portal:   handler.NewPortalHandler(portalService),
		Contest:  handler.NewContestHandler(contestService, portalService),
		Question: handler.NewQuestionHandler(questionService),
		WS:       handler.NewWSHandler(rdb, portalService, queue, manager, cfg, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	answerWorker := worker.NewAnswerWorker(pool, rdb, log)
	violationWorker := worker.NewViolationWorker(pool, rdb, log)
	completionWorker := worker.NewCompletionWorker(pool, rdb, log)
	orderWorker := worker.NewOrderWorker(pool, rdb, log)

	go answerWorker.Start(workerCtx)
	go violationWorker.Start(workerCtx)
	go completionWorker.Start(workerCtx)
	go orderWorker.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load all published contests into Redis BEFORE accepting traffic.
	// This avoids race conditions from lazy loading under thundering herd.
	if err := contestService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Close live assessment sockets so their final state is flushed.
	manager.CloseAll()

	// 2. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
