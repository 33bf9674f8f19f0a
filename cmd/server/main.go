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

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/coveplatform/mosh/internal/config"
	"github.com/coveplatform/mosh/internal/core/queue"
	"github.com/coveplatform/mosh/internal/handler"
	"github.com/coveplatform/mosh/internal/ledger"
	"github.com/coveplatform/mosh/internal/provider/resend"
	"github.com/coveplatform/mosh/internal/provider/vapi"
	"github.com/coveplatform/mosh/internal/repository"
	"github.com/coveplatform/mosh/internal/services/account"
	"github.com/coveplatform/mosh/internal/services/dispatch"
	"github.com/coveplatform/mosh/internal/services/email"
	"github.com/coveplatform/mosh/internal/services/task"
	"github.com/coveplatform/mosh/internal/services/webhook"
	"github.com/coveplatform/mosh/pkg/logger"
	"github.com/coveplatform/mosh/pkg/redis"
	"github.com/coveplatform/mosh/pkg/twilio"
)

// Server bundles the router with everything that needs a clean shutdown.
type Server struct {
	config    *config.Config
	router    *mux.Router
	repos     repository.RepositoryManager
	redisSvc  *redis.RedisService
	phones    *twilio.PhoneService
	stopSweep func()
	cancelBus context.CancelFunc
}

func NewServer(cfg *config.Config) (*Server, error) {
	repos, err := repository.NewRepositoryManager(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	var redisSvc *redis.RedisService
	if cfg.RedisURL != "" {
		redisSvc, err = redis.NewRedisServiceFromURL(cfg.RedisURL)
		if err != nil {
			logger.Base().Warn("redis unavailable, falling back to in-process dispatch", zap.Error(err))
			redisSvc = nil
		}
	}

	if !cfg.IsDevelopment() && len(cfg.AdminAPIKeys) == 0 {
		logger.Base().Warn("ADMIN_API_KEYS is empty, billing webhook is unauthenticated")
	}

	phones := twilio.NewPhoneService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioNumber, true)
	if phones.IsEnabled() {
		phones.StartAutoRefresh()
	} else {
		logger.Base().Warn("twilio credentials missing, outbound calls will fail until configured")
	}

	vapiClient := vapi.NewClient(cfg.VapiBaseURL, cfg.VapiAPIKey, cfg.BaseURL, phones)
	resendClient := resend.NewClient(cfg.ResendAPIKey, cfg.EmailFrom)

	ledgerSvc := ledger.NewService(repos)
	accounts := account.NewService(repos, ledgerSvc)
	dispatcher := dispatch.NewService(repos, ledgerSvc, vapiClient, cfg.DispatchTimeout)
	ingester := webhook.NewIngester(repos, ledgerSvc)

	var bus queue.Bus
	if redisSvc != nil {
		bus = queue.NewRedisBus(redisSvc)
	} else {
		bus = queue.NewLocalBus()
	}

	tasks := task.NewService(repos, ledgerSvc, dispatcher, queue.NewDispatchNotifier(bus))
	emails := email.NewService(repos, ledgerSvc, resendClient)

	busCtx, cancelBus := context.WithCancel(context.Background())
	go runDispatchWorker(busCtx, bus, dispatcher)

	stopSweep := tasks.StartStuckSweep(busCtx, cfg.SweepInterval, cfg.StuckThreshold)

	var redisIface redis.RedisServiceInterface
	if redisSvc != nil {
		redisIface = redisSvc
	}
	hm := handler.NewHandlerManager(cfg, repos, ledgerSvc, accounts, tasks, emails, ingester, redisIface)
	router := mux.NewRouter()
	hm.SetupAllRoutes(router)

	return &Server{
		config:    cfg,
		router:    router,
		repos:     repos,
		redisSvc:  redisSvc,
		phones:    phones,
		stopSweep: stopSweep,
		cancelBus: cancelBus,
	}, nil
}

// runDispatchWorker drains dispatch jobs from the bus. With Redis in play
// any instance may pick up a job; locally the bus is in-process.
func runDispatchWorker(ctx context.Context, bus queue.Bus, dispatcher *dispatch.Service) {
	err := bus.Subscribe(ctx, func(job queue.Job) {
		if job.Type != queue.JobTypeDispatchCall {
			return
		}
		if err := dispatcher.Dispatch(ctx, job.TaskID); err != nil {
			logger.Base().Warn("background dispatch failed",
				zap.String("task_id", job.TaskID), zap.Error(err))
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Base().Error("dispatch worker stopped", zap.Error(err))
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Base().Info("starting server",
			zap.String("addr", addr),
			zap.String("environment", s.config.Environment))
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-sigCh:
		logger.Base().Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Base().Warn("http shutdown incomplete", zap.Error(err))
	}

	s.stopSweep()
	s.cancelBus()
	s.phones.Stop()
	if s.redisSvc != nil {
		if err := s.redisSvc.Close(); err != nil {
			logger.Base().Warn("redis close failed", zap.Error(err))
		}
	}
	if err := s.repos.Close(); err != nil {
		logger.Base().Warn("database close failed", zap.Error(err))
	}
	logger.Base().Info("shutdown complete")
	return nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		// .env is optional outside local development.
		fmt.Fprintln(os.Stderr, "no .env file loaded")
	}

	if _, err := logger.Init(os.Getenv("LOG_ENV")); err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
	}
	defer logger.Sync()

	cfg := config.LoadFromEnv()
	if cfg.DatabaseURL == "" {
		logger.Base().Fatal("DATABASE_URL is required")
	}

	server, err := NewServer(cfg)
	if err != nil {
		logger.Base().Fatal("server init failed", zap.Error(err))
	}

	if err := server.Start(); err != nil {
		logger.Base().Fatal("server exited", zap.Error(err))
	}
}
