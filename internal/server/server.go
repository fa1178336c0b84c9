// Пакет server — HTTP-сервер Dashboard Module с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на ingress.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scolaplan/dashboard-module/internal/api/handlers"
	"github.com/scolaplan/dashboard-module/internal/api/middleware"
	"github.com/scolaplan/dashboard-module/internal/config"
)

// Server — HTTP-сервер Dashboard Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// authHandler может быть nil — тогда браузерные endpoints не регистрируются
// (сценарий чистого API за внешним шлюзом).
func New(
	cfg *config.Config,
	logger *slog.Logger,
	api *handlers.APIHandler,
	authHandler *handlers.AuthHandler,
	jwtAuth *middleware.JWTAuth,
) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Публичные endpoints: health и metrics проверяются Kubernetes
	// напрямую, браузерный auth flow по определению без сессии.
	router.Get("/health/live", api.HealthLive)
	router.Get("/health/ready", api.HealthReady)
	router.Get("/metrics", api.GetMetrics)

	if authHandler != nil {
		router.Get("/auth/login", authHandler.HandleLogin)
		router.Get("/auth/callback", authHandler.HandleCallback)
		router.Post("/auth/logout", authHandler.HandleLogout)
	}

	// Защищённый API. Справочные endpoints и чтение результатов
	// требуют полный идентификационный контекст; list/create симуляций
	// допускают отсутствие тенанта в токене (фолбэк на ключ по
	// умолчанию в сервисе).
	router.Route("/api/v1", func(r chi.Router) {
		if jwtAuth != nil {
			r.Use(jwtAuth.Middleware())
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession)
			r.Get("/sectors", api.GetSectors)
			r.Get("/schools", api.GetSchools)
			r.Get("/classes", api.GetClasses)
			r.Get("/demography", api.GetDemography)
			r.Get("/housing", api.GetHousing)
			r.Get("/map-data", api.GetMapData)
			r.Get("/simulation-results", api.GetSimulationResults)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Get("/simulations", api.GetSimulations)
			r.Post("/simulations", api.PostSimulations)
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
