// Точка входа Dashboard Module — backend мультитенантной панели
// школьного планирования. Загружает конфигурацию, подключается к
// PostgreSQL, применяет миграции, инициализирует JWT middleware с JWKS
// Keycloak, OIDC-клиент браузерного flow, сервисный слой и API handlers,
// запускает HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/scolaplan/dashboard-module/internal/api/handlers"
	"github.com/scolaplan/dashboard-module/internal/api/middleware"
	"github.com/scolaplan/dashboard-module/internal/auth"
	"github.com/scolaplan/dashboard-module/internal/config"
	"github.com/scolaplan/dashboard-module/internal/database"
	"github.com/scolaplan/dashboard-module/internal/repository"
	"github.com/scolaplan/dashboard-module/internal/server"
	"github.com/scolaplan/dashboard-module/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Dashboard Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if cfg.DefaultTenantKey != "" {
		logger.Warn("Настроен тенант по умолчанию для endpoints симуляций",
			slog.String("tenant", cfg.DefaultTenantKey),
		)
	}
	if cfg.NGSILDBaseURL == "" {
		logger.Warn("DM_NGSILD_BASE_URL не задан: справочные endpoints будут отвечать ошибкой конфигурации")
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5. Менеджер браузерных сессий (AES-256-GCM cookie)
	sessionManager, err := auth.NewSessionManager(cfg.SessionKey, cfg.SessionSecure)
	if err != nil {
		logger.Error("Ошибка создания менеджера сессий", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.SessionKey == "" {
		logger.Warn("DM_SESSION_KEY не задан: ключ сессий сгенерирован случайно и не переживёт рестарт")
	}

	// 6. JWT middleware с JWKS Keycloak; cookie-сессии как второй источник токена
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.JWTIssuer,
		sessionManager,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer jwtAuth.Close()

	// 7. OIDC-клиент браузерного flow (Authorization Code + PKCE)
	oidcClient := auth.NewOIDCClient(auth.OIDCConfig{
		KeycloakURL: cfg.KeycloakURL,
		Realm:       cfg.KeycloakRealm,
		ClientID:    cfg.OIDCClientID,
	})

	// 8. Repositories
	tenantRepo := repository.NewTenantRepository(pool)
	simRepo := repository.NewSimulationRepository(pool)

	// 9. Services
	tenantCache := service.NewTenantCache(cfg.TenantCacheSize, cfg.TenantCacheTTL)
	catalogSvc := service.NewCatalogService(cfg.NGSILDBaseURL, cfg.NGSILDContextURL, nil, logger)
	simulationSvc := service.NewSimulationService(tenantRepo, simRepo, tenantCache, cfg.DefaultTenantKey, logger)

	// 10. Handlers
	healthHandler := handlers.NewHealthHandler(
		database.NewReadinessChecker(pool),
		middleware.NewKeycloakReadinessChecker(cfg.JWTJWKSURL, 5*time.Second),
	)
	apiHandler := handlers.NewAPIHandler(healthHandler, catalogSvc, simulationSvc, logger)
	authHandler := handlers.NewAuthHandler(oidcClient, sessionManager, cfg.SessionSecure, logger)

	// 11. HTTP-сервер
	srv := server.New(cfg, logger, apiHandler, authHandler, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка HTTP-сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
