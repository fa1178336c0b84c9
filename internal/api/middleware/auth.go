// auth.go — middleware аутентификации Dashboard Module.
// Принимает Bearer JWT Keycloak или зашифрованный session cookie,
// валидирует подпись через JWKS, определяет тенант из claims и собирает
// идентификационный контекст запроса. Никакого I/O до проверки
// идентичности: неполная сессия отклоняется на этом уровне.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/scolaplan/dashboard-module/internal/api/errors"
	"github.com/scolaplan/dashboard-module/internal/session"
	"github.com/scolaplan/dashboard-module/internal/tenant"
)

// SessionStore читает сессию браузера из запроса (cookie-путь).
// Реализуется auth.SessionManager.
type SessionStore interface {
	// Load возвращает access token и ранее определённый тенант.
	// ok == false — сессии нет или она не расшифровывается.
	Load(r *http.Request) (accessToken, previousTenant string, ok bool)
}

// keycloakClaims — raw claims из Keycloak JWT.
type keycloakClaims struct {
	jwt.RegisteredClaims
	// PreferredUsername — имя пользователя.
	PreferredUsername string `json:"preferred_username"`
	// Email — электронная почта.
	Email string `json:"email"`
	// RealmAccess — вложенная структура realm_access.roles.
	RealmAccess *realmAccess `json:"realm_access,omitempty"`
	// ResourceAccess — роли по клиентам (resource_access.<client>.roles).
	ResourceAccess map[string]realmAccess `json:"resource_access,omitempty"`
	// Scope — scopes через пробел.
	Scope string `json:"scope,omitempty"`
}

// realmAccess — вложенная структура realm_access в Keycloak JWT.
type realmAccess struct {
	Roles []string `json:"roles"`
}

// allRoles собирает роли из realm_access и resource_access в одном срезе.
// Realm-роли идут первыми: их порядок определяет приоритет тенанта.
// Клиенты resource_access обходятся по отсортированным именам — порядок
// обхода map недетерминирован, а разрешение тенанта обязано быть
// стабильным для одного и того же токена.
func (c *keycloakClaims) allRoles() []string {
	var roles []string
	if c.RealmAccess != nil {
		roles = append(roles, c.RealmAccess.Roles...)
	}
	clients := make([]string, 0, len(c.ResourceAccess))
	for client := range c.ResourceAccess {
		clients = append(clients, client)
	}
	sort.Strings(clients)
	for _, client := range clients {
		roles = append(roles, c.ResourceAccess[client].Roles...)
	}
	return roles
}

// JWTAuth — middleware аутентификации через JWKS Keycloak.
type JWTAuth struct {
	jwks      keyfunc.Keyfunc
	sessions  SessionStore
	issuer    string
	jwtLeeway time.Duration
	logger    *slog.Logger
}

// NewJWTAuth создаёт middleware с JWKS из Keycloak.
// jwksURL — URL к JWKS endpoint Keycloak.
// issuer — ожидаемый issuer JWT (обычно https://keycloak/realms/scolaplan).
// sessions — источник cookie-сессий (может быть nil — только Bearer).
// jwksRefreshInterval — интервал обновления JWKS-ключей (DM_JWKS_REFRESH_INTERVAL).
// jwtLeeway — допустимое отклонение времени при проверке JWT (DM_JWT_LEEWAY).
func NewJWTAuth(
	jwksURL string,
	issuer string,
	sessions SessionStore,
	jwksRefreshInterval time.Duration,
	jwtLeeway time.Duration,
	logger *slog.Logger,
) (*JWTAuth, error) {
	// JWKS Storage с фоновым обновлением.
	// NoErrorReturnFirstHTTPReq — стартуем даже если Keycloak ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           jwksRefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return &JWTAuth{
		jwks:      k,
		sessions:  sessions,
		issuer:    issuer,
		jwtLeeway: jwtLeeway,
		logger:    logger.With(slog.String("component", "jwt_auth")),
	}, nil
}

// NewJWTAuthWithKeyfunc создаёт middleware с предоставленной keyfunc.
// Используется в тестах для подстановки mock JWKS.
func NewJWTAuthWithKeyfunc(kf keyfunc.Keyfunc, issuer string, sessions SessionStore, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		jwks:     kf,
		sessions: sessions,
		issuer:   issuer,
		logger:   logger.With(slog.String("component", "jwt_auth")),
	}
}

// Middleware аутентифицирует запрос и помещает идентификационный
// контекст в context.Context. Токен берётся из заголовка Authorization
// или, при его отсутствии, из session cookie. Запрос без валидного
// токена отклоняется с 401 до какого-либо I/O.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, previousTenant, err := j.extractToken(r)
			if err != nil {
				apierrors.Unauthorized(w)
				return
			}

			sc, err := j.authenticate(r.Context(), tokenString, previousTenant)
			if err != nil {
				j.logger.Debug("JWT валидация не пройдена",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(session.Into(r.Context(), sc)))
		})
	}
}

// extractToken достаёт JWT из Authorization или session cookie.
func (j *JWTAuth) extractToken(r *http.Request) (tokenString, previousTenant string, err error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", "", fmt.Errorf("неверный формат Authorization: ожидается Bearer <token>")
		}
		return parts[1], "", nil
	}

	if j.sessions != nil {
		if token, previous, ok := j.sessions.Load(r); ok {
			return token, previous, nil
		}
	}

	return "", "", fmt.Errorf("отсутствует токен: нет заголовка Authorization и session cookie")
}

// authenticate валидирует токен и собирает идентификационный контекст.
// previousTenant — тенант из cookie-сессии, низший приоритет резолвера.
func (j *JWTAuth) authenticate(ctx context.Context, tokenString, previousTenant string) (*session.Context, error) {
	rawClaims := &keycloakClaims{}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(j.jwtLeeway),
	}
	if j.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(j.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, rawClaims, j.jwks.KeyfuncCtx(ctx), parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("парсинг JWT: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("невалидный токен")
	}

	tenantID, _ := tenant.Resolve(tenant.Claims{
		Roles:    rawClaims.allRoles(),
		Scope:    rawClaims.Scope,
		Previous: previousTenant,
	})

	return &session.Context{
		Username:    rawClaims.PreferredUsername,
		Email:       rawClaims.Email,
		AccessToken: tokenString,
		TenantID:    tenantID,
	}, nil
}

// RequireSession требует ПОЛНЫЙ идентификационный контекст:
// пользователь, токен и тенант одновременно. Частичная идентичность —
// 401, downstream-обработчик не вызывается. Должен использоваться
// ПОСЛЕ JWTAuth.Middleware().
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !session.From(r.Context()).Complete() {
			apierrors.Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser требует аутентифицированного пользователя с токеном, но
// допускает отсутствие тенанта: сервис симуляций может подставить ключ
// по умолчанию. Остальные endpoints используют строгий RequireSession.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc := session.From(r.Context())
		if sc == nil || sc.Username == "" || sc.AccessToken == "" {
			apierrors.Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Close освобождает ресурсы middleware.
func (j *JWTAuth) Close() {
	// keyfunc v3 не требует явного закрытия
}
