// Пакет ngsild — клиент NGSI-LD брокера контекстных сущностей.
// Транслирует упрощённые UI-фильтры в диалект запросов брокера,
// скоупит каждый запрос заголовком NGSILD-Tenant и передаёт
// bearer-токен пользователя. Retry здесь не выполняется —
// решение об этом принадлежит вызывающему.
package ngsild

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Суффикс стандартного пути entities в NGSI-LD API.
const entitiesPath = "/ngsi-ld/v1/entities"

// UpstreamError — брокер вернул не-2xx ответ.
// Содержит HTTP-статус и тело ответа для диагностики.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("брокер вернул статус %d", e.Status)
	}
	return fmt.Sprintf("брокер вернул статус %d: %s", e.Status, e.Body)
}

// Config — параметры клиента для одного запроса/сессии.
type Config struct {
	// BaseURL — корневой URL брокера. Если уже заканчивается на
	// /entities — используется как есть, иначе добавляется
	// стандартный путь /ngsi-ld/v1/entities.
	BaseURL string
	// Tenant — идентификатор тенанта; устанавливается заголовком
	// NGSILD-Tenant на КАЖДЫЙ запрос. Единственный механизм изоляции
	// партиций на стороне брокера.
	Tenant string
	// Token — JWT пользователя для Authorization: Bearer (опционально).
	Token string
	// ContextURL — URL JSON-LD контекста для заголовка Link.
	ContextURL string
	// HTTPClient — HTTP-клиент (nil — клиент по умолчанию с таймаутом).
	HTTPClient *http.Client
}

// Client — клиент NGSI-LD брокера, привязанный к одному тенанту.
// Создаётся на запрос: тенант и токен приходят из сессии.
type Client struct {
	httpClient  *http.Client
	entitiesURL string
	tenant      string
	token       string
	contextURL  string
}

// New создаёт клиент брокера. Паникует только при пустом тенанте на
// уровне запросов — проверка тенанта остаётся на вызывающем
// (session middleware гарантирует его наличие).
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		httpClient:  httpClient,
		entitiesURL: entitiesURL(cfg.BaseURL),
		tenant:      cfg.Tenant,
		token:       cfg.Token,
		contextURL:  cfg.ContextURL,
	}
}

// entitiesURL строит конечный URL entities из корня брокера.
// Идемпотентно: корень, уже указывающий на /entities, не дублируется.
func entitiesURL(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/entities") {
		return base
	}
	return base + entitiesPath
}

// TemporalWindow — явное временное окно запроса (годы включительно).
// Транслируется в temporal-параметры брокера, НЕ в выражение q.
// Конкретный контракт (timerel/timeAt/endTimeAt, options=temporalValues)
// зависит от брокера; перед использованием сверить с развёрнутым брокером.
type TemporalWindow struct {
	StartYear int
	EndYear   int
}

// apply добавляет temporal-параметры в query string.
func (w *TemporalWindow) apply(params url.Values) {
	params.Set("options", "temporalValues")
	params.Set("timerel", "between")
	params.Set("timeproperty", "observedAt")
	params.Set("timeAt", fmt.Sprintf("%d-01-01T00:00:00Z", w.StartYear))
	params.Set("endTimeAt", fmt.Sprintf("%d-12-31T23:59:59Z", w.EndYear))
}

// Query — параметры запроса сущностей одного типа.
type Query struct {
	// Type — тип NGSI-LD сущности (обязательный).
	Type string
	// Filters — выражение фильтра q (опционально).
	Filters FilterSet
	// Attrs — запрашиваемые атрибуты (опционально).
	Attrs []string
	// Temporal — временное окно (опционально).
	Temporal *TemporalWindow
}

// QueryEntities выполняет GET <entities>?type=...&q=...
// Пустой набор фильтров полностью опускает параметр q —
// всегда-истинный запрос не отправляется.
func (c *Client) QueryEntities(ctx context.Context, q Query) ([]Entity, error) {
	params := url.Values{}
	params.Set("type", q.Type)

	if expr, ok := q.Filters.Expr(); ok {
		params.Set("q", expr)
	}
	if len(q.Attrs) > 0 {
		params.Set("attrs", strings.Join(q.Attrs, ","))
	}
	if q.Temporal != nil {
		q.Temporal.apply(params)
	}

	reqURL := c.entitiesURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("создание запроса к брокеру: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос к брокеру: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("чтение ответа брокера: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	var entities []Entity
	if err := json.Unmarshal(body, &entities); err != nil {
		return nil, fmt.Errorf("декодирование ответа брокера: %w", err)
	}

	return entities, nil
}

// CreateEntity выполняет POST <entities> с JSON-LD документом сущности.
func (c *Client) CreateEntity(ctx context.Context, doc map[string]any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("сериализация сущности: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.entitiesURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("создание запроса к брокеру: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/ld+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("запрос к брокеру: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	return nil
}

// setHeaders устанавливает обязательные заголовки брокера.
// NGSILD-Tenant не может быть опущен или заменён значением по умолчанию.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/ld+json")
	req.Header.Set("NGSILD-Tenant", c.tenant)
	req.Header.Set("Link",
		fmt.Sprintf(`<%s>; rel="http://www.w3.org/ns/json-ld#context"; type="application/ld+json"`, c.contextURL))
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
