// catalog.go — сервис справочных данных из NGSI-LD брокера.
// Клиент брокера создаётся НА ЗАПРОС: тенант и токен берутся из
// сессии, других механизмов изоляции партиций нет.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/scolaplan/dashboard-module/internal/domain/model"
	"github.com/scolaplan/dashboard-module/internal/ngsild"
	"github.com/scolaplan/dashboard-module/internal/session"
)

// Типы сущностей NGSI-LD брокера.
const (
	typeSector     = "SecteurScolaire"
	typeSchool     = "EtablissementScolaire"
	typeClasse     = "Classe"
	typeDemography = "Demographie"
	typeHousing    = "ConstructionLogements"
)

// CatalogService — запросы справочных сущностей брокера.
type CatalogService struct {
	baseURL    string
	contextURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewCatalogService создаёт сервис справочных данных.
// httpClient == nil — клиент по умолчанию внутри ngsild.
func NewCatalogService(baseURL, contextURL string, httpClient *http.Client, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		baseURL:    baseURL,
		contextURL: contextURL,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "catalog_service")),
	}
}

// query оборачивает QueryEntities: 404 брокера трактуется как пустой
// список, а не ошибка. Остальные неуспехи поднимаются как есть.
func (s *CatalogService) query(ctx context.Context, client *ngsild.Client, q ngsild.Query) ([]ngsild.Entity, error) {
	entities, err := client.QueryEntities(ctx, q)
	if err != nil {
		var upstream *ngsild.UpstreamError
		if errors.As(err, &upstream) && upstream.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return entities, nil
}

// client собирает клиент брокера для конкретной сессии.
// Адрес брокера проверяется на каждый запрос: сервис стартует и без
// него, но справочные endpoints тогда отвечают ошибкой конфигурации.
func (s *CatalogService) client(sess *session.Context) (*ngsild.Client, error) {
	if s.baseURL == "" {
		return nil, fmt.Errorf("%w: DM_NGSILD_BASE_URL не задан", ErrMissingConfiguration)
	}
	return ngsild.New(ngsild.Config{
		BaseURL:    s.baseURL,
		Tenant:     sess.TenantID,
		Token:      sess.AccessToken,
		ContextURL: s.contextURL,
		HTTPClient: s.httpClient,
	}), nil
}

// Sectors возвращает все школьные сектора тенанта.
func (s *CatalogService) Sectors(ctx context.Context, sess *session.Context) ([]model.Sector, error) {
	client, err := s.client(sess)
	if err != nil {
		return nil, err
	}

	entities, err := s.query(ctx, client, ngsild.Query{Type: typeSector})
	if err != nil {
		return nil, err
	}

	out := make([]model.Sector, 0, len(entities))
	for _, e := range entities {
		out = append(out, ngsild.ToSector(e))
	}
	return out, nil
}

// Schools возвращает учебные заведения, опционально ограниченные сектором.
// secteurID — ID сущности сектора, фильтр по relationship secteur.
func (s *CatalogService) Schools(ctx context.Context, sess *session.Context, secteurID string) ([]model.School, error) {
	client, err := s.client(sess)
	if err != nil {
		return nil, err
	}

	var filters ngsild.FilterSet
	filters.Eq("secteur", secteurID)

	entities, err := s.query(ctx, client, ngsild.Query{
		Type:    typeSchool,
		Filters: filters,
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.School, 0, len(entities))
	for _, e := range entities {
		out = append(out, ngsild.ToSchool(e))
	}
	return out, nil
}

// ClassesFilter — параметры выборки классов. Нулевые значения не фильтруют.
type ClassesFilter struct {
	UAI    string
	Niveau string
	// Annee — год наблюдения; транслируется во временное окно
	// брокера, не в выражение q.
	Annee int
}

// Classes возвращает классы по фильтру.
func (s *CatalogService) Classes(ctx context.Context, sess *session.Context, f ClassesFilter) ([]model.Classe, error) {
	client, err := s.client(sess)
	if err != nil {
		return nil, err
	}

	var filters ngsild.FilterSet
	filters.Eq("uai", f.UAI)
	filters.Eq("niveau", f.Niveau)

	q := ngsild.Query{Type: typeClasse, Filters: filters}
	if f.Annee != 0 {
		q.Temporal = &ngsild.TemporalWindow{StartYear: f.Annee, EndYear: f.Annee}
	}

	entities, err := s.query(ctx, client, q)
	if err != nil {
		return nil, err
	}

	out := make([]model.Classe, 0, len(entities))
	for _, e := range entities {
		out = append(out, ngsild.ToClasse(e))
	}
	return out, nil
}

// DemographyFilter — параметры выборки демографии.
type DemographyFilter struct {
	SecteurID  string
	AnneeDebut int
	AnneeFin   int
}

// Demography возвращает демографические ряды секторов.
// Временное окно применяется только когда заданы обе границы.
func (s *CatalogService) Demography(ctx context.Context, sess *session.Context, f DemographyFilter) ([]model.Demography, error) {
	client, err := s.client(sess)
	if err != nil {
		return nil, err
	}

	var filters ngsild.FilterSet
	filters.Eq("secteur", f.SecteurID)

	q := ngsild.Query{Type: typeDemography, Filters: filters}
	if f.AnneeDebut != 0 && f.AnneeFin != 0 {
		q.Temporal = &ngsild.TemporalWindow{StartYear: f.AnneeDebut, EndYear: f.AnneeFin}
	}

	entities, err := s.query(ctx, client, q)
	if err != nil {
		return nil, err
	}

	out := make([]model.Demography, 0, len(entities))
	for _, e := range entities {
		out = append(out, ngsild.ToDemography(e))
	}
	return out, nil
}

// Housing возвращает строительство жилья, опционально по сектору.
func (s *CatalogService) Housing(ctx context.Context, sess *session.Context, secteurID string) ([]model.HousingConstruction, error) {
	client, err := s.client(sess)
	if err != nil {
		return nil, err
	}

	var filters ngsild.FilterSet
	filters.Eq("secteur", secteurID)

	entities, err := s.query(ctx, client, ngsild.Query{
		Type:    typeHousing,
		Filters: filters,
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.HousingConstruction, 0, len(entities))
	for _, e := range entities {
		out = append(out, ngsild.ToHousing(e))
	}
	return out, nil
}

// MapData возвращает сектора и школы для карты. Оба типа запрашиваются
// параллельно; первая же ошибка отменяет второй запрос и проваливает
// всю операцию — частичная карта не отдаётся. Сущности без геометрии
// отбрасываются.
func (s *CatalogService) MapData(ctx context.Context, sess *session.Context) (*model.MapData, error) {
	client, err := s.client(sess)
	if err != nil {
		return nil, err
	}

	var (
		sectorEntities []ngsild.Entity
		schoolEntities []ngsild.Entity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sectorEntities, err = s.query(gctx, client, ngsild.Query{Type: typeSector})
		return err
	})
	g.Go(func() error {
		var err error
		schoolEntities, err = s.query(gctx, client, ngsild.Query{Type: typeSchool})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data := &model.MapData{
		Sectors: make([]model.MapSector, 0, len(sectorEntities)),
		Schools: make([]model.MapSchool, 0, len(schoolEntities)),
	}
	for _, e := range sectorEntities {
		sec := ngsild.ToMapSector(e)
		if sec.Geometry != nil {
			data.Sectors = append(data.Sectors, sec)
		}
	}
	for _, e := range schoolEntities {
		sch := ngsild.ToMapSchool(e)
		if sch.Geometry != nil {
			data.Schools = append(data.Schools, sch)
		}
	}
	return data, nil
}
