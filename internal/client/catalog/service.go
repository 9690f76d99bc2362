// Package catalog предоставляет справочники и объявления.
//
// Справочники (категории, города, регионы) кэшируются в storage.CatalogCache на время TTL.
// Ошибки кэша не мешают работе: данные берутся с сервера.
// Остальные операции идут напрямую через конвейер запросов.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iudanet/camerannonces/internal/client/storage"
	"github.com/iudanet/camerannonces/internal/models"
	"github.com/iudanet/camerannonces/pkg/api"
)

// DefaultTTL - время жизни справочников в кэше
const DefaultTTL = time.Hour

// Ключи кэша
const (
	KeyCategories          = "categories"
	KeyCategoriesWithCount = "categories_with_count"
	KeyCities              = "cities"
	KeyRegions             = "regions"
)

// API - эндпоинты каталога
type API interface {
	Categories(ctx context.Context) (*api.CategoriesResponse, error)
	CategoriesWithCount(ctx context.Context) (*api.CategoriesWithCountResponse, error)
	Cities(ctx context.Context) (*api.CitiesResponse, error)
	Regions(ctx context.Context) (*api.RegionsResponse, error)
	Quartiers(ctx context.Context, cityID int64) (*api.QuartiersResponse, error)
	Listings(ctx context.Context, page, size int) (*api.ListingsResponse, error)
	Listing(ctx context.Context, id int64) (*api.ListingResponse, error)
	Search(ctx context.Context, filter models.SearchFilter) (*api.ListingsResponse, error)
	Favorites(ctx context.Context) (*api.ListingsResponse, error)
	AddFavorite(ctx context.Context, listingID int64) error
	RemoveFavorite(ctx context.Context, listingID int64) error
	MyListings(ctx context.Context) (*api.ListingsResponse, error)
}

// Service - каталог с кэшем справочников
type Service struct {
	api    API
	cache  storage.CatalogCache
	logger zerolog.Logger
	now    func() time.Time
	ttl    time.Duration
}

// Option настраивает Service
type Option func(*Service)

// WithTTL задаёт время жизни справочников
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithClock подменяет часы
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService создаёт каталог. cache может быть nil, тогда справочники не кэшируются.
func NewService(client API, cache storage.CatalogCache, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		api:    client,
		cache:  cache,
		logger: logger.With().Str("component", "catalog").Logger(),
		now:    time.Now,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Categories возвращает категории
func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	return load(ctx, s, KeyCategories, func(ctx context.Context) ([]models.Category, error) {
		resp, err := s.api.Categories(ctx)
		if err != nil {
			return nil, err
		}
		return resp.Categories, nil
	})
}

// CategoriesWithCount возвращает категории с количеством объявлений
func (s *Service) CategoriesWithCount(ctx context.Context) ([]models.Category, error) {
	return load(ctx, s, KeyCategoriesWithCount, func(ctx context.Context) ([]models.Category, error) {
		resp, err := s.api.CategoriesWithCount(ctx)
		if err != nil {
			return nil, err
		}
		return resp.Categories, nil
	})
}

// Cities возвращает города
func (s *Service) Cities(ctx context.Context) ([]models.City, error) {
	return load(ctx, s, KeyCities, func(ctx context.Context) ([]models.City, error) {
		resp, err := s.api.Cities(ctx)
		if err != nil {
			return nil, err
		}
		return resp.Cities, nil
	})
}

// Regions возвращает регионы
func (s *Service) Regions(ctx context.Context) ([]string, error) {
	return load(ctx, s, KeyRegions, func(ctx context.Context) ([]string, error) {
		resp, err := s.api.Regions(ctx)
		if err != nil {
			return nil, err
		}
		return resp.Regions, nil
	})
}

// Quartiers возвращает районы города
func (s *Service) Quartiers(ctx context.Context, cityID int64) ([]models.Quartier, error) {
	resp, err := s.api.Quartiers(ctx, cityID)
	if err != nil {
		return nil, err
	}
	return resp.Quartiers, nil
}

// Listings возвращает страницу последних объявлений
func (s *Service) Listings(ctx context.Context, page, size int) (*models.ListingPage, error) {
	if size <= 0 {
		size = models.DefaultPageSize
	}
	return listingPage(s.api.Listings(ctx, max(page, 0), size))
}

// Listing возвращает объявление по id
func (s *Service) Listing(ctx context.Context, id int64) (*models.Listing, error) {
	resp, err := s.api.Listing(ctx, id)
	if err != nil {
		return nil, err
	}
	return resp.Listing, nil
}

// Search ищет объявления
func (s *Service) Search(ctx context.Context, filter models.SearchFilter) (*models.ListingPage, error) {
	return listingPage(s.api.Search(ctx, filter))
}

// Favorites возвращает избранное пользователя
func (s *Service) Favorites(ctx context.Context) (*models.ListingPage, error) {
	return listingPage(s.api.Favorites(ctx))
}

// AddFavorite добавляет объявление в избранное
func (s *Service) AddFavorite(ctx context.Context, listingID int64) error {
	return s.api.AddFavorite(ctx, listingID)
}

// RemoveFavorite убирает объявление из избранного
func (s *Service) RemoveFavorite(ctx context.Context, listingID int64) error {
	return s.api.RemoveFavorite(ctx, listingID)
}

// MyListings возвращает объявления пользователя
func (s *Service) MyListings(ctx context.Context) (*models.ListingPage, error) {
	return listingPage(s.api.MyListings(ctx))
}

// Invalidate сбрасывает кэш справочников
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx, ""); err != nil {
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}
	return nil
}

func listingPage(resp *api.ListingsResponse, err error) (*models.ListingPage, error) {
	if err != nil {
		return nil, err
	}
	return &resp.ListingPage, nil
}

// load отдаёт свежую запись кэша или загружает данные и сохраняет их
func load[T any](ctx context.Context, s *Service, key string, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := lookup[T](ctx, s, key); ok {
		return v, nil
	}

	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	s.store(ctx, key, v)
	return v, nil
}

func lookup[T any](ctx context.Context, s *Service, key string) (T, bool) {
	var v T
	if s.cache == nil {
		return v, false
	}

	doc, fetchedAt, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrCacheMiss) {
			s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
		}
		return v, false
	}

	if s.now().Sub(fetchedAt) >= s.ttl {
		s.logger.Debug().Str("key", key).Msg("catalog cache entry expired")
		return v, false
	}

	if err := json.Unmarshal(doc, &v); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache entry is corrupted")
		var zero T
		return zero, false
	}

	return v, true
}

func (s *Service) store(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}

	doc, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to encode catalog cache entry")
		return
	}

	if err := s.cache.Put(ctx, key, doc, s.now()); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
}
