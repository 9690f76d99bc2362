// Package app собирает зависимости клиента из конфигурации.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	clientapi "github.com/iudanet/camerannonces/internal/client/api"
	"github.com/iudanet/camerannonces/internal/client/auth"
	"github.com/iudanet/camerannonces/internal/client/catalog"
	"github.com/iudanet/camerannonces/internal/client/events"
	"github.com/iudanet/camerannonces/internal/client/session"
	"github.com/iudanet/camerannonces/internal/client/storage"
	"github.com/iudanet/camerannonces/internal/client/storage/boltdb"
	"github.com/iudanet/camerannonces/internal/client/storage/sqlite"
	"github.com/iudanet/camerannonces/internal/client/transport"
	"github.com/iudanet/camerannonces/internal/config"
)

// App - собранный клиент
type App struct {
	Config   *config.Config
	Bus      *events.Bus
	Store    *auth.TokenStore
	Auth     *auth.Service
	Catalog  *catalog.Service
	Session  *session.Session
	Registry *prometheus.Registry

	logger zerolog.Logger
	bolt   *boltdb.Storage
	cache  *sqlite.Storage
}

// New открывает хранилища и собирает конвейер запросов.
// Недоступный кэш каталога не мешает запуску: справочники будут грузиться с сервера.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{
		Config:   cfg,
		Registry: prometheus.NewRegistry(),
		logger:   logger,
	}

	bolt, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}
	a.bolt = bolt

	var storeOpts []auth.StoreOption
	if cfg.StorePassphrase != "" {
		sealer, err := auth.NewDeviceSealer(ctx, bolt, cfg.StorePassphrase)
		if err != nil {
			_ = bolt.Close()
			return nil, fmt.Errorf("failed to prepare token encryption: %w", err)
		}
		storeOpts = append(storeOpts, auth.WithSealer(sealer))
	}
	a.Store = auth.NewTokenStore(bolt, logger, storeOpts...)

	var cache storage.CatalogCache
	if cfg.CachePath != "" {
		c, err := sqlite.New(ctx, cfg.CachePath)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.CachePath).Msg("catalog cache unavailable")
		} else {
			a.cache = c
			cache = c
		}
	}

	metrics, err := transport.NewMetrics(a.Registry)
	if err != nil {
		_ = a.closeStorages()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	p, err := transport.NewPipeline(cfg.ServerURL,
		transport.WithTimeout(cfg.RequestTimeout),
		transport.WithLogger(logger),
	)
	if err != nil {
		_ = a.closeStorages()
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	logging := transport.NewLogging(logger)
	p.UseRequest(
		transport.JSONHeaders(),
		transport.RequestID(),
		transport.DeviceID(bolt, logger),
	)
	// Логирование и метрики видят каждую попытку, поэтому стоят до восстановления 401
	p.UseResponse(logging, metrics)

	client := clientapi.NewClient(p)
	a.Bus = events.NewBus()

	authz := transport.NewAuthorizer(a.Store, client.RefreshCredentials, a.Bus, logger,
		transport.WithRefreshTimeout(cfg.RequestTimeout),
		transport.WithAuthMetrics(metrics),
	)
	authz.Install(p)

	a.Auth = auth.NewService(client, a.Store, authz, logger)
	a.Catalog = catalog.NewService(client, cache, logger, catalog.WithTTL(cfg.CacheTTL))
	a.Session = session.New(a.Auth, a.Bus, logger)

	return a, nil
}

// Start восстанавливает сессию из хранилища
func (a *App) Start(ctx context.Context) error {
	return a.Session.Start(ctx)
}

// Close останавливает сессию, сохраняет метрики и закрывает хранилища
func (a *App) Close() error {
	var errs []error

	if a.Session != nil {
		a.Session.Close()
	}
	if a.Bus != nil {
		a.Bus.Close()
	}

	if a.Config.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(a.Config.MetricsFile, a.Registry); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}

	if err := a.closeStorages(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeStorages() error {
	var errs []error
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close catalog cache: %w", err))
		}
	}
	if a.bolt != nil {
		if err := a.bolt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close token store: %w", err))
		}
	}
	return errors.Join(errs...)
}
