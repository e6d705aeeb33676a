package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vsinha/shopfloor/pkg/application/services/manufacturing"
	"github.com/vsinha/shopfloor/pkg/config"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
	"github.com/vsinha/shopfloor/pkg/infrastructure/events"
	"github.com/vsinha/shopfloor/pkg/infrastructure/lock"
	"github.com/vsinha/shopfloor/pkg/infrastructure/realtime"
	"github.com/vsinha/shopfloor/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/shopfloor/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/shopfloor/pkg/infrastructure/repositories/postgres"
	"github.com/vsinha/shopfloor/pkg/interfaces/api"
)

type app struct {
	handler *api.Handler
	checks  map[string]api.Check
	closers []func() error
	logger  *zap.Logger
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
}

type stores struct {
	orders    repositories.OrderRepository
	inventory repositories.InventoryRepository
	reference repositories.ReferenceRepository
}

func build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{checks: make(map[string]api.Check), logger: logger}

	var seed *csv.Seed
	if cfg.Reference.SeedDir != "" {
		var err error
		if seed, err = csv.NewLoader().LoadDirectory(cfg.Reference.SeedDir); err != nil {
			return nil, fmt.Errorf("load seed: %w", err)
		}
		logger.Info("seed loaded",
			zap.String("dir", cfg.Reference.SeedDir),
			zap.Int("products", len(seed.Products)),
			zap.Int("boms", len(seed.BOMs)),
			zap.Int("routings", len(seed.Routings)),
			zap.Int("workcenters", len(seed.WorkCenters)),
			zap.Int("stock", len(seed.Stock)),
		)
	}

	st, err := buildStores(ctx, a, cfg, seed, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	journal, err := buildEvents(a, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	locker, err := buildLocker(ctx, a, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	hub := realtime.NewHub(logger)
	if err := journal.Subscribe(events.AllEventTypes, hub); err != nil {
		a.Close()
		return nil, fmt.Errorf("subscribe realtime hub: %w", err)
	}

	svc := manufacturing.NewService(st.orders, st.inventory, st.reference, journal,
		manufacturing.Config{
			StrictAvailability:  cfg.Manufacturing.StrictAvailability,
			AllowOverProduction: cfg.Manufacturing.AllowOverProduction,
			NumberPrefix:        cfg.Manufacturing.NumberPrefix,
		},
		manufacturing.WithLocker(locker),
		manufacturing.WithLogger(logger),
	)
	a.handler = api.NewHandler(svc, journal, hub, logger)
	return a, nil
}

func buildStores(ctx context.Context, a *app, cfg *config.Config, seed *csv.Seed, logger *zap.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case "postgres":
		db, err := postgres.Open(cfg.Database.DSN(), postgres.Pool{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlDB.Close)
		a.checks["database"] = func(ctx context.Context) error { return sqlDB.PingContext(ctx) }

		reference := postgres.NewReferenceRepository(db)
		inventory := postgres.NewInventoryRepository(db)
		if seed != nil {
			if err := reference.Load(ctx, seed.Products, seed.BOMs, seed.Routings, seed.WorkCenters); err != nil {
				return nil, err
			}
			if err := inventory.LoadStock(ctx, seed.Stock); err != nil {
				return nil, err
			}
		}
		return &stores{orders: postgres.NewOrderRepository(db), inventory: inventory, reference: reference}, nil

	default:
		reference := memory.NewReferenceRepository()
		inventory := memory.NewInventoryRepository()
		if seed != nil {
			reference.Load(seed.Products, seed.BOMs, seed.Routings, seed.WorkCenters)
			if err := inventory.LoadStock(seed.Stock); err != nil {
				return nil, err
			}
		}
		return &stores{orders: memory.NewOrderRepository(), inventory: inventory, reference: reference}, nil
	}
}

func buildEvents(a *app, cfg *config.Config, logger *zap.Logger) (events.EventStore, error) {
	if cfg.Events.Driver != "sqlite" {
		return events.NewInMemoryEventStore(logger), nil
	}
	store, err := events.NewSQLiteEventStore(cfg.Events.SQLitePath, logger)
	if err != nil {
		return nil, fmt.Errorf("open event journal: %w", err)
	}
	a.closers = append(a.closers, store.Close)
	return store, nil
}

func buildLocker(ctx context.Context, a *app, cfg *config.Config, logger *zap.Logger) (repositories.Locker, error) {
	if cfg.Lock.Driver != "redis" {
		return lock.NewMemoryLocker(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	a.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return lock.NewRedisLocker(client, cfg.Lock.TTL, logger), nil
}
