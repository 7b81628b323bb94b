package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/cartrepo"
	"github.com/fjod/go_cart/storefront/internal/catalogrepo"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/orderrepo"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/fjod/go_cart/storefront/internal/remote"
)

// catalog covers product, category and profile lookups.
type catalog interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}

type orderBackend interface {
	checkout.Submitter
	orders.Store
}

type backends struct {
	catalog catalog
	cart    cart.Persister
	orders  orderBackend
	closers []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backends, error) {
	if cfg.Backend == config.BackendRemote {
		client := remote.NewClient(remote.Config{
			BaseURL:     cfg.Remote.BaseURL,
			Timeout:     cfg.Remote.Timeout,
			MaxFailures: cfg.Remote.MaxFailures,
			OpenTimeout: cfg.Remote.OpenTimeout,
		}, logger)
		logger.Info("using remote store API", "url", cfg.Remote.BaseURL)
		return &backends{catalog: client, cart: client, orders: client}, nil
	}

	b := &backends{}

	catalogRepo, err := catalogrepo.NewRepository(cfg.Catalog.DBPath)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, func() { catalogRepo.Close() })
	if err := catalogRepo.RunMigrations(); err != nil {
		b.close()
		return nil, fmt.Errorf("catalog migrations: %w", err)
	}
	b.catalog = catalogRepo
	logger.Info("catalog database ready", "path", cfg.Catalog.DBPath)

	mongoDB, err := cartrepo.Connect(ctx, cfg.Mongo)
	if err != nil {
		b.close()
		return nil, err
	}
	b.closers = append(b.closers, func() { mongoDB.Client().Disconnect(context.Background()) })
	cartRepo := cartrepo.NewRepository(mongoDB)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		b.close()
		return nil, fmt.Errorf("cart indexes: %w", err)
	}
	b.cart = cartRepo
	logger.Info("connected to MongoDB", "uri", cfg.Mongo.URI, "database", cfg.Mongo.DBName)

	orderRepo, err := orderrepo.NewRepository(&orderrepo.Credentials{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		DBName:   cfg.Postgres.DBName,
	})
	if err != nil {
		b.close()
		return nil, err
	}
	b.closers = append(b.closers, func() { orderRepo.Close() })
	if err := orderRepo.RunMigrations(); err != nil {
		b.close()
		return nil, fmt.Errorf("order migrations: %w", err)
	}
	b.orders = orderRepo
	logger.Info("connected to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.DBName)

	return b, nil
}
