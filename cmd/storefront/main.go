package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/events"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/kv"
	"github.com/fjod/go_cart/storefront/internal/location"
	"github.com/fjod/go_cart/storefront/internal/logging"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/fjod/go_cart/storefront/internal/wishlist"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	ctx := context.Background()

	locations := location.Default()
	if cfg.LocationDataset != "" {
		if locations, err = location.LoadFile(cfg.LocationDataset); err != nil {
			fatal(logger, "failed to load location dataset", err)
		}
		logger.Info("location dataset loaded", "path", cfg.LocationDataset)
	}

	store, closeKV, err := openKV(ctx, cfg.KV)
	if err != nil {
		fatal(logger, "failed to open key-value store", err)
	}
	defer closeKV()

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		fatal(logger, "failed to open backends", err)
	}
	defer b.close()

	var publisher events.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(logger, cfg.Kafka.Brokers...)
		defer kp.Close()
		publisher = kp
		logger.Info("publishing order events", "topic", events.Topic, "brokers", cfg.Kafka.Brokers)
	}

	cartStore := cart.NewStore(store, b.cart, b.catalog, logger)
	guard := wishlist.NewGuard(store, cartStore, logger)
	checkoutSvc := checkout.NewService(store, cartStore, b.catalog, b.orders, locations, publisher, logger)
	engine := orders.NewEngine(b.orders, publisher, logger)
	board := orders.NewBoard(b.orders, b.catalog, logger)

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if len(cfg.Kafka.Brokers) > 0 {
		consumer := events.NewConsumer(logger, cfg.Kafka.GroupID, cfg.Kafka.Brokers...)
		consumer.On(events.OrderPlaced, func(ctx context.Context, e events.Event) error {
			return cartStore.Forget(ctx, e.UserID)
		})
		go consumer.Run(consumerCtx)
		defer consumer.Close()
	}

	handlers := h.Handlers{
		Catalog:  h.NewCatalogHandler(b.catalog, locations, cfg.HTTP.RequestTimeout),
		Cart:     h.NewCartHandler(cartStore, cfg.HTTP.RequestTimeout),
		Wishlist: h.NewWishlistHandler(guard, b.catalog, cfg.HTTP.RequestTimeout),
		Checkout: h.NewCheckoutHandler(checkoutSvc, cfg.HTTP.RequestTimeout, logger),
		Orders:   h.NewOrdersHandler(engine, board, cfg.HTTP.RequestTimeout),
	}

	router := h.NewRouter(handlers, auth.NewVerifier(cfg.Auth.JWTSecret), h.RouterConfig{
		RequestTimeout:     cfg.HTTP.RequestTimeout,
		MaxRequestBodySize: cfg.HTTP.MaxRequestBodySize,
		MetricsEnabled:     cfg.HTTP.MetricsEnabled,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("storefront starting", "port", cfg.HTTP.Port, "backend", cfg.Backend, "kv", cfg.KV.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "server error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopConsumer()
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

func openKV(ctx context.Context, cfg config.KVConfig) (kv.Store, func(), error) {
	if cfg.Backend != config.KVRedis {
		return kv.NewMemoryStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	return kv.NewRedisStore(client, cfg.Prefix), func() { client.Close() }, nil
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
