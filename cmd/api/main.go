package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hardware-checkout/internal/cache"
	"hardware-checkout/internal/carrier"
	"hardware-checkout/internal/config"
	"hardware-checkout/internal/coupon"
	"hardware-checkout/internal/database"
	"hardware-checkout/internal/gateway"
	"hardware-checkout/internal/handler"
	"hardware-checkout/internal/migrate"
	"hardware-checkout/internal/notify"
	"hardware-checkout/internal/pricing"
	"hardware-checkout/internal/repository"
	"hardware-checkout/internal/router"
	"hardware-checkout/internal/service"
	"hardware-checkout/internal/shipping"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger, "checkout-api")
	logger.Info().Msg("starting checkout API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := migrate.Apply(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	// Repositories
	productRepo := repository.NewProductRepository(pool, logger)
	customerRepo := repository.NewCustomerRepository(pool, logger)
	addressRepo := repository.NewAddressRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	paymentRepo := repository.NewPaymentRepository(pool, logger)
	shipmentRepo := repository.NewShipmentRepository(pool, logger)

	catalog, err := coupon.NewCatalog(ctx, &coupon.CatalogConfig{FilePaths: cfg.Coupons.Files}, couponLoader(ctx, cfg, logger), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize coupon catalog: %w", err)
	}

	engine := pricing.NewEngine(catalog, pricing.WithTaxRate(cfg.Pricing.TaxRatePercent))
	rates := shipping.NewRateTable(cfg.Shipping.DefaultCost, cfg.Shipping.RegionCosts)

	carrierClient := carrier.NewClient(carrier.Config{
		Name:          cfg.Carrier.Name,
		BaseURL:       cfg.Carrier.BaseURL,
		APIKey:        cfg.Carrier.APIKey,
		OriginCommune: cfg.Carrier.OriginCommune,
		Timeout:       time.Duration(cfg.Carrier.TimeoutSeconds) * time.Second,
	}, logger)
	parcel := carrier.Package{
		LengthCm:    cfg.Carrier.PackageLengthCm,
		WidthCm:     cfg.Carrier.PackageWidthCm,
		HeightCm:    cfg.Carrier.PackageHeightCm,
		WeightGrams: cfg.Carrier.PackageWeightGrams,
	}

	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:         cfg.Gateway.BaseURL,
		CommerceCode:    cfg.Gateway.CommerceCode,
		APIKey:          cfg.Gateway.APIKey,
		Timeout:         time.Duration(cfg.Gateway.TimeoutSeconds) * time.Second,
		MaxRetries:      cfg.Gateway.MaxRetries,
		InitialInterval: 200 * time.Millisecond,
	}, logger)

	notifier, err := newNotifier(cfg.Notify, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize notifier: %w", err)
	}
	defer notifier.Close()

	guard := cache.NewNoopReplayGuard()
	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			// the database remains authoritative for idempotency
			logger.Warn().Err(err).Msg("redis unavailable, webhook replay guard disabled")
		} else {
			defer client.Close()
			guard = cache.NewRedisReplayGuard(client, time.Duration(cfg.Redis.ReplayTTLSeconds)*time.Second, logger)
		}
	}

	// Services
	reconciler := service.NewPaymentReconciler(paymentRepo, orderRepo, customerRepo, shipmentRepo,
		gatewayClient, notifier, guard, logger)
	checkoutService := service.NewCheckoutService(service.CheckoutDeps{
		Products:    productRepo,
		Customers:   customerRepo,
		Addresses:   service.NewAddressResolver(addressRepo, customerRepo, logger),
		Factory:     service.NewOrderFactory(orderRepo, productRepo, cartRepo, logger),
		Provisioner: service.NewShipmentProvisioner(shipmentRepo, carrierClient, parcel, cfg.Carrier.ReferenceMaxLength, logger),
		Initiator:   service.NewPaymentInitiator(paymentRepo, orderRepo, shipmentRepo, gatewayClient, cfg.Gateway.ReturnURL, logger),
		Pricer:      engine,
		Rates:       rates,
	}, logger)
	orderQuery := service.NewOrderQueryService(orderRepo, paymentRepo, shipmentRepo, logger)

	mux := router.New(router.Handlers{
		Checkout: handler.NewCheckoutHandler(checkoutService, reconciler, logger),
		Webhook:  handler.NewWebhookHandler(reconciler, cfg.Gateway.WebhookSecret, logger),
		Order:    handler.NewOrderHandler(orderQuery, logger),
	}, cfg.Auth.APIKey, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Str("carrier", carrierClient.Name()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// couponLoader reads catalog files from S3 when enabled, falling back to the
// local file system.
func couponLoader(ctx context.Context, cfg *config.Config, logger zerolog.Logger) coupon.Loader {
	fileLoader := coupon.NewFileLoader(logger)
	if !cfg.S3.Enabled {
		logger.Info().Msg("using local file system for coupon files (S3 disabled)")
		return fileLoader
	}

	s3Loader, err := coupon.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
	if err != nil {
		logger.Warn().
			Err(err).
			Msg("failed to initialise S3 loader, falling back to local file system only")
		return fileLoader
	}
	return coupon.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, true, logger)
}

func newNotifier(cfg config.NotifyConfig, logger zerolog.Logger) (notify.Notifier, error) {
	if cfg.Backend == "kafka" {
		return notify.NewKafkaNotifier(notify.KafkaConfig{
			Broker:         cfg.KafkaBroker,
			Topic:          cfg.KafkaTopic,
			FlushTimeoutMs: cfg.FlushTimeoutMs,
		}, logger)
	}
	return notify.NewLogNotifier(logger), nil
}
