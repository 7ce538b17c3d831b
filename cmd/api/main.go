package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/puntoventa-backend/api/routes"
	"github.com/angelmondragon/puntoventa-backend/internal/auth"
	"github.com/angelmondragon/puntoventa-backend/internal/cashregister"
	"github.com/angelmondragon/puntoventa-backend/internal/ledger"
	product "github.com/angelmondragon/puntoventa-backend/internal/products"
	"github.com/angelmondragon/puntoventa-backend/internal/reports"
	"github.com/angelmondragon/puntoventa-backend/internal/sales"
	"github.com/angelmondragon/puntoventa-backend/internal/stockfeed"
	"github.com/angelmondragon/puntoventa-backend/internal/users"
	"github.com/angelmondragon/puntoventa-backend/pkg/auth/session"
	"github.com/angelmondragon/puntoventa-backend/pkg/config"
	"github.com/angelmondragon/puntoventa-backend/pkg/db"
	"github.com/angelmondragon/puntoventa-backend/pkg/logger"
	"github.com/angelmondragon/puntoventa-backend/pkg/metrics"
	"github.com/angelmondragon/puntoventa-backend/pkg/migrate"
	"github.com/angelmondragon/puntoventa-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	loc, err := cfg.App.Location()
	if err != nil {
		logg.Error(context.Background(), "invalid time zone", err)
		os.Exit(1)
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		fatal(logg, "failed to create session manager", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	salesMetrics := metrics.NewSalesMetrics(registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		hub  *stockfeed.Hub
		feed stockfeed.Publisher = stockfeed.Nop{}
	)
	if cfg.FeatureFlags.StockFeed {
		hub = stockfeed.NewHub(logg)
		go hub.Run(ctx)
		feed = hub
	}

	conn := dbClient.DB()

	userRepo := users.NewRepository(conn)
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		Logger:         logg,
	})
	if err != nil {
		fatal(logg, "failed to create auth service", err)
	}

	userService, err := users.NewService(users.ServiceParams{
		Repo:           userRepo,
		PasswordConfig: cfg.Password,
		Sessions:       sessionManager,
		Logger:         logg,
		Location:       loc,
	})
	if err != nil {
		fatal(logg, "failed to create users service", err)
	}

	productService, err := product.NewService(product.NewRepository(conn), dbClient, feed, cfg.Sales.SearchLimit)
	if err != nil {
		fatal(logg, "failed to create product service", err)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		fatal(logg, "failed to create ledger service", err)
	}
	cashService, err := cashregister.NewService(cashregister.NewRepository(conn), ledgerService, dbClient, logg)
	if err != nil {
		fatal(logg, "failed to create cash register service", err)
	}

	salesRepo := sales.NewRepository(conn)
	salesService, err := sales.NewService(salesRepo, product.NewInventory(), cashService, dbClient, feed, salesMetrics, logg, sales.Options{
		Location:          loc,
		StoreName:         cfg.App.StoreName,
		MinReferenceChars: cfg.Sales.MinPaymentRefChars,
	})
	if err != nil {
		fatal(logg, "failed to create sales service", err)
	}

	reportsService, err := reports.NewService(reports.ServiceParams{
		Repo:        reports.NewRepository(conn),
		Sales:       salesRepo,
		Logger:      logg,
		Location:    loc,
		StoreName:   cfg.App.StoreName,
		DefaultDays: cfg.Sales.ReportDays,
	})
	if err != nil {
		fatal(logg, "failed to create reports service", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
		"tz":   loc.String(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			routes.Services{
				Auth:     authService,
				Users:    userService,
				Products: productService,
				Sales:    salesService,
				Cash:     cashService,
				Reports:  reportsService,
			},
			hub,
			loc,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	closeErr := multierr.Combine(
		server.Shutdown(shutdownCtx),
		redisClient.Close(),
		dbClient.Close(),
	)
	if closeErr != nil {
		logg.Error(ctx, "error during shutdown", closeErr)
		exitCode = 1
	}
	logg.Info(ctx, "api server stopped")
	os.Exit(exitCode)
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
