package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-orders/internal/config"
	"github.com/iliyamo/storefront-orders/internal/database"
	"github.com/iliyamo/storefront-orders/internal/fulfillment"
	"github.com/iliyamo/storefront-orders/internal/handler"
	"github.com/iliyamo/storefront-orders/internal/ledger"
	"github.com/iliyamo/storefront-orders/internal/logging"
	"github.com/iliyamo/storefront-orders/internal/memstore"
	"github.com/iliyamo/storefront-orders/internal/middleware"
	"github.com/iliyamo/storefront-orders/internal/monitor"
	"github.com/iliyamo/storefront-orders/internal/queue"
	"github.com/iliyamo/storefront-orders/internal/repository"
	"github.com/iliyamo/storefront-orders/internal/router"
	"github.com/iliyamo/storefront-orders/internal/service"
	"github.com/iliyamo/storefront-orders/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	port := pflag.String("port", "", "HTTP port (overrides APP_PORT)")
	driver := pflag.String("store", "", "store driver: mysql or memory (overrides STORE_DRIVER)")
	pflag.Parse()

	// a missing .env is fine; variables may come from the real environment
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}
	if *port != "" {
		_ = os.Setenv("APP_PORT", *port)
	}
	if *driver != "" {
		_ = os.Setenv("STORE_DRIVER", *driver)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	st, db, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	var pub queue.Publisher = queue.NopPublisher{}
	if cfg.AMQPURL != "" {
		pub = service.NewAMQPPublisher(cfg.AMQPURL, log)
	}

	l := ledger.New(log)
	orders := fulfillment.New(st, l, store.UTCNow, pub, log)
	mon := monitor.New(st, l, monitor.Policy{
		Threshold:     cfg.Monitor.Threshold,
		Cooldown:      cfg.Monitor.Cooldown,
		RestockAmount: cfg.Monitor.RestockAmount,
	}, store.UTCNow, pub, log)

	rdb := config.NewRedisClient(log)
	if rdb != nil {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(log, handler.ErrorKey))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))
	e.Use(middleware.NewCachePurge(cacheCfg, rdb, log))

	// a nil *sql.DB must not reach the handler as a non-nil Pinger
	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}
	router.RegisterRoutes(e, pinger)
	router.RegisterV1(e, router.Handlers{
		Customers: handler.NewCustomerHandler(
			service.NewCustomerService(st, log),
			service.NewAccountService(st, cfg.BcryptCost, log),
		),
		Products: handler.NewProductHandler(service.NewProductService(st, l, log), mon),
		Orders:   handler.NewOrderHandler(orders),
	}, middleware.NewRedisCache(cacheCfg, rdb, log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AuditConsumer {
		if cfg.AMQPURL == "" {
			log.Warn("audit consumer enabled without AMQP_URL, not started")
		} else {
			go func() {
				if err := queue.StartAuditConsumer(ctx, cfg.AMQPURL, cfg.AuditLogPath, log); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("audit consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}

func openStore(cfg config.Config, log *zap.Logger) (store.Store, *sql.DB, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		st, err := memstore.New()
		if err != nil {
			return nil, nil, err
		}
		log.Warn("using in-memory store, data is lost on exit")
		return st, nil, nil
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		log.Info("mysql connected", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
		return repository.NewStore(db), db, nil
	}
}
