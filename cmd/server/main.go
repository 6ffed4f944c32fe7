package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/mlm_storefront/internal/es"
	"github.com/Skotchmaster/mlm_storefront/internal/handlers"
	"github.com/Skotchmaster/mlm_storefront/internal/handlers/cart"
	"github.com/Skotchmaster/mlm_storefront/internal/logging"
	authmw "github.com/Skotchmaster/mlm_storefront/internal/middleware/auth"
	"github.com/Skotchmaster/mlm_storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/mlm_storefront/internal/mykafka"
	"github.com/Skotchmaster/mlm_storefront/internal/repo"
	"github.com/Skotchmaster/mlm_storefront/internal/service/checkout"
	"github.com/Skotchmaster/mlm_storefront/internal/service/search"
	"github.com/Skotchmaster/mlm_storefront/internal/session"
	httpserver "github.com/Skotchmaster/mlm_storefront/internal/transport/http"
	"github.com/Skotchmaster/mlm_storefront/pkg/config"
	"github.com/Skotchmaster/mlm_storefront/pkg/db"
	loggingmw "github.com/Skotchmaster/mlm_storefront/pkg/middleware/logging"
	"github.com/Skotchmaster/mlm_storefront/pkg/orderclient"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.ServiceName)

	if err := cfg.Validate(); err != nil {
		log.Error("config_invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db_open_error", "error", err)
		os.Exit(1)
	}
	attempts := &repo.GormRepo{DB: gdb}
	if err := attempts.Migrate(ctx); err != nil {
		log.Error("db_migrate_error", "error", err)
		os.Exit(1)
	}

	var publisher checkout.Publisher = mykafka.Discard{}
	var producer *mykafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Error("kafka_producer_error", "error", err)
			os.Exit(1)
		}
		publisher = producer
	} else {
		log.Warn("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	reg := session.NewRegistry()
	go reg.Run(ctx, time.Minute, cfg.SessionIdle, log)

	auth := authmw.NewSessionAuth(cfg.JWTAccessSecret, cfg.CookieSecure)
	authHandler := &handlers.AuthHandler{Sessions: reg, Auth: auth}
	cartHandler := &cart.CartHandler{
		Sessions: reg,
		Checkouts: &checkout.Service{
			Orders:    orderclient.NewClient(cfg.OrderAPIURL, cfg.OrderAPITimeout),
			Attempts:  attempts,
			Publisher: publisher,
			Topic:     cfg.KafkaTopic,
		},
		Attempts:  attempts,
		Publisher: publisher,
		Topic:     cfg.KafkaTopic,
		Logout:    authHandler.ExpireSession,
	}

	deps := &httpserver.Deps{
		Auth:        auth,
		CSRF:        csrf.Config{Secure: cfg.CookieSecure, EnforceSameOrigin: true},
		AuthHandler: authHandler,
		CartHandler: cartHandler,
		Ready: func() error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.Ping()
		},
	}

	if cfg.ESURL != "" {
		esClient, err := es.NewClient(es.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword}, log)
		if err != nil {
			log.Error("es_connect_error", "error", err)
			os.Exit(1)
		}
		catalog := &search.Catalog{ES: esClient, Index: cfg.ESIndex}
		cartHandler.Catalog = catalog
		deps.ProductHandler = &handlers.ProductHandler{Catalog: catalog}
		deps.SearchHandler = &handlers.SearchHandler{Catalog: catalog}
	} else {
		log.Warn("catalog_disabled", "reason", "ES_URL is empty")
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), loggingmw.RequestLogger(log))

	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.OrderAPITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info("http_server_started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http_server_error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server_shutdown_error", "error", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Error("db_close_error", "error", err)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("kafka_close_error", "error", err)
		}
	}

	log.Info("shutdown_complete")
}
