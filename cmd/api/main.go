package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marginfx/internal/accounts"
	"marginfx/internal/auth"
	"marginfx/internal/config"
	"marginfx/internal/db"
	"marginfx/internal/health"
	"marginfx/internal/httpserver"
	"marginfx/internal/instrument"
	"marginfx/internal/logger"
	"marginfx/internal/orders"
	"marginfx/internal/quotes"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, OutputFile: cfg.LogFile})

	if cfg.InstrumentSpecs != "" {
		if err := instrument.LoadSpecs(cfg.InstrumentSpecs); err != nil {
			log.WithError(err).Fatal("loading instrument specs")
		}
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("connecting to database")
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.WithError(err).Fatal("applying schema")
	}

	cache := quotes.NewCache()
	quoteClient := quotes.NewClient(cfg.QuoteBaseURL, cfg.QuoteTimeout)
	quoteSvc := quotes.NewService(quoteClient, cache, log)
	bus := quotes.NewBus()

	accountStore := accounts.NewStore()
	accountSvc := accounts.NewService(pool, accountStore, accounts.Defaults{
		DemoStartBalance: cfg.DemoStartBalance,
		Currency:         cfg.AccountCurrency,
	}, log)
	orderStore := orders.NewStore()
	orderSvc := orders.NewService(pool, orderStore, accountSvc, accountStore, quoteSvc, cfg.QuoteTimeout, log)
	authSvc := auth.NewService(pool, cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL)
	authSvc.SetAccountService(accountSvc)

	publisherCtx, stopPublisher := context.WithCancel(ctx)
	defer stopPublisher()
	quotes.StartPublisher(publisherCtx, quoteSvc, bus, cfg.WatchSymbols, cfg.QuotePollInterval, log)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandler:     auth.NewHandler(authSvc),
		AccountsHandler: accounts.NewHandler(accountSvc),
		OrderHandler:    orders.NewHandler(orderSvc),
		HealthHandler:   health.NewHandler(pool, cache, time.Now()),
		AuthService:     authSvc,
		WSHandler:       httpserver.NewWSHandler(bus, authSvc, orderSvc, cfg.WebSocketOrigin),
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	log.WithField("addr", cfg.HTTPAddr).Info("server listening")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		stopPublisher()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
