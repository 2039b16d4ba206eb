// Command taxidispatchd runs the taxi dispatch simulation engine: it seeds a
// fleet, starts the generator/matcher/demand-broadcast loop, and serves a
// websocket subscriber endpoint plus health and metrics endpoints.
package main

import (
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bizhanchik/taxidispatch/internal/broadcast"
	"github.com/bizhanchik/taxidispatch/internal/config"
	"github.com/bizhanchik/taxidispatch/internal/demand"
	"github.com/bizhanchik/taxidispatch/internal/dispatch"
	"github.com/bizhanchik/taxidispatch/internal/engine"
	"github.com/bizhanchik/taxidispatch/internal/hexgrid"
	"github.com/bizhanchik/taxidispatch/internal/orders"
	"github.com/bizhanchik/taxidispatch/internal/routing"
	"github.com/bizhanchik/taxidispatch/internal/store"
	"github.com/bizhanchik/taxidispatch/model"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		logger.Fatal("config: parse flags", zap.Error(err))
	}

	grid, err := hexgrid.New(cfg.Center, cfg.H3Resolution)
	if err != nil {
		logger.Fatal("hexgrid: build tiling", zap.Error(err))
	}
	logger.Info("hexgrid: tiling built", zap.Int("cells", grid.Len()), zap.Int("resolution", cfg.H3Resolution))

	st := store.New()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	taxis := model.SeedTaxis(cfg.Center, cfg.MaxTaxis, rng)
	st.SeedTaxis(taxis)
	logger.Info("fleet: seeded", zap.Int("count", len(taxis)))

	agg := demand.New(grid)
	routingClient := routing.New(
		cfg.RoutingEndpoint,
		cfg.Credentials,
		cfg.RoutingAttempts,
		time.Duration(cfg.RoutingBaseDelay)*time.Second,
		time.Duration(cfg.RoutingTimeout)*time.Second,
		logger,
	)
	matcher := dispatch.New(st, agg, routingClient, logger)
	logger.Info("dispatch: default algorithm", zap.String("mode", dispatch.ModeHybrid.String()))

	hub := broadcast.New(st, agg, matcher, logger)
	generator := orders.New(st, cfg.Center, cfg.MaxPendingOrders, cfg.MaxCompletedOrders, logger)

	eng := engine.New(cfg, generator, matcher, hub, logger)
	eng.Start()
	defer eng.Stop()

	router := newRouter(hub)

	srv := &http.Server{Addr: cfg.Addr, Handler: router}
	go func() {
		logger.Info("http: listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http: serve failed", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	_ = srv.Close()
}

func newRouter(hub *broadcast.Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Taxi Dispatch System API"}`))
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/ws", hub.ServeWS)

	return r
}

func waitForShutdown(logger *zap.Logger) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("shutdown: signal received")
}
