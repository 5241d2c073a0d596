package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/training/internal/api"
	"example.com/training/internal/auth"
	"example.com/training/internal/broker"
	"example.com/training/internal/config"
	"example.com/training/internal/domain"
	"example.com/training/internal/events"
	persistence "example.com/training/internal/persistence/postgres"
	"example.com/training/internal/scoring"
	httptransport "example.com/training/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)

	manager := broker.NewConnectionManager(broker.Config{
		URL:               cfg.BrokerURL,
		Exchange:          cfg.BrokerExchange,
		ExchangeType:      cfg.BrokerExchangeType,
		Heartbeat:         cfg.BrokerHeartbeat,
		ReconnectInterval: cfg.ReconnectInterval,
	})
	// A broker that is down at startup is not fatal: the manager keeps
	// retrying in the background and publishes fail fast until it is up.
	if err := manager.Connect(ctx); err != nil {
		log.Fatalf("broker supervision loop aborted: %v", err)
	}
	defer manager.Disconnect()

	publisher := broker.NewPublisher(manager)

	emitter := events.NewEmitter()
	scoring.NewScorer(nil).Register(emitter)

	service := domain.NewService(repo, emitter, publisher)

	handler := api.NewHandler(service)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Simple CORS middleware for local dev
	cors := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "http://localhost:5173")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress),
		authMiddleware.Wrap(logger(cors(mux))))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("training-service listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	if err := httptransport.Shutdown(server, 15*time.Second); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
