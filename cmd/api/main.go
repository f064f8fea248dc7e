package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"amicus.org/internal/auth"
	"amicus.org/internal/cache"
	"amicus.org/internal/config"
	"amicus.org/internal/httpapi"
	"amicus.org/internal/membership"
	"amicus.org/internal/notify"
	"amicus.org/internal/obs"
	"amicus.org/internal/store/pg"
)

var version = "0.3.1"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("PORTAL_COMMIT"))

	tokens, err := auth.NewTokenService(cfg.TokenSecret,
		auth.WithIssuer(cfg.TokenIssuer),
		auth.WithTTL(cfg.TokenTTL),
	)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	// PostgreSQL when a DSN is configured, in-memory otherwise (dev mode).
	var (
		store   membership.Store
		pgStore *pg.Store
	)
	if cfg.PGDSN != "" {
		pgStore, err = pg.Open(cfg.PGDSN, cfg.PGMaxConns,
			pg.WithAcquireTimeout(cfg.PGAcquireTimeout))
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		store = pgStore
	} else {
		log.Println("PORTAL_PG_DSN not set, using in-memory store")
		store = membership.NewInMemoryStore()
	}

	var notifier membership.Notifier = notify.LogNotifier{}
	if cfg.AMQPURL != "" {
		notifier = notify.NewAMQPNotifier(cfg.AMQPURL, "")
	}

	opts := []membership.ServiceOption{
		membership.WithNotifier(notifier),
		membership.WithHashCost(cfg.HashCost),
	}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		opts = append(opts, membership.WithStatsCache(cache.NewStatsCache(client, 0)))
	}

	svc, err := membership.NewService(store, tokens, opts...)
	if err != nil {
		log.Fatalf("membership service: %v", err)
	}

	probe := httpapi.ReadyProbe{}
	if pgStore != nil {
		probe.DB = pgStore.DB()
	}
	api := httpapi.New(probe, version, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting amicus-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}
