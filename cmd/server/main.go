package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tillbook/backend/internal/cache"
	"tillbook/backend/internal/config"
	"tillbook/backend/internal/httpapi"
	"tillbook/backend/internal/service"
	"tillbook/backend/internal/store"
	"tillbook/backend/internal/store/memory"
	"tillbook/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var closers []io.Closer

	var repo store.Repository
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[main] postgres: %v", err)
		}
		closers = append(closers, pg)
		repo = pg
	} else {
		log.Println("[main] DATABASE_URL not set, using in-memory store")
		repo = memory.NewSeeded()
	}

	var reports cache.ReportCache = cache.NewNoopReportCache()
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisReportCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Printf("[main] redis unavailable (%v), report caching disabled", err)
		} else {
			closers = append(closers, rc)
			reports = rc
			log.Println("[main] redis report cache enabled")
		}
	}

	svc := service.New(repo, reports)

	auth, err := httpapi.NewAuthManager(ctx, cfg.AuthSecret,
		time.Duration(cfg.AccessTokenTTL)*time.Minute, repo)
	if err != nil {
		log.Fatalf("[main] auth: %v", err)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpapi.NewRouter(svc, auth, cfg.AllowedOrigin),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("[main] listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("[main] shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] shutdown: %v", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Printf("[main] close: %v", err)
		}
	}
	log.Println("[main] bye")
}
