package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"bondaccess.org/internal/access"
	"bondaccess.org/internal/config"
	"bondaccess.org/internal/directory"
	"bondaccess.org/internal/httpapi"
	"bondaccess.org/internal/obs"
	"bondaccess.org/internal/store"
	"bondaccess.org/internal/store/pg"
	"bondaccess.org/internal/sync"
)

var (
	version = "0.3.1"
	commit  = "none"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Postgres when a DSN is set, otherwise the in-memory store.
	var (
		st store.Store
		db *sql.DB
	)
	if cfg.Database.DSN != "" {
		pgStore, err := pg.Open(cfg.Database)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		st = pgStore
		db = pgStore.DB()
	} else {
		st = store.NewMemory()
		log.Print("BONDACCESS_PG_DSN not set, using in-memory store")
	}

	dir := directory.NewClient(cfg.Directory)
	engine := sync.New(dir, st)
	svc := access.NewService(dir, st, engine)

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, svc, version,
		httpapi.WithRateLimit(cfg.HTTP.RateBurst, cfg.HTTP.RatePerSecond))

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	log.Printf("Starting bondaccess-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
