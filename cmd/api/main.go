package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"roadmap/api/db/migrations"
	"roadmap/api/internal/app"
	"roadmap/api/internal/backup"
	"roadmap/api/internal/config"
	"roadmap/api/internal/export"
	"roadmap/api/internal/history"
	"roadmap/api/internal/ledger"
	"roadmap/api/internal/search"
	"roadmap/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, migrations.Files); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	if err := os.MkdirAll(cfg.HistoryDir, 0o755); err != nil {
		log.Fatalf("failed to create history dir: %v", err)
	}

	documents := store.NewPostgresStore(db)
	historyService := history.New(cfg.HistoryDir)
	exporter := export.NewService()

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewMemory())

	var backups *backup.Service
	if strings.TrimSpace(cfg.S3Endpoint) != "" {
		backups, err = backup.New(ctx, backup.Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			log.Fatalf("object store connection failed: %v", err)
		}
		log.Printf("Snapshot backups enabled to bucket %s", cfg.S3Bucket)
	}

	// The vote ledger lives in Redis when configured, otherwise in Postgres
	// next to the document.
	var votes interface {
		RecordVote(ctx context.Context, userID, voteKey string) (bool, error)
		VotesForUser(ctx context.Context, userID string) (map[string]bool, error)
		RemoveVote(ctx context.Context, userID, voteKey string) error
	} = documents
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for the vote ledger")
		redisLedger, err := ledger.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisLedger.Close()
		votes = redisLedger
	} else {
		log.Printf("Using PostgreSQL for the vote ledger")
	}

	service := app.New(cfg, documents, votes, historyService, searchService, exporter, backups)
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Roadmap API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
