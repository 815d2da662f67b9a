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

	"designflow/api/internal/app"
	"designflow/api/internal/config"
	"designflow/api/internal/email"
	"designflow/api/internal/publish"
	"designflow/api/internal/search"
	"designflow/api/internal/store"
	"designflow/api/internal/taxonomy"
	"designflow/api/internal/token"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	opts := app.Options{
		Taxonomy:      taxonomy.Default(),
		AdminPassword: cfg.AdminPassword,
		PublicBaseURL: cfg.PublicBaseURL,
	}

	// The catalog's read side works from the static taxonomy alone; the
	// database enables submissions and approved tools.
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("WARNING: database unavailable, submissions disabled: %v", err)
	} else {
		defer db.Close()
		if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
		opts.Store = store.NewPostgresStore(db)
	}

	emailService := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
		NotifyTo: cfg.NotifyEmail,
	})
	opts.Notifier = emailService

	if strings.TrimSpace(cfg.SiteRepoDir) != "" {
		opts.Publisher = publish.New(publish.Config{
			RepoDir:     cfg.SiteRepoDir,
			DataFile:    cfg.SiteDataFile,
			BaseBranch:  cfg.SiteBaseBranch,
			GitHubOwner: cfg.GitHubOwner,
			GitHubRepo:  cfg.GitHubRepo,
			GitHubToken: cfg.GitHubToken,
		})
	}

	// Redis enables one-click approval links in notification emails.
	if strings.TrimSpace(cfg.RedisURL) != "" {
		tokenStore, err := token.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer tokenStore.Close()
		opts.Tokens = tokenStore
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	opts.Search = search.NewService(meiliClient)

	service := app.NewService(opts)
	if meiliClient != nil {
		service.ReindexSearch(ctx)
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
		log.Printf("Design Workflow API listening on %s", cfg.Addr)
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
