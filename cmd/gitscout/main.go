package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/akravch/gitscout/internal/adapter/driven/github"
	oauthadapter "github.com/akravch/gitscout/internal/adapter/driven/oauth"
	sqliteadapter "github.com/akravch/gitscout/internal/adapter/driven/sqlite"
	httphandler "github.com/akravch/gitscout/internal/adapter/driving/http"
	"github.com/akravch/gitscout/internal/application"
	"github.com/akravch/gitscout/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"api_base_url", cfg.APIBaseURL,
		"oauth_configured", cfg.HasOAuthCredentials(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on the writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters.
	store := sqliteadapter.NewRepoRepo(db)
	fetcher := githubadapter.NewFetcher()
	searcher := githubadapter.NewSearcher(fetcher, cfg.APIBaseURL)
	auth := oauthadapter.NewProvider(
		cfg.OAuthClientID,
		cfg.OAuthClientSecret,
		cfg.OAuthRedirectURL,
		cfg.AccessToken,
	)

	// 6. Surface reauthorization requests to the operator. A browser-based
	// client would open the authorization URL instead.
	go func() {
		for range auth.ReauthorizationRequests() {
			if cfg.HasOAuthCredentials() {
				slog.Warn("github authorization required", "authorize_url", auth.AuthCodeURL("gitscout"))
			} else {
				slog.Warn("github rejected the access token; set GITSCOUT_ACCESS_TOKEN or configure OAuth")
			}
		}
	}()

	// 7. Wire application services.
	searchSvc := application.NewSearchService(searcher, store, auth)
	userSvc := application.NewUserService(searcher, auth)

	// 8. Create HTTP handler and server.
	handler := httphandler.NewHandler(searchSvc, userSvc, store, auth, slog.Default())
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(handler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      0, // event stream connections stay open
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("gitscout started", "listen_addr", cfg.ListenAddr)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
