package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/riandyrn/otelchi"

	"github.com/mautichost/provisiond/internal/adapter/fsm"
	"github.com/mautichost/provisiond/internal/adapter/otel"
	"github.com/mautichost/provisiond/internal/adapter/portainer"
	"github.com/mautichost/provisiond/internal/adapter/river"
	"github.com/mautichost/provisiond/internal/adapter/sqlite"
	"github.com/mautichost/provisiond/internal/app"
	"github.com/mautichost/provisiond/internal/config"

	handler "github.com/mautichost/provisiond/internal/adapter/http"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	// --- Observability ---
	providers, err := otel.Setup(ctx, otel.ConfigFromEnv())
	if err != nil {
		log.Fatalf("otel: %v", err)
	}

	// --- Adapters (out) ---
	db, err := otel.OpenDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		log.Fatalf("migrations: %v", err)
	}
	defer repo.Close()

	events := sqlite.NewEventRepository(repo.DB())

	riverClient, err := river.Setup(ctx, repo.DB())
	if err != nil {
		log.Fatalf("river: %v", err)
	}
	if err := riverClient.Start(ctx); err != nil {
		log.Fatalf("river start: %v", err)
	}

	client, err := portainer.New(portainer.Config{
		URL:        cfg.PortainerURL,
		APIToken:   cfg.PortainerAPIToken,
		EndpointID: cfg.PortainerEndpointID,
		SwarmID:    cfg.PortainerSwarmID,
	})
	if err != nil {
		log.Fatalf("portainer: %v", err)
	}

	// --- Application ---
	svc := app.NewProvisioningService(
		otel.NewTracingRepository(repo),
		events,
		otel.NewTracingPublisher(river.NewPublisher(riverClient)),
		fsm.New(),
		otel.NewTracingSubmitter(client),
		app.Config{
			TraefikNetwork:       cfg.TraefikNetwork,
			CertResolver:         cfg.CertResolver,
			DefaultMauticVersion: cfg.DefaultMauticVersion,
		},
	)

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware("provisiond", otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("provisiond", "0.1.0"))
	handler.Register(api, svc)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("provisiond listening on :%s", cfg.Port)
		log.Printf("API docs: http://localhost:%s/docs", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-done
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	if err := riverClient.Stop(shutdownCtx); err != nil {
		log.Printf("river shutdown: %v", err)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}

	log.Println("stopped")
}
