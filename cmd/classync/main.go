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
	"github.com/rs/cors"

	"github.com/illusionlabs/classync/internal/api"
	busfactory "github.com/illusionlabs/classync/internal/bus/factory"
	"github.com/illusionlabs/classync/internal/config"
	"github.com/illusionlabs/classync/internal/gateway"
	"github.com/illusionlabs/classync/internal/playback"
	"github.com/illusionlabs/classync/internal/service"
	"github.com/illusionlabs/classync/internal/store"
	"github.com/illusionlabs/classync/internal/web"
)

func main() {
	// Load .env for local development; in deployment the environment is set
	// by the platform and the file does not exist
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	redisConfig := config.GetRedisConfig()
	syncConfig := config.GetSyncConfig()
	serverConfig := config.GetServerConfig()

	// Initialize the state store using the factory
	st, err := store.NewStore(redisConfig)
	if err != nil {
		log.Fatalf("Failed to initialize state store: %v", err)
	}
	if closer, ok := st.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Printf("Error closing state store: %v", err)
			}
		}()
	}

	// Initialize the broadcast bus using the factory
	b, err := busfactory.NewBus(redisConfig)
	if err != nil {
		log.Fatalf("Failed to initialize broadcast bus: %v", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Printf("Error closing broadcast bus: %v", err)
		}
	}()

	// The registry owns the per-room playback loops
	registry := playback.NewRegistry(st, b, syncConfig)
	meetingService := service.NewMeetingService(st, b, registry)

	wsHandler := gateway.NewHandler(registry, meetingService, b)
	sseManager := web.NewSSEManager(b)

	mux := api.SetupRoutes(meetingService, wsHandler, sseManager)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: serverConfig.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})

	server := &http.Server{
		Addr:         ":" + serverConfig.Port,
		Handler:      corsMiddleware.Handler(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // long-lived SSE and websocket responses
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		log.Printf("Starting classync server on port %s", serverConfig.Port)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Fatalf("Error starting server: %v", err)

	case sig := <-shutdown:
		log.Printf("Received %v, shutting down...", sig)

		// Stop every playback loop before closing the listener so no tick
		// writes race the store teardown
		registry.StopAll()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			log.Fatalf("Error shutting down server: %v", err)
		}

		log.Println("Server gracefully stopped")
	}
}
