/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the DigiLeave server: configuration, SQLite
  store, lifecycle/accrual services, HTTP router, accrual scheduler, and
  graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags (flags override the config file)
  2. Load YAML config when -config is given
  3. Initialize SQLite store
  4. Wire lifecycle, accrual, handler, router, scheduler
  5. Start server, stop scheduler and drain on SIGINT/SIGTERM

COMMAND-LINE FLAGS:
  -config  YAML configuration file (optional)
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: digileave.db)
           Use ":memory:" for an in-memory database
  -jwt-secret  HMAC secret for bearer token verification

EXAMPLES:
  ./server -db="./data/digileave.db" -jwt-secret=dev-secret
  ./server -config=./digileave.yaml
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amiltenov/DigiLeave/api"
	"github.com/amiltenov/DigiLeave/config"
	"github.com/amiltenov/DigiLeave/leave"
	"github.com/amiltenov/DigiLeave/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	jwtSecret := flag.String("jwt-secret", "", "JWT HMAC secret (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *jwtSecret != "" {
		cfg.Auth.JWTSecret = *jwtSecret
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT secret is required (-jwt-secret or auth.jwt_secret)")
	}

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatalf("Invalid scheduler timezone %q: %v", cfg.Scheduler.Timezone, err)
	}

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	lifecycle := leave.NewLifecycle(store, store)
	accrual := leave.NewAccrual(store)

	handler := api.NewHandler(lifecycle, accrual)
	router := api.NewRouter(handler, []byte(cfg.Auth.JWTSecret))

	scheduler := api.NewAccrualScheduler(accrual, loc)
	scheduler.Enabled = cfg.Scheduler.Enabled
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
