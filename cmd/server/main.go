package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/roomcast/roomcast/internal/server"
)

func main() {
	// A missing .env file is fine; the environment still applies.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Skipping .env file: %v", err)
	}

	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	srv := server.NewServer(cfg)
	httpServer := server.CreateServer(cfg.Port, srv.Routes())

	go func() {
		if err := server.StartServer(httpServer); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("Shutdown signal received")

	// Terminate the live streams first so the HTTP server can drain its
	// long-lived connections within the timeout.
	srv.Shutdown()
	if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout); err != nil {
		os.Exit(1)
	}
}
