package main

import (
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"bookstore/internal/app"
	"bookstore/internal/fakeapi"
	"bookstore/internal/store/stubs"
)

func main() {
	log.Println("Starting local fake bookstore API...")

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// Seeded in-memory store behind a real HTTP listener, so the
	// bot exercises the full REST client instead of the mock directly.
	mock := stubs.NewMockStore()
	mock.Seed()
	api := fakeapi.New(mock, logger)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("Failed to start API listener: %v", err)
	}
	apiURL := "http://" + listener.Addr().String()

	apiServer := &http.Server{Handler: api}
	go func() {
		if err := apiServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Fake API server error: %v", err)
		}
	}()

	log.Printf("Fake bookstore API started at %s", apiURL)

	// Set environment variables for the application
	os.Setenv("BOOKSTORE_API_URL", apiURL)
	os.Setenv("USE_MOCK_API", "false")
	os.Setenv("WEBHOOK_MODE", "false")

	// Set PORT for HTTP server if not already set
	if os.Getenv("PORT") == "" {
		os.Setenv("PORT", "8080")
	}

	// Ensure TELEGRAM_BOT_TOKEN and ALLOWED_USER_IDS are set
	if os.Getenv("TELEGRAM_BOT_TOKEN") == "" {
		log.Println("⚠️  TELEGRAM_BOT_TOKEN not set. Please set it in your .env file or environment.")
		log.Println("   The bot will fail to start without a valid token.")
	}

	if os.Getenv("ALLOWED_USER_IDS") == "" {
		log.Println("⚠️  ALLOWED_USER_IDS not set. Please set it in your .env file or environment.")
		log.Println("   The bot will not accept any commands without allowed user IDs.")
	}

	log.Println("Starting application with fake API backend...")

	// Create and initialize application
	application, err := app.New()
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Run application in background
	errChan := make(chan error, 1)
	go func() {
		errChan <- application.Run()
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		log.Println("Received shutdown signal")
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Application error: %v", err)
		}
	}
}
