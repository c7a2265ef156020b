package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bookstore/internal/bot"
	"bookstore/internal/config"
	"bookstore/internal/store"
	"bookstore/internal/store/cache"
	"bookstore/internal/store/rest"
	"bookstore/internal/store/stubs"
)

// App represents the application
type App struct {
	config *config.Config
	store  store.Store
	bot    *bot.Bot
	server *http.Server
	logger *zap.Logger
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration from environment variables
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app := &App{config: cfg, logger: logger}

	log.Println("Starting Bookstore Admin Bot...")

	// Initialize the bookstore API client
	if err := app.initStore(); err != nil {
		return nil, err
	}

	// Initialize bot
	if err := app.initBot(); err != nil {
		return nil, err
	}

	// Initialize HTTP server
	app.initHTTPServer()

	return app, nil
}

// initStore initializes the bookstore API client
func (a *App) initStore() error {
	var st store.Store
	if a.config.UseMockAPI {
		log.Println("Using in-memory mock API")
		mock := stubs.NewMockStore()
		mock.Seed()
		st = mock
	} else {
		log.Printf("Using bookstore API at %s", a.config.APIBaseURL)
		st = rest.NewClient(a.config.APIBaseURL)
	}

	// All reads go through the tag cache so that mutations
	// invalidate stale listings and reports.
	cached := cache.New(st)
	cached.Subscribe(func(tag string) {
		a.logger.Debug("Cache invalidated", zap.String("tag", tag))
	})
	a.store = cached
	return nil
}

// initBot initializes the Telegram bot
func (a *App) initBot() error {
	telegramBot, err := bot.NewBot(a.config.TelegramToken, a.store, a.config.AllowedUserIDs, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	log.Printf("Bot created successfully. Allowed users: %v", a.config.AllowedUserIDs)

	a.bot = telegramBot
	return nil
}

// initHTTPServer initializes the HTTP server for health checks and webhook
func (a *App) initHTTPServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080" // Default port
	}

	// Health check endpoint
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	})

	// Root endpoint
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		mode := "polling"
		if a.config.WebhookMode {
			mode = "webhook"
		}
		fmt.Fprintf(w, "Bookstore Admin Bot is running (mode: %s)", mode)
	})

	// Webhook endpoint (only used in webhook mode)
	http.HandleFunc("/telegram-webhook", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			log.Printf("Error decoding webhook update: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// Process update in background to respond quickly to Telegram
		go a.bot.HandleWebhookUpdate(update)

		w.WriteHeader(http.StatusOK)
	})

	a.server = &http.Server{
		Addr:         ":" + port,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Start HTTP server in background
	go func() {
		log.Printf("Starting HTTP server on port %s", port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()
}

// Run starts the application and blocks until shutdown
func (a *App) Run() error {
	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start bot in appropriate mode
	if a.config.WebhookMode {
		// Webhook mode: configure webhook and wait for HTTP requests
		log.Printf("Starting bot in WEBHOOK mode (URL: %s)", a.config.WebhookURL)
		if err := a.bot.StartWebhook(a.config.WebhookURL); err != nil {
			return fmt.Errorf("failed to setup webhook: %w", err)
		}
		log.Println("Webhook configured. Bot will receive updates via HTTP endpoint /telegram-webhook")
	} else {
		// Polling mode: actively poll Telegram servers
		go func() {
			log.Println("Starting bot in POLLING mode...")
			if err := a.bot.Start(); err != nil {
				log.Fatalf("Failed to start bot: %v", err)
			}
		}()
	}

	// Wait for interrupt signal
	<-sigChan

	log.Println("Shutting down...")
	return a.Shutdown()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	// Shutdown HTTP server gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Close the API client
	if err := a.store.Close(); err != nil {
		log.Printf("Error closing API client: %v", err)
		return err
	}

	_ = a.logger.Sync()

	log.Println("Shutdown complete")
	return nil
}
