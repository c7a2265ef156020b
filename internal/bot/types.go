package bot

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookstore/internal/models"
	"bookstore/internal/store"
)

// Bot represents the Telegram bot wrapper. It holds only UI state: form
// drafts in flight, the current listing/history queries, row selections
// and per-user sessions. Everything else lives behind the store.
type Bot struct {
	api          *tgbotapi.BotAPI
	store        store.Store
	allowedUsers map[int64]bool

	// stateMu serializes update handling. Webhook mode dispatches each
	// update on its own goroutine, and every handler touches the maps
	// below.
	stateMu  sync.Mutex
	states   map[int64]*ConversationState
	sessions map[int64]*Session
	listings map[int64]*listingView
	sales    map[int64]*salesView

	logger *zap.Logger
}

// ConversationState tracks the state of multi-step commands (forms).
// Step -1 marks a completed conversation awaiting cleanup.
type ConversationState struct {
	Command string
	Step    int
	Data    map[string]interface{}
}

// Session holds the logged-in user's identity claims and the raw bearer
// credential. Created at login, cleared at logout, never persisted.
type Session struct {
	User  models.User
	Token string
}

// listingView is the book listing screen's state: the active query, the
// last fetched page, and the multi-row selection owned by this screen.
type listingView struct {
	ChatID   int64
	Query    store.BookQuery
	Books    []models.Book
	Meta     models.Meta
	Selected map[string]bool
}

// salesView is the sales history screen's state.
type salesView struct {
	ChatID int64
	Query  store.SaleQuery
	Meta   models.Meta
}
