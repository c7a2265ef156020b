package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookstore/internal/store"
)

// handleStart shows the welcome message and available commands.
func (b *Bot) handleStart(message *tgbotapi.Message) {
	text := `Welcome to the Bookstore Admin Bot! 📚

Available commands:
/login - Sign in to the bookstore API
/books [search] - Browse the inventory ("-" clears the search)
/new_book - Add a new book
/filter - Set listing filters (price, pages, release date)
/sales - Sales history report
/logout - Sign out`

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	b.sendMessage(msg)
}

// handleLoginStart initiates the login conversation.
func (b *Bot) handleLoginStart(message *tgbotapi.Message) {
	userID := message.From.ID
	b.states[userID] = &ConversationState{
		Command: "login",
		Step:    1,
		Data:    make(map[string]interface{}),
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, "Please enter your email:")
	b.sendMessage(msg)
}

// handleLogout clears the session and the stored credential.
func (b *Bot) handleLogout(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	if _, ok := b.sessions[userID]; !ok {
		msg := tgbotapi.NewMessage(message.Chat.ID, "You are not logged in.")
		b.sendMessage(msg)
		return
	}

	delete(b.sessions, userID)
	if err := b.store.Logout(ctx); err != nil {
		b.logger.Warn("Logout failed", zap.Error(err))
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, "Logged out. Use /login to sign in again.")
	b.sendMessage(msg)
}

// handleNewBookStart initiates the book creation form.
func (b *Bot) handleNewBookStart(message *tgbotapi.Message) {
	userID := message.From.ID
	b.startBookForm(userID, message.Chat.ID, "create", nil)
}

// handleBooks shows the inventory listing, optionally filtered by a
// free-text search term given as the command argument.
func (b *Bot) handleBooks(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	view, ok := b.listings[userID]
	if !ok {
		view = &listingView{
			Query:    store.BookQuery{Page: 1, Limit: listingPageSize},
			Selected: make(map[string]bool),
		}
		b.listings[userID] = view
	}
	view.ChatID = message.Chat.ID

	if term := strings.TrimSpace(message.CommandArguments()); term != "" {
		// "-" drops the previous search term, returning to the full listing
		if term == "-" {
			view.Query.SearchTerm = ""
		} else {
			view.Query.SearchTerm = term
		}
		view.Query.Page = 1
	}

	b.renderListing(ctx, userID, view)
}

// handleFilterStart initiates the listing filter conversation.
func (b *Bot) handleFilterStart(message *tgbotapi.Message) {
	userID := message.From.ID
	b.states[userID] = &ConversationState{
		Command: "filter",
		Step:    1,
		Data:    make(map[string]interface{}),
	}

	msg := tgbotapi.NewMessage(message.Chat.ID,
		"Setting listing filters. Send \"-\" to leave a bound unset.\n\nMinimum price:")
	b.sendMessage(msg)
}

// handleSales shows the sales history report with its default query.
func (b *Bot) handleSales(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	view, ok := b.sales[userID]
	if !ok {
		view = &salesView{Query: store.SaleQuery{}.Defaults()}
		b.sales[userID] = view
	}
	view.ChatID = message.Chat.ID

	b.renderSales(ctx, userID, view)
}

// requireSession gates inventory screens behind a stored credential.
func (b *Bot) requireSession(userID, chatID int64) *Session {
	session, ok := b.sessions[userID]
	if !ok {
		msg := tgbotapi.NewMessage(chatID, "Please /login first.")
		b.sendMessage(msg)
		return nil
	}
	return session
}
