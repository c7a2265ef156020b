package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleMessage processes a single message.
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			msg := tgbotapi.NewMessage(message.Chat.ID, "An error occurred while processing your request. Please try again.")
			b.sendMessage(msg)
		}
	}()

	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	userID := message.From.ID
	ctx := context.Background()

	// Check if user is in a conversation
	if state, ok := b.states[userID]; ok {
		// If conversation is already complete (Step == -1), clean it up and process as new command
		if state.Step == -1 {
			delete(b.states, userID)
		} else if message.IsCommand() {
			// Allow any command to interrupt/cancel an ongoing conversation
			delete(b.states, userID)
			// Continue to process the new command below
		} else {
			// Not a command, continue the conversation
			b.handleConversation(ctx, message, state)
			return
		}
	}

	if !message.IsCommand() {
		return
	}

	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "login":
		b.handleLoginStart(message)
	case "logout":
		b.handleLogout(ctx, message)
	case "books":
		if b.requireSession(userID, message.Chat.ID) == nil {
			return
		}
		b.handleBooks(ctx, message)
	case "new_book":
		if b.requireSession(userID, message.Chat.ID) == nil {
			return
		}
		b.handleNewBookStart(message)
	case "filter":
		if b.requireSession(userID, message.Chat.ID) == nil {
			return
		}
		b.handleFilterStart(message)
	case "sales":
		if b.requireSession(userID, message.Chat.ID) == nil {
			return
		}
		b.handleSales(ctx, message)
	default:
		msg := tgbotapi.NewMessage(message.Chat.ID, "Unknown command. Use /start to see available commands.")
		b.sendMessage(msg)
	}
}

// handleCallbackQuery processes inline keyboard button clicks.
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	userID := query.From.ID
	ctx := context.Background()

	// Answer the callback query to remove the loading state
	if b.api != nil {
		callback := tgbotapi.NewCallback(query.ID, "")
		if _, err := b.api.Request(callback); err != nil {
			b.logger.Warn("Failed to answer callback query", zap.Error(err))
		}
	}

	// Every inventory action requires a session
	if _, ok := b.sessions[userID]; !ok {
		msg := tgbotapi.NewMessage(query.Message.Chat.ID, "Please /login first.")
		b.sendMessage(msg)
		return
	}

	data := query.Data

	// Form keyboards act on the user's active conversation.
	if state, ok := b.states[userID]; ok && state.Step != -1 {
		if value, ok := trimPrefix(data, "fmt"); ok {
			b.handleFormatCallback(query, state, value)
			return
		}
		if value, ok := trimPrefix(data, "genre"); ok {
			b.handleGenreCallback(query, state, value)
			return
		}
	}

	switch {
	case strings.HasPrefix(data, "edit:"):
		value, _ := trimPrefix(data, "edit")
		b.handleEditCallback(query, value)
	case strings.HasPrefix(data, "dup:"):
		value, _ := trimPrefix(data, "dup")
		b.handleDuplicateCallback(query, value)
	case strings.HasPrefix(data, "del:"):
		value, _ := trimPrefix(data, "del")
		b.handleDeleteCallback(ctx, query, value)
	case strings.HasPrefix(data, "sale:"):
		value, _ := trimPrefix(data, "sale")
		b.handleSaleCallback(query, value)
	case strings.HasPrefix(data, "sel:"):
		value, _ := trimPrefix(data, "sel")
		b.handleSelectCallback(ctx, query, value)
	case data == "delsel":
		b.handleDeleteSelectedCallback(ctx, query)
	case strings.HasPrefix(data, "page:"):
		value, _ := trimPrefix(data, "page")
		b.handlePageCallback(ctx, query, value)
	case strings.HasPrefix(data, "speriod:"):
		value, _ := trimPrefix(data, "speriod")
		b.handleSalesPeriodCallback(ctx, query, value)
	case strings.HasPrefix(data, "ssort:"):
		value, _ := trimPrefix(data, "ssort")
		b.handleSalesSortCallback(ctx, query, value)
	case data == "sorder":
		b.handleSalesOrderCallback(ctx, query)
	case strings.HasPrefix(data, "spage:"):
		value, _ := trimPrefix(data, "spage")
		b.handleSalesPageCallback(ctx, query, value)
	}

	// Clean up completed conversations
	if state, ok := b.states[userID]; ok && state.Step == -1 {
		delete(b.states, userID)
	}
}
