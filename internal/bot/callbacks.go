package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookstore/internal/models"
)

// findBook resolves a row action's id against the currently rendered page.
func (v *listingView) findBook(id string) (models.Book, bool) {
	for _, b := range v.Books {
		if b.ID == id {
			return b, true
		}
	}
	return models.Book{}, false
}

// handleEditCallback opens the book form in edit mode, pre-filled from the
// selected row.
func (b *Bot) handleEditCallback(query *tgbotapi.CallbackQuery, id string) {
	view, ok := b.listings[query.From.ID]
	if !ok {
		return
	}
	book, ok := view.findBook(id)
	if !ok {
		msg := tgbotapi.NewMessage(query.Message.Chat.ID, "That book is no longer on this page. Use /books to refresh.")
		b.sendMessage(msg)
		return
	}
	b.startBookForm(query.From.ID, query.Message.Chat.ID, "edit", &book)
}

// handleDuplicateCallback opens the book form in duplicate mode: every
// field pre-filled, identity stripped at submit so the server assigns a
// new id.
func (b *Bot) handleDuplicateCallback(query *tgbotapi.CallbackQuery, id string) {
	view, ok := b.listings[query.From.ID]
	if !ok {
		return
	}
	book, ok := view.findBook(id)
	if !ok {
		msg := tgbotapi.NewMessage(query.Message.Chat.ID, "That book is no longer on this page. Use /books to refresh.")
		b.sendMessage(msg)
		return
	}
	b.startBookForm(query.From.ID, query.Message.Chat.ID, "duplicate", &book)
}

// handleDeleteCallback deletes a single book and refreshes the listing.
func (b *Bot) handleDeleteCallback(ctx context.Context, query *tgbotapi.CallbackQuery, id string) {
	view, ok := b.listings[query.From.ID]
	if !ok {
		return
	}

	if err := b.store.DeleteBook(ctx, id); err != nil {
		b.logger.Error("Failed to delete book",
			zap.Error(err),
			zap.String("book_id", id),
			zap.Int64("user_id", query.From.ID),
		)
		msg := tgbotapi.NewMessage(query.Message.Chat.ID, fmt.Sprintf("Error deleting book: %v", err))
		b.sendMessage(msg)
		return
	}

	delete(view.Selected, id)
	view.ChatID = query.Message.Chat.ID
	b.renderListing(ctx, query.From.ID, view)
}

// handleSaleCallback opens the sale form for the selected row.
func (b *Bot) handleSaleCallback(query *tgbotapi.CallbackQuery, id string) {
	view, ok := b.listings[query.From.ID]
	if !ok {
		return
	}
	book, ok := view.findBook(id)
	if !ok {
		msg := tgbotapi.NewMessage(query.Message.Chat.ID, "That book is no longer on this page. Use /books to refresh.")
		b.sendMessage(msg)
		return
	}
	if book.Quantity < 1 {
		msg := tgbotapi.NewMessage(query.Message.Chat.ID, "No stock on hand for this book.")
		b.sendMessage(msg)
		return
	}
	b.startSaleForm(query.From.ID, query.Message.Chat.ID, book)
}

// handleSelectCallback toggles a row in the batch-delete selection.
func (b *Bot) handleSelectCallback(ctx context.Context, query *tgbotapi.CallbackQuery, id string) {
	view, ok := b.listings[query.From.ID]
	if !ok {
		return
	}

	if view.Selected[id] {
		delete(view.Selected, id)
	} else {
		view.Selected[id] = true
	}

	view.ChatID = query.Message.Chat.ID
	b.renderListing(ctx, query.From.ID, view)
}

// handleDeleteSelectedCallback submits the batch delete for every selected
// id. On success the selection is cleared: leaving ids of deleted rows
// selected would poison the next batch request.
func (b *Bot) handleDeleteSelectedCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	view, ok := b.listings[query.From.ID]
	if !ok || len(view.Selected) == 0 {
		msg := tgbotapi.NewMessage(query.Message.Chat.ID, "Nothing selected. Toggle rows with the ☐ buttons first.")
		b.sendMessage(msg)
		return
	}

	ids := make([]string, 0, len(view.Selected))
	for id := range view.Selected {
		ids = append(ids, id)
	}

	if err := b.store.DeleteBooks(ctx, ids); err != nil {
		b.logger.Error("Failed to delete selected books",
			zap.Error(err),
			zap.Int("count", len(ids)),
			zap.Int64("user_id", query.From.ID),
		)
		msg := tgbotapi.NewMessage(query.Message.Chat.ID, fmt.Sprintf("Error deleting books: %v", err))
		b.sendMessage(msg)
		return
	}

	view.Selected = make(map[string]bool)
	msg := tgbotapi.NewMessage(query.Message.Chat.ID, fmt.Sprintf("✅ Deleted %d books", len(ids)))
	b.sendMessage(msg)

	view.ChatID = query.Message.Chat.ID
	b.renderListing(ctx, query.From.ID, view)
}

// handlePageCallback moves the listing one page, never outside
// [1, totalPage].
func (b *Bot) handlePageCallback(ctx context.Context, query *tgbotapi.CallbackQuery, direction string) {
	view, ok := b.listings[query.From.ID]
	if !ok {
		return
	}

	page := view.Query.Page
	switch direction {
	case "prev":
		page--
	case "next":
		page++
	}
	if page < 1 || page > view.Meta.TotalPage {
		return
	}

	view.Query.Page = page
	view.ChatID = query.Message.Chat.ID
	b.renderListing(ctx, query.From.ID, view)
}

// handleFormatCallback sets the format from the book form's keyboard and
// advances to the next field.
func (b *Bot) handleFormatCallback(query *tgbotapi.CallbackQuery, state *ConversationState, value string) {
	if state.Command != "book_form" || state.Step != stepFormat {
		return
	}
	draft := state.Data["draft"].(*models.Book)
	draft.Format = models.BookFormat(value)
	state.Step = stepPageCount
	b.promptBookStep(query.Message.Chat.ID, state)
}

// handleGenreCallback toggles the soft-delete flag on one genre entry in
// the book form draft.
func (b *Bot) handleGenreCallback(query *tgbotapi.CallbackQuery, state *ConversationState, value string) {
	if state.Command != "book_form" || state.Step != stepGenres {
		return
	}
	idx, err := strconv.Atoi(value)
	if err != nil {
		return
	}
	draft := state.Data["draft"].(*models.Book)
	if idx < 0 || idx >= len(draft.Genres) {
		return
	}
	draft.Genres[idx].IsDeleted = !draft.Genres[idx].IsDeleted
	b.promptBookStep(query.Message.Chat.ID, state)
}

// handleSalesPeriodCallback changes the report granularity and resets to
// the first page.
func (b *Bot) handleSalesPeriodCallback(ctx context.Context, query *tgbotapi.CallbackQuery, period string) {
	view, ok := b.sales[query.From.ID]
	if !ok {
		return
	}
	view.Query.Period = period
	view.Query.Page = 1
	view.ChatID = query.Message.Chat.ID
	b.renderSales(ctx, query.From.ID, view)
}

// handleSalesSortCallback changes the sort field.
func (b *Bot) handleSalesSortCallback(ctx context.Context, query *tgbotapi.CallbackQuery, field string) {
	view, ok := b.sales[query.From.ID]
	if !ok {
		return
	}
	view.Query.SortBy = field
	view.ChatID = query.Message.Chat.ID
	b.renderSales(ctx, query.From.ID, view)
}

// handleSalesOrderCallback flips the sort direction.
func (b *Bot) handleSalesOrderCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	view, ok := b.sales[query.From.ID]
	if !ok {
		return
	}
	if view.Query.SortOrder == "asc" {
		view.Query.SortOrder = "desc"
	} else {
		view.Query.SortOrder = "asc"
	}
	view.ChatID = query.Message.Chat.ID
	b.renderSales(ctx, query.From.ID, view)
}

// handleSalesPageCallback moves the report one page, never outside
// [1, totalPage].
func (b *Bot) handleSalesPageCallback(ctx context.Context, query *tgbotapi.CallbackQuery, direction string) {
	view, ok := b.sales[query.From.ID]
	if !ok {
		return
	}

	page := view.Query.Page
	switch direction {
	case "prev":
		page--
	case "next":
		page++
	}
	if page < 1 || page > view.Meta.TotalPage {
		return
	}

	view.Query.Page = page
	view.ChatID = query.Message.Chat.ID
	b.renderSales(ctx, query.From.ID, view)
}

// trimPrefix splits callback data of the form "prefix:value".
func trimPrefix(data, prefix string) (string, bool) {
	return strings.CutPrefix(data, prefix+":")
}
