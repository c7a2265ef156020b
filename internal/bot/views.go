package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// listingPageSize keeps listing pages short enough for one chat message.
const listingPageSize = 5

// renderListing fetches the current listing page and sends it with the
// per-row action keyboard.
func (b *Bot) renderListing(ctx context.Context, userID int64, view *listingView) {
	books, meta, err := b.store.GetBooks(ctx, view.Query)
	if err != nil {
		b.logger.Error("Failed to fetch books",
			zap.Error(err),
			zap.Int64("user_id", userID),
		)
		msg := tgbotapi.NewMessage(view.ChatID, fmt.Sprintf("Error: %v", err))
		b.sendMessage(msg)
		return
	}
	view.Books = books
	view.Meta = meta

	// Drop selected ids that fell off the current page's result set but
	// no longer exist anywhere; stale ids pointing at deleted books must
	// not survive in the selection.
	if len(books) == 0 && meta.Total == 0 {
		view.Selected = make(map[string]bool)
	}

	var text strings.Builder
	if view.Query.SearchTerm != "" {
		text.WriteString(fmt.Sprintf("📚 Inventory — search %q\n", view.Query.SearchTerm))
	} else {
		text.WriteString("📚 Inventory\n")
	}
	text.WriteString(fmt.Sprintf("Page %d of %d (%d books)\n\n", meta.Page, meta.TotalPage, meta.Total))

	if len(books) == 0 {
		text.WriteString("No books found.")
	}
	for i, book := range books {
		text.WriteString(formatBookLine(i, book, view.Selected[book.ID]))
		text.WriteString("\n")
	}

	msg := tgbotapi.NewMessage(view.ChatID, text.String())
	msg.ReplyMarkup = b.listingKeyboard(view)
	b.sendMessage(msg)
}

// listingKeyboard builds one action row per book plus navigation and the
// batch-delete row when a selection exists.
func (b *Bot) listingKeyboard(view *listingView) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	for i, book := range view.Books {
		n := i + 1
		selLabel := fmt.Sprintf("☐ %d", n)
		if view.Selected[book.ID] {
			selLabel = fmt.Sprintf("☑ %d", n)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✏️ %d", n), "edit:"+book.ID),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("📋 %d", n), "dup:"+book.ID),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 %d", n), "del:"+book.ID),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("💰 %d", n), "sale:"+book.ID),
			tgbotapi.NewInlineKeyboardButtonData(selLabel, "sel:"+book.ID),
		))
	}

	nav := []tgbotapi.InlineKeyboardButton{}
	if view.Meta.Page > 1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Prev", "page:prev"))
	}
	if view.Meta.Page < view.Meta.TotalPage {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", "page:next"))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	if n := len(view.Selected); n > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("🗑 Delete selected (%d)", n), "delsel"),
		))
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// renderSales fetches the current sales history page and sends it with
// the period/sort/paging controls.
func (b *Bot) renderSales(ctx context.Context, userID int64, view *salesView) {
	buckets, meta, err := b.store.GetSaleHistory(ctx, view.Query)
	if err != nil {
		b.logger.Error("Failed to fetch sale history",
			zap.Error(err),
			zap.Int64("user_id", userID),
		)
		msg := tgbotapi.NewMessage(view.ChatID, fmt.Sprintf("Error: %v", err))
		b.sendMessage(msg)
		return
	}
	view.Meta = meta

	var text strings.Builder
	text.WriteString("📊 Sales History\n")
	text.WriteString(fmt.Sprintf("Period: %s · Sort: %s %s\n", view.Query.Period, view.Query.SortBy, view.Query.SortOrder))
	text.WriteString(fmt.Sprintf("Page %d of %d (%d buckets)\n\n", meta.Page, meta.TotalPage, meta.Total))

	if len(buckets) == 0 {
		text.WriteString("No sales data available.")
	}
	for _, row := range buckets {
		text.WriteString(fmt.Sprintf("%s — $%.2f, %d sold\n", row.ID, row.TotalPrice, row.TotalBookSold))
	}

	msg := tgbotapi.NewMessage(view.ChatID, text.String())
	msg.ReplyMarkup = b.salesKeyboard(view)
	b.sendMessage(msg)
}

func (b *Bot) salesKeyboard(view *salesView) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Day", "speriod:dayOfMonth"),
			tgbotapi.NewInlineKeyboardButtonData("Week", "speriod:week"),
			tgbotapi.NewInlineKeyboardButtonData("Month", "speriod:month"),
			tgbotapi.NewInlineKeyboardButtonData("Year", "speriod:year"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Sort: period", "ssort:_id"),
			tgbotapi.NewInlineKeyboardButtonData("Sort: revenue", "ssort:totalPrice"),
			tgbotapi.NewInlineKeyboardButtonData("Sort: units", "ssort:totalBookSold"),
		),
	}

	order := tgbotapi.NewInlineKeyboardButtonData("↓ Desc", "sorder")
	if view.Query.SortOrder == "asc" {
		order = tgbotapi.NewInlineKeyboardButtonData("↑ Asc", "sorder")
	}
	nav := []tgbotapi.InlineKeyboardButton{order}
	if view.Meta.Page > 1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Prev", "spage:prev"))
	}
	if view.Meta.Page < view.Meta.TotalPage {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", "spage:next"))
	}
	rows = append(rows, nav)

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
