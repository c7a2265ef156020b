package bot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookstore/internal/models"
)

// sendMessage sends a message, tolerating a nil API for tests.
func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if b.api == nil {
		return // For testing
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", msg.ChatID),
		)
	}
}

// clampQuantity resolves free-text quantity input against the book's
// on-hand stock: non-numeric input resets to 1, values above max are
// coerced down to max, values below 1 up to 1.
func clampQuantity(text string, max int) int {
	v, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 1
	}
	if v > max {
		return max
	}
	if v < 1 {
		return 1
	}
	return v
}

// formatBookLine renders one listing row. sel marks rows in the current
// multi-delete selection.
func formatBookLine(i int, book models.Book, sel bool) string {
	marker := " "
	if sel {
		marker = "☑"
	}
	var genres []string
	for _, g := range book.ActiveGenres() {
		genres = append(genres, g.Genre)
	}
	return fmt.Sprintf("%s %d. %s — %s\n    $%.2f · %s · %dp · qty %d · %s",
		marker, i+1, book.Name, book.Author,
		book.Price, book.Format, book.PageCount, book.Quantity,
		strings.Join(genres, ", "))
}

// formatFieldErrors renders per-field validation messages, sorted by
// field name for stable output.
func formatFieldErrors(errs map[string]string) string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var text strings.Builder
	text.WriteString("❌ Please fix the following:\n")
	for _, k := range keys {
		text.WriteString(fmt.Sprintf("• %s: %s\n", k, errs[k]))
	}
	return text.String()
}
