package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookstore/internal/models"
	"bookstore/internal/store"
	"bookstore/internal/validator"
)

// handleConversation routes a text message into the user's active
// multi-step conversation.
func (b *Bot) handleConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	userID := message.From.ID

	switch state.Command {
	case "login":
		b.handleLoginConversation(ctx, message, state)
	case "book_form":
		b.handleBookFormConversation(ctx, message, state)
	case "sale":
		b.handleSaleConversation(ctx, message, state)
	case "filter":
		b.handleFilterConversation(ctx, message, state)
	}

	// Clean up completed conversations
	if state.Step == -1 {
		delete(b.states, userID)
	}
}

// handleLoginConversation collects email and password, then logs in and
// stores the session.
func (b *Bot) handleLoginConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	switch state.Step {
	case 1: // Waiting for email
		email := strings.TrimSpace(message.Text)
		if !validator.Matches(email, validator.EmailRX) {
			msg := tgbotapi.NewMessage(message.Chat.ID, "❌ Invalid email address. Please enter your email:")
			b.sendMessage(msg)
			return
		}
		state.Data["email"] = email
		state.Step = 2

		msg := tgbotapi.NewMessage(message.Chat.ID, "Please enter your password:")
		b.sendMessage(msg)

	case 2: // Waiting for password
		email := state.Data["email"].(string)
		password := message.Text

		user, token, err := b.store.Login(ctx, email, password)
		if err != nil {
			b.logger.Warn("Login failed",
				zap.Error(err),
				zap.Int64("user_id", message.From.ID),
			)
			state.Step = 1
			msg := tgbotapi.NewMessage(message.Chat.ID,
				fmt.Sprintf("Login failed: %v\n\nPlease enter your email:", err))
			b.sendMessage(msg)
			return
		}

		b.sessions[message.From.ID] = &Session{User: user, Token: token}
		state.Step = -1

		msg := tgbotapi.NewMessage(message.Chat.ID,
			fmt.Sprintf("✅ Logged in as %s (%s)\n\nUse /books to browse the inventory.", user.Email, user.Role))
		b.sendMessage(msg)
	}
}

// Book form steps, in order.
const (
	stepName = iota + 1
	stepAuthor
	stepPrice
	stepReleaseDate
	stepPublisher
	stepISBN
	stepLanguage
	stepSeries
	stepGenres
	stepFormat
	stepPageCount
	stepQuantity
	stepRetry
)

// startBookForm opens the book form conversation. src pre-fills every
// field for edit and duplicate modes; duplicate keeps the source id only
// for display, it is stripped from the eventual create payload.
func (b *Bot) startBookForm(userID, chatID int64, mode string, src *models.Book) {
	draft := models.Book{
		ReleaseDate: time.Now().Format("2006-01-02"),
		Format:      models.FormatPaperback,
		PageCount:   1,
		Quantity:    1,
	}
	if src != nil {
		draft = *src
		draft.Genres = append([]models.Genre(nil), src.Genres...)
	}

	state := &ConversationState{
		Command: "book_form",
		Step:    stepName,
		Data: map[string]interface{}{
			"mode":    mode,
			"draft":   &draft,
			"chat_id": chatID,
		},
	}
	b.states[userID] = state

	titles := map[string]string{
		"create":    "Creating a new book",
		"edit":      "Editing book",
		"duplicate": "Duplicating book",
	}
	intro := titles[mode] + ". Send \"=\" to keep the shown value."
	msg := tgbotapi.NewMessage(chatID, intro)
	b.sendMessage(msg)

	b.promptBookStep(chatID, state)
}

// promptBookStep asks for the current step's field, showing the draft's
// present value.
func (b *Bot) promptBookStep(chatID int64, state *ConversationState) {
	draft := state.Data["draft"].(*models.Book)

	var msg tgbotapi.MessageConfig
	switch state.Step {
	case stepName:
		msg = tgbotapi.NewMessage(chatID, fmt.Sprintf("Book name [%s]:", draft.Name))
	case stepAuthor:
		msg = tgbotapi.NewMessage(chatID, fmt.Sprintf("Author [%s]:", draft.Author))
	case stepPrice:
		msg = tgbotapi.NewMessage(chatID, fmt.Sprintf("Price [$%.2f]:", draft.Price))
	case stepReleaseDate:
		msg = tgbotapi.NewMessage(chatID, fmt.Sprintf("Release date YYYY-MM-DD, or \"today\" [%s]:", draft.ReleaseDate))
	case stepPublisher:
		msg = tgbotapi.NewMessage(chatID, fmt.Sprintf("Publisher [%s]:", draft.Publisher))
	case stepISBN:
		msg = tgbotapi.NewMessage(chatID, fmt.Sprintf("ISBN, or \"-\" for none [%s]:", draft.ISBN))
	case stepLanguage:
		msg = tgbotapi.NewMessage(chatID, fmt.Sprintf("Language [%s]:", draft.Language))
	case stepSeries:
		msg = tgbotapi.NewMessage(chatID, fmt.Sprintf("Series, or \"-\" for none [%s]:", draft.Series))
	case stepGenres:
		msg = tgbotapi.NewMessage(chatID, genresPrompt(draft))
		if kb := genresKeyboard(draft); len(kb.InlineKeyboard) > 0 {
			msg.ReplyMarkup = kb
		}
	case stepFormat:
		msg = tgbotapi.NewMessage(chatID, fmt.Sprintf("Format [%s]:", draft.Format))
		var row []tgbotapi.InlineKeyboardButton
		for _, f := range models.Formats {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(string(f), "fmt:"+string(f)))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	case stepPageCount:
		msg = tgbotapi.NewMessage(chatID, fmt.Sprintf("Page count [%d]:", draft.PageCount))
	case stepQuantity:
		msg = tgbotapi.NewMessage(chatID, fmt.Sprintf("Quantity on hand [%d]:", draft.Quantity))
	default:
		return
	}
	b.sendMessage(msg)
}

func genresPrompt(draft *models.Book) string {
	var text strings.Builder
	text.WriteString("Genres — send a name to add one, \"done\" when finished.\n")
	for i, g := range draft.Genres {
		mark := "•"
		if g.IsDeleted {
			mark = "✗"
		}
		text.WriteString(fmt.Sprintf("%s %d. %s\n", mark, i+1, g.Genre))
	}
	return text.String()
}

// genresKeyboard offers a toggle button per existing entry so removal is
// marked without re-indexing the list.
func genresKeyboard(draft *models.Book) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var currentRow []tgbotapi.InlineKeyboardButton
	for i, g := range draft.Genres {
		label := fmt.Sprintf("✗ %s", g.Genre)
		if g.IsDeleted {
			label = fmt.Sprintf("↩ %s", g.Genre)
		}
		currentRow = append(currentRow, tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("genre:%d", i)))
		if len(currentRow) == 2 || i == len(draft.Genres)-1 {
			rows = append(rows, currentRow)
			currentRow = []tgbotapi.InlineKeyboardButton{}
		}
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// handleBookFormConversation advances the book form one field at a time,
// validating input as it arrives.
func (b *Bot) handleBookFormConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	draft := state.Data["draft"].(*models.Book)
	text := strings.TrimSpace(message.Text)
	keep := text == "="

	fail := func(reason string) {
		msg := tgbotapi.NewMessage(message.Chat.ID, "❌ "+reason)
		b.sendMessage(msg)
		b.promptBookStep(message.Chat.ID, state)
	}

	switch state.Step {
	case stepName:
		if !keep {
			draft.Name = text
		}
		if draft.Name == "" {
			fail("Book name is required")
			return
		}
	case stepAuthor:
		if !keep {
			draft.Author = text
		}
		if draft.Author == "" {
			fail("Author name is required")
			return
		}
	case stepPrice:
		if !keep {
			price, err := strconv.ParseFloat(text, 64)
			if err != nil || price < 0 {
				fail("Price must be a number >= 0")
				return
			}
			draft.Price = price
		}
	case stepReleaseDate:
		if !keep {
			if strings.EqualFold(text, "today") {
				draft.ReleaseDate = time.Now().Format("2006-01-02")
			} else {
				if _, err := time.Parse("2006-01-02", text); err != nil {
					fail("Invalid date format. Please use YYYY-MM-DD")
					return
				}
				draft.ReleaseDate = text
			}
		}
	case stepPublisher:
		if !keep {
			draft.Publisher = text
		}
		if draft.Publisher == "" {
			fail("Publisher is required")
			return
		}
	case stepISBN:
		if !keep {
			if text == "-" {
				draft.ISBN = ""
			} else {
				draft.ISBN = text
			}
		}
	case stepLanguage:
		if !keep {
			draft.Language = text
		}
		if draft.Language == "" {
			fail("Language is required")
			return
		}
	case stepSeries:
		if !keep {
			if text == "-" {
				draft.Series = ""
			} else {
				draft.Series = text
			}
		}
	case stepGenres:
		if strings.EqualFold(text, "done") {
			if len(draft.ActiveGenres()) == 0 {
				fail("At least one genre is required")
				return
			}
		} else if !keep {
			draft.Genres = append(draft.Genres, models.Genre{Genre: text})
			b.promptBookStep(message.Chat.ID, state)
			return
		}
	case stepFormat:
		if !keep {
			formats := make([]string, len(models.Formats))
			for i, f := range models.Formats {
				formats[i] = string(f)
			}
			format := strings.ToLower(text)
			if !validator.In(format, formats...) {
				fail("Invalid format. Choose hardcover, paperback, e-book or audiobook")
				return
			}
			draft.Format = models.BookFormat(format)
		}
	case stepPageCount:
		if !keep {
			pages, err := strconv.Atoi(text)
			if err != nil || pages < 1 {
				fail("Minimum 1 page required")
				return
			}
			draft.PageCount = pages
		}
	case stepQuantity:
		if !keep {
			qty, err := strconv.Atoi(text)
			if err != nil || qty < 1 {
				fail("Quantity must be a whole number >= 1")
				return
			}
			draft.Quantity = qty
		}
	case stepRetry:
		if !strings.EqualFold(text, "retry") {
			msg := tgbotapi.NewMessage(message.Chat.ID, "Send \"retry\" to resubmit, or any command to abandon the form.")
			b.sendMessage(msg)
			return
		}
		b.submitBookForm(ctx, message.From.ID, message.Chat.ID, state)
		return
	}

	if state.Step == stepQuantity {
		b.submitBookForm(ctx, message.From.ID, message.Chat.ID, state)
		return
	}

	state.Step++
	b.promptBookStep(message.Chat.ID, state)
}

// submitBookForm validates the assembled payload and issues the create or
// update request. Failures keep the form open for another attempt.
func (b *Bot) submitBookForm(ctx context.Context, userID, chatID int64, state *ConversationState) {
	draft := state.Data["draft"].(*models.Book)
	mode := state.Data["mode"].(string)

	payload := draft.Payload(false)
	v := validator.New()
	models.ValidateBook(v, payload)
	if !v.Valid() {
		state.Step = stepGenres
		msg := tgbotapi.NewMessage(chatID, formatFieldErrors(v.Errors))
		b.sendMessage(msg)
		b.promptBookStep(chatID, state)
		return
	}

	var err error
	switch mode {
	case "edit":
		_, err = b.store.UpdateBook(ctx, draft.ID, *draft)
	default: // create and duplicate both create a fresh record
		_, err = b.store.CreateBook(ctx, *draft)
	}
	if err != nil {
		b.logger.Error("Book form submit failed",
			zap.Error(err),
			zap.String("mode", mode),
			zap.Int64("user_id", userID),
		)
		state.Step = stepRetry
		msg := tgbotapi.NewMessage(chatID,
			fmt.Sprintf("Failed to %s book: %v\n\nSend \"retry\" to try again.", mode, err))
		b.sendMessage(msg)
		return
	}

	state.Step = -1
	confirmations := map[string]string{
		"create":    "✅ Book created successfully",
		"edit":      "✅ Book updated successfully",
		"duplicate": "✅ Book duplicated successfully",
	}
	msg := tgbotapi.NewMessage(chatID, confirmations[mode])
	b.sendMessage(msg)

	// Navigate back to the listing, like the modal closing onto the list
	// screen. The mutation invalidated the cache, so this refetches.
	view, ok := b.listings[userID]
	if !ok {
		view = &listingView{
			Query:    store.BookQuery{Page: 1, Limit: listingPageSize},
			Selected: make(map[string]bool),
		}
		b.listings[userID] = view
	}
	view.ChatID = chatID
	b.renderListing(ctx, userID, view)
}

// startSaleForm opens the sale recording conversation for one book.
func (b *Bot) startSaleForm(userID, chatID int64, book models.Book) {
	state := &ConversationState{
		Command: "sale",
		Step:    1,
		Data: map[string]interface{}{
			"draft": &models.Sale{Book: book.ID, Quantity: 1, SaleDate: time.Now()},
			"max":   book.Quantity,
			"name":  book.Name,
		},
	}
	b.states[userID] = state

	msg := tgbotapi.NewMessage(chatID,
		fmt.Sprintf("💰 New sale — %s\n\nQuantity (max %d):", book.Name, book.Quantity))
	b.sendMessage(msg)
}

// handleSaleConversation collects quantity, buyer and date, then records
// the sale.
func (b *Bot) handleSaleConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	draft := state.Data["draft"].(*models.Sale)
	max := state.Data["max"].(int)
	text := strings.TrimSpace(message.Text)

	switch state.Step {
	case 1: // Waiting for quantity; out-of-range input is clamped
		draft.Quantity = clampQuantity(text, max)
		state.Step = 2

		msg := tgbotapi.NewMessage(message.Chat.ID,
			fmt.Sprintf("Quantity: %d\n\nBuyer name:", draft.Quantity))
		b.sendMessage(msg)

	case 2: // Waiting for buyer
		if text == "" {
			msg := tgbotapi.NewMessage(message.Chat.ID, "❌ Buyer name is required. Buyer name:")
			b.sendMessage(msg)
			return
		}
		draft.Buyer = text
		state.Step = 3

		msg := tgbotapi.NewMessage(message.Chat.ID, "Sale date YYYY-MM-DD, or \"now\":")
		b.sendMessage(msg)

	case 3: // Waiting for sale date
		if strings.EqualFold(text, "now") {
			draft.SaleDate = time.Now()
		} else {
			date, err := time.Parse("2006-01-02", text)
			if err != nil {
				msg := tgbotapi.NewMessage(message.Chat.ID, "❌ Invalid date format. Please use YYYY-MM-DD or \"now\"")
				b.sendMessage(msg)
				return
			}
			draft.SaleDate = date
		}

		v := validator.New()
		models.ValidateSale(v, *draft, max)
		if !v.Valid() {
			msg := tgbotapi.NewMessage(message.Chat.ID, formatFieldErrors(v.Errors))
			b.sendMessage(msg)
			state.Step = 1
			msg = tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf("Quantity (max %d):", max))
			b.sendMessage(msg)
			return
		}

		if err := b.store.CreateSale(ctx, *draft); err != nil {
			b.logger.Error("Failed to record sale",
				zap.Error(err),
				zap.String("book_id", draft.Book),
				zap.Int64("user_id", message.From.ID),
			)
			msg := tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf("Error recording sale: %v", err))
			b.sendMessage(msg)
			state.Step = -1
			return
		}

		name := state.Data["name"].(string)
		msg := tgbotapi.NewMessage(message.Chat.ID,
			fmt.Sprintf("✅ Sale recorded!\n\n📚 Book: %s\n🔢 Quantity: %d\n👤 Buyer: %s\n📅 Date: %s",
				name, draft.Quantity, draft.Buyer, draft.SaleDate.Format("2006-01-02")))
		b.sendMessage(msg)

		state.Step = -1
	}
}

// handleFilterConversation collects listing bounds, "-" leaving a field
// unset, then applies them to the listing query. Every bound is written,
// so "-" also clears a bound set by an earlier /filter run.
func (b *Bot) handleFilterConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	text := strings.TrimSpace(message.Text)
	skip := text == "-"

	reprompt := func(reason string) {
		msg := tgbotapi.NewMessage(message.Chat.ID, "❌ "+reason)
		b.sendMessage(msg)
	}

	prompts := []string{
		"", // steps are 1-based
		"Maximum price:",
		"Minimum page count:",
		"Maximum page count:",
		"Release date from (YYYY-MM-DD):",
		"Release date to (YYYY-MM-DD):",
	}

	switch state.Step {
	case 1, 2: // price bounds
		bound := 0.0
		if !skip {
			v, err := strconv.ParseFloat(text, 64)
			if err != nil || v < 0 {
				reprompt("Send a price >= 0, or \"-\" to leave unset")
				return
			}
			bound = v
		}
		if state.Step == 1 {
			state.Data["minPrice"] = bound
		} else {
			state.Data["maxPrice"] = bound
		}
	case 3, 4: // page count bounds
		bound := 0
		if !skip {
			v, err := strconv.Atoi(text)
			if err != nil || v < 1 {
				reprompt("Send a whole number >= 1, or \"-\" to leave unset")
				return
			}
			bound = v
		}
		if state.Step == 3 {
			state.Data["minPageCount"] = bound
		} else {
			state.Data["maxPageCount"] = bound
		}
	case 5, 6: // release date bounds
		bound := ""
		if !skip {
			if _, err := time.Parse("2006-01-02", text); err != nil {
				reprompt("Invalid date format. Use YYYY-MM-DD, or \"-\" to leave unset")
				return
			}
			bound = text
		}
		if state.Step == 5 {
			state.Data["startDate"] = bound
		} else {
			state.Data["endDate"] = bound
		}
	}

	if state.Step < 6 {
		msg := tgbotapi.NewMessage(message.Chat.ID, prompts[state.Step])
		b.sendMessage(msg)
		state.Step++
		return
	}

	// All bounds collected; apply to the listing view and re-render.
	userID := message.From.ID
	view, ok := b.listings[userID]
	if !ok {
		view = &listingView{
			Query:    store.BookQuery{Limit: listingPageSize},
			Selected: make(map[string]bool),
		}
		b.listings[userID] = view
	}
	view.ChatID = message.Chat.ID
	view.Query.Page = 1
	if v, ok := state.Data["minPrice"].(float64); ok {
		view.Query.MinPrice = v
	}
	if v, ok := state.Data["maxPrice"].(float64); ok {
		view.Query.MaxPrice = v
	}
	if v, ok := state.Data["minPageCount"].(int); ok {
		view.Query.MinPageCount = v
	}
	if v, ok := state.Data["maxPageCount"].(int); ok {
		view.Query.MaxPageCount = v
	}
	if v, ok := state.Data["startDate"].(string); ok {
		view.Query.StartDate = v
	}
	if v, ok := state.Data["endDate"].(string); ok {
		view.Query.EndDate = v
	}

	state.Step = -1
	b.renderListing(ctx, userID, view)
}
