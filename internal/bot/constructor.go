package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookstore/internal/store"
)

// NewBot creates a new Telegram bot over the given bookstore API client.
func NewBot(token string, st store.Store, allowedUserIDs []int64, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	allowedUsers := make(map[int64]bool)
	for _, id := range allowedUserIDs {
		allowedUsers[id] = true
	}

	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))

	return &Bot{
		api:          api,
		store:        st,
		allowedUsers: allowedUsers,
		states:       make(map[int64]*ConversationState),
		sessions:     make(map[int64]*Session),
		listings:     make(map[int64]*listingView),
		sales:        make(map[int64]*salesView),
		logger:       logger,
	}, nil
}
