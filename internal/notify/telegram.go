package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramSink sends notifications to the user's Telegram chat.
// Users without a linked chat are skipped silently.
type TelegramSink struct {
	sender  messageSender
	users   Directory
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewTelegramSink wraps a bot. Outgoing messages are throttled below the
// Bot API global limit of 30 messages per second.
func NewTelegramSink(b *bot.Bot, users Directory, logger *zap.Logger) *TelegramSink {
	return newTelegramSink(b, users, logger)
}

func newTelegramSink(sender messageSender, users Directory, logger *zap.Logger) *TelegramSink {
	return &TelegramSink{
		sender:  sender,
		users:   users,
		limiter: rate.NewLimiter(rate.Limit(25), 5),
		logger:  logger,
	}
}

func (s *TelegramSink) Notify(ctx context.Context, userID int64, title, message string) error {
	user, err := lookup(ctx, s.users, userID)
	if err != nil {
		return fmt.Errorf("telegram notify %d: %w", userID, err)
	}

	if user.TelegramChatID == nil {
		s.logger.Debug("User has no telegram chat, skipping", zap.Int64("user_id", userID))
		return nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram notify %d: %w", userID, err)
	}

	_, err = s.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *user.TelegramChatID,
		Text:   fmt.Sprintf("%s\n\n%s", title, message),
	})
	if err != nil {
		return fmt.Errorf("telegram notify %d: %w", userID, err)
	}

	return nil
}
