package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"zanara/internal/events"
	"zanara/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramNotifier posts rendered notifications to an operations chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger *zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	var notifierLogger zerolog.Logger
	if logger != nil {
		notifierLogger = logger.With().Str("component", "telegram-notifier").Logger()
	}

	return &TelegramNotifier{bot: bot, chatID: chatID, logger: notifierLogger}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, task *models.NotifyTask) error {
	text := renderTask(task)
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram notification: %w", err)
	}
	n.logger.Debug().Str("task_type", task.TaskType).Int64("recipient_id", task.RecipientID).Msg("notification delivered")
	return nil
}

func renderTask(task *models.NotifyTask) string {
	switch task.TaskType {
	case events.EventConnectionRequested:
		return fmt.Sprintf("New connection request #%d for user %d", task.EntityID, task.RecipientID)
	case events.EventConnectionAccepted:
		return fmt.Sprintf("Connection request #%d accepted; notify user %d", task.EntityID, task.RecipientID)
	case events.EventConnectionRemoved:
		return fmt.Sprintf("Connection #%d removed; notify user %d", task.EntityID, task.RecipientID)
	case events.EventBookingCreated:
		if ref := bookingReference(task.Payload); ref != "" {
			return fmt.Sprintf("New booking %s for user %d", ref, task.RecipientID)
		}
		return fmt.Sprintf("New booking #%d for user %d", task.EntityID, task.RecipientID)
	case events.EventBookingStatusChanged:
		var b models.Booking
		if err := json.Unmarshal([]byte(task.Payload), &b); err == nil && b.Reference != "" {
			return fmt.Sprintf("Booking %s is now %s; notify user %d", b.Reference, b.Status, task.RecipientID)
		}
		return fmt.Sprintf("Booking #%d status changed; notify user %d", task.EntityID, task.RecipientID)
	case events.EventBookingMessage:
		return fmt.Sprintf("New message on booking #%d for user %d", task.EntityID, task.RecipientID)
	}
	return fmt.Sprintf("%s #%d for user %d", task.TaskType, task.EntityID, task.RecipientID)
}

func bookingReference(payload string) string {
	var b models.Booking
	if err := json.Unmarshal([]byte(payload), &b); err != nil {
		return ""
	}
	return b.Reference
}

// LogNotifier writes notifications to the log only. Used when the Telegram
// channel is disabled in config.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	var l zerolog.Logger
	if logger != nil {
		l = logger.With().Str("component", "log-notifier").Logger()
	}
	return &LogNotifier{logger: l}
}

func (n *LogNotifier) Notify(ctx context.Context, task *models.NotifyTask) error {
	n.logger.Info().
		Str("task_type", task.TaskType).
		Int64("entity_id", task.EntityID).
		Int64("recipient_id", task.RecipientID).
		Msg(renderTask(task))
	return nil
}
