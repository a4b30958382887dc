package alert

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/safeguard/internal/models"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramDispatcher posts alerts to a moderation chat.
type TelegramDispatcher struct {
	api    sender
	chatID int64
	logger *zap.Logger
}

func NewTelegramDispatcher(token string, chatID int64, logger *zap.Logger) (*TelegramDispatcher, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Telegram alerts enabled",
		zap.String("bot", api.Self.UserName),
		zap.Int64("chat_id", chatID))

	return &TelegramDispatcher{api: api, chatID: chatID, logger: logger}, nil
}

func (d *TelegramDispatcher) Send(ctx context.Context, a models.Alert) bool {
	if err := ctx.Err(); err != nil {
		d.logger.Error("Alert not sent", zap.Error(err), zap.String("review_url", a.ReviewURL))
		return false
	}

	msg := tgbotapi.NewMessage(d.chatID, formatTelegram(a))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	if _, err := d.api.Send(msg); err != nil {
		d.logger.Error("Failed to send alert",
			zap.Error(err),
			zap.Int64("chat_id", d.chatID),
			zap.String("teacher_email", a.TeacherEmail),
			zap.String("review_url", a.ReviewURL))
		return false
	}
	return true
}

func formatTelegram(a models.Alert) string {
	var sb strings.Builder
	sb.WriteString("🚨 *" + escapeMarkdown(subject(a)) + "*\n\n")
	sb.WriteString("*Teacher:* " + escapeMarkdown(a.TeacherEmail) + "\n")
	sb.WriteString("*Student:* " + escapeMarkdown(a.StudentDisplayName) + "\n")
	sb.WriteString("*Room:* " + escapeMarkdown(a.RoomName) + "\n\n")
	sb.WriteString(">" + escapeMarkdown(a.MessageExcerpt) + "\n\n")
	sb.WriteString(escapeMarkdown(a.ReviewURL))
	return sb.String()
}

// escapeMarkdown escapes the MarkdownV2 reserved characters.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}
