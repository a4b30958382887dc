package alert

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/safeguard/internal/models"
)

func sampleAlert() models.Alert {
	return models.Alert{
		TeacherEmail:       "rivera@school.test",
		StudentDisplayName: "Sam",
		RoomName:           "Period 3 Biology",
		ConcernType:        "self_harm_language",
		ConcernLevel:       4,
		MessageExcerpt:     "I want to hurt myself.",
		ReviewURL:          "https://school.test/teacher/concerns/abc-123",
	}
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", Excerpt("  short  "))

	long := strings.Repeat("é", MaxExcerptRunes+50)
	got := Excerpt(long)
	assert.Equal(t, MaxExcerptRunes+1, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))

	exact := strings.Repeat("a", MaxExcerptRunes)
	assert.Equal(t, exact, Excerpt(exact))
}

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func TestTelegramDispatcherSend(t *testing.T) {
	fake := &fakeSender{}
	d := &TelegramDispatcher{api: fake, chatID: 42, logger: zap.NewNop()}

	require.True(t, d.Send(context.Background(), sampleAlert()))
	require.Len(t, fake.sent, 1)

	msg, ok := fake.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, msg.ParseMode)
	assert.Contains(t, msg.Text, `self\_harm\_language`)
	assert.Contains(t, msg.Text, `https://school\.test/teacher/concerns/abc\-123`)
}

func TestTelegramDispatcherFailure(t *testing.T) {
	fake := &fakeSender{err: errors.New("chat not found")}
	d := &TelegramDispatcher{api: fake, chatID: 42, logger: zap.NewNop()}

	assert.False(t, d.Send(context.Background(), sampleAlert()))
}

func TestTelegramDispatcherCancelledContext(t *testing.T) {
	fake := &fakeSender{}
	d := &TelegramDispatcher{api: fake, chatID: 42, logger: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, d.Send(ctx, sampleAlert()))
	assert.Empty(t, fake.sent)
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `a\_b\*c\.d\!`, escapeMarkdown("a_b*c.d!"))
	assert.Equal(t, `back\\slash`, escapeMarkdown(`back\slash`))
}

func TestSMTPDispatcherSend(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	d := NewSMTPDispatcher(SMTPConfig{Host: "mail.school.test", Port: 587, From: "safety@school.test"}, zap.NewNop())
	d.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	require.True(t, d.Send(context.Background(), sampleAlert()))
	assert.Equal(t, "mail.school.test:587", gotAddr)
	assert.Equal(t, []string{"rivera@school.test"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Student safety concern (level 4): self_harm_language\r\n")
	assert.Contains(t, gotMsg, "Student: Sam\r\n")
	assert.Contains(t, gotMsg, "https://school.test/teacher/concerns/abc-123")
}

func TestSMTPDispatcherFailures(t *testing.T) {
	d := NewSMTPDispatcher(SMTPConfig{Host: "mail.school.test", Port: 25}, zap.NewNop())
	d.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("550 mailbox unavailable")
	}

	assert.False(t, d.Send(context.Background(), sampleAlert()))

	noRecipient := sampleAlert()
	noRecipient.TeacherEmail = ""
	assert.False(t, d.Send(context.Background(), noRecipient))
}

func TestLogDispatcher(t *testing.T) {
	assert.True(t, NewLogDispatcher(zap.NewNop()).Send(context.Background(), sampleAlert()))
}
