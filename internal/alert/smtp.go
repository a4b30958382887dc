package alert

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/safeguard/internal/models"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPDispatcher emails the alert to the teacher.
type SMTPDispatcher struct {
	config   SMTPConfig
	auth     smtp.Auth
	sendMail sendMailFunc
	logger   *zap.Logger
}

func NewSMTPDispatcher(config SMTPConfig, logger *zap.Logger) *SMTPDispatcher {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &SMTPDispatcher{
		config:   config,
		auth:     auth,
		sendMail: smtp.SendMail,
		logger:   logger,
	}
}

func (d *SMTPDispatcher) Send(ctx context.Context, a models.Alert) bool {
	if a.TeacherEmail == "" {
		d.logger.Error("Alert has no recipient", zap.String("review_url", a.ReviewURL))
		return false
	}
	if err := ctx.Err(); err != nil {
		d.logger.Error("Alert not sent", zap.Error(err), zap.String("review_url", a.ReviewURL))
		return false
	}

	addr := net.JoinHostPort(d.config.Host, strconv.Itoa(d.config.Port))
	if err := d.sendMail(addr, d.auth, d.config.From, []string{a.TeacherEmail}, buildEmail(d.config.From, a)); err != nil {
		d.logger.Error("Failed to send alert email",
			zap.Error(err),
			zap.String("smtp_addr", addr),
			zap.String("teacher_email", a.TeacherEmail))
		return false
	}
	return true
}

func buildEmail(from string, a models.Alert) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", a.TeacherEmail)
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject(a))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	sb.WriteString(strings.ReplaceAll(plainBody(a), "\n", "\r\n"))
	return []byte(sb.String())
}
