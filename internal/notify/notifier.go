package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/firewatch/firewatch/internal/database/models"
	"github.com/firewatch/firewatch/pkg/config"
	"github.com/firewatch/firewatch/pkg/crypto"
	"gorm.io/gorm"
)

// Sender is the notification transport the dispatcher talks to. It is a
// black box: implementations decide the wire; callers bound the call with
// the context deadline.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender delivers mail over plain SMTP with optional auth.
type SMTPSender struct {
	addr     string
	from     string
	auth     smtp.Auth
	hostname string
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	s := &SMTPSender{
		addr:     fmt.Sprintf("%s:%d", host, port),
		from:     from,
		hostname: host,
	}
	if username != "" {
		s.auth = smtp.PlainAuth("", username, password, host)
	}
	return s
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := []byte("From: " + s.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")

	// smtp.SendMail has no context plumbing; run it in a goroutine and
	// honor the deadline ourselves so one slow relay cannot stall a batch.
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(s.addr, s.auth, s.from, []string{to}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("sending mail to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogSender drops messages into the log. Used in development when no SMTP
// relay is reachable.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.Logger.Info("notification (log transport)", "to", to, "subject", subject)
	return nil
}

// FromSettings builds the sender from the stored notification setting,
// decrypting the SMTP password with the shared encryptor. Falls back to
// the static config when no setting row exists.
func FromSettings(db *gorm.DB, encryptor *crypto.Encryptor, cfg *config.SMTPConfig) (Sender, error) {
	var setting models.NotificationSetting
	err := db.Order("updated_at DESC").First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewSMTPSender(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.From), nil
		}
		return nil, fmt.Errorf("loading notification settings: %w", err)
	}

	password := ""
	if setting.SMTPPasswordEnc != "" {
		password, err = encryptor.DecryptString(setting.SMTPPasswordEnc)
		if err != nil {
			return nil, fmt.Errorf("decrypting smtp password: %w", err)
		}
	}

	return NewSMTPSender(setting.SMTPHost, setting.SMTPPort, setting.SMTPUsername, password, setting.FromAddress), nil
}
