// Package mail renders the embedded mail templates and delivers them over SMTP.
package mail

import (
	"context"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/sngm3741/delicious-stores/api/internal/directory/application"
)

const defaultFrom = "Dang Delicious <noreply@delicious.com>"

// Config is the SMTP connection used for outbound mail.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer implements application.Mailer.
type Mailer struct {
	from     string
	sender   Sender
	renderer *Renderer
	logger   *zap.Logger
}

// New returns a mailer dialing cfg.Host on every send.
func New(cfg Config, renderer *Renderer, logger *zap.Logger) *Mailer {
	return NewWithSender(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From, renderer, logger)
}

func NewWithSender(sender Sender, from string, renderer *Renderer, logger *zap.Logger) *Mailer {
	if from == "" {
		from = defaultFrom
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{from: from, sender: sender, renderer: renderer, logger: logger}
}

func (m *Mailer) Send(ctx context.Context, msg application.MailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	html, text, err := m.renderer.Render(msg.Template, msg.Data)
	if err != nil {
		return err
	}

	message := gomail.NewMessage()
	message.SetHeader("From", m.from)
	message.SetHeader("To", msg.To)
	message.SetHeader("Subject", msg.Subject)
	message.SetBody("text/plain", text)
	message.AddAlternative("text/html", html)

	if err := m.sender.DialAndSend(message); err != nil {
		m.logger.Error("mail delivery failed", zap.String("template", msg.Template), zap.String("to", msg.To), zap.Error(err))
		return err
	}
	m.logger.Info("mail sent", zap.String("template", msg.Template), zap.String("to", msg.To))
	return nil
}

// LogMailer renders templates and logs them instead of sending. Used when no SMTP host is configured.
type LogMailer struct {
	renderer *Renderer
	logger   *zap.Logger
}

func NewLogMailer(renderer *Renderer, logger *zap.Logger) *LogMailer {
	return &LogMailer{renderer: renderer, logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg application.MailMessage) error {
	_, text, err := m.renderer.Render(msg.Template, msg.Data)
	if err != nil {
		return err
	}
	m.logger.Info("mail not sent, SMTP disabled",
		zap.String("template", msg.Template),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	// bodies carry live reset links
	m.logger.Debug("unsent mail body", zap.String("to", msg.To), zap.String("body", text))
	return nil
}
