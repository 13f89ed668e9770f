package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"net/url"
	"strconv"
	"strings"
)

// SMTPConfig holds the outbound server settings and the link base for reset emails.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	ResetURL string
}

// SMTPSender delivers account emails through a plain SMTP relay.
type SMTPSender struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, send: smtp.SendMail}
}

func (s *SMTPSender) SendRegistrationEmail(ctx context.Context, address, username string) error {
	body := fmt.Sprintf("Hi %s,\r\n\r\nyour account is ready. Have fun playing!\r\n", username)
	return s.deliver(ctx, address, "Welcome to the quiz", body)
}

func (s *SMTPSender) SendPasswordResetEmail(ctx context.Context, address, token string) error {
	body := fmt.Sprintf("Use the link below to choose a new password:\r\n\r\n%s\r\n\r\nIf you did not ask for this, ignore this email.\r\n",
		resetLink(s.cfg.ResetURL, token))
	return s.deliver(ctx, address, "Reset your password", body)
}

func (s *SMTPSender) deliver(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	if err := s.send(addr, auth, s.cfg.From, []string{to}, message(s.cfg.From, to, subject, body)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func message(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func resetLink(base, token string) string {
	if base == "" {
		return token
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}

// LogSender only logs outgoing emails; used when no SMTP host is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) SendRegistrationEmail(ctx context.Context, address, username string) error {
	s.logger.InfoContext(ctx, "registration email", "to", address, "username", username)
	return nil
}

func (s *LogSender) SendPasswordResetEmail(ctx context.Context, address, token string) error {
	s.logger.InfoContext(ctx, "password reset email", "to", address, "token", maskToken(token))
	return nil
}

// maskToken keeps the last four characters, enough to match a log line to a request.
func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
