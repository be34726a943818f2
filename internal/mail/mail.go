package mail

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	apperrors "github.com/KasraH/persian-ocr-telegram-bot/internal/errors"
)

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Address  string // sender account, also used as From
	Password string
}

// Sender performs a single synchronous SMTP transmission per Send call.
// There is no retry: a failed delivery is terminal for that request.
type Sender struct {
	cfg Config
}

func New(cfg Config) *Sender {
	return &Sender{cfg: cfg}
}

// Send transmits one plain-text email over implicit TLS (smtps, port 465
// semantics). It returns a delivery error on any local or remote failure.
func (s *Sender) Send(to, subject, body string) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.cfg.Host})
	if err != nil {
		return apperrors.NewDeliveryError("failed to connect to mail server", err)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return apperrors.NewDeliveryError("failed to open mail session", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", s.cfg.Address, s.cfg.Password, s.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return apperrors.NewDeliveryError("mail authentication failed", err)
	}

	if err := client.Mail(s.cfg.Address); err != nil {
		return apperrors.NewDeliveryError("mail sender rejected", err)
	}
	if err := client.Rcpt(to); err != nil {
		return apperrors.NewDeliveryError("mail recipient rejected", err)
	}

	w, err := client.Data()
	if err != nil {
		return apperrors.NewDeliveryError("failed to start mail body", err)
	}
	if _, err := w.Write(buildMessage(s.cfg.Address, to, subject, body)); err != nil {
		w.Close()
		return apperrors.NewDeliveryError("failed to write mail body", err)
	}
	if err := w.Close(); err != nil {
		return apperrors.NewDeliveryError("failed to finish mail body", err)
	}

	return client.Quit()
}

func buildMessage(from, to, subject, body string) []byte {
	var msg bytes.Buffer
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return msg.Bytes()
}
