package source

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/phish-quarantine/internal/core"
	"go.uber.org/zap"
)

// SMTPSource accepts messages pushed over SMTP instead of polling a
// capture API. Delivered messages land in a bounded buffer that Fetch
// drains; when the buffer is full new messages are dropped with a warning
// rather than blocking the SMTP session.
type SMTPSource struct {
	listenAddr string
	domain     string
	server     *smtp.Server
	buffer     chan core.EmailRecord
	logger     *zap.Logger
}

// NewSMTPSource creates an SMTP listener source
func NewSMTPSource(listenAddr, domain string, bufferSize int, logger *zap.Logger) *SMTPSource {
	return &SMTPSource{
		listenAddr: listenAddr,
		domain:     domain,
		buffer:     make(chan core.EmailRecord, bufferSize),
		logger:     logger,
	}
}

// Start starts the SMTP server
func (s *SMTPSource) Start() error {
	s.server = smtp.NewServer(&smtpBackend{source: s})

	s.server.Addr = s.listenAddr
	s.server.Domain = s.domain
	s.server.ReadTimeout = 30 * time.Second
	s.server.WriteTimeout = 30 * time.Second
	s.server.MaxMessageBytes = 30 * 1024 * 1024 // 30MB
	s.server.MaxRecipients = 50
	s.server.AllowInsecureAuth = true

	s.logger.Info("SMTP capture source starting", zap.String("address", s.listenAddr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				s.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the SMTP server
func (s *SMTPSource) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// Fetch drains the messages accepted since the previous call. It never
// blocks waiting for new mail.
func (s *SMTPSource) Fetch(ctx context.Context) ([]core.EmailRecord, error) {
	records := make([]core.EmailRecord, 0)
	for {
		select {
		case record := <-s.buffer:
			records = append(records, record)
		case <-ctx.Done():
			return records, nil
		default:
			return records, nil
		}
	}
}

// accept queues a delivered message, dropping it when the buffer is full
func (s *SMTPSource) accept(record core.EmailRecord) {
	select {
	case s.buffer <- record:
	default:
		s.logger.Warn("SMTP buffer full, dropping message",
			zap.String("source_id", record.SourceID),
			zap.String("sender", record.Sender))
	}
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	source *SMTPSource
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{
		source:     b.source,
		recipients: make([]string, 0),
	}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	source     *SMTPSource
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = make([]string, 0)
}

// AuthPlain handles PLAIN authentication (not needed for a capture source)
func (s *smtpSession) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data reads the message and queues it for the next Fetch. Parse failures
// reject only this message; the session stays usable.
func (s *smtpSession) Data(r io.Reader) error {
	rawData, err := io.ReadAll(r)
	if err != nil {
		s.source.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(rawData))
	if err != nil {
		s.source.logger.Warn("Rejecting unparseable message",
			zap.String("sender", s.sender),
			zap.Error(err))
		return err
	}

	body, err := extractTextFromMessage(msg)
	if err != nil {
		s.source.logger.Warn("Failed to extract text content, using empty body",
			zap.String("sender", s.sender),
			zap.Error(err))
		body = ""
	}

	sourceID := strings.Trim(msg.Header.Get("Message-Id"), "<>")
	if sourceID == "" {
		// No Message-Id header: derive a stable id from the raw content
		sum := sha256.Sum256(rawData)
		sourceID = hex.EncodeToString(sum[:16])
	}

	recipient := ""
	if len(s.recipients) > 0 {
		recipient = s.recipients[0]
	}

	s.source.accept(core.EmailRecord{
		SourceID:  sourceID,
		Sender:    s.sender,
		Recipient: recipient,
		Subject:   msg.Header.Get("Subject"),
		Body:      body,
		Timestamp: time.Now(),
	})

	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
