package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mikey/phish-quarantine/internal/core"
	"go.uber.org/zap"
)

// MailHogSource fetches captured messages from a MailHog API v2 endpoint
type MailHogSource struct {
	baseURL string
	limit   int
	client  *http.Client
	logger  *zap.Logger
}

// NewMailHogSource creates a MailHog capture source. limit bounds the page
// size of each fetch and timeout bounds the whole HTTP call.
func NewMailHogSource(host string, port int, limit int, timeout time.Duration, logger *zap.Logger) *MailHogSource {
	return &MailHogSource{
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
		limit:   limit,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// mailhogPath is a structured mailbox/domain pair from the MailHog API
type mailhogPath struct {
	Mailbox string `json:"Mailbox"`
	Domain  string `json:"Domain"`
}

func (p *mailhogPath) address() string {
	if p == nil || (p.Mailbox == "" && p.Domain == "") {
		return ""
	}
	return p.Mailbox + "@" + p.Domain
}

// mailhogMessage mirrors the relevant fields of a MailHog API v2 message
type mailhogMessage struct {
	ID      string         `json:"ID"`
	From    *mailhogPath   `json:"From"`
	To      []*mailhogPath `json:"To"`
	Content struct {
		Headers map[string][]string `json:"Headers"`
		Body    string              `json:"Body"`
	} `json:"Content"`
}

type mailhogResponse struct {
	Messages []json.RawMessage `json:"messages"`
}

// Fetch retrieves the newest captured messages. A malformed message is
// skipped and logged; it never fails the batch. Transport and non-success
// failures surface as ErrSourceUnavailable for the ingestor to absorb.
func (s *MailHogSource) Fetch(ctx context.Context) ([]core.EmailRecord, error) {
	url := fmt.Sprintf("%s/api/v2/messages?limit=%d", s.baseURL, s.limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSourceUnavailable, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d from %s",
			core.ErrSourceUnavailable, resp.StatusCode, s.baseURL)
	}

	var payload mailhogResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", core.ErrSourceUnavailable, err)
	}

	records := make([]core.EmailRecord, 0, len(payload.Messages))
	for _, raw := range payload.Messages {
		record, err := s.extract(raw)
		if err != nil {
			s.logger.Warn("Skipping malformed captured message", zap.Error(err))
			continue
		}
		records = append(records, *record)
	}

	return records, nil
}

// extract normalizes one raw message into a candidate record. Absent
// fields default to empty strings.
func (s *MailHogSource) extract(raw json.RawMessage) (*core.EmailRecord, error) {
	var msg mailhogMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedMessage, err)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("%w: message has no ID", core.ErrMalformedMessage)
	}

	subject := ""
	if values := msg.Content.Headers["Subject"]; len(values) > 0 {
		subject = values[0]
	}

	recipient := ""
	if len(msg.To) > 0 {
		recipient = msg.To[0].address()
	}

	return &core.EmailRecord{
		SourceID:  msg.ID,
		Sender:    msg.From.address(),
		Recipient: recipient,
		Subject:   subject,
		Body:      msg.Content.Body,
		Timestamp: time.Now(),
	}, nil
}
