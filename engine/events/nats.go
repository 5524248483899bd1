package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/swarmworks/responder/pkg/config"
)

const defaultSubjectPrefix = "responder"

// NATSSink publishes events as JSON on <prefix>.chat.<chatId>.typing.
type NATSSink struct {
	conn   *nats.Conn
	prefix string
	owned  bool
}

// NewNATSSink wraps an existing connection. Close leaves it open.
func NewNATSSink(conn *nats.Conn, prefix string) (*NATSSink, error) {
	if conn == nil {
		return nil, fmt.Errorf("nats connection cannot be nil")
	}
	return &NATSSink{conn: conn, prefix: normalizePrefix(prefix)}, nil
}

// ConnectNATSSink dials cfg.URL and owns the resulting connection.
func ConnectNATSSink(cfg *config.NATSConfig) (*NATSSink, error) {
	if cfg == nil || strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	conn, err := nats.Connect(cfg.URL, nats.Name("responder"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSSink{conn: conn, prefix: normalizePrefix(cfg.SubjectPrefix), owned: true}, nil
}

// Subject returns the subject an event for chatID is published on.
func (s *NATSSink) Subject(chatID string) string {
	return TypingSubject(s.prefix, chatID)
}

// TypingSubject builds the typing subject, replacing characters NATS reserves.
func TypingSubject(prefix, chatID string) string {
	token := strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(chatID)
	if token == "" {
		token = "_"
	}
	return fmt.Sprintf("%s.chat.%s.typing", normalizePrefix(prefix), token)
}

func (s *NATSSink) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.conn.Publish(s.Subject(event.Payload.ChatID), data); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (s *NATSSink) Flush() error {
	return s.conn.Flush()
}

func (s *NATSSink) Close() {
	if s.owned {
		s.conn.Close()
	}
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		return defaultSubjectPrefix
	}
	return prefix
}
