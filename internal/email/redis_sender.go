package email

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/textproto"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TemplateHeader carries the template id in generated messages so mock
// senders can index them.
const TemplateHeader = "X-Template-Id"

// MockEmailTTL is how long RedisSender keeps a message.
const MockEmailTTL = 5 * time.Minute

// MockEmailKey is the Redis key under which RedisSender stores the last
// message of a template sent to an address.
func MockEmailKey(to, templateID string) string {
	return fmt.Sprintf("mockemail:%s:%s", to, templateID)
}

// RedisSender implements the Sender interface by storing emails in Redis.
// End-to-end tests read them back through the service API.
type RedisSender struct {
	client *redis.Client
	from   string
	logger *zap.Logger
}

// NewRedisSender creates a new RedisSender
func NewRedisSender(client *redis.Client, from string, logger *zap.Logger) *RedisSender {
	return &RedisSender{client: client, from: from, logger: logger}
}

func templateID(rawMessage []byte) string {
	r := textproto.NewReader(bufio.NewReader(bytes.NewReader(rawMessage)))
	header, err := r.ReadMIMEHeader()
	if err != nil && len(header) == 0 {
		return "unknown"
	}
	if id := header.Get(TemplateHeader); id != "" {
		return id
	}
	return "unknown"
}

// Send stores a representation of the email in Redis instead of sending it.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	tmplID := templateID(rawMessage)

	// Use the first recipient for the key.
	primaryTo := ""
	if len(to) > 0 {
		primaryTo = to[0]
	}

	emailData := map[string]interface{}{
		"to":          strings.Join(to, ", "),
		"from":        s.from,
		"subject":     subject,
		"body":        string(rawMessage),
		"sent_at":     time.Now().UTC().Format(time.RFC3339Nano),
		"template_id": tmplID,
	}

	jsonData, err := json.Marshal(emailData)
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := MockEmailKey(primaryTo, tmplID)
	if err := s.client.Set(ctx, key, jsonData, MockEmailTTL).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}

	s.logger.Debug("mock email stored", zap.String("key", key), zap.String("subject", subject))
	return nil
}
