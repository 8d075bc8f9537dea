package auditsink

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/boardhub/tokenauth"
)

const DefaultSubjectPrefix = "tokenauth.audit"

// NATSSink publishes each event as JSON on <prefix>.<event_type>. Publish
// failures are logged and the event is dropped.
type NATSSink struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger
}

func NewNATSSink(conn *nats.Conn, prefix string, logger *zap.Logger) (*NATSSink, error) {
	if conn == nil {
		return nil, errors.New("auditsink: nil NATS connection")
	}
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSSink{conn: conn, prefix: prefix, logger: logger.Named("audit.nats")}, nil
}

// Connect dials url and returns a sink that owns the connection.
func Connect(url, prefix string, logger *zap.Logger) (*NATSSink, error) {
	conn, err := nats.Connect(url, nats.Name("tokenauth-audit"))
	if err != nil {
		return nil, err
	}
	return NewNATSSink(conn, prefix, logger)
}

// Subject returns the subject an event of eventType is published on.
func (s *NATSSink) Subject(eventType string) string {
	return s.prefix + "." + eventType
}

func (s *NATSSink) Emit(_ context.Context, event tokenauth.AuditEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("marshal audit event", zap.String("event_type", event.EventType), zap.Error(err))
		return
	}
	if err := s.conn.Publish(s.Subject(event.EventType), data); err != nil {
		s.logger.Warn("publish audit event", zap.String("event_type", event.EventType), zap.Error(err))
	}
}

// Close flushes pending messages and closes the connection.
func (s *NATSSink) Close() error {
	if err := s.conn.Flush(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		s.conn.Close()
		return err
	}
	s.conn.Close()
	return nil
}

var _ tokenauth.AuditSink = (*NATSSink)(nil)
