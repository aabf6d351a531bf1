package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"clip-trivia-service/internal/domain"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const DefaultSubjectPrefix = "trivia.sessions"

// Publisher sends session lifecycle events as JSON to <prefix>.<kind>.
type Publisher struct {
	conn   *nats.Conn
	prefix string
}

// Connect dials NATS with reconnect logging.
func Connect(url, prefix string) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("clip-trivia-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return NewPublisher(conn, prefix), nil
}

func NewPublisher(conn *nats.Conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Publisher{conn: conn, prefix: prefix}
}

func (p *Publisher) Publish(ctx context.Context, event domain.SessionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal session event: %w", err)
	}
	if err := p.conn.Publish(Subject(p.prefix, event.Kind), data); err != nil {
		return fmt.Errorf("publish session event: %w", err)
	}
	return nil
}

// Close flushes pending events and closes the connection.
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("NATS drain failed")
	}
}

// Subject returns the subject events of a kind are published on.
func Subject(prefix string, kind domain.EventKind) string {
	return prefix + "." + string(kind)
}
