package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Event is the envelope every published payload is wrapped in.
type Event struct {
	Subject   string      `json:"subject"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// NATSPublisher publishes domain events as JSON under a subject prefix,
// for example reliefhub.donation.created.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// Connect opens a NATS connection that keeps reconnecting in the background.
func Connect(url, prefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("reliefhub-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to nats")
	}

	log.Info().Str("url", conn.ConnectedUrl()).Msg("nats connected")
	return NewNATSPublisher(conn, prefix), nil
}

func NewNATSPublisher(conn *nats.Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix}
}

func (p *NATSPublisher) subject(name string) string {
	if p.prefix == "" {
		return name
	}
	return p.prefix + "." + name
}

// Publish sends one event. Delivery is fire-and-forget.
func (p *NATSPublisher) Publish(_ context.Context, subject string, payload interface{}) error {
	full := p.subject(subject)
	body, err := json.Marshal(Event{
		Subject:   full,
		Data:      payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	return errors.Wrap(p.conn.Publish(full, body), "publish event")
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("nats drain failed")
		p.conn.Close()
	}
}

// NopPublisher drops every event. It is used when NATS is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
