package events

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// publishConn is the subset of *nats.Conn used by NATS.
type publishConn interface {
	Publish(subj string, data []byte) error
	Close()
}

// NATS publishes events as JSON on <prefix>.<event name>. nats.go buffers
// publishes client-side, so Publish does not block on the network.
type NATS struct {
	conn   publishConn
	prefix string
	log    zerolog.Logger
}

// NewNATS connects to url. Reconnects are retried in the background.
func NewNATS(url, prefix string, log zerolog.Logger) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("embedd"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	return newNATS(nc, prefix, log), nil
}

func newNATS(conn publishConn, prefix string, log zerolog.Logger) *NATS {
	return &NATS{conn: conn, prefix: strings.TrimSuffix(prefix, "."), log: log}
}

// Subject returns the subject an event name is published on.
func (n *NATS) Subject(name string) string {
	if n.prefix == "" {
		return name
	}
	return n.prefix + "." + name
}

func (n *NATS) Publish(e Event) {
	b, err := json.Marshal(e)
	if err != nil {
		n.log.Warn().Err(err).Str("event", e.Name).Msg("encode event")
		return
	}
	if err := n.conn.Publish(n.Subject(e.Name), b); err != nil {
		n.log.Warn().Err(err).Str("event", e.Name).Msg("publish event")
	}
}

// Close closes the underlying connection.
func (n *NATS) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}
