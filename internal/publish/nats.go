// Package publish streams decoded rows to a NATS subject tree.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"ais_parser/internal/record"
)

// DefaultPrefix is the subject prefix rows are published under.
const DefaultPrefix = "ais.decoded"

// Config holds NATS connection settings.
type Config struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Prefix  string `yaml:"prefix"`
	Name    string `yaml:"name"`
}

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subj string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Drain() error
}

// Publisher publishes each row as JSON on <prefix>.<msg_type>.
type Publisher struct {
	conn   Conn
	prefix string
	log    *zap.Logger
	sent   int
}

// Connect dials the NATS server in cfg.
func Connect(cfg Config, log *zap.Logger) (*Publisher, error) {
	name := cfg.Name
	if name == "" {
		name = "ais_parser"
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	return New(nc, cfg.Prefix, log), nil
}

// New creates a Publisher on an existing connection.
func New(conn Conn, prefix string, log *zap.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{conn: conn, prefix: prefix, log: log}
}

// Subject returns the subject a message type is published on.
func (p *Publisher) Subject(msgType uint8) string {
	return p.prefix + "." + strconv.Itoa(int(msgType))
}

// Write publishes rows and flushes them to the server.
func (p *Publisher) Write(ctx context.Context, rows []record.Row) error {
	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal row: %w", err)
		}
		if err := p.conn.Publish(p.Subject(r.MsgType), data); err != nil {
			return fmt.Errorf("publish %s: %w", p.Subject(r.MsgType), err)
		}
		p.sent++
	}
	if len(rows) == 0 {
		return nil
	}
	timeout := 5 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	if err := p.conn.FlushTimeout(timeout); err != nil {
		return fmt.Errorf("flush nats: %w", err)
	}
	return nil
}

// Sent returns the number of rows published.
func (p *Publisher) Sent() int {
	return p.sent
}

// Close drains the connection.
func (p *Publisher) Close() error {
	p.log.Debug("draining nats connection", zap.Int("sent", p.sent))
	return p.conn.Drain()
}
