package pkg

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStream publishes events to a JetStream stream so consumers that start
// later can still replay them.
type NATSStream struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	stream string
}

// NATSStreamConfig configures a NATSStream instance.
type NATSStreamConfig struct {
	URL        string
	Name       string
	StreamName string
	Subjects   []string
	MaxAge     time.Duration
	MaxMsgs    int64 // 0 keeps everything within MaxAge
}

func (c NATSStreamConfig) streamConfig() jetstream.StreamConfig {
	cfg := jetstream.StreamConfig{
		Name:     c.StreamName,
		Subjects: c.Subjects,
		MaxAge:   c.MaxAge,
	}
	if c.MaxMsgs > 0 {
		cfg.MaxMsgs = c.MaxMsgs
	}
	return cfg
}

// NewNATSStream connects and makes sure the stream exists.
func NewNATSStream(ctx context.Context, cfg NATSStreamConfig) (*NATSStream, error) {
	if cfg.StreamName == "" || len(cfg.Subjects) == 0 {
		return nil, fmt.Errorf("stream name and subjects are required")
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err := js.CreateOrUpdateStream(ctx, cfg.streamConfig()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update stream %s: %w", cfg.StreamName, err)
	}

	return &NATSStream{
		conn:   conn,
		js:     js,
		stream: cfg.StreamName,
	}, nil
}

// Publish waits for the stream to acknowledge the message.
func (s *NATSStream) Publish(ctx context.Context, topic string, msg []byte) error {
	if _, err := s.js.Publish(ctx, topic, msg); err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", s.stream, err)
	}
	return nil
}

func (s *NATSStream) Close() error {
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}
