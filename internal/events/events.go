// Package events publishes game lifecycle events for external consumers
// (leaderboard renderers, dashboards). Publishing is optional and always
// best-effort.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/config"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/domain"
)

const (
	StreamName    = "ZOMIRE_GAMES"
	SubjectPrefix = "zomire.games"
)

// GameEvent is the wire shape of one lifecycle transition.
type GameEvent struct {
	Type       string            `json:"type"`
	GameNumber int64             `json:"game_number"`
	Gamemode   domain.Gamemode   `json:"gamemode"`
	Status     domain.GameStatus `json:"status"`
	Team1      []string          `json:"team1,omitempty"`
	Team2      []string          `json:"team2,omitempty"`
	At         time.Time         `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, event GameEvent) error
	// Close flushes anything still in flight; called once on shutdown.
	Close() error
}

// New returns a JetStream publisher when NATS is configured, otherwise a
// no-op.
func New(cfg *config.Config, logger zerolog.Logger) (Publisher, error) {
	if cfg.NATSURL == "" {
		logger.Debug().Msg("NATS not configured, lifecycle events disabled")
		return NopPublisher{}, nil
	}
	return Connect(cfg.NATSURL, logger)
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, GameEvent) error { return nil }

func (NopPublisher) Close() error { return nil }

type NATSPublisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger zerolog.Logger
}

func Connect(url string, logger zerolog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err := js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectPrefix + ".>"},
	}); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to add stream: %w", err)
	}

	logger.Info().Str("url", url).Msg("connected to NATS")
	return &NATSPublisher{conn: nc, js: js, logger: logger}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event GameEvent) error {
	subject := fmt.Sprintf("%s.%d", SubjectPrefix, event.GameNumber)

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event for game %d: %w", event.GameNumber, err)
	}

	if _, err := p.js.Publish(subject, body, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish event for game %d: %w", event.GameNumber, err)
	}
	return nil
}

// Close drains the connection so buffered publishes flush before the
// process exits.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
