package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Handler reacts to one consumed event.
type Handler func(ctx context.Context, e Event) error

// Consumer reads order events back from the topic and dispatches them by type.
type Consumer struct {
	reader messageReader
	log    *slog.Logger

	mu       sync.RWMutex
	handlers map[Type][]Handler
}

// NewConsumer joins groupID on the order topic. Instances that must each see
// every event need distinct group ids.
func NewConsumer(logger *slog.Logger, groupID string, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    Topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(reader, logger)
}

func newConsumer(r messageReader, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{reader: r, log: logger, handlers: make(map[Type][]Handler)}
}

// On registers h for events of type t.
func (c *Consumer) On(t Type, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[t] = append(c.handlers[t], h)
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.log.Warn("error reading order event", "error", err)
		return
	}

	var e Event
	if err := json.Unmarshal(m.Value, &e); err != nil {
		c.log.Warn("error parsing order event", "offset", m.Offset, "error", err)
		return
	}

	c.mu.RLock()
	handlers := c.handlers[e.Type]
	c.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			c.log.Warn("order event handler failed", "event_id", e.ID, "event_type", e.Type, "order_id", e.OrderID, "error", err)
		}
	}
}
