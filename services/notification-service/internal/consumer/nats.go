package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/md-rashed-zaman/loannotify/libs/natsx"
	"github.com/md-rashed-zaman/loannotify/services/notification-service/internal/events"
)

type NATSConfig struct {
	Queue    string
	Subjects map[events.Kind]string
}

// NATSConsumer subscribes one queue subscription per event subject. Core NATS
// delivery is at-most-once, matching the notification contract.
type NATSConsumer struct {
	nc     *nats.Conn
	cfg    NATSConfig
	router *Router
	logger *slog.Logger
}

func NewNATS(logger *slog.Logger, router *Router, nc *nats.Conn, cfg NATSConfig) (*NATSConsumer, error) {
	if nc == nil {
		return nil, errors.New("nats connection is required")
	}
	for kind, subject := range cfg.Subjects {
		if subject == "" {
			return nil, fmt.Errorf("nats subject for %s not configured", kind)
		}
	}
	return &NATSConsumer{nc: nc, cfg: cfg, router: router, logger: logger}, nil
}

// Run subscribes and blocks until ctx is cancelled, then drains the
// subscriptions.
func (c *NATSConsumer) Run(ctx context.Context) error {
	subs := make([]*nats.Subscription, 0, len(c.cfg.Subjects))
	defer func() {
		for _, sub := range subs {
			if err := sub.Drain(); err != nil {
				c.logger.Error("nats drain failed", "err", err, "subject", sub.Subject)
			}
		}
	}()

	for kind, subject := range c.cfg.Subjects {
		sub, err := c.nc.QueueSubscribe(subject, c.cfg.Queue, c.messageHandler(ctx, kind))
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		subs = append(subs, sub)
		c.logger.Info("nats consumer started", "subject", subject, "event", kind, "queue", c.cfg.Queue)
	}

	<-ctx.Done()
	return nil
}

func (c *NATSConsumer) messageHandler(ctx context.Context, kind events.Kind) nats.MsgHandler {
	return func(msg *nats.Msg) {
		// Messages flushed by Drain after shutdown still get to send.
		mctx := natsx.ExtractTraceContext(context.WithoutCancel(ctx), msg)
		c.router.Route(mctx, "nats", Delivery{
			ID:          natsx.MessageID(msg),
			Kind:        kind,
			Destination: natsx.Destination(msg),
			Value:       msg.Data,
		})
	}
}
