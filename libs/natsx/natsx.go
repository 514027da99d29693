// Package natsx holds NATS connection and header helpers shared by consumers.
package natsx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	maxReconnects = -1
	reconnectWait = 2 * time.Second
)

// Header keys carried on inbound notification events.
const (
	HeaderDestination = "destination"
)

// Connect dials NATS with reconnect handling that reports through logger.
func Connect(url, name string, logger *slog.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Error("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logger.Error("nats error", "err", err, "subject", subject)
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// Destination prefers a producer-supplied destination header over the subject.
// Subject tokens are joined with '/' so that "loan.document.failed.LN-42"
// reads as the path "loan/document/failed/LN-42".
func Destination(msg *nats.Msg) string {
	if msg.Header != nil {
		if d := msg.Header.Get(HeaderDestination); d != "" {
			return d
		}
	}
	return strings.ReplaceAll(msg.Subject, ".", "/")
}

// MessageID returns the JetStream-style Nats-Msg-Id header or a fresh id.
func MessageID(msg *nats.Msg) string {
	if msg.Header != nil {
		if id := msg.Header.Get(nats.MsgIdHdr); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

// ExtractTraceContext reads W3C trace headers from a NATS message.
func ExtractTraceContext(ctx context.Context, msg *nats.Msg) context.Context {
	if msg.Header == nil {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(http.Header(msg.Header)))
}

func ReadyCheck(nc *nats.Conn) func(context.Context) error {
	return func(context.Context) error {
		if nc == nil {
			return errors.New("nats not configured")
		}
		if status := nc.Status(); status != nats.CONNECTED {
			return fmt.Errorf("nats status %s", status)
		}
		return nil
	}
}
