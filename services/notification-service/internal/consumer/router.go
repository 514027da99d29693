package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/loannotify/services/notification-service/internal/events"
	"github.com/md-rashed-zaman/loannotify/services/notification-service/internal/handlers"
)

// Delivery is a bus message reduced to what the handlers need.
type Delivery struct {
	ID          string
	Kind        events.Kind
	Destination string
	Value       []byte
}

// Notifier is implemented by *handlers.Handlers.
type Notifier interface {
	HandleSubmission(ctx context.Context, ev events.SubmissionEvent) handlers.Outcome
	HandleDocumentFailed(ctx context.Context, msg events.DocumentOutcomeMessage) handlers.Outcome
	HandleDocumentVerified(ctx context.Context, msg events.DocumentOutcomeMessage) handlers.Outcome
	Reject(ctx context.Context, kind events.Kind, err error) handlers.Outcome
}

// Router decodes deliveries into typed events and hands them to the notifier.
type Router struct {
	notifier Notifier
	logger   *slog.Logger
}

func NewRouter(notifier Notifier, logger *slog.Logger) *Router {
	return &Router{notifier: notifier, logger: logger}
}

// Route always consumes the delivery; the outcome is informational.
func (r *Router) Route(ctx context.Context, system string, d Delivery) handlers.Outcome {
	ctx, span := otel.Tracer("notification").Start(ctx, "notification.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", system),
			attribute.String("messaging.destination", d.Destination),
			attribute.String("messaging.message.id", d.ID),
			attribute.String("notification.event", string(d.Kind)),
		),
	)
	defer span.End()

	log := r.logger.With("event_id", d.ID, "destination", d.Destination)
	log.DebugContext(ctx, "delivery received", "event", d.Kind, "bytes", len(d.Value))

	out := r.dispatch(ctx, d)
	if out.Status != handlers.StatusSent {
		span.SetStatus(codes.Error, out.Reason)
	}
	return out
}

func (r *Router) dispatch(ctx context.Context, d Delivery) handlers.Outcome {
	switch d.Kind {
	case events.KindLoanSubmitted:
		ev, err := events.DecodeSubmission(d.Value)
		if err != nil {
			return r.notifier.Reject(ctx, d.Kind, err)
		}
		return r.notifier.HandleSubmission(ctx, ev)
	case events.KindDocumentFailed:
		return r.notifier.HandleDocumentFailed(ctx, documentMessage(d))
	case events.KindDocumentVerified:
		return r.notifier.HandleDocumentVerified(ctx, documentMessage(d))
	default:
		return r.notifier.Reject(ctx, d.Kind, fmt.Errorf("unsupported event kind %q", d.Kind))
	}
}

func documentMessage(d Delivery) events.DocumentOutcomeMessage {
	return events.DocumentOutcomeMessage{
		Destination: d.Destination,
		Payload:     events.DecodePayload(d.Value),
	}
}
