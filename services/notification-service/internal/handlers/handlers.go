// Package handlers turns inbound loan events into notification emails.
//
// Every handler is fire-and-forget: it renders and dispatches at most one
// email, logs the result, and never returns an error to the bus. A failed send
// is not retried.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jonboulle/clockwork"

	"github.com/md-rashed-zaman/loannotify/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/loannotify/services/notification-service/internal/events"
	"github.com/md-rashed-zaman/loannotify/services/notification-service/internal/render"
)

const (
	DefaultCompanyName    = "Loan Company"
	DefaultCurrencySymbol = "$"
)

const (
	SubjectLoanSubmitted    = "Loan Application Confirmation"
	SubjectDocumentFailed   = "Document Verification Failed"
	SubjectDocumentVerified = "Document Verification Passed"
)

var ErrMissingDestination = errors.New("message has no destination to derive the loan id from")

// Config is fixed at startup and shared read-only by all invocations.
type Config struct {
	// Mailbox is the service's own address; document notifications are sent
	// from and to it.
	Mailbox        string
	CompanyName    string
	CurrencySymbol string
}

type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Outcome is the fully handled result of one invocation.
type Outcome struct {
	Event  events.Kind
	Status Status
	Reason string
	Email  email.Message
}

type Handlers struct {
	cfg      Config
	renderer *render.Renderer
	sender   email.Sender
	logger   *slog.Logger
	clock    clockwork.Clock
	metrics  *Metrics
}

type Option func(*Handlers)

func WithClock(c clockwork.Clock) Option {
	return func(h *Handlers) { h.clock = c }
}

func WithMetrics(m *Metrics) Option {
	return func(h *Handlers) { h.metrics = m }
}

func New(cfg Config, renderer *render.Renderer, sender email.Sender, logger *slog.Logger, opts ...Option) (*Handlers, error) {
	if cfg.Mailbox == "" {
		return nil, errors.New("handlers: mailbox address is required")
	}
	if renderer == nil || sender == nil || logger == nil {
		return nil, errors.New("handlers: renderer, sender and logger are required")
	}
	if cfg.CompanyName == "" {
		cfg.CompanyName = DefaultCompanyName
	}
	if cfg.CurrencySymbol == "" {
		cfg.CurrencySymbol = DefaultCurrencySymbol
	}
	h := &Handlers{
		cfg:      cfg,
		renderer: renderer,
		sender:   sender,
		logger:   logger,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// HandleSubmission confirms a submitted loan application to the applicant.
func (h *Handlers) HandleSubmission(ctx context.Context, ev events.SubmissionEvent) Outcome {
	return h.deliver(ctx, events.KindLoanSubmitted, func() (email.Message, error) {
		return h.buildSubmission(ev)
	})
}

// HandleDocumentFailed reports failed document checks to the service mailbox.
func (h *Handlers) HandleDocumentFailed(ctx context.Context, msg events.DocumentOutcomeMessage) Outcome {
	return h.deliver(ctx, events.KindDocumentFailed, func() (email.Message, error) {
		return h.buildDocumentOutcome(msg, render.DocumentFailed, SubjectDocumentFailed)
	})
}

// HandleDocumentVerified reports passed document checks to the service mailbox.
func (h *Handlers) HandleDocumentVerified(ctx context.Context, msg events.DocumentOutcomeMessage) Outcome {
	return h.deliver(ctx, events.KindDocumentVerified, func() (email.Message, error) {
		return h.buildDocumentOutcome(msg, render.DocumentVerified, SubjectDocumentVerified)
	})
}

// Reject records a message that could not be decoded into an event.
func (h *Handlers) Reject(ctx context.Context, kind events.Kind, err error) Outcome {
	h.metrics.observeReceived(kind)
	return h.finish(ctx, Outcome{Event: kind, Status: StatusFailed, Reason: err.Error()})
}

func (h *Handlers) buildSubmission(ev events.SubmissionEvent) (email.Message, error) {
	if err := ev.Validate(); err != nil {
		return email.Message{}, err
	}
	loan := ev.LoanApplication
	applicant := loan.Applicant

	body, err := h.renderer.Render(render.LoanSubmitted, map[string]string{
		render.FieldApplicantName:  applicant.FullName(),
		render.FieldLoanID:         loan.LoanID,
		render.FieldCurrencySymbol: h.cfg.CurrencySymbol,
		render.FieldAmount:         strconv.FormatFloat(loan.LoanAmount, 'f', 2, 64),
		render.FieldYear:           h.year(),
		render.FieldCompanyName:    h.cfg.CompanyName,
	})
	if err != nil {
		return email.Message{}, err
	}
	// The confirmation goes out from the applicant's own address.
	return email.Message{
		To:      applicant.Email,
		From:    applicant.Email,
		Subject: SubjectLoanSubmitted,
		Body:    body,
		HTML:    true,
	}, nil
}

func (h *Handlers) buildDocumentOutcome(msg events.DocumentOutcomeMessage, id render.TemplateID, subject string) (email.Message, error) {
	loanID, ok := msg.LoanID()
	if !ok {
		return email.Message{}, ErrMissingDestination
	}
	content, _ := msg.Content()

	body, err := h.renderer.Render(id, map[string]string{
		render.FieldLoanID:      loanID,
		render.FieldHTMLContent: render.RenderMarkup(content),
		render.FieldYear:        h.year(),
		render.FieldCompanyName: h.cfg.CompanyName,
	})
	if err != nil {
		return email.Message{}, err
	}
	return email.Message{
		To:      h.cfg.Mailbox,
		From:    h.cfg.Mailbox,
		Subject: subject,
		Body:    body,
		HTML:    true,
	}, nil
}

func (h *Handlers) year() string {
	return strconv.Itoa(h.clock.Now().Year())
}

func (h *Handlers) deliver(ctx context.Context, kind events.Kind, build func() (email.Message, error)) (out Outcome) {
	out = Outcome{Event: kind, Status: StatusFailed}
	defer func() {
		if r := recover(); r != nil {
			out.Status = StatusFailed
			out.Reason = fmt.Sprintf("panic: %v", r)
		}
		out = h.finish(ctx, out)
	}()

	h.metrics.observeReceived(kind)
	h.logger.InfoContext(ctx, "notification event received", "event", kind)

	msg, err := build()
	if err == nil {
		err = msg.Validate()
	}
	if err != nil {
		out.Reason = err.Error()
		return out
	}
	out.Email = msg

	if err := h.sender.Send(ctx, msg); err != nil {
		out.Reason = err.Error()
		return out
	}
	out.Status = StatusSent
	return out
}

func (h *Handlers) finish(ctx context.Context, out Outcome) Outcome {
	h.metrics.observeOutcome(out)
	if out.Status == StatusSent {
		h.logger.InfoContext(ctx, "email sent",
			"event", out.Event,
			"to", out.Email.To,
			"provider", h.sender.ProviderID(),
		)
		return out
	}
	h.logger.ErrorContext(ctx, "notification failed",
		"event", out.Event,
		"to", out.Email.To,
		"err", out.Reason,
	)
	return out
}
