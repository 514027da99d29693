package consumer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/loannotify/libs/kafkax"
	"github.com/md-rashed-zaman/loannotify/libs/natsx"
	"github.com/md-rashed-zaman/loannotify/services/notification-service/internal/events"
	"github.com/md-rashed-zaman/loannotify/services/notification-service/internal/handlers"
)

// --- stub notifier ---

type call struct {
	kind       events.Kind
	submission events.SubmissionEvent
	document   events.DocumentOutcomeMessage
	err        error
}

type stubNotifier struct {
	mu    sync.Mutex
	calls []call
}

func (n *stubNotifier) record(c call) handlers.Outcome {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, c)
	if c.err != nil {
		return handlers.Outcome{Event: c.kind, Status: handlers.StatusFailed, Reason: c.err.Error()}
	}
	return handlers.Outcome{Event: c.kind, Status: handlers.StatusSent}
}

func (n *stubNotifier) HandleSubmission(_ context.Context, ev events.SubmissionEvent) handlers.Outcome {
	return n.record(call{kind: events.KindLoanSubmitted, submission: ev})
}

func (n *stubNotifier) HandleDocumentFailed(_ context.Context, msg events.DocumentOutcomeMessage) handlers.Outcome {
	return n.record(call{kind: events.KindDocumentFailed, document: msg})
}

func (n *stubNotifier) HandleDocumentVerified(_ context.Context, msg events.DocumentOutcomeMessage) handlers.Outcome {
	return n.record(call{kind: events.KindDocumentVerified, document: msg})
}

func (n *stubNotifier) Reject(_ context.Context, kind events.Kind, err error) handlers.Outcome {
	return n.record(call{kind: kind, err: err})
}

func (n *stubNotifier) snapshot() []call {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]call(nil), n.calls...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
}

// --- router ---

func TestRouter_Submission(t *testing.T) {
	n := &stubNotifier{}
	r := NewRouter(n, testLogger())

	raw := `{"loanApplication":{"loanId":"L-100","loanAmount":2500.5,"applicant":{"firstName":"Jane","lastName":"Doe","email":"jane@x.com"}}}`
	out := r.Route(context.Background(), "kafka", Delivery{ID: "e1", Kind: events.KindLoanSubmitted, Value: []byte(raw)})
	assert.Equal(t, handlers.StatusSent, out.Status)

	calls := n.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "L-100", calls[0].submission.LoanApplication.LoanID)
}

func TestRouter_BadSubmissionRejected(t *testing.T) {
	n := &stubNotifier{}
	r := NewRouter(n, testLogger())

	out := r.Route(context.Background(), "kafka", Delivery{Kind: events.KindLoanSubmitted, Value: []byte("{")})
	assert.Equal(t, handlers.StatusFailed, out.Status)
	calls := n.snapshot()
	require.Len(t, calls, 1)
	assert.Error(t, calls[0].err)
}

func TestRouter_DocumentMessages(t *testing.T) {
	n := &stubNotifier{}
	r := NewRouter(n, testLogger())

	r.Route(context.Background(), "kafka", Delivery{
		Kind:        events.KindDocumentFailed,
		Destination: "replyTopic/LN-42",
		Value:       []byte(`{"content":"**bold** issue"}`),
	})
	r.Route(context.Background(), "nats", Delivery{
		Kind:        events.KindDocumentVerified,
		Destination: "replyTopic/LN-43",
		Value:       []byte("all good"),
	})

	calls := n.snapshot()
	require.Len(t, calls, 2)

	assert.Equal(t, events.KindDocumentFailed, calls[0].kind)
	id, _ := calls[0].document.LoanID()
	assert.Equal(t, "LN-42", id)
	text, _ := calls[0].document.Content()
	assert.Equal(t, "**bold** issue", text)

	assert.Equal(t, events.KindDocumentVerified, calls[1].kind)
	assert.Equal(t, events.ScalarPayload{Value: "all good"}, calls[1].document.Payload)
}

func TestRouter_UnknownKind(t *testing.T) {
	n := &stubNotifier{}
	r := NewRouter(n, testLogger())

	out := r.Route(context.Background(), "kafka", Delivery{Kind: "loan_closed"})
	assert.Equal(t, handlers.StatusFailed, out.Status)
	assert.Contains(t, out.Reason, "unsupported event kind")
}

// --- kafka ---

type fakeReader struct {
	mu       sync.Mutex
	messages []kafka.Message
	errs     []error
	closed   bool
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		f.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(f.messages) > 0 {
		msg := f.messages[0]
		f.messages = f.messages[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestKafkaConsumer_RoutesAndSurvivesReadErrors(t *testing.T) {
	n := &stubNotifier{}
	c := newKafkaConsumer(testLogger(), NewRouter(n, testLogger()))
	c.backoff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }

	reader := &fakeReader{
		errs: []error{errors.New("broker not available")},
		messages: []kafka.Message{{
			Topic: "loan.document.failed",
			Headers: []kafka.Header{
				{Key: kafkax.HeaderDestination, Value: []byte("replyTopic/LN-42")},
				{Key: kafkax.HeaderEventID, Value: []byte("evt-1")},
			},
			Value: []byte(`{"content":"- a\n- b"}`),
		}},
	}
	c.sources = []kafkaSource{{kind: events.KindDocumentFailed, topic: "loan.document.failed", reader: reader}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(n.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after cancel")
	}

	calls := n.snapshot()
	id, _ := calls[0].document.LoanID()
	assert.Equal(t, "LN-42", id)
	reader.mu.Lock()
	assert.True(t, reader.closed)
	reader.mu.Unlock()
}

func TestNewKafka_Validation(t *testing.T) {
	r := NewRouter(&stubNotifier{}, testLogger())
	_, err := NewKafka(testLogger(), r, KafkaConfig{})
	assert.Error(t, err)

	_, err = NewKafka(testLogger(), r, KafkaConfig{
		Brokers: "localhost:9092",
		Topics:  map[events.Kind]string{events.KindLoanSubmitted: ""},
	})
	assert.Error(t, err)
}

// --- nats ---

func TestNATSConsumer_MessageHandler(t *testing.T) {
	n := &stubNotifier{}
	c := &NATSConsumer{router: NewRouter(n, testLogger()), logger: testLogger()}

	msg := &nats.Msg{Subject: "loan.document.verified", Header: nats.Header{}, Data: []byte(`{"content":"ok"}`)}
	msg.Header.Set(natsx.HeaderDestination, "replyTopic/LN-5")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.messageHandler(ctx, events.KindDocumentVerified)(msg)

	calls := n.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, events.KindDocumentVerified, calls[0].kind)
	id, _ := calls[0].document.LoanID()
	assert.Equal(t, "LN-5", id)
}

func TestNATSConsumer_LoanIDFromSubject(t *testing.T) {
	n := &stubNotifier{}
	c := &NATSConsumer{router: NewRouter(n, testLogger()), logger: testLogger()}

	msg := &nats.Msg{Subject: "loan.document.failed.LN-42", Data: []byte(`{"content":"**bold** issue"}`)}
	c.messageHandler(context.Background(), events.KindDocumentFailed)(msg)

	calls := n.snapshot()
	require.Len(t, calls, 1)
	id, ok := calls[0].document.LoanID()
	require.True(t, ok)
	assert.Equal(t, "LN-42", id)
}

func TestNewNATS_RequiresConn(t *testing.T) {
	_, err := NewNATS(testLogger(), NewRouter(&stubNotifier{}, testLogger()), nil, NATSConfig{})
	assert.Error(t, err)
}
