package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/loannotify/libs/kafkax"
	"github.com/md-rashed-zaman/loannotify/services/notification-service/internal/events"
)

type KafkaConfig struct {
	Brokers string
	GroupID string
	Topics  map[events.Kind]string
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type kafkaSource struct {
	kind   events.Kind
	topic  string
	reader messageReader
}

// KafkaConsumer runs one reader per event topic. Offsets are committed as
// messages are read, so a message counts as handled whatever its outcome.
type KafkaConsumer struct {
	sources []kafkaSource
	router  *Router
	logger  *slog.Logger
	backoff func() backoff.BackOff
}

func NewKafka(logger *slog.Logger, router *Router, cfg KafkaConfig) (*KafkaConsumer, error) {
	brokers := kafkax.SplitBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers not configured")
	}
	c := newKafkaConsumer(logger, router)
	for kind, topic := range cfg.Topics {
		if topic == "" {
			return nil, fmt.Errorf("kafka topic for %s not configured", kind)
		}
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			GroupID:  cfg.GroupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
		c.sources = append(c.sources, kafkaSource{kind: kind, topic: topic, reader: reader})
	}
	return c, nil
}

func newKafkaConsumer(logger *slog.Logger, router *Router) *KafkaConsumer {
	return &KafkaConsumer{
		router: router,
		logger: logger,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Run blocks until ctx is cancelled and every reader has closed.
func (c *KafkaConsumer) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, src := range c.sources {
		wg.Add(1)
		go func(src kafkaSource) {
			defer wg.Done()
			c.consume(ctx, src)
		}(src)
	}
	wg.Wait()
}

func (c *KafkaConsumer) consume(ctx context.Context, src kafkaSource) {
	defer src.reader.Close()
	log := c.logger.With("topic", src.topic, "event", src.kind)
	log.Info("kafka consumer started")

	bo := c.backoff()
	for {
		msg, err := src.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("kafka consumer stopped")
				return
			}
			wait := bo.NextBackOff()
			log.Error("kafka read error", "err", err, "retry_in", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		bo.Reset()
		c.handle(ctx, src.kind, msg)
	}
}

func (c *KafkaConsumer) handle(ctx context.Context, kind events.Kind, msg kafka.Message) {
	// The offset is already committed; finish the send even during shutdown.
	ctx = kafkax.ExtractTraceContext(context.WithoutCancel(ctx), msg)
	c.router.Route(ctx, "kafka", Delivery{
		ID:          kafkax.EventID(msg),
		Kind:        kind,
		Destination: kafkax.Destination(msg),
		Value:       msg.Value,
	})
}
