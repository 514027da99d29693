package kafkax

import (
	"strings"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Header keys carried on inbound notification events.
const (
	HeaderEventID     = "event_id"
	HeaderDestination = "destination"
)

// EventID returns the event_id header, the message key, or a fresh id, in that
// order.
func EventID(msg kafka.Message) string {
	if id := HeaderValue(msg.Headers, HeaderEventID); id != "" {
		return id
	}
	if len(msg.Key) > 0 {
		return string(msg.Key)
	}
	return uuid.NewString()
}

// Destination is the address the message was published to. A destination
// header set by the producer (for example "replyTopic/LN-42") wins over the
// Kafka topic name.
func Destination(msg kafka.Message) string {
	if d := HeaderValue(msg.Headers, HeaderDestination); d != "" {
		return d
	}
	return msg.Topic
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
