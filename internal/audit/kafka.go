// Package audit optionally mirrors every StatusLog append to Kafka, in
// the shape of datasync/chaindatafetcher/kafka/repository.go's
// broker.Publish(topic, msg) — best-effort, fire-and-forget, never the
// source of truth. The relational StatusLog table (internal/store)
// remains authoritative; this is an operator-facing audit trail only.
package audit

import (
	"encoding/json"

	"github.com/Shopify/sarama"

	"github.com/iskay-network/usdc-flow-tracker/internal/model"
	"github.com/iskay-network/usdc-flow-tracker/internal/xlog"
)

var logger = xlog.New("audit")

const defaultTopic = "flow-status-log"

// Mirror publishes StatusLog rows to Kafka. A nil *Mirror (KAFKA_BROKERS
// unset) is valid and Publish becomes a no-op, so callers never need a
// presence check.
type Mirror struct {
	producer sarama.AsyncProducer
	topic    string
}

// NewMirror connects an async producer to brokers. Returns (nil, nil) if
// brokers is empty — the feature is off by default.
func NewMirror(brokers []string, topic string) (*Mirror, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	if topic == "" {
		topic = defaultTopic
	}
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = false
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Version = sarama.V1_1_0_0

	producer, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	m := &Mirror{producer: producer, topic: topic}
	go m.drainErrors()
	return m, nil
}

func (m *Mirror) drainErrors() {
	for err := range m.producer.Errors() {
		logger.Warn("kafka publish failed", "topic", m.topic, "err", err.Err)
	}
}

// Publish mirrors entry to Kafka, fire-and-forget. A nil Mirror is a
// no-op.
func (m *Mirror) Publish(entry *model.StatusLog) {
	if m == nil {
		return
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		logger.Warn("failed to marshal status log for kafka", "err", err)
		return
	}
	m.producer.Input() <- &sarama.ProducerMessage{
		Topic: m.topic,
		Key:   sarama.StringEncoder(entry.FlowID),
		Value: sarama.ByteEncoder(payload),
	}
}

// Close flushes and closes the underlying producer. A nil Mirror is a
// no-op.
func (m *Mirror) Close() error {
	if m == nil {
		return nil
	}
	return m.producer.Close()
}
