package kafka

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
)

const AuditTopic = "library-audit"

type Config struct {
	Addrs []string `envconfig:"KAFKA_ADDRS"`
}

// AuditEvent is the wire format for catalog audit records.
type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	PatronID  string    `json:"patronId,omitempty"`
	BookID    int       `json:"bookId,omitempty"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
}

func NewProducer(cfg Config) (sarama.SyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForAll
	defaultCfg.Producer.Return.Successes = true

	return sarama.NewSyncProducer(cfg.Addrs, defaultCfg)
}

type Enqueuer interface {
	Enqueue(topic string, v any) error
}

func NewEnqueuer(producer sarama.SyncProducer) Enqueuer {
	return &enqueuerImpl{
		producer: producer,
	}
}

type enqueuerImpl struct {
	producer sarama.SyncProducer
}

func (q *enqueuerImpl) Enqueue(topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{Topic: topic, Value: sarama.StringEncoder(data)}
	if _, _, err = q.producer.SendMessage(msg); err != nil {
		return err
	}
	return nil
}

// NopEnqueuer drops events, used when no brokers are configured.
type NopEnqueuer struct{}

func (NopEnqueuer) Enqueue(string, any) error { return nil }
