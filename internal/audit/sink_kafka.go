package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer is the subset of *kgo.Client the Kafka sink needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaSink publishes each record as JSON keyed by correlation id, so every
// record for one patient journey lands on the same partition.
type KafkaSink struct {
	producer Producer
	topic    string
}

func NewKafkaSink(producer Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Write(ctx context.Context, records []Record) error {
	msgs := make([]*kgo.Record, 0, len(records))
	for _, r := range records {
		value, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode audit record %s: %w", r.ID, err)
		}
		key := r.CorrelationID
		if key == "" {
			key = r.ID
		}
		msgs = append(msgs, &kgo.Record{
			Topic: s.topic,
			Key:   []byte(key),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: "transaction_type", Value: []byte(r.TransactionType)},
				{Key: "outcome", Value: []byte(r.Outcome)},
			},
		})
	}
	if err := s.producer.ProduceSync(ctx, msgs...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit batch: %w", err)
	}
	return nil
}
