package kafka

import (
	"encoding/base64"
	"fmt"
	"sort"

	"github.com/aws/aws-lambda-go/events"
	"github.com/segmentio/kafka-go"
)

// LambdaMessages decodes the records of a Kafka-triggered Lambda invocation
// (MSK or self-managed event source). Messages come back ordered by topic,
// partition and offset; records with undecodable payloads are reported in
// bad and left out.
func LambdaMessages(ev events.KafkaEvent) (msgs []kafka.Message, bad []error) {
	keys := make([]string, 0, len(ev.Records))
	for k := range ev.Records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, rec := range ev.Records[k] {
			msg, err := fromLambdaRecord(rec)
			if err != nil {
				bad = append(bad, fmt.Errorf("record %s/%d@%d: %w", rec.Topic, rec.Partition, rec.Offset, err))
				continue
			}
			msgs = append(msgs, msg)
		}
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		if a.Topic != b.Topic {
			return a.Topic < b.Topic
		}
		if a.Partition != b.Partition {
			return a.Partition < b.Partition
		}
		return a.Offset < b.Offset
	})
	return msgs, bad
}

func fromLambdaRecord(rec events.KafkaRecord) (kafka.Message, error) {
	key, err := base64.StdEncoding.DecodeString(rec.Key)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to decode key: %w", err)
	}
	value, err := base64.StdEncoding.DecodeString(rec.Value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to decode value: %w", err)
	}
	return kafka.Message{
		Topic:     rec.Topic,
		Partition: int(rec.Partition),
		Offset:    rec.Offset,
		Key:       key,
		Value:     value,
		Time:      rec.Timestamp.Time,
	}, nil
}
