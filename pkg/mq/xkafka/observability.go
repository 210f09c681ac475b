package xkafka

import (
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.opentelemetry.io/otel/attribute"
)

const (
	componentName = "xkafka"
)

func kafkaAttrs(topic string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("messaging.system", "kafka")}
	if topic != "" {
		attrs = append(attrs, attribute.String("messaging.destination.name", topic))
	}
	return attrs
}

func messageAttrs(msg *kafka.Message) []attribute.KeyValue {
	attrs := kafkaAttrs(topicOf(msg))
	if msg == nil {
		return attrs
	}
	return append(attrs,
		attribute.Int("messaging.kafka.destination.partition", int(msg.TopicPartition.Partition)),
		attribute.Int64("messaging.kafka.message.offset", int64(msg.TopicPartition.Offset)),
	)
}

func topicOf(msg *kafka.Message) string {
	if msg == nil || msg.TopicPartition.Topic == nil {
		return ""
	}
	return *msg.TopicPartition.Topic
}
