package xpublish

import (
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"

	"github.com/omeyang/xbus/pkg/mq/xkafka"
)

// Outcome 批次中一条消息的发布结果。
type Outcome struct {
	// Index 消息在批次中的下标。
	Index     int
	Key       []byte
	Partition int32
	Offset    kafka.Offset
	// Err 为 nil 表示成功。
	Err error
	// Reason 失败原因的文本形式。
	Reason string
}

// BatchResult 一次批量发布的结果，Succeeded 与 Failed 均按下标升序。
type BatchResult struct {
	BatchID   uuid.UUID
	Succeeded []Outcome
	Failed    []Outcome
}

// OK 是否全部成功。
func (r BatchResult) OK() bool {
	return len(r.Failed) == 0
}

func (r *BatchResult) add(o Outcome) {
	if o.Err != nil {
		r.Failed = append(r.Failed, o)
		return
	}
	r.Succeeded = append(r.Succeeded, o)
}

func outcomeOf(index int, report xkafka.DeliveryReport) Outcome {
	o := Outcome{
		Index:     index,
		Key:       report.Key,
		Partition: report.Partition,
		Offset:    report.Offset,
		Err:       report.Err,
	}
	if report.Err != nil {
		o.Reason = report.Err.Error()
	}
	return o
}

func failure(index int, key []byte, err error) Outcome {
	return Outcome{Index: index, Key: key, Offset: kafka.OffsetInvalid, Err: err, Reason: err.Error()}
}

func uncertain(index int, key []byte) Outcome {
	return Outcome{Index: index, Key: key, Offset: kafka.OffsetInvalid, Err: ErrDeliveryUncertain, Reason: ReasonUncertain}
}
