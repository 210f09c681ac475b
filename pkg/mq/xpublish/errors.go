package xpublish

import "errors"

// ReasonUncertain 是 Flush 返回时仍未收到回执的消息的失败原因。
const ReasonUncertain = "Delivery timed out or status uncertain"

var (
	// ErrNilProducer 表示生产者为空。
	ErrNilProducer = errors.New("xpublish: nil producer")

	// ErrDeliveryUncertain 表示 Flush 返回时消息仍未收到回执。
	ErrDeliveryUncertain = errors.New("xpublish: delivery timed out or status uncertain")
)
