package xkafka_test

import (
	"context"
	"errors"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/omeyang/xbus/pkg/mq/xkafka"
	"github.com/omeyang/xbus/pkg/mq/xkafka/xkafkamock"
)

func newTestConsumer(t *testing.T) (*xkafka.Consumer, *xkafkamock.MockConsumerClient) {
	t.Helper()
	ctrl := gomock.NewController(t)
	client := xkafkamock.NewMockConsumerClient(ctrl)
	c, err := xkafka.NewConsumerFromClient(client)
	require.NoError(t, err)
	return c, client
}

func TestConsumer_FetchKinds(t *testing.T) {
	c, client := newTestConsumer(t)
	topic := "orders"
	msg := &kafka.Message{TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: 1, Offset: 5}}
	eof := kafka.PartitionEOF{Topic: &topic, Partition: 1, Offset: 6}

	gomock.InOrder(
		client.EXPECT().Poll(100).Return(msg),
		client.EXPECT().Poll(100).Return(eof),
		client.EXPECT().Poll(100).Return(nil),
		client.EXPECT().Poll(100).Return(kafka.NewError(kafka.ErrTransport, "transient", false)),
		client.EXPECT().Poll(100).Return(kafka.OffsetsCommitted{}),
		client.EXPECT().Poll(100).Return(&kafka.Message{TopicPartition: kafka.TopicPartition{
			Topic: &topic, Error: kafka.NewError(kafka.ErrUnknownTopicOrPart, "gone", false),
		}}),
		client.EXPECT().Poll(100).Return(kafka.NewError(kafka.ErrFatal, "fenced", true)),
	)

	ctx := context.Background()
	f, err := c.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, xkafka.FetchMessage, f.Kind)
	assert.Same(t, msg, f.Message)

	f, err = c.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, xkafka.FetchEndOfPartition, f.Kind)
	assert.Equal(t, int32(1), f.Partition.Partition)
	assert.Equal(t, kafka.Offset(6), f.Partition.Offset)

	for range 4 {
		f, err = c.Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, xkafka.FetchNone, f.Kind)
		assert.Nil(t, f.Message)
	}

	_, err = c.Fetch(ctx)
	require.Error(t, err)
	var kerr kafka.Error
	require.ErrorAs(t, err, &kerr)
	assert.True(t, kerr.IsFatal())

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.MessagesConsumed)
	assert.Equal(t, int64(1), stats.EndOfPartition)
	assert.Equal(t, int64(3), stats.Errors)
	assert.Equal(t, "end_of_partition", xkafka.FetchEndOfPartition.String())
}

func TestConsumer_FetchHonorsCancellation(t *testing.T) {
	c, _ := newTestConsumer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// 取消后不会触达 Poll
	_, err := c.Fetch(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestConsumer_SubscribeAssignCommitSeek(t *testing.T) {
	c, client := newTestConsumer(t)
	topic := "orders"
	tp := kafka.TopicPartition{Topic: &topic, Partition: 2, Offset: 9}
	msg := &kafka.Message{TopicPartition: tp}
	seekErr := errors.New("not assigned")

	client.EXPECT().SubscribeTopics([]string{"a", "b"}, nil).Return(nil)
	client.EXPECT().Assign([]kafka.TopicPartition{tp}).Return(nil)
	client.EXPECT().CommitMessage(msg).Return(nil, nil)
	gomock.InOrder(
		client.EXPECT().Seek(tp, 0).Return(nil),
		client.EXPECT().Seek(tp, 0).Return(seekErr),
	)

	require.NoError(t, c.Subscribe([]string{"a", "b"}))
	require.ErrorIs(t, c.Subscribe(nil), xkafka.ErrEmptyTopics)
	require.NoError(t, c.Assign([]kafka.TopicPartition{tp}))
	require.NoError(t, c.Commit(msg))
	require.ErrorIs(t, c.Commit(nil), xkafka.ErrNilMessage)
	require.NoError(t, c.Seek(tp))
	require.ErrorIs(t, c.Seek(tp), seekErr)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Commits)
	assert.Equal(t, int64(1), stats.Seeks)
}

func TestConsumer_CloseOnce(t *testing.T) {
	c, client := newTestConsumer(t)
	unsubErr := errors.New("unsubscribe failed")
	client.EXPECT().Unsubscribe().Return(unsubErr).Times(1)
	client.EXPECT().Close().Return(nil).Times(1)

	err := c.Close()
	require.ErrorIs(t, err, unsubErr)
	require.NoError(t, c.Close(), "second close is a no-op")

	_, err = c.Fetch(context.Background())
	require.ErrorIs(t, err, xkafka.ErrClosed)
	require.ErrorIs(t, c.Commit(&kafka.Message{}), xkafka.ErrClosed)

	_, err = xkafka.NewConsumerFromClient(nil)
	require.ErrorIs(t, err, xkafka.ErrNilClient)
}
