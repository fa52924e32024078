package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewQueue(client, nil), mr
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	payload := NotificationPayload{
		Topic: TopicRecordingUploaded,
		Batch: json.RawMessage(`{"Records":[]}`),
	}
	require.NoError(t, q.EnqueueNotification(ctx, payload))

	job, queueName, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, QueueNotifications, queueName)
	assert.Equal(t, JobTypeNotification, job.Type)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, 0, job.Attempt)

	var got NotificationPayload
	require.NoError(t, json.Unmarshal(job.Payload, &got))
	assert.Equal(t, TopicRecordingUploaded, got.Topic)
	assert.JSONEq(t, `{"Records":[]}`, string(got.Batch))
}

func TestDequeuePreservesOrder(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	topics := []Topic{TopicRecordingUploaded, TopicTranscodeAudio, TopicRecordingTranscoded}
	for _, topic := range topics {
		require.NoError(t, q.EnqueueNotification(ctx, NotificationPayload{Topic: topic, Batch: json.RawMessage(`{}`)}))
	}

	for _, want := range topics {
		job, _, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.NotNil(t, job)
		var payload NotificationPayload
		require.NoError(t, json.Unmarshal(job.Payload, &payload))
		assert.Equal(t, want, payload.Topic)
	}
}

func TestRetryReenqueuesUntilDLQ(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.EnqueueNotification(ctx, NotificationPayload{Topic: TopicTranscodeAudio, Batch: json.RawMessage(`{}`)}))
	job, _, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)

	for i := 1; i < MaxRetries; i++ {
		require.NoError(t, q.Retry(ctx, job))
		job, _, err = q.Dequeue(ctx)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, i, job.Attempt)
	}

	// Final retry crosses MaxRetries and lands in the DLQ.
	require.NoError(t, q.Retry(ctx, job))
	dlq, err := mr.List(QueueDLQ)
	require.NoError(t, err)
	assert.Len(t, dlq, 1)
	assert.False(t, mr.Exists(QueueNotifications))
}

func TestDequeueSkipsCorruptJob(t *testing.T) {
	q, mr := newTestQueue(t)

	_, err := mr.Lpush(QueueNotifications, "not json")
	require.NoError(t, err)

	job, _, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}
