package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upstandfm/audio-transcoder/internal/pipeline"
	"github.com/upstandfm/audio-transcoder/pkg/queue"
)

func notificationJob(t *testing.T, topic queue.Topic, batch string) *queue.Job {
	t.Helper()
	payload, err := json.Marshal(queue.NotificationPayload{Topic: topic, Batch: json.RawMessage(batch)})
	require.NoError(t, err)
	return &queue.Job{
		ID:        "job-1",
		Type:      queue.JobTypeNotification,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

func newProcessor() *NotificationProcessor {
	// Empty batches never reach storage or the record store, so nil
	// collaborators are fine for dispatch tests.
	consumers := pipeline.NewConsumers(nil, nil, nil, pipeline.DefaultConfig("raw", "out"), nil, nil)
	return NewNotificationProcessor(consumers, nil, nil)
}

func TestProcessDispatchesKnownTopics(t *testing.T) {
	p := newProcessor()
	for _, topic := range []queue.Topic{
		queue.TopicRecordingUploaded,
		queue.TopicTranscodeAudio,
		queue.TopicRecordingTranscoded,
	} {
		err := p.Process(context.Background(), notificationJob(t, topic, `{"Records":[]}`))
		assert.NoError(t, err, "topic %s", topic)
	}
}

func TestProcessRejectsUnknownJobType(t *testing.T) {
	p := newProcessor()
	err := p.Process(context.Background(), &queue.Job{Type: "email"})
	assert.ErrorContains(t, err, "unknown job type")
}

func TestProcessRejectsUnknownTopic(t *testing.T) {
	p := newProcessor()
	err := p.Process(context.Background(), notificationJob(t, "nonsense", `{"Records":[]}`))
	assert.ErrorContains(t, err, "unknown topic")
}

func TestProcessRejectsCorruptPayload(t *testing.T) {
	p := newProcessor()
	job := &queue.Job{Type: queue.JobTypeNotification, Payload: json.RawMessage(`{broken`)}
	err := p.Process(context.Background(), job)
	assert.ErrorContains(t, err, "unmarshal payload")
}

func TestProcessRejectsCorruptBatch(t *testing.T) {
	p := newProcessor()
	job := &queue.Job{
		Type:    queue.JobTypeNotification,
		Payload: json.RawMessage(`{"topic":"recording-uploaded","batch":"not a batch"}`),
	}
	err := p.Process(context.Background(), job)
	assert.ErrorContains(t, err, "unmarshal batch")
}
