package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueNotifications is the Redis list key for notification batch jobs.
	QueueNotifications = "worker:notifications"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeNotification JobType = "notification"
)

// Topic identifies which subscriber a notification batch is destined for.
type Topic string

const (
	// TopicRecordingUploaded creates the recording row when a raw upload lands.
	TopicRecordingUploaded Topic = "recording-uploaded"
	// TopicTranscodeAudio transcodes the raw upload to the distribution format.
	TopicTranscodeAudio Topic = "transcode-audio"
	// TopicRecordingTranscoded marks the recording completed when the derived
	// object lands.
	TopicRecordingTranscoded Topic = "recording-transcoded"
)

// NotificationPayload is the payload for notification batch jobs: the topic
// it arrived on plus the undecoded batch document.
type NotificationPayload struct {
	Topic Topic           `json:"topic"`
	Batch json.RawMessage `json:"batch"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueNotification enqueues a notification batch for a topic.
func (q *Queue) EnqueueNotification(ctx context.Context, payload NotificationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      JobTypeNotification,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueNotifications, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued notification job", zap.String("job_id", job.ID), zap.String("topic", string(payload.Topic)))
	return nil
}

// Dequeue blocks until a job is available or ctx is done. Returns job and key (queue name).
func (q *Queue) Dequeue(ctx context.Context) (*Job, string, error) {
	result, err := q.client.BLPop(ctx, 0, QueueNotifications).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, "", nil
		}
		return nil, "", err
	}
	if len(result) < 2 {
		return nil, "", nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, "", nil
	}
	return &job, result[0], nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.client.RPush(ctx, QueueNotifications, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}
