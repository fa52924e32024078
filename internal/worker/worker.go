package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/upstandfm/audio-transcoder/internal/events"
	"github.com/upstandfm/audio-transcoder/internal/pipeline"
	"github.com/upstandfm/audio-transcoder/pkg/queue"
)

// NotificationProcessor processes queued notification batches: unwrap the
// batch and hand it to the consumer for its topic.
type NotificationProcessor struct {
	consumers *pipeline.Consumers
	queue     *queue.Queue
	logger    *zap.Logger
}

// NewNotificationProcessor creates a notification batch processor.
func NewNotificationProcessor(consumers *pipeline.Consumers, q *queue.Queue, logger *zap.Logger) *NotificationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationProcessor{consumers: consumers, queue: q, logger: logger}
}

// Process executes one notification batch job. It only fails for a job that
// cannot be dispatched at all (unknown type, unreadable payload); per-item
// failures inside a batch are captured by the consumers and never bubble up,
// so a bad item does not trigger redelivery of its siblings.
func (p *NotificationProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeNotification {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.NotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	var batch events.Batch
	if err := json.Unmarshal(payload.Batch, &batch); err != nil {
		return fmt.Errorf("unmarshal batch: %w", err)
	}

	switch payload.Topic {
	case queue.TopicRecordingUploaded:
		p.consumers.HandleRecordingUploaded(ctx, &batch)
	case queue.TopicTranscodeAudio:
		p.consumers.HandleTranscodeAudio(ctx, &batch)
	case queue.TopicRecordingTranscoded:
		p.consumers.HandleRecordingTranscoded(ctx, &batch)
	default:
		return fmt.Errorf("unknown topic: %s", payload.Topic)
	}

	p.logger.Debug("notification batch processed",
		zap.String("job_id", job.ID),
		zap.String("topic", string(payload.Topic)),
		zap.Int("records", len(batch.Records)),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *NotificationProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
