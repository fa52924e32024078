package ingest

import (
	"crypto/subtle"
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/upstandfm/audio-transcoder/pkg/queue"
	"github.com/upstandfm/audio-transcoder/pkg/response"
)

// maxBatchBytes caps notification bodies; batches are envelope lists, not
// payload data.
const maxBatchBytes = 1 << 20

// Handler receives notification batches over HTTP and enqueues them for the
// worker. The delivery substrate retries on non-2xx, so anything accepted
// here is durable before we answer.
type Handler struct {
	queue  *queue.Queue
	token  string // shared secret with the delivery substrate; empty disables the check
	logger *zap.Logger
}

// NewHandler creates a notification intake handler.
func NewHandler(q *queue.Queue, token string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{queue: q, token: token, logger: logger}
}

var topics = map[string]queue.Topic{
	string(queue.TopicRecordingUploaded):   queue.TopicRecordingUploaded,
	string(queue.TopicTranscodeAudio):      queue.TopicTranscodeAudio,
	string(queue.TopicRecordingTranscoded): queue.TopicRecordingTranscoded,
}

// Notify handles POST /notifications/:topic. The body is the raw batch
// document; it is checked for well-formed JSON and queued as-is. Unwrapping
// happens in the worker so a slow ffmpeg run never blocks intake.
func (h *Handler) Notify(c *gin.Context) {
	if h.token != "" && subtle.ConstantTimeCompare([]byte(c.Query("token")), []byte(h.token)) != 1 {
		response.Unauthorized(c, "invalid token")
		return
	}

	topic, ok := topics[c.Param("topic")]
	if !ok {
		response.NotFound(c, "unknown topic")
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBatchBytes))
	if err != nil {
		response.BadRequest(c, "unreadable body")
		return
	}
	if !json.Valid(body) {
		response.BadRequest(c, "body must be JSON")
		return
	}

	if err := h.queue.EnqueueNotification(c.Request.Context(), queue.NotificationPayload{
		Topic: topic,
		Batch: body,
	}); err != nil {
		h.logger.Error("enqueue notification failed", zap.Error(err), zap.String("topic", string(topic)))
		response.Internal(c, "failed to enqueue notification")
		return
	}

	h.logger.Info("notification accepted", zap.String("topic", string(topic)), zap.Int("bytes", len(body)))
	response.Accepted(c, gin.H{"topic": topic})
}
