// Package events unwraps notification envelopes into a flat sequence of
// storage-object events.
//
// A delivered batch is a list of outer records; each outer record wraps a
// JSON-encoded message that itself holds a list of storage-change records.
// The normalizer flattens both levels in delivery order and isolates
// failures per record, so one malformed message never aborts its siblings.
package events

import (
	"encoding/json"
	"fmt"
	"iter"

	"go.uber.org/zap"
)

// Batch is the outer notification envelope as delivered by the substrate.
type Batch struct {
	Records []BatchRecord `json:"Records"`
}

// BatchRecord is one outer item; non-notification items carry no Sns wrapper.
type BatchRecord struct {
	Sns *Message `json:"Sns"`
}

// Message wraps the JSON-encoded storage notification document.
type Message struct {
	Message string `json:"Message"`
}

// storageBatch is the decoded inner document.
type storageBatch struct {
	Records []storageRecord `json:"Records"`
}

type storageRecord struct {
	S3 *s3Entity `json:"s3"`
}

type s3Entity struct {
	Bucket bucketEntity `json:"bucket"`
	Object objectEntity `json:"object"`
}

type bucketEntity struct {
	Name string `json:"name"`
}

type objectEntity struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
	ETag string `json:"eTag"`
}

// RawStorageEvent is one storage-object change: a bucket plus an object key.
// The key is still URI-encoded exactly as it arrived on the wire.
type RawStorageEvent struct {
	Bucket string
	Key    string
	Size   int64
	ETag   string
}

// ParseError reports an outer record whose inner message was present but not
// valid JSON. This is the one recoverable failure mode at this layer.
type ParseError struct {
	Record int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid notification message in record %d: %v", e.Record, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Normalizer flattens notification batches. It is stateless and side-effect
// free apart from diagnostic logging of skipped records.
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a normalizer. A nil logger disables diagnostics.
func NewNormalizer(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// Events returns a lazy, single-pass sequence over the storage events in a
// batch, in delivery order (outer-list order, then inner-list order).
//
// For each pair yielded, exactly one of the event and the error is set. Outer
// records that are not storage notifications are skipped with a log line;
// an unparsable inner message yields a *ParseError and processing continues
// with the next outer record.
func (n *Normalizer) Events(batch *Batch) iter.Seq2[RawStorageEvent, error] {
	return func(yield func(RawStorageEvent, error) bool) {
		if batch == nil || len(batch.Records) == 0 {
			n.logger.Debug("no records in notification batch")
			return
		}

		for i, record := range batch.Records {
			if record.Sns == nil {
				n.logger.Debug("skipping non-notification record", zap.Int("record", i))
				continue
			}
			if record.Sns.Message == "" {
				n.logger.Debug("skipping record with empty message", zap.Int("record", i))
				continue
			}

			var inner storageBatch
			if err := json.Unmarshal([]byte(record.Sns.Message), &inner); err != nil {
				n.logger.Warn("invalid notification message", zap.Int("record", i), zap.Error(err))
				if !yield(RawStorageEvent{}, &ParseError{Record: i, Err: err}) {
					return
				}
				continue
			}

			if len(inner.Records) == 0 {
				n.logger.Debug("no storage records in message", zap.Int("record", i))
				continue
			}

			for _, sr := range inner.Records {
				if sr.S3 == nil {
					n.logger.Debug("skipping non-storage record", zap.Int("record", i))
					continue
				}
				ev := RawStorageEvent{
					Bucket: sr.S3.Bucket.Name,
					Key:    sr.S3.Object.Key,
					Size:   sr.S3.Object.Size,
					ETag:   sr.S3.Object.ETag,
				}
				if !yield(ev, nil) {
					return
				}
			}
		}
	}
}
