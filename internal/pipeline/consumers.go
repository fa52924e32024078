// Package pipeline drives a recording through its lifecycle in response to
// normalized storage events: create the record when a raw upload lands,
// produce the transcoded object, and mark the record completed when the
// derived object lands.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/upstandfm/audio-transcoder/internal/events"
	"github.com/upstandfm/audio-transcoder/internal/keys"
	"github.com/upstandfm/audio-transcoder/internal/models"
	"github.com/upstandfm/audio-transcoder/internal/schema"
	"github.com/upstandfm/audio-transcoder/pkg/storage"
)

// ObjectStorage is the durable object store (get/put by bucket and key).
type ObjectStorage interface {
	GetObject(ctx context.Context, bucket, key string) (*storage.Object, error)
	GetMetadata(ctx context.Context, bucket, key string) (map[string]string, error)
	PutObject(ctx context.Context, bucket, key, contentType string, body []byte, metadata map[string]string) error
}

// RecordStore is the persistent recording store, addressed by composite key.
type RecordStore interface {
	Create(ctx context.Context, rec *models.Recording) error
	Complete(ctx context.Context, pk, sk, transcodedFileKey string) (bool, error)
	CompleteOrCreate(ctx context.Context, rec *models.Recording, transcodedFileKey string) error
}

// Transcoder converts raw audio bytes to the distribution format.
type Transcoder interface {
	Transcode(ctx context.Context, in []byte) ([]byte, error)
}

// CaptureFunc receives every per-item error. The batch itself still
// succeeds; redelivery for one bad item inside a good batch would only
// reprocess the good items.
type CaptureFunc func(error)

// Config holds consumer settings.
type Config struct {
	RecordingsBucket string
	TranscodedBucket string
	// Key scheme per topic. The scheme is fixed by the topic a handler
	// serves; it is never guessed from the key shape.
	CreateScheme    keys.Scheme
	TranscodeScheme keys.Scheme
	CompleteScheme  keys.Scheme
	// StrictComplete makes completion a no-op when the record does not
	// exist, instead of upserting the expected attributes.
	StrictComplete bool
}

// DefaultConfig returns the scheme wiring of the current storage layout:
// identity travels in object metadata, except on the transcode topic where
// the workspace-audio key shape is still enforced before any bytes move.
func DefaultConfig(recordingsBucket, transcodedBucket string) Config {
	return Config{
		RecordingsBucket: recordingsBucket,
		TranscodedBucket: transcodedBucket,
		CreateScheme:     keys.SchemeMetadata,
		TranscodeScheme:  keys.SchemeWorkspaceAudio,
		CompleteScheme:   keys.SchemeMetadata,
	}
}

// Consumers handles normalized storage events per notification topic. Each
// handler isolates item failures: an error is captured and the next item
// proceeds, never aborting siblings or the batch.
type Consumers struct {
	normalizer *events.Normalizer
	storage    ObjectStorage
	store      RecordStore
	transcoder Transcoder
	cfg        Config
	capture    CaptureFunc
	logger     *zap.Logger
}

// NewConsumers creates the lifecycle consumers. A nil capture falls back to
// logging captured errors.
func NewConsumers(st ObjectStorage, store RecordStore, tc Transcoder, cfg Config, capture CaptureFunc, logger *zap.Logger) *Consumers {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Consumers{
		normalizer: events.NewNormalizer(logger),
		storage:    st,
		store:      store,
		transcoder: tc,
		cfg:        cfg,
		capture:    capture,
		logger:     logger,
	}
	if c.capture == nil {
		c.capture = func(err error) {
			logger.Error("captured pipeline error", zap.Error(err))
		}
	}
	return c
}

// HandleRecordingUploaded creates the recording record for every raw upload
// in the batch (status transcoding, no transcoded key yet). Safe under
// redelivery: a repeat create overwrites with equivalent data.
func (c *Consumers) HandleRecordingUploaded(ctx context.Context, batch *events.Batch) {
	for ev, err := range c.normalizer.Events(batch) {
		if err != nil {
			c.capture(err)
			continue
		}
		if err := c.createOne(ctx, ev); err != nil {
			c.capture(err)
		}
	}
}

// HandleTranscodeAudio fetches every raw upload in the batch, transcodes it
// and stores the derived object under the rendered output key, carrying the
// raw object's user metadata over. The record store is not touched here.
func (c *Consumers) HandleTranscodeAudio(ctx context.Context, batch *events.Batch) {
	for ev, err := range c.normalizer.Events(batch) {
		if err != nil {
			c.capture(err)
			continue
		}
		if err := c.transcodeOne(ctx, ev); err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrEmptyBody) {
				// Upload and notification delivery race; redelivery
				// will find the object.
				c.logger.Warn("recording data not available yet", zap.String("key", ev.Key), zap.Error(err))
				continue
			}
			c.capture(err)
		}
	}
}

// HandleRecordingTranscoded marks the recording completed for every derived
// object in the batch. The update is unconditional by composite key, so a
// duplicate completion yields the same record as a single one.
func (c *Consumers) HandleRecordingTranscoded(ctx context.Context, batch *events.Batch) {
	for ev, err := range c.normalizer.Events(batch) {
		if err != nil {
			c.capture(err)
			continue
		}
		if err := c.completeOne(ctx, ev); err != nil {
			c.capture(err)
		}
	}
}

func (c *Consumers) createOne(ctx context.Context, ev events.RawStorageEvent) error {
	key, err := decodeKey(ev.Key)
	if err != nil {
		return err
	}
	id, err := c.identify(ctx, key, c.cfg.CreateScheme, keys.KindRaw, c.cfg.RecordingsBucket)
	if err != nil {
		return err
	}

	rec := recordFor(id)
	if err := c.store.Create(ctx, rec); err != nil {
		return fmt.Errorf("create record for %q: %w", key, err)
	}
	c.logger.Info("recording created",
		zap.String("pk", rec.PK),
		zap.String("sk", rec.SK),
		zap.String("recording_id", rec.RecordingID),
	)
	return nil
}

func (c *Consumers) transcodeOne(ctx context.Context, ev events.RawStorageEvent) error {
	key, err := decodeKey(ev.Key)
	if err != nil {
		return err
	}
	if _, err := keys.ParseIdentity(key, c.cfg.TranscodeScheme, keys.KindRaw); err != nil {
		return err
	}

	obj, err := c.storage.GetObject(ctx, c.cfg.RecordingsBucket, key)
	if err != nil {
		return err
	}
	if _, err := schema.ValidateMetadata(obj.Metadata); err != nil {
		return fmt.Errorf("recording %q: %w", key, err)
	}

	mp3, err := c.transcoder.Transcode(ctx, obj.Body)
	if err != nil {
		return fmt.Errorf("transcode %q: %w", key, err)
	}

	outputKey, err := keys.OutputKey(key, keys.KindTranscoded)
	if err != nil {
		return err
	}
	if err := c.storage.PutObject(ctx, c.cfg.TranscodedBucket, outputKey, storage.ContentTypeMp3, mp3, obj.Metadata); err != nil {
		return err
	}
	c.logger.Info("recording transcoded",
		zap.String("key", key),
		zap.String("output_key", outputKey),
		zap.Int("size", len(mp3)),
	)
	return nil
}

func (c *Consumers) completeOne(ctx context.Context, ev events.RawStorageEvent) error {
	key, err := decodeKey(ev.Key)
	if err != nil {
		return err
	}
	// The derived key must match the transcoded profile, not the raw one.
	id, err := c.identify(ctx, key, c.cfg.CompleteScheme, keys.KindTranscoded, c.cfg.TranscodedBucket)
	if err != nil {
		return err
	}

	pk, sk := keys.PartitionKey(id), keys.SortKey(id)
	if c.cfg.StrictComplete {
		found, err := c.store.Complete(ctx, pk, sk, key)
		if err != nil {
			return fmt.Errorf("complete record for %q: %w", key, err)
		}
		if !found {
			c.logger.Warn("completion for unknown recording",
				zap.String("pk", pk), zap.String("sk", sk), zap.String("key", key))
		}
		return nil
	}
	if err := c.store.CompleteOrCreate(ctx, recordFor(id), key); err != nil {
		return fmt.Errorf("complete record for %q: %w", key, err)
	}
	c.logger.Info("recording completed", zap.String("pk", pk), zap.String("sk", sk), zap.String("key", key))
	return nil
}

// identify derives the event's identity: from the key when the scheme
// encodes it there, from the object's user metadata otherwise.
func (c *Consumers) identify(ctx context.Context, key string, scheme keys.Scheme, kind keys.FileKind, bucket string) (keys.Identity, error) {
	id, err := keys.ParseIdentity(key, scheme, kind)
	if err != nil {
		return keys.Identity{}, err
	}
	if scheme != keys.SchemeMetadata {
		return id, nil
	}

	md, err := c.storage.GetMetadata(ctx, bucket, key)
	if err != nil {
		return keys.Identity{}, err
	}
	validated, err := schema.ValidateMetadata(md)
	if err != nil {
		return keys.Identity{}, fmt.Errorf("recording %q: %w", key, err)
	}
	id.WorkspaceID = validated.WorkspaceID
	id.StandupID = validated.StandupID
	id.UserID = validated.UserID
	id.RecordingID = validated.RecordingID
	id.Date = validated.Date
	id.DisplayName = validated.Name
	return id, nil
}

func recordFor(id keys.Identity) *models.Recording {
	return &models.Recording{
		PK:          keys.PartitionKey(id),
		SK:          keys.SortKey(id),
		RecordingID: id.RecordingID,
		StandupID:   id.StandupID,
		WorkspaceID: id.WorkspaceID,
		UserID:      id.UserID,
		DisplayName: id.DisplayName,
		CreatedBy:   id.UserID,
	}
}

// decodeKey URI-decodes a wire key. Notification keys arrive form-urlencoded
// (a space becomes "+"), so QueryUnescape is the right inverse.
func decodeKey(key string) (string, error) {
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		return "", fmt.Errorf("decode storage key %q: %w", key, err)
	}
	return decoded, nil
}
