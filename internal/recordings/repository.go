package recordings

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/upstandfm/audio-transcoder/internal/models"
)

// Repository persists recordings addressed by their composite (pk, sk) key.
//
// Every mutation is written to be safe under at-least-once delivery: creates
// overwrite with equivalent data, completion applies the same terminal state
// however often it is delivered. No method does a read-modify-write merge.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a recordings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a recording in the transcoding state. Re-delivery of the
// same create overwrites the identity attributes and advances updated_at;
// created_at, status and the transcoded key are never touched by a repeat
// create, so a completion that already landed cannot be regressed.
func (r *Repository) Create(ctx context.Context, rec *models.Recording) error {
	const q = `INSERT INTO recordings (pk, sk, recording_id, standup_id, workspace_id, user_id, display_name, created_by, status, transcoded_file_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '')
		ON CONFLICT (pk, sk) DO UPDATE
		SET recording_id = EXCLUDED.recording_id,
		    standup_id   = EXCLUDED.standup_id,
		    workspace_id = EXCLUDED.workspace_id,
		    user_id      = EXCLUDED.user_id,
		    display_name = EXCLUDED.display_name,
		    created_by   = EXCLUDED.created_by,
		    updated_at   = NOW()
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q,
		rec.PK, rec.SK, rec.RecordingID, rec.StandupID, rec.WorkspaceID,
		rec.UserID, rec.DisplayName, rec.CreatedBy, models.RecordingStatusTranscoding,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create recording: %w", err)
	}
	rec.Status = models.RecordingStatusTranscoding
	rec.TranscodedFileKey = ""
	return nil
}

// Complete marks a recording completed and stores the transcoded object key.
// Unconditional update by composite key; applying it twice yields the same
// row as applying it once. Returns false when no row exists for the key.
func (r *Repository) Complete(ctx context.Context, pk, sk, transcodedFileKey string) (bool, error) {
	const q = `UPDATE recordings
		SET status = $1, transcoded_file_key = $2, updated_at = NOW()
		WHERE pk = $3 AND sk = $4`
	tag, err := r.pool.Exec(ctx, q, models.RecordingStatusCompleted, transcodedFileKey, pk, sk)
	if err != nil {
		return false, fmt.Errorf("complete recording: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CompleteOrCreate marks a recording completed, inserting the expected
// attributes when the create event has not been observed yet (out-of-order
// or lost delivery). created_at is preserved on existing rows.
func (r *Repository) CompleteOrCreate(ctx context.Context, rec *models.Recording, transcodedFileKey string) error {
	const q = `INSERT INTO recordings (pk, sk, recording_id, standup_id, workspace_id, user_id, display_name, created_by, status, transcoded_file_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (pk, sk) DO UPDATE
		SET status              = EXCLUDED.status,
		    transcoded_file_key = EXCLUDED.transcoded_file_key,
		    updated_at          = NOW()`
	_, err := r.pool.Exec(ctx, q,
		rec.PK, rec.SK, rec.RecordingID, rec.StandupID, rec.WorkspaceID,
		rec.UserID, rec.DisplayName, rec.CreatedBy,
		models.RecordingStatusCompleted, transcodedFileKey,
	)
	if err != nil {
		return fmt.Errorf("complete recording: %w", err)
	}
	return nil
}

// Get returns the recording for a composite key, or nil when absent.
func (r *Repository) Get(ctx context.Context, pk, sk string) (*models.Recording, error) {
	const q = `SELECT pk, sk, id, recording_id, standup_id, workspace_id, user_id, display_name, created_by, status, transcoded_file_key, created_at, updated_at
		FROM recordings WHERE pk = $1 AND sk = $2`
	var rec models.Recording
	err := r.pool.QueryRow(ctx, q, pk, sk).Scan(
		&rec.PK, &rec.SK, &rec.ID, &rec.RecordingID, &rec.StandupID, &rec.WorkspaceID,
		&rec.UserID, &rec.DisplayName, &rec.CreatedBy, &rec.Status, &rec.TranscodedFileKey,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get recording: %w", err)
	}
	return &rec, nil
}

// ListByStandup returns all recordings for a standup, newest first.
func (r *Repository) ListByStandup(ctx context.Context, standupID string) ([]models.Recording, error) {
	const q = `SELECT pk, sk, id, recording_id, standup_id, workspace_id, user_id, display_name, created_by, status, transcoded_file_key, created_at, updated_at
		FROM recordings WHERE standup_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, standupID)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()
	var list []models.Recording
	for rows.Next() {
		var rec models.Recording
		if err := rows.Scan(
			&rec.PK, &rec.SK, &rec.ID, &rec.RecordingID, &rec.StandupID, &rec.WorkspaceID,
			&rec.UserID, &rec.DisplayName, &rec.CreatedBy, &rec.Status, &rec.TranscodedFileKey,
			&rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}
