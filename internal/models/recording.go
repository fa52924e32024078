package models

import (
	"time"

	"github.com/google/uuid"
)

// Recording transcoding lifecycle. A failed transcode never emits the
// completion event, so a recording can stay in "transcoding" indefinitely;
// there is no failed status.
const (
	RecordingStatusTranscoding = "transcoding"
	RecordingStatusCompleted   = "completed"
)

// Recording is one uploaded audio recording, addressed by the composite
// (PK, SK) record-store key derived from its identity.
type Recording struct {
	PK                string    `json:"-"`
	SK                string    `json:"-"`
	ID                uuid.UUID `json:"id"`
	RecordingID       string    `json:"recording_id"`
	StandupID         string    `json:"standup_id"`
	WorkspaceID       string    `json:"workspace_id,omitempty"`
	UserID            string    `json:"user_id"`
	DisplayName       string    `json:"display_name,omitempty"`
	CreatedBy         string    `json:"created_by"`
	Status            string    `json:"status"`
	TranscodedFileKey string    `json:"transcoded_file_key,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
