package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFields() map[string]string {
	return map[string]string{
		"user-id":      "auth0|user1",
		"workspace-id": "wwwwwww",
		"standup-id":   "sssssss",
		"recording-id": "rrrrrrr",
		"date":         "2020-05-01",
		"name":         "Todays update",
	}
}

func TestValidateMetadata(t *testing.T) {
	md, err := ValidateMetadata(validFields())
	require.NoError(t, err)
	assert.Equal(t, "auth0|user1", md.UserID)
	assert.Equal(t, "wwwwwww", md.WorkspaceID)
	assert.Equal(t, "sssssss", md.StandupID)
	assert.Equal(t, "rrrrrrr", md.RecordingID)
	assert.Equal(t, "2020-05-01", md.Date)
	assert.Equal(t, "Todays update", md.Name)
}

func TestValidateMetadataAcceptsCamelCaseSpelling(t *testing.T) {
	md, err := ValidateMetadata(map[string]string{
		"userId":      "u1",
		"workspaceId": "wwwwwww",
		"standupId":   "sssssss",
		"recordingId": "rrrrrrr",
		"date":        "2020-05-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", md.UserID)
	assert.Equal(t, "wwwwwww", md.WorkspaceID)
}

func TestValidateMetadataNameIsOptional(t *testing.T) {
	fields := validFields()
	delete(fields, "name")
	md, err := ValidateMetadata(fields)
	require.NoError(t, err)
	assert.Empty(t, md.Name)

	// Empty string is normalized to absent, not rejected.
	fields["name"] = ""
	md, err = ValidateMetadata(fields)
	require.NoError(t, err)
	assert.Empty(t, md.Name)
}

func TestValidateMetadataStripsUnknownFields(t *testing.T) {
	fields := validFields()
	fields["content-encoding"] = "gzip"
	fields["x-custom"] = "whatever"

	_, err := ValidateMetadata(fields)
	assert.NoError(t, err)
}

func TestValidateMetadataAggregatesEveryViolation(t *testing.T) {
	_, err := ValidateMetadata(map[string]string{
		"workspace-id": "bad",        // too short
		"standup-id":   "sssssss",    // ok
		"date":         "01-05-2020", // wrong format
		// user-id and recording-id missing entirely
	})

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))

	violated := make(map[string]string, len(schemaErr.Fields))
	for _, f := range schemaErr.Fields {
		violated[f.Field] = f.Reason
	}
	assert.Len(t, violated, 4)
	assert.Equal(t, "is required", violated["user-id"])
	assert.Equal(t, "must be 7 to 14 URL friendly characters", violated["workspace-id"])
	assert.Equal(t, "is required", violated["recording-id"])
	assert.Equal(t, "must have format \"YYYY-MM-DD\"", violated["date"])
	assert.NotContains(t, violated, "standup-id")
}

func TestValidateMetadataEmptyInput(t *testing.T) {
	_, err := ValidateMetadata(nil)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Len(t, schemaErr.Fields, 5) // everything but name
}

func TestValidateMetadataRejectsBadNames(t *testing.T) {
	fields := validFields()

	fields["name"] = "has/slash"
	_, err := ValidateMetadata(fields)
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	require.Len(t, schemaErr.Fields, 1)
	assert.Equal(t, "name", schemaErr.Fields[0].Field)

	long := make([]byte, 71)
	for i := range long {
		long[i] = 'a'
	}
	fields["name"] = string(long)
	_, err = ValidateMetadata(fields)
	assert.Error(t, err)
}
