package keys

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentityStandupAudio(t *testing.T) {
	id, err := ParseIdentity("audio/standups/J0W4Z1uE/12-10-2019/auth0|abc/today.webm", SchemeStandupAudio, KindRaw)
	require.NoError(t, err)
	assert.Equal(t, "J0W4Z1uE", id.StandupID)
	assert.Equal(t, "12-10-2019", id.Date)
	assert.Equal(t, "auth0|abc", id.UserID)
	assert.Equal(t, "today", id.RecordingID)
	assert.Equal(t, KindRaw, id.Kind)
}

func TestParseIdentityStandupAudioRejectsWrongType(t *testing.T) {
	_, err := ParseIdentity("image/standups/J0W4Z1uE/12-10-2019/auth0|abc/today.webm", SchemeStandupAudio, KindRaw)

	var keyErr *InvalidKeyError
	require.True(t, errors.As(err, &keyErr))
	assert.Equal(t, "image/standups/J0W4Z1uE/12-10-2019/auth0|abc/today.webm", keyErr.Key)
	assert.Equal(t, "audio/standups/:standupId/DD-MM-YYYY/:userId/:filename.webm", keyErr.Format)
}

func TestParseIdentityStandupAudioRejections(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"wrong entity", "audio/books/J0W4Z1uE/12-10-2019/auth0|abc/today.webm"},
		{"empty standup id", "audio/standups//12-10-2019/auth0|abc/today.webm"},
		{"standup id too short", "audio/standups/abc/12-10-2019/auth0|abc/today.webm"},
		{"standup id too long", "audio/standups/aaaaaaaaaaaaaaaaaaaa/12-10-2019/auth0|abc/today.webm"},
		{"malformed date", "audio/standups/J0W4Z1uE/111-2222-3/auth0|abc/today.webm"},
		{"missing user", "audio/standups/J0W4Z1uE/12-10-2019//today.webm"},
		{"wrong extension", "audio/standups/J0W4Z1uE/12-10-2019/auth0|abc/today.mp3"},
		{"extra segment", "audio/standups/J0W4Z1uE/12-10-2019/auth0|abc/extra/today.webm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIdentity(tt.key, SchemeStandupAudio, KindRaw)
			var keyErr *InvalidKeyError
			assert.True(t, errors.As(err, &keyErr), "expected InvalidKeyError for %q", tt.key)
		})
	}
}

func TestParseIdentityWorkspaceAudio(t *testing.T) {
	id, err := ParseIdentity("audio/wwwwwww/sssssss/rrrrrrr.webm", SchemeWorkspaceAudio, KindRaw)
	require.NoError(t, err)
	assert.Equal(t, "wwwwwww", id.WorkspaceID)
	assert.Equal(t, "sssssss", id.StandupID)
	assert.Equal(t, "rrrrrrr", id.RecordingID)
}

func TestParseIdentityWorkspaceAudioTranscoded(t *testing.T) {
	_, err := ParseIdentity("audio/wwwwwww/sssssss/rrrrrrr.webm", SchemeWorkspaceAudio, KindTranscoded)
	var keyErr *InvalidKeyError
	require.True(t, errors.As(err, &keyErr))
	assert.Equal(t, "audio/:workspaceId/:standupId/:recordingId.mp3", keyErr.Format)

	id, err := ParseIdentity("audio/wwwwwww/sssssss/rrrrrrr.mp3", SchemeWorkspaceAudio, KindTranscoded)
	require.NoError(t, err)
	assert.Equal(t, KindTranscoded, id.Kind)
}

func TestParseIdentityMetadataSchemeChecksOnlyExtension(t *testing.T) {
	id, err := ParseIdentity("anything/goes/here-42.webm", SchemeMetadata, KindRaw)
	require.NoError(t, err)
	assert.Empty(t, id.StandupID)
	assert.Equal(t, "anything/goes/here-42.webm", id.SourceKey)

	_, err = ParseIdentity("anything/goes/here-42.mp3", SchemeMetadata, KindRaw)
	assert.Error(t, err)
}

func TestOutputKeyReplacesOnlyExtension(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"audio/wwwwwww/sssssss/rrrrrrr.webm", "audio/wwwwwww/sssssss/rrrrrrr.mp3"},
		{"audio/standups/J0W4Z1uE/12-10-2019/auth0|abc/today.webm", "audio/standups/J0W4Z1uE/12-10-2019/auth0|abc/today.mp3"},
		// A dot in a path segment must not be mistaken for the extension.
		{"audio/v2.1/sssssss/rrrrrrr.webm", "audio/v2.1/sssssss/rrrrrrr.mp3"},
	}
	for _, tt := range tests {
		got, err := OutputKey(tt.key, KindTranscoded)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestOutputKeyRejectsKeysWithoutExtension(t *testing.T) {
	_, err := OutputKey("audio/wwwwwww/sssssss/rrrrrrr", KindTranscoded)
	assert.Error(t, err)

	_, err = OutputKey("audio/v2.1/sssssss/rrrrrrr", KindTranscoded)
	assert.Error(t, err)
}

func TestOutputKeyRoundTripsParsedKeys(t *testing.T) {
	keys := []string{
		"audio/wwwwwww/sssssss/rrrrrrr.webm",
		"audio/standups/J0W4Z1uE/12-10-2019/auth0|abc/today.webm",
	}
	schemes := []Scheme{SchemeWorkspaceAudio, SchemeStandupAudio}
	for i, key := range keys {
		id, err := ParseIdentity(key, schemes[i], KindRaw)
		require.NoError(t, err)

		out, err := OutputKey(id.SourceKey, KindTranscoded)
		require.NoError(t, err)

		// Every non-extension path segment survives unchanged.
		assert.Equal(t, key[:len(key)-len("webm")], out[:len(out)-len("mp3")])

		// The derived key parses under the transcoded profile.
		_, err = ParseIdentity(out, schemes[i], KindTranscoded)
		assert.NoError(t, err)
	}
}

func TestPartitionKey(t *testing.T) {
	assert.Equal(t,
		"workspace#wwwwwww#standup#sssssss",
		PartitionKey(Identity{WorkspaceID: "wwwwwww", StandupID: "sssssss"}),
	)
	assert.Equal(t,
		"standup#J0W4Z1uE",
		PartitionKey(Identity{StandupID: "J0W4Z1uE"}),
	)
}

func TestSortKey(t *testing.T) {
	id := Identity{UserID: "u1", RecordingID: "rrrrrrr", Date: "2020-05-01"}
	assert.Equal(t, "update#2020-05-01#user#u1#recording#rrrrrrr", SortKey(id))
}

func TestValidShortID(t *testing.T) {
	assert.True(t, ValidShortID("J0W4Z1uE"))
	assert.True(t, ValidShortID("a_b-c12"))
	assert.False(t, ValidShortID("short"))
	assert.False(t, ValidShortID("waaaaytoolongforanid"))
	assert.False(t, ValidShortID("has space1"))
	assert.False(t, ValidShortID(""))
}

func TestDatePredicates(t *testing.T) {
	assert.True(t, ValidDateYMD("2020-05-01"))
	assert.False(t, ValidDateYMD("01-05-2020"))
	assert.True(t, ValidDateDMY("01-05-2020"))
	assert.False(t, ValidDateDMY("2020-05-01"))
}
