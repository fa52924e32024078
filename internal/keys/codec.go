// Package keys parses and renders storage keys for audio recordings.
//
// The storage layout went through several generations, each with its own
// key-naming scheme. One codec covers all of them: callers select the scheme
// for the notification topic they serve, the codec never guesses it from the
// key shape. The syntactic profile of every identifier (the 7-14 char URL
// friendly ids, the date shapes) is defined here once, as data, so parsers
// and error messages cannot drift apart.
package keys

import (
	"fmt"
	"regexp"
	"strings"
)

// FileKind distinguishes raw uploads from transcoded output.
type FileKind int

const (
	// KindRaw is an uploaded recording (webm).
	KindRaw FileKind = iota
	// KindTranscoded is a transcoded recording (mp3).
	KindTranscoded
)

// Ext returns the file extension for the kind, without the dot.
func (k FileKind) Ext() string {
	if k == KindTranscoded {
		return "mp3"
	}
	return "webm"
}

// Scheme selects a key-naming generation. The set is closed; adding a
// generation means adding a constant and its profile below.
type Scheme int

const (
	// SchemeStandupAudio is the fixed-prefix layout
	// "audio/standups/:standupId/DD-MM-YYYY/:userId/:filename.<ext>".
	SchemeStandupAudio Scheme = iota
	// SchemeWorkspaceAudio is the flatter layout
	// "audio/:workspaceId/:standupId/:recordingId.<ext>".
	SchemeWorkspaceAudio
	// SchemeMetadata is the current layout: the key carries no semantic
	// structure and identity travels in the object's user metadata.
	SchemeMetadata
)

// Identifier and date profiles. Generated ids are 7 to 14 URL friendly
// characters (shortid alphabet).
const (
	shortIDPattern = `[a-zA-Z0-9_-]{7,14}`
	dateDMYPattern = `\d{2}-\d{2}-\d{4}`
	dateYMDPattern = `\d{4}-\d{2}-\d{2}`
)

var (
	reShortID = regexp.MustCompile(`^` + shortIDPattern + `$`)
	reDateDMY = regexp.MustCompile(`^` + dateDMYPattern + `$`)
	reDateYMD = regexp.MustCompile(`^` + dateYMDPattern + `$`)
)

// ValidShortID reports whether s matches the generated-id profile.
func ValidShortID(s string) bool { return reShortID.MatchString(s) }

// ValidDateDMY reports whether s is a DD-MM-YYYY date key.
func ValidDateDMY(s string) bool { return reDateDMY.MatchString(s) }

// ValidDateYMD reports whether s is a YYYY-MM-DD date.
func ValidDateYMD(s string) bool { return reDateYMD.MatchString(s) }

// Identity is the structured identity of one recording, derived per event
// from a storage key or from object metadata. It is never persisted.
type Identity struct {
	WorkspaceID string
	StandupID   string
	UserID      string
	RecordingID string // the filename segment under SchemeStandupAudio
	Date        string // DD-MM-YYYY for key-borne dates, YYYY-MM-DD for metadata
	DisplayName string
	Kind        FileKind
	SourceKey   string
}

// InvalidKeyError reports a key that does not match its scheme's profile.
// Fatal for the single event it belongs to: do not retry, do not mutate
// state, do not abort sibling events.
type InvalidKeyError struct {
	Key    string
	Format string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid storage key %q, format must be %q", e.Key, e.Format)
}

// profile is one scheme generation: its expected-format string (used
// verbatim in errors) and its regexp, both templated on the file extension
// so the two cannot disagree.
type profile struct {
	format  string
	pattern string
}

var profiles = map[Scheme]profile{
	SchemeStandupAudio: {
		format:  "audio/standups/:standupId/DD-MM-YYYY/:userId/:filename.%s",
		pattern: `^audio/standups/(` + shortIDPattern + `)/(` + dateDMYPattern + `)/([^/]+)/([^/.]+)\.%s$`,
	},
	SchemeWorkspaceAudio: {
		format:  "audio/:workspaceId/:standupId/:recordingId.%s",
		pattern: `^audio/(` + shortIDPattern + `)/(` + shortIDPattern + `)/(` + shortIDPattern + `)\.%s$`,
	},
	SchemeMetadata: {
		format:  ":key.%s",
		pattern: `^([^/]+(?:/[^/]+)*)\.%s$`,
	},
}

// ParseIdentity validates a URI-decoded storage key against the scheme's
// profile for the given file kind and extracts the identity segments the
// scheme carries. Under SchemeMetadata only the extension is checked; the
// caller must fill the identity from validated object metadata.
func ParseIdentity(key string, scheme Scheme, kind FileKind) (Identity, error) {
	p, ok := profiles[scheme]
	if !ok {
		return Identity{}, fmt.Errorf("unknown key scheme %d", scheme)
	}
	re := regexp.MustCompile(fmt.Sprintf(p.pattern, kind.Ext()))
	m := re.FindStringSubmatch(key)
	if m == nil {
		return Identity{}, &InvalidKeyError{Key: key, Format: fmt.Sprintf(p.format, kind.Ext())}
	}

	id := Identity{Kind: kind, SourceKey: key}
	switch scheme {
	case SchemeStandupAudio:
		id.StandupID = m[1]
		id.Date = m[2]
		id.UserID = m[3]
		id.RecordingID = m[4]
	case SchemeWorkspaceAudio:
		id.WorkspaceID = m[1]
		id.StandupID = m[2]
		id.RecordingID = m[3]
	case SchemeMetadata:
		// Identity comes from metadata; nothing to extract.
	}
	return id, nil
}

// OutputKey renders the key for the derived object: the source key with only
// the extension replaced. Every path segment is preserved as-is.
func OutputKey(key string, target FileKind) (string, error) {
	dot := strings.LastIndex(key, ".")
	if dot < 0 || dot < strings.LastIndex(key, "/") {
		return "", &InvalidKeyError{Key: key, Format: fmt.Sprintf(":key.%s", KindRaw.Ext())}
	}
	return key[:dot+1] + target.Ext(), nil
}

// PartitionKey renders the record-store partition key for the identity's
// scope: "workspace#<id>#standup#<id>" when a workspace is known, the legacy
// "standup#<id>" otherwise.
func PartitionKey(id Identity) string {
	if id.WorkspaceID != "" {
		return fmt.Sprintf("workspace#%s#standup#%s", id.WorkspaceID, id.StandupID)
	}
	return fmt.Sprintf("standup#%s", id.StandupID)
}

// SortKey renders the record-store sort key within a partition.
func SortKey(id Identity) string {
	return fmt.Sprintf("update#%s#user#%s#recording#%s", id.Date, id.UserID, id.RecordingID)
}
