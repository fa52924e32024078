// Package schema validates the user metadata attached to uploaded recording
// objects. Identity travels out-of-band in this metadata whenever the key
// scheme carries no semantic structure.
package schema

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/upstandfm/audio-transcoder/internal/keys"
)

// Metadata is the validated identity bundle from an object's user metadata.
// Unknown fields on the object are stripped, not rejected, so producers may
// attach extra metadata without breaking older consumers.
type Metadata struct {
	UserID      string `meta:"user-id" validate:"required"`
	WorkspaceID string `meta:"workspace-id" validate:"required,shortid"`
	StandupID   string `meta:"standup-id" validate:"required,shortid"`
	RecordingID string `meta:"recording-id" validate:"required,shortid"`
	Date        string `meta:"date" validate:"required,datekey"`
	Name        string `meta:"name" validate:"omitempty,displayname"`
}

// FieldError is one violated metadata field.
type FieldError struct {
	Field  string
	Reason string
}

// SchemaError aggregates every violated field, so a single diagnostic can
// report all problems at once instead of only the first.
type SchemaError struct {
	Fields []FieldError
}

func (e *SchemaError) Error() string {
	reasons := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		reasons[i] = "\"" + f.Field + "\" " + f.Reason
	}
	return "invalid metadata: " + strings.Join(reasons, ", ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("meta")
	})
	_ = v.RegisterValidation("shortid", func(fl validator.FieldLevel) bool {
		return keys.ValidShortID(fl.Field().String())
	})
	_ = v.RegisterValidation("datekey", func(fl validator.FieldLevel) bool {
		return keys.ValidDateYMD(fl.Field().String())
	})
	_ = v.RegisterValidation("displayname", func(fl validator.FieldLevel) bool {
		return validDisplayName(fl.Field().String())
	})
	return v
}

func validDisplayName(s string) bool {
	if len(s) < 1 || len(s) > 70 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ':
		default:
			return false
		}
	}
	return true
}

func reason(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "shortid":
		return "must be 7 to 14 URL friendly characters"
	case "datekey":
		return "must have format \"YYYY-MM-DD\""
	case "displayname":
		return "must be at most 70 alphanumeric characters and spaces"
	default:
		return "is invalid"
	}
}

// ValidateMetadata checks the required identity fields in an object's user
// metadata. Both historic spellings of each field are accepted ("user-id"
// and "userId"). An empty display name is normalized to absent. On failure
// the returned *SchemaError names every missing or invalid field.
func ValidateMetadata(fields map[string]string) (Metadata, error) {
	md := Metadata{
		UserID:      pick(fields, "user-id", "userId"),
		WorkspaceID: pick(fields, "workspace-id", "workspaceId"),
		StandupID:   pick(fields, "standup-id", "standupId"),
		RecordingID: pick(fields, "recording-id", "recordingId"),
		Date:        pick(fields, "date"),
		Name:        strings.TrimSpace(pick(fields, "name")),
	}

	if err := validate.Struct(md); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return Metadata{}, err
		}
		schemaErr := &SchemaError{}
		for _, fe := range verrs {
			schemaErr.Fields = append(schemaErr.Fields, FieldError{
				Field:  fe.Field(),
				Reason: reason(fe.Tag()),
			})
		}
		return Metadata{}, schemaErr
	}
	return md, nil
}

func pick(fields map[string]string, names ...string) string {
	for _, n := range names {
		if v, ok := fields[n]; ok && v != "" {
			return v
		}
	}
	return ""
}
