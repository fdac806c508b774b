package feed

import "fmt"

// MalformedRecordError reports a raw record that is missing a required
// field or carries it with an unexpected type.
type MalformedRecordError struct {
	Field string
	Value any
}

func (e *MalformedRecordError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("malformed record: missing field %q", e.Field)
	}
	return fmt.Sprintf("malformed record: field %q has unexpected type %T", e.Field, e.Value)
}

// EmptyResultError is returned when a fetch succeeded but yielded no
// records and the caller asked for a non-empty feed.
type EmptyResultError struct {
	MemberID string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("empty result: API response for member %s does not contain data", e.MemberID)
}
