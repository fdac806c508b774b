package feed

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"golang.org/x/text/unicode/norm"
)

const PermalinkTemplate = "http://www.bilibili.com/video/av%s/"

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Run normalizes every record, stopping at the first malformed one.
func (n *Normalizer) Run(records []RawRecord) ([]Entry, error) {
	entries := make([]Entry, 0, len(records))
	for i, record := range records {
		entry, err := n.Normalize(record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (n *Normalizer) Normalize(record RawRecord) (Entry, error) {
	id, err := n.idField(record)
	if err != nil {
		return Entry{}, err
	}

	created, err := n.epochField(record, FieldCreatedAt)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		ID:          id,
		PublishedAt: time.Unix(created, 0).UTC(),
		Permalink:   Permalink(id),
	}

	textFields := []struct {
		name string
		dst  *string
	}{
		{FieldTitle, &entry.Title},
		{FieldAuthor, &entry.Author},
		{FieldThumbnailURL, &entry.ThumbnailURL},
		{FieldDescription, &entry.Description},
		{FieldDuration, &entry.Duration},
	}
	for _, f := range textFields {
		value, err := n.stringField(record, f.name)
		if err != nil {
			return Entry{}, err
		}
		*f.dst = norm.NFC.String(value)
	}

	return entry, nil
}

func Permalink(id string) string {
	return fmt.Sprintf(PermalinkTemplate, id)
}

func (n *Normalizer) stringField(record RawRecord, field string) (string, error) {
	value, ok := record[field]
	if !ok || value == nil {
		return "", &MalformedRecordError{Field: field}
	}
	s, ok := value.(string)
	if !ok {
		return "", &MalformedRecordError{Field: field, Value: value}
	}
	return s, nil
}

// idField accepts the id either as a string or as an integral number,
// since the API has used both encodings for aid.
func (n *Normalizer) idField(record RawRecord) (string, error) {
	value, ok := record[FieldID]
	if !ok || value == nil {
		return "", &MalformedRecordError{Field: FieldID}
	}
	if s, ok := value.(string); ok {
		if s == "" {
			return "", &MalformedRecordError{Field: FieldID}
		}
		return s, nil
	}
	i, err := n.epochField(record, FieldID)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(i, 10), nil
}

func (n *Normalizer) epochField(record RawRecord, field string) (int64, error) {
	value, ok := record[field]
	if !ok || value == nil {
		return 0, &MalformedRecordError{Field: field}
	}

	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
	case float64:
		if v == math.Trunc(v) {
			return int64(v), nil
		}
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	}
	return 0, &MalformedRecordError{Field: field, Value: value}
}
