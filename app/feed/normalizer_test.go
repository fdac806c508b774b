package feed

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func validRecord() RawRecord {
	return RawRecord{
		FieldID:           json.Number("170001"),
		FieldTitle:        "Test Video",
		FieldAuthor:       "Uploader",
		FieldCreatedAt:    json.Number("1500000000"),
		FieldThumbnailURL: "http://i0.hdslb.com/cover.jpg",
		FieldDescription:  "A description",
		FieldDuration:     "03:25",
	}
}

func TestNormalizer_Normalize(t *testing.T) {
	normalizer := NewNormalizer()

	entry, err := normalizer.Normalize(validRecord())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if entry.ID != "170001" {
		t.Errorf("Expected ID '170001', got '%s'", entry.ID)
	}
	if entry.Permalink != "http://www.bilibili.com/video/av170001/" {
		t.Errorf("Unexpected permalink: %s", entry.Permalink)
	}
	if !entry.PublishedAt.Equal(time.Unix(1500000000, 0)) {
		t.Errorf("Unexpected published time: %v", entry.PublishedAt)
	}
	if entry.Title != "Test Video" || entry.Author != "Uploader" || entry.Duration != "03:25" {
		t.Errorf("Text fields not mapped: %+v", entry)
	}
	if entry.ThumbnailURL != "http://i0.hdslb.com/cover.jpg" || entry.Description != "A description" {
		t.Errorf("Text fields not mapped: %+v", entry)
	}
}

func TestNormalizer_IDEncodings(t *testing.T) {
	normalizer := NewNormalizer()

	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"string", "42", "42"},
		{"json number", json.Number("42"), "42"},
		{"float", float64(42), "42"},
		{"int", 42, "42"},
		{"int64", int64(42), "42"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			record := validRecord()
			record[FieldID] = test.value

			entry, err := normalizer.Normalize(record)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if entry.ID != test.expected {
				t.Errorf("Expected ID %s, got %s", test.expected, entry.ID)
			}
		})
	}
}

func TestNormalizer_PermalinkIsFunctionOfID(t *testing.T) {
	normalizer := NewNormalizer()

	a := validRecord()
	b := validRecord()
	b[FieldTitle] = "Another title"
	b[FieldCreatedAt] = json.Number("1600000000")

	entryA, errA := normalizer.Normalize(a)
	entryB, errB := normalizer.Normalize(b)
	if errA != nil || errB != nil {
		t.Fatalf("Unexpected errors: %v, %v", errA, errB)
	}
	if entryA.Permalink != entryB.Permalink {
		t.Errorf("Permalinks differ for the same id: %s vs %s", entryA.Permalink, entryB.Permalink)
	}
}

func TestNormalizer_MalformedRecords(t *testing.T) {
	normalizer := NewNormalizer()

	tests := []struct {
		name  string
		field string
		value any
		drop  bool
	}{
		{"missing id", FieldID, nil, true},
		{"empty id", FieldID, "", false},
		{"bool id", FieldID, true, false},
		{"missing title", FieldTitle, nil, true},
		{"numeric title", FieldTitle, json.Number("1"), false},
		{"missing created_at", FieldCreatedAt, nil, true},
		{"string created_at", FieldCreatedAt, "yesterday", false},
		{"fractional created_at", FieldCreatedAt, 1.5, false},
		{"null description", FieldDescription, nil, false},
		{"missing duration", FieldDuration, nil, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			record := validRecord()
			if test.drop {
				delete(record, test.field)
			} else {
				record[test.field] = test.value
			}

			_, err := normalizer.Normalize(record)

			var malformed *MalformedRecordError
			if !errors.As(err, &malformed) {
				t.Fatalf("Expected MalformedRecordError, got: %v", err)
			}
			if malformed.Field != test.field {
				t.Errorf("Expected field %s, got %s", test.field, malformed.Field)
			}
		})
	}
}

func TestNormalizer_RunStopsAtFirstMalformed(t *testing.T) {
	normalizer := NewNormalizer()

	bad := validRecord()
	delete(bad, FieldAuthor)

	entries, err := normalizer.Run([]RawRecord{validRecord(), bad})

	var malformed *MalformedRecordError
	if !errors.As(err, &malformed) {
		t.Fatalf("Expected MalformedRecordError, got: %v", err)
	}
	if entries != nil {
		t.Errorf("Expected no entries on failure, got %d", len(entries))
	}
}

func TestNormalizer_NFC(t *testing.T) {
	normalizer := NewNormalizer()

	record := validRecord()
	record[FieldTitle] = "Café"

	entry, err := normalizer.Normalize(record)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if entry.Title != "Café" {
		t.Errorf("Expected composed title, got %q", entry.Title)
	}
}
