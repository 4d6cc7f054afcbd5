package model

import (
	"time"

	"gorm.io/datatypes"
)

// TimeLayout is the storage format for document timestamps. It is fixed-width UTC
// so that comparing the stored text orders rows by time on every SQL engine.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// Document is the unit of storage: an opaque JSON payload filed under a caller-chosen collection.
// ID is assigned on creation and unique across all collections.
type Document struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Data       datatypes.JSON `json:"data" swaggertype:"object"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a stored timestamp. RFC 3339 text written by other tools is accepted too.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
