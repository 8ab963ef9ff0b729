package training

import (
	"strings"
	"time"
)

// RecordType tags what kind of knowledge a training record carries.
type RecordType string

const (
	TypeSQL           RecordType = "sql"
	TypeDDL           RecordType = "ddl"
	TypeDocumentation RecordType = "documentation"
	TypeUnknown       RecordType = "unknown"
)

// ParseRecordType normalizes a free-form type tag coming from the model or a
// backup file. Anything unrecognized collapses to TypeUnknown.
func ParseRecordType(v string) RecordType {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "sql":
		return TypeSQL
	case "ddl":
		return TypeDDL
	case "documentation", "doc":
		return TypeDocumentation
	default:
		return TypeUnknown
	}
}

// Record is one unit of model training data: a DDL statement, a
// question/SQL pair, or documentation prose.
type Record struct {
	RecordID  string            `json:"id"`
	Type      RecordType        `json:"training_data_type"`
	Content   string            `json:"content"`
	Question  string            `json:"question,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at,omitempty"`
}

// Valid reports whether the record can be persisted. Records without content
// are malformed and must never be written.
func (r Record) Valid() bool {
	return strings.TrimSpace(r.Content) != ""
}

// IDsOf extracts the record ids of a batch, skipping empty ones.
func IDsOf(records []Record) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		if r.RecordID != "" {
			ids = append(ids, r.RecordID)
		}
	}
	return ids
}
