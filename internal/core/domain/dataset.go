package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// DatasetKind is a serialisation format for exported goldens.
type DatasetKind string

// Supported dataset kinds.
const (
	DatasetJSON DatasetKind = "json"
	DatasetCSV  DatasetKind = "csv"
	DatasetYAML DatasetKind = "yaml"
)

// IsValid returns true if the kind is supported.
func (k DatasetKind) IsValid() bool {
	switch k {
	case DatasetJSON, DatasetCSV, DatasetYAML:
		return true
	default:
		return false
	}
}

// Extension returns the file extension for the kind, including the dot.
func (k DatasetKind) Extension() string {
	return "." + string(k)
}

// String returns the string representation.
func (k DatasetKind) String() string {
	return string(k)
}

// AllDatasetKinds returns all supported kinds.
func AllDatasetKinds() []DatasetKind {
	return []DatasetKind{DatasetJSON, DatasetCSV, DatasetYAML}
}

// DatasetKindFromPath infers the kind from a file extension.
func DatasetKindFromPath(path string) (DatasetKind, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "yml" {
		ext = string(DatasetYAML)
	}
	k := DatasetKind(ext)
	return k, k.IsValid()
}

// Dataset is a named, persisted generation run.
type Dataset struct {
	ID         string
	Name       string
	SourceKind UnitKind
	Request    GenerationRequest
	Goldens    []Golden
	Warnings   []Warning
	CreatedAt  time.Time
}

// DatasetSummary is the listing view of a Dataset.
type DatasetSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SourceKind   UnitKind  `json:"source_kind"`
	GoldenCount  int       `json:"golden_count"`
	WarningCount int       `json:"warning_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary returns the listing view of the dataset.
func (d *Dataset) Summary() DatasetSummary {
	return DatasetSummary{
		ID:           d.ID,
		Name:         d.Name,
		SourceKind:   d.SourceKind,
		GoldenCount:  len(d.Goldens),
		WarningCount: len(d.Warnings),
		CreatedAt:    d.CreatedAt,
	}
}
