// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewDatasets lists saved datasets.
	ViewDatasets ViewType = iota
	// ViewGoldens lists the goldens of one dataset next to a detail pane.
	ViewGoldens
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewDatasets:
		return "datasets"
	case ViewGoldens:
		return "goldens"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// DatasetsLoaded carries the dataset summaries from the service.
type DatasetsLoaded struct {
	Datasets []domain.DatasetSummary
	Err      error
}

// DatasetSelected signals a dataset was chosen from the list.
type DatasetSelected struct {
	ID string
}

// DatasetLoaded carries a full dataset with its goldens.
type DatasetLoaded struct {
	Dataset *domain.Dataset
	Err     error
}

// DatasetDeleted signals a dataset was deleted.
type DatasetDeleted struct {
	ID  string
	Err error
}

// GoldenSelected is sent when the highlighted golden changes.
type GoldenSelected struct {
	Index int
}
