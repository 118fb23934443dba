// Package datasets provides the saved dataset list view for the TUI.
package datasets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/goldsmith/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/goldsmith/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driving"
)

var errNoService = errors.New("dataset service not available")

// View lists saved datasets.
type View struct {
	ctx     context.Context
	styles  *styles.Styles
	service driving.DatasetService

	datasets   []domain.DatasetSummary
	selected   int
	confirming string // ID awaiting delete confirmation
	width      int
	height     int
	ready      bool
	err        error
	loading    bool
}

// NewView creates a new dataset list view.
func NewView(ctx context.Context, s *styles.Styles, service driving.DatasetService) *View {
	if ctx == nil {
		ctx = context.Background()
	}
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		ctx:      ctx,
		styles:   s,
		service:  service,
		datasets: []domain.DatasetSummary{},
	}
}

// Init initialises the view and loads datasets.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.loadDatasets()
}

// loadDatasets returns a command that lists datasets from the service.
func (v *View) loadDatasets() tea.Cmd {
	return func() tea.Msg {
		if v.service == nil {
			return messages.DatasetsLoaded{Err: errNoService}
		}
		datasets, err := v.service.List(v.ctx)
		return messages.DatasetsLoaded{Datasets: datasets, Err: err}
	}
}

// deleteDataset returns a command that deletes a dataset.
func (v *View) deleteDataset(id string) tea.Cmd {
	return func() tea.Msg {
		if v.service == nil {
			return messages.DatasetDeleted{ID: id, Err: errNoService}
		}
		return messages.DatasetDeleted{ID: id, Err: v.service.Delete(v.ctx, id)}
	}
}

// Update handles messages for the dataset list.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.DatasetsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.datasets = msg.Datasets
		v.err = nil
		if v.selected >= len(v.datasets) {
			v.selected = max(len(v.datasets)-1, 0)
		}
		return v, nil

	case messages.DatasetDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.loading = true
		return v, v.loadDatasets()
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.confirming != "" {
		id := v.confirming
		v.confirming = ""
		if msg.String() == "y" {
			return v, v.deleteDataset(id)
		}
		return v, nil
	}

	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.selected < len(v.datasets)-1 {
			v.selected++
		}
	case "enter":
		if ds := v.SelectedDataset(); ds != nil {
			id := ds.ID
			return v, func() tea.Msg {
				return messages.DatasetSelected{ID: id}
			}
		}
	case "d", "delete":
		if ds := v.SelectedDataset(); ds != nil {
			v.confirming = ds.ID
		}
	case "r":
		v.loading = true
		return v, v.loadDatasets()
	}

	return v, nil
}

// View renders the dataset list.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Datasets"))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading datasets..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
	case len(v.datasets) == 0:
		b.WriteString(v.styles.Muted.Render("No datasets saved. Run 'goldsmith generate' to create one."))
	default:
		for i := range v.datasets {
			b.WriteString(v.renderDataset(i, &v.datasets[i]))
			b.WriteString("\n")
		}
		if v.confirming != "" {
			b.WriteString("\n")
			b.WriteString(v.styles.Warning.Render(fmt.Sprintf("Delete %s? [y/N]", v.confirming)))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())
	return b.String()
}

// renderDataset renders a single dataset line.
func (v *View) renderDataset(index int, ds *domain.DatasetSummary) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	// Format: > [kind] name  N goldens  date
	kind := fmt.Sprintf("[%s]", ds.SourceKind)
	name := ds.Name
	if name == "" {
		name = ds.ID
	}
	maxNameLen := max(v.width-48, 10)
	if len(name) > maxNameLen {
		name = name[:maxNameLen-3] + "..."
	}

	counts := fmt.Sprintf("%d goldens", ds.GoldenCount)
	if ds.WarningCount > 0 {
		counts += fmt.Sprintf(", %d warnings", ds.WarningCount)
	}
	created := ds.CreatedAt.Local().Format("2006-01-02 15:04")

	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("%s%-10s %-*s  %s  %s", indicator, kind, maxNameLen, name, counts, created))
	}
	return v.styles.Normal.Render(indicator) +
		v.styles.Subtitle.Render(fmt.Sprintf("%-10s ", kind)) +
		v.styles.Normal.Render(fmt.Sprintf("%-*s  ", maxNameLen, name)) +
		v.styles.Muted.Render(counts+"  "+created)
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	return v.styles.Help.Render("[enter] open  [d] delete  [r] reload  [?] help  [q] quit")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Datasets returns the loaded dataset summaries.
func (v *View) Datasets() []domain.DatasetSummary {
	return v.datasets
}

// SelectedIndex returns the currently selected dataset index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedDataset returns the highlighted dataset, or nil if the list is empty.
func (v *View) SelectedDataset() *domain.DatasetSummary {
	if v.selected < 0 || v.selected >= len(v.datasets) {
		return nil
	}
	return &v.datasets[v.selected]
}

// Confirming returns the ID awaiting delete confirmation, if any.
func (v *View) Confirming() string {
	return v.confirming
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
