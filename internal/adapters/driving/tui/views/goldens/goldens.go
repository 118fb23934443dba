// Package goldens provides the golden browser view for the TUI.
// It shows one dataset as a filterable list beside a scrollable detail pane.
package goldens

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/goldsmith/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/goldsmith/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/goldsmith/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/goldsmith/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

const headerHeight = 3

// View browses the goldens of a single dataset.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap

	dataset      *domain.Dataset
	list         *list.GoldenList
	filter       *input.FilterInput
	detail       viewport.Model
	showWarnings bool

	width  int
	height int
}

// NewView creates a new goldens view.
func NewView(s *styles.Styles, km *keymap.KeyMap) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	v := &View{
		styles: s,
		keymap: km,
		list:   list.NewGoldenList(s),
		filter: input.NewFilterInput(s),
		detail: viewport.New(40, 10),
	}
	v.SetDimensions(80, 24)
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// SetDataset replaces the dataset on display.
func (v *View) SetDataset(ds *domain.Dataset) {
	v.dataset = ds
	v.showWarnings = false
	v.filter.Reset()
	v.filter.Blur()
	if ds == nil {
		v.list.SetGoldens(nil)
	} else {
		v.list.SetGoldens(ds.Goldens)
	}
	v.refreshDetail()
}

// Dataset returns the dataset on display.
func (v *View) Dataset() *domain.Dataset {
	return v.dataset
}

// Capturing reports whether the view wants the back key for itself,
// which is the case while a filter is being edited or is applied.
func (v *View) Capturing() bool {
	return v.filter.Focused() || v.list.Filter() != ""
}

// Filtering reports whether the filter input has focus.
func (v *View) Filtering() bool {
	return v.filter.Focused()
}

// Update handles messages for the goldens view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil
	case tea.KeyMsg:
		if v.filter.Focused() {
			return v.handleFilterKey(msg)
		}
		return v.handleKeyMsg(msg)
	}
	return v, nil
}

// handleFilterKey edits the filter, applying it as the user types.
func (v *View) handleFilterKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	//nolint:exhaustive // other keys are forwarded to the input
	switch msg.Type {
	case tea.KeyEnter:
		v.filter.Blur()
		return v, nil
	case tea.KeyEsc:
		v.clearFilter()
		return v, nil
	}

	var cmd tea.Cmd
	v.filter, cmd = v.filter.Update(msg)
	v.list.SetFilter(v.filter.Value())
	v.refreshDetail()
	return v, cmd
}

// handleKeyMsg handles navigation keys.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	keyStr := msg.String()

	switch {
	case keymap.Matches(keyStr, v.keymap.Filter):
		v.showWarnings = false
		return v, v.filter.Focus()
	case keymap.Matches(keyStr, v.keymap.Back):
		v.clearFilter()
		return v, nil
	case keymap.Matches(keyStr, v.keymap.Warnings):
		v.showWarnings = !v.showWarnings
		v.refreshDetail()
		return v, nil
	case keymap.Matches(keyStr, v.keymap.ScrollDown):
		v.detail.HalfPageDown()
		return v, nil
	case keymap.Matches(keyStr, v.keymap.ScrollUp):
		v.detail.HalfPageUp()
		return v, nil
	}

	before := v.list.Selected()
	v.list, _ = v.list.Update(msg)
	if v.list.Selected() != before {
		v.showWarnings = false
		v.refreshDetail()
	}
	return v, nil
}

func (v *View) clearFilter() {
	v.filter.Reset()
	v.filter.Blur()
	v.list.SetFilter("")
	v.refreshDetail()
}

// refreshDetail renders the selected golden, or the warnings, into the detail pane.
func (v *View) refreshDetail() {
	if v.showWarnings {
		v.detail.SetContent(v.renderWarnings())
	} else {
		v.detail.SetContent(v.renderGolden(v.list.SelectedGolden()))
	}
	v.detail.GotoTop()
}

// View renders the goldens view.
func (v *View) View() string {
	if v.dataset == nil {
		return v.styles.Muted.Render("No dataset loaded")
	}

	var b strings.Builder
	b.WriteString(v.renderHeader())
	b.WriteString("\n")

	if v.filter.Focused() || v.list.Filter() != "" {
		b.WriteString(v.filter.View())
		b.WriteString("\n")
	}

	left := lipgloss.NewStyle().Width(v.list.Width()).Render(v.list.View())
	right := v.styles.Panel.Render(v.detail.View())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right))

	return b.String()
}

func (v *View) renderHeader() string {
	name := v.dataset.Name
	if name == "" {
		name = v.dataset.ID
	}

	meta := []string{fmt.Sprintf("[%s]", v.dataset.SourceKind)}
	if v.dataset.ID != "" {
		meta = append(meta, v.dataset.ID)
	} else {
		meta = append(meta, "not saved")
	}
	if !v.dataset.CreatedAt.IsZero() {
		meta = append(meta, v.dataset.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if n := len(v.dataset.Warnings); n > 0 {
		meta = append(meta, v.styles.Warning.Render(fmt.Sprintf("%d warnings (w)", n)))
	}

	return v.styles.Title.Render(name) + "\n" + v.styles.Muted.Render(strings.Join(meta, "  "))
}

func (v *View) renderGolden(g *domain.Golden) string {
	if g == nil {
		return v.styles.Muted.Render("Nothing selected")
	}

	width := v.detail.Width
	wrap := lipgloss.NewStyle().Width(width)
	var b strings.Builder

	section := func(label, body string) {
		b.WriteString(v.styles.Label.Render(label))
		b.WriteString("\n")
		b.WriteString(body)
		b.WriteString("\n")
	}

	section("Input", wrap.Render(g.Input))

	if g.HasExpectedOutput() {
		section("Expected output", wrap.Render(*g.ExpectedOutput))
	} else {
		section("Expected output", v.styles.Muted.Render("(not generated)"))
	}

	var trace string
	if g.Trace.Len() == 0 {
		trace = v.styles.Muted.Render("(none)")
	} else {
		tags := make([]string, 0, g.Trace.Len())
		for _, step := range g.Trace.Steps {
			tags = append(tags, v.styles.Tag.Render(string(step)))
		}
		trace = strings.Join(tags, " → ")
	}
	if g.Trace.Truncated {
		trace += "  " + v.styles.Warning.Render("truncated")
	}
	section("Evolutions", trace)

	origin := string(g.Origin)
	if g.SourceFile != "" {
		origin += "  " + v.styles.Muted.Render(g.SourceFile)
	}
	section("Origin", origin)

	if g.Context != nil {
		passages := make([]string, 0, len(g.Context))
		for i, p := range g.Context {
			passages = append(passages, wrap.Render(fmt.Sprintf("[%d] %s", i+1, p)))
		}
		if len(passages) == 0 {
			passages = append(passages, v.styles.Muted.Render("(empty)"))
		}
		section(fmt.Sprintf("Context (%d)", len(g.Context)), strings.Join(passages, "\n"))
	}

	return strings.TrimRight(b.String(), "\n")
}

func (v *View) renderWarnings() string {
	if v.dataset == nil || len(v.dataset.Warnings) == 0 {
		return v.styles.Muted.Render("No warnings")
	}

	wrap := lipgloss.NewStyle().Width(v.detail.Width)
	lines := []string{v.styles.Label.Render(fmt.Sprintf("Warnings (%d)", len(v.dataset.Warnings)))}
	for _, w := range v.dataset.Warnings {
		label := fmt.Sprintf("[unit %d %s]", w.Unit, w.Stage)
		if w.Unit < 0 {
			label = fmt.Sprintf("[%s]", w.Stage)
		}
		lines = append(lines, wrap.Render(v.styles.Warning.Render(label)+" "+w.Message))
	}
	return strings.Join(lines, "\n")
}

// SetDimensions lays out the list and detail pane.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height

	bodyHeight := max(height-headerHeight-1, 4)
	listWidth := max(width*2/5, 24)
	// Panel border and padding take four columns and two rows
	detailWidth := max(width-listWidth-5, 20)

	v.list.SetDimensions(listWidth, bodyHeight)
	v.filter.SetWidth(listWidth)
	v.detail.Width = detailWidth
	v.detail.Height = max(bodyHeight-2, 2)
	v.refreshDetail()
}

// List returns the golden list component.
func (v *View) List() *list.GoldenList {
	return v.list
}

// ShowingWarnings reports whether the detail pane lists warnings.
func (v *View) ShowingWarnings() bool {
	return v.showWarnings
}

// DetailOffset returns the detail pane's scroll offset.
func (v *View) DetailOffset() int {
	return v.detail.YOffset
}
