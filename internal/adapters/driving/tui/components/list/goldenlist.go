// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/goldsmith/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

// GoldenList displays goldens in a navigable, filterable list.
// Selection indexes the visible (filtered) rows.
type GoldenList struct {
	goldens  []domain.Golden
	visible  []int
	filter   string
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewGoldenList creates a new golden list component.
func NewGoldenList(s *styles.Styles) *GoldenList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &GoldenList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the golden list.
func (l *GoldenList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (l *GoldenList) Update(msg tea.Msg) (*GoldenList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		case "home", "g":
			l.selected = 0
		case "end", "G":
			l.selected = max(len(l.visible)-1, 0)
		}
	}
	return l, nil
}

// View renders the golden list.
func (l *GoldenList) View() string {
	if len(l.visible) == 0 {
		if l.filter != "" {
			return l.styles.Muted.Render(fmt.Sprintf("No goldens match %q", l.filter))
		}
		return l.styles.Muted.Render("No goldens")
	}

	lines := make([]string, 0, len(l.visible)+2)

	header := fmt.Sprintf("Goldens (%d)", len(l.goldens))
	if l.filter != "" {
		header = fmt.Sprintf("Goldens (%d of %d)", len(l.visible), len(l.goldens))
	}
	lines = append(lines, l.styles.Subtitle.Render(header), "")

	// Each golden takes two lines
	visibleCount := max((l.height-2)/2, 1)

	start := 0
	if l.selected >= visibleCount {
		start = l.selected - visibleCount + 1
	}
	end := min(start+visibleCount, len(l.visible))

	for row := start; row < end; row++ {
		lines = append(lines, l.renderGolden(row, &l.goldens[l.visible[row]]))
	}

	return strings.Join(lines, "\n")
}

// renderGolden formats a single golden with its evolution summary.
func (l *GoldenList) renderGolden(row int, g *domain.Golden) string {
	indicator := "  "
	if row == l.selected {
		indicator = "> "
	}

	maxInputLen := max(l.width-4, 10)
	input := truncate(singleLine(g.Input), maxInputLen)

	var titleLine string
	if row == l.selected {
		titleLine = l.styles.Selected.Render(indicator + input)
	} else {
		titleLine = l.styles.Normal.Render(indicator + input)
	}

	meta := []string{string(g.Origin)}
	if n := g.Trace.Len(); n > 0 {
		meta = append(meta, fmt.Sprintf("%d evolution(s)", n))
	}
	if g.Trace.Truncated {
		meta = append(meta, "truncated")
	}
	if g.HasExpectedOutput() {
		meta = append(meta, "expected output")
	}

	return titleLine + "\n" + l.styles.Muted.Render("    "+strings.Join(meta, " · "))
}

// SetGoldens replaces the list contents and clears the filter.
func (l *GoldenList) SetGoldens(goldens []domain.Golden) {
	l.goldens = goldens
	l.filter = ""
	l.selected = 0
	l.refilter()
}

// SetFilter keeps only goldens whose input contains text, ignoring case.
func (l *GoldenList) SetFilter(text string) {
	l.filter = strings.TrimSpace(text)
	l.selected = 0
	l.refilter()
}

// Filter returns the active filter text.
func (l *GoldenList) Filter() string {
	return l.filter
}

func (l *GoldenList) refilter() {
	l.visible = l.visible[:0]
	needle := strings.ToLower(l.filter)
	for i := range l.goldens {
		if needle == "" || strings.Contains(strings.ToLower(l.goldens[i].Input), needle) {
			l.visible = append(l.visible, i)
		}
	}
}

// Goldens returns all goldens regardless of the filter.
func (l *GoldenList) Goldens() []domain.Golden {
	return l.goldens
}

// Selected returns the index of the selected visible row.
func (l *GoldenList) Selected() int {
	return l.selected
}

// SetSelected sets the selected visible row.
func (l *GoldenList) SetSelected(row int) {
	if row >= 0 && row < len(l.visible) {
		l.selected = row
	}
}

// SelectedGolden returns the currently selected golden, or nil if none.
func (l *GoldenList) SelectedGolden() *domain.Golden {
	if l.selected < 0 || l.selected >= len(l.visible) {
		return nil
	}
	return &l.goldens[l.visible[l.selected]]
}

// MoveUp moves selection up.
func (l *GoldenList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *GoldenList) MoveDown() {
	if l.selected < len(l.visible)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *GoldenList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Width returns the current width.
func (l *GoldenList) Width() int {
	return l.width
}

// Height returns the current height.
func (l *GoldenList) Height() int {
	return l.height
}

// Count returns the number of visible goldens.
func (l *GoldenList) Count() int {
	return len(l.visible)
}

// IsEmpty returns whether no golden is visible.
func (l *GoldenList) IsEmpty() bool {
	return len(l.visible) == 0
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
