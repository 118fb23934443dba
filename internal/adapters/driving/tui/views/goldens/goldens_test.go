package goldens

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

func sampleDataset() *domain.Dataset {
	answer := "Sixteen weeks of paid leave."
	return &domain.Dataset{
		ID:         "ds-1",
		Name:       "handbook",
		SourceKind: domain.UnitContext,
		Goldens: []domain.Golden{
			{
				Input:          "How long is parental leave?",
				ExpectedOutput: &answer,
				Context:        domain.ContextGroup{"Parental leave is sixteen weeks.", "Leave is paid."},
				Trace: domain.EvolutionTrace{
					Steps:     []domain.EvolutionKind{domain.EvolutionReasoning, domain.EvolutionConcretizing},
					Truncated: true,
				},
				Origin:     domain.OriginContext,
				SourceFile: "handbook.md",
			},
			{Input: "Who approves remote work?", Context: domain.ContextGroup{"Managers approve."}, Origin: domain.OriginContext},
		},
		Warnings: []domain.Warning{
			{Unit: 2, Stage: domain.StageSeed, Message: "model returned no inputs"},
			{Unit: -1, Stage: domain.StageContext, Message: "call-level problem"},
		},
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newLoadedView(t *testing.T) *View {
	t.Helper()
	v := NewView(nil, nil)
	v.SetDimensions(140, 40)
	v.SetDataset(sampleDataset())
	return v
}

func TestNewView(t *testing.T) {
	v := NewView(nil, nil)

	require.NotNil(t, v)
	assert.NotNil(t, v.styles)
	assert.NotNil(t, v.keymap)
	assert.Nil(t, v.Dataset())
	assert.Nil(t, v.Init())
	assert.Contains(t, v.View(), "No dataset loaded")
}

func TestView_SetDataset(t *testing.T) {
	v := newLoadedView(t)

	assert.Equal(t, "handbook", v.Dataset().Name)
	assert.Equal(t, 2, v.List().Count())

	view := v.View()
	assert.Contains(t, view, "handbook")
	assert.Contains(t, view, "[context]")
	assert.Contains(t, view, "2 warnings (w)")
	assert.Contains(t, view, "How long is parental leave?")
	assert.Contains(t, view, "Sixteen weeks of paid leave.")
	assert.Contains(t, view, "reasoning")
	assert.Contains(t, view, "concretizing")
	assert.Contains(t, view, "truncated")
	assert.Contains(t, view, "handbook.md")
	assert.Contains(t, view, "[1] Parental leave is sixteen weeks.")
}

func TestView_SetDataset_Unsaved(t *testing.T) {
	v := NewView(nil, nil)
	v.SetDimensions(140, 40)
	v.SetDataset(&domain.Dataset{Name: "import", SourceKind: domain.UnitPrompt, Goldens: []domain.Golden{{Input: "q"}}})

	view := v.View()

	assert.Contains(t, view, "not saved")
	assert.NotContains(t, view, "warnings (w)")
	assert.Contains(t, view, "(not generated)")
	assert.NotContains(t, view, "Context (", "prompt goldens have no context section")
}

func TestView_NavigationUpdatesDetail(t *testing.T) {
	v := newLoadedView(t)

	v.Update(runes("j"))

	assert.Equal(t, 1, v.List().Selected())
	view := v.View()
	assert.Contains(t, view, "[1] Managers approve.")
	assert.Contains(t, view, "(none)", "no evolutions recorded")
}

func TestView_Filter(t *testing.T) {
	v := newLoadedView(t)

	v.Update(runes("/"))
	assert.True(t, v.Filtering())
	assert.True(t, v.Capturing())

	for _, r := range "remote" {
		v.Update(runes(string(r)))
	}
	assert.Equal(t, 1, v.List().Count())
	assert.Equal(t, "Who approves remote work?", v.List().SelectedGolden().Input)

	t.Run("enter keeps the filter", func(t *testing.T) {
		v.Update(tea.KeyMsg{Type: tea.KeyEnter})

		assert.False(t, v.Filtering())
		assert.True(t, v.Capturing())
		assert.Equal(t, 1, v.List().Count())
		assert.Contains(t, v.View(), "Goldens (1 of 2)")
	})

	t.Run("esc clears it", func(t *testing.T) {
		v.Update(tea.KeyMsg{Type: tea.KeyEsc})

		assert.False(t, v.Capturing())
		assert.Equal(t, 2, v.List().Count())
	})
}

func TestView_Filter_EscWhileEditing(t *testing.T) {
	v := newLoadedView(t)
	v.Update(runes("/"))
	v.Update(runes("x"))
	require.Equal(t, 0, v.List().Count())

	v.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, v.Filtering())
	assert.Equal(t, 2, v.List().Count())
}

func TestView_Filter_KeysDoNotNavigate(t *testing.T) {
	v := newLoadedView(t)
	v.Update(runes("/"))

	v.Update(runes("j"))

	assert.Equal(t, 0, v.List().Selected())
	assert.Equal(t, "j", v.List().Filter())
}

func TestView_Warnings(t *testing.T) {
	v := newLoadedView(t)

	v.Update(runes("w"))

	assert.True(t, v.ShowingWarnings())
	view := v.View()
	assert.Contains(t, view, "Warnings (2)")
	assert.Contains(t, view, "[unit 2 seed] model returned no inputs")
	assert.Contains(t, view, "[context] call-level problem")

	v.Update(runes("j"))
	assert.False(t, v.ShowingWarnings(), "moving the selection shows the golden again")
}

func TestView_Warnings_None(t *testing.T) {
	v := NewView(nil, nil)
	v.SetDimensions(140, 40)
	v.SetDataset(&domain.Dataset{ID: "x", Goldens: []domain.Golden{{Input: "q"}}})

	v.Update(runes("w"))

	assert.Contains(t, v.View(), "No warnings")
}

func TestView_ScrollDetail(t *testing.T) {
	passages := make(domain.ContextGroup, 60)
	for i := range passages {
		passages[i] = fmt.Sprintf("passage %d", i)
	}
	v := NewView(nil, nil)
	v.SetDimensions(140, 20)
	v.SetDataset(&domain.Dataset{ID: "x", Goldens: []domain.Golden{{Input: "q", Context: passages}}})

	v.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Positive(t, v.DetailOffset())

	v.Update(tea.KeyMsg{Type: tea.KeyPgUp})
	assert.Zero(t, v.DetailOffset())
}

func TestView_WindowSize(t *testing.T) {
	v := newLoadedView(t)

	v.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	assert.Equal(t, 100, v.width)
	assert.Equal(t, 40, v.List().Width())
	assert.Equal(t, 26, v.List().Height())
}
