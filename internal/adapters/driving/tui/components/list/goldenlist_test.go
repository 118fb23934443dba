package list

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/goldsmith/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

func sampleGoldens() []domain.Golden {
	answer := "Sixteen weeks."
	return []domain.Golden{
		{
			Input:          "How long is parental leave?",
			ExpectedOutput: &answer,
			Trace:          domain.EvolutionTrace{Steps: []domain.EvolutionKind{domain.EvolutionReasoning}},
			Origin:         domain.OriginContext,
		},
		{Input: "Who approves remote work?", Origin: domain.OriginContext},
		{Input: "Summarise the leave policy", Origin: domain.OriginPrompt},
	}
}

func TestNewGoldenList(t *testing.T) {
	list := NewGoldenList(styles.DefaultStyles())

	require.NotNil(t, list)
	assert.Equal(t, 0, list.Selected())
	assert.True(t, list.IsEmpty())
	assert.Nil(t, list.Init())
}

func TestNewGoldenList_NilStyles(t *testing.T) {
	list := NewGoldenList(nil)

	require.NotNil(t, list)
	assert.NotNil(t, list.styles)
}

func TestGoldenList_SetGoldens(t *testing.T) {
	list := NewGoldenList(nil)
	list.SetFilter("leave")

	list.SetGoldens(sampleGoldens())

	assert.Equal(t, 3, list.Count())
	assert.Empty(t, list.Filter())
	assert.Len(t, list.Goldens(), 3)
}

func TestGoldenList_Navigation(t *testing.T) {
	list := NewGoldenList(nil)
	list.SetGoldens(sampleGoldens())

	list.MoveUp()
	assert.Equal(t, 0, list.Selected(), "cannot move above the first row")

	list.MoveDown()
	list.MoveDown()
	list.MoveDown()
	assert.Equal(t, 2, list.Selected(), "cannot move past the last row")

	list.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 1, list.Selected())

	list.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	assert.Equal(t, 0, list.Selected())

	list.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	assert.Equal(t, 2, list.Selected())

	list.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, list.Selected())
}

func TestGoldenList_SetSelected(t *testing.T) {
	list := NewGoldenList(nil)
	list.SetGoldens(sampleGoldens())

	list.SetSelected(2)
	assert.Equal(t, 2, list.Selected())

	list.SetSelected(5)
	assert.Equal(t, 2, list.Selected(), "out of range is ignored")

	list.SetSelected(-1)
	assert.Equal(t, 2, list.Selected(), "negative is ignored")
}

func TestGoldenList_Filter(t *testing.T) {
	list := NewGoldenList(nil)
	list.SetGoldens(sampleGoldens())
	list.SetSelected(2)

	list.SetFilter("  LEAVE ")

	assert.Equal(t, "LEAVE", list.Filter())
	assert.Equal(t, 2, list.Count())
	assert.Equal(t, 0, list.Selected(), "filtering resets the selection")

	list.MoveDown()
	require.NotNil(t, list.SelectedGolden())
	assert.Equal(t, "Summarise the leave policy", list.SelectedGolden().Input)

	list.SetFilter("")
	assert.Equal(t, 3, list.Count())
}

func TestGoldenList_SelectedGolden_Empty(t *testing.T) {
	list := NewGoldenList(nil)

	assert.Nil(t, list.SelectedGolden())

	list.SetGoldens(sampleGoldens())
	list.SetFilter("no such text")
	assert.Nil(t, list.SelectedGolden())
}

func TestGoldenList_View(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		list := NewGoldenList(nil)
		assert.Contains(t, list.View(), "No goldens")
	})

	t.Run("no match", func(t *testing.T) {
		list := NewGoldenList(nil)
		list.SetGoldens(sampleGoldens())
		list.SetFilter("zebra")

		assert.Contains(t, list.View(), `No goldens match "zebra"`)
	})

	t.Run("rows", func(t *testing.T) {
		list := NewGoldenList(nil)
		list.SetDimensions(100, 20)
		list.SetGoldens(sampleGoldens())

		view := list.View()

		assert.Contains(t, view, "Goldens (3)")
		assert.Contains(t, view, "> How long is parental leave?")
		assert.Contains(t, view, "1 evolution(s)")
		assert.Contains(t, view, "expected output")
		assert.Contains(t, view, "from_prompt")
	})

	t.Run("filtered header", func(t *testing.T) {
		list := NewGoldenList(nil)
		list.SetDimensions(100, 20)
		list.SetGoldens(sampleGoldens())
		list.SetFilter("remote")

		assert.Contains(t, list.View(), "Goldens (1 of 3)")
	})

	t.Run("scrolls to selection", func(t *testing.T) {
		list := NewGoldenList(nil)
		list.SetDimensions(100, 4)
		list.SetGoldens(sampleGoldens())
		list.SetSelected(2)

		view := list.View()

		assert.Contains(t, view, "Summarise the leave policy")
		assert.NotContains(t, view, "parental")
	})
}

func TestGoldenList_Dimensions(t *testing.T) {
	list := NewGoldenList(nil)

	list.SetDimensions(120, 40)

	assert.Equal(t, 120, list.Width())
	assert.Equal(t, 40, list.Height())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "a b", singleLine(" a\n\tb "))
}
