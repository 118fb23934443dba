package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/goldsmith/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

var cliStyles = styles.DefaultStyles()

// runReport is what a generate command produced.
type runReport struct {
	result   *domain.GenerationResult
	dataset  *domain.Dataset
	exported string
}

func printReport(cmd *cobra.Command, r runReport) {
	out := cmd.OutOrStdout()
	goldens, warnings := len(r.result.Goldens), len(r.result.Warnings)

	headline := cliStyles.Success.Render(fmt.Sprintf("Generated %d goldens", goldens))
	if warnings > 0 {
		headline += cliStyles.Warning.Render(fmt.Sprintf(" (%d warnings)", warnings))
	}
	fmt.Fprintln(out, headline)

	if r.dataset != nil {
		fmt.Fprintf(out, "  %s %s %s\n", cliStyles.Muted.Render("dataset"), r.dataset.Name, cliStyles.Muted.Render(r.dataset.ID))
	}
	if r.exported != "" {
		fmt.Fprintf(out, "  %s %s\n", cliStyles.Muted.Render("file   "), r.exported)
	}
	if kinds := evolutionCounts(r.result.Goldens); kinds != "" {
		fmt.Fprintf(out, "  %s %s\n", cliStyles.Muted.Render("evolved"), kinds)
	}

	if warnings > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, cliStyles.Subtitle.Render("Warnings"))
		for _, w := range r.result.Warnings {
			fmt.Fprintf(out, "  %s %s\n", cliStyles.Warning.Render(warningLabel(w)), w.Message)
		}
	}
}

func warningLabel(w domain.Warning) string {
	if w.Unit < 0 {
		return fmt.Sprintf("[%s]", w.Stage)
	}
	return fmt.Sprintf("[unit %d %s]", w.Unit, w.Stage)
}

// evolutionCounts summarises trace steps as "reasoning×3 rephrase×1".
func evolutionCounts(goldens []domain.Golden) string {
	counts := map[domain.EvolutionKind]int{}
	var order []domain.EvolutionKind
	for _, g := range goldens {
		for _, k := range g.Trace.Steps {
			if counts[k] == 0 {
				order = append(order, k)
			}
			counts[k]++
		}
	}
	parts := make([]string, len(order))
	for i, k := range order {
		parts[i] = fmt.Sprintf("%s×%d", k, counts[k])
	}
	return strings.Join(parts, " ")
}

func datasetTable(summaries []domain.DatasetSummary) string {
	header := cliStyles.Subtitle.Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(cliStyles.Theme().Border)).
		Headers("ID", "NAME", "SOURCE", "GOLDENS", "WARNINGS", "CREATED").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	for _, d := range summaries {
		t.Row(d.ID, d.Name, string(d.SourceKind), fmt.Sprint(d.GoldenCount), fmt.Sprint(d.WarningCount),
			d.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return t.String()
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
