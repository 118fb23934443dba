package file

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

var csvHeader = []string{"id", "input", "expected_output", "context", "trace", "origin"}

func encodeCSV(w io.Writer, goldens []domain.Golden) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, g := range goldens {
		row, err := csvRow(g)
		if err != nil {
			return fmt.Errorf("golden %s: %w", g.ID, err)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(g domain.Golden) ([]string, error) {
	var expected, ctxCell string
	if g.ExpectedOutput != nil {
		expected = textCell(*g.ExpectedOutput)
	}
	if g.Context != nil {
		b, err := json.Marshal([]string(g.Context))
		if err != nil {
			return nil, err
		}
		ctxCell = string(b)
	}
	trace, err := json.Marshal(g.Trace)
	if err != nil {
		return nil, err
	}
	return []string{g.ID, textCell(g.Input), expected, ctxCell, string(trace), string(g.Origin)}, nil
}

func decodeCSV(r io.Reader) ([]domain.Golden, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !slices.Equal(header, csvHeader) {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	var out []domain.Golden
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		rec := record{ID: row[0], Input: parseTextCell(row[1]), Origin: domain.SeedOrigin(row[5])}
		if row[2] != "" {
			expected := parseTextCell(row[2])
			rec.ExpectedOutput = &expected
		}
		if row[3] != "" {
			var group []string
			if err := json.Unmarshal([]byte(row[3]), &group); err != nil {
				return nil, fmt.Errorf("line %d: context: %w", line, err)
			}
			rec.Context = &group
		}
		if row[4] != "" {
			if err := json.Unmarshal([]byte(row[4]), &rec.Trace); err != nil {
				return nil, fmt.Errorf("line %d: trace: %w", line, err)
			}
		}
		out = append(out, rec.golden())
	}
}

// textCell quotes s as a JSON string when the CSV reader would not return it
// unchanged: the reader folds \r\n inside quoted fields to \n. Text that
// already reads as a JSON string is quoted too, so parseTextCell never
// unquotes plain text.
func textCell(s string) string {
	if !strings.ContainsRune(s, '\r') && !isJSONString(s) {
		return s
	}
	b, err := json.Marshal(s)
	if err != nil {
		return s
	}
	return string(b)
}

// parseTextCell reverses textCell. Cells that are not JSON strings are plain text.
func parseTextCell(cell string) string {
	if !isJSONString(cell) {
		return cell
	}
	var s string
	_ = json.Unmarshal([]byte(cell), &s)
	return s
}

func isJSONString(s string) bool {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return false
	}
	var v string
	return json.Unmarshal([]byte(s), &v) == nil
}
