package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
)

func ptr(s string) *string { return &s }

func sampleGoldens() []domain.Golden {
	return []domain.Golden{
		{
			ID:             "g-1",
			Input:          "Why does the cache evict entries early?",
			ExpectedOutput: ptr("Because the TTL is \"per write\",\nnot per read."),
			Context:        domain.ContextGroup{"The cache uses a TTL.", "Writes reset, reads don't."},
			Trace: domain.EvolutionTrace{Steps: []domain.EvolutionKind{
				domain.EvolutionReasoning, domain.EvolutionSkipped,
			}},
			Origin:     domain.OriginContext,
			SourceFile: "docs/cache.md",
		},
		{
			ID:     "g-2",
			Input:  "List three prime numbers, comma separated",
			Trace:  domain.EvolutionTrace{Steps: []domain.EvolutionKind{domain.EvolutionConstrained}, Truncated: true},
			Origin: domain.OriginPrompt,
		},
		{
			ID:      "g-3",
			Input:   "Summarise nothing",
			Context: domain.ContextGroup{},
			Origin:  domain.OriginScratch,
		},
		{
			ID:             "g-4",
			Input:          "Compare\r\nthese lines",
			ExpectedOutput: ptr("line one\r\nline two"),
			Context:        domain.ContextGroup{"p\r\nq"},
			Origin:         domain.OriginContext,
		},
		{
			ID:             "g-5",
			Input:          `"quoted"`,
			ExpectedOutput: ptr(`"\r"`),
			Origin:         domain.OriginPrompt,
		},
	}
}

func TestSink_ImplementsInterfaces(t *testing.T) {
	var _ driven.DatasetWriter = (*Sink)(nil)
	var _ driven.DatasetReader = (*Sink)(nil)
}

func TestSink_RoundTrip(t *testing.T) {
	for _, kind := range domain.AllDatasetKinds() {
		t.Run(kind.String(), func(t *testing.T) {
			sink := NewSink()
			path := filepath.Join(t.TempDir(), "goldens"+kind.Extension())

			written, err := sink.Write(context.Background(), sampleGoldens(), kind, path)
			require.NoError(t, err)
			assert.Equal(t, path, written)

			got, err := sink.Read(context.Background(), written)
			require.NoError(t, err)
			require.Len(t, got, len(sampleGoldens()))

			for i, want := range sampleGoldens() {
				assert.Equal(t, want.ID, got[i].ID)
				assert.Equal(t, want.Input, got[i].Input)
				assert.Equal(t, want.ExpectedOutput, got[i].ExpectedOutput)
				assert.True(t, want.Context.Equal(got[i].Context), "context %q != %q", want.Context, got[i].Context)
				assert.True(t, want.Trace.Equal(got[i].Trace), "trace %v != %v", want.Trace, got[i].Trace)
				assert.Equal(t, want.Origin, got[i].Origin)
			}
		})
	}
}

func TestSink_JSONAndYAMLKeepSourceFile(t *testing.T) {
	for _, kind := range []domain.DatasetKind{domain.DatasetJSON, domain.DatasetYAML} {
		t.Run(kind.String(), func(t *testing.T) {
			sink := NewSink()
			path, err := sink.Write(context.Background(), sampleGoldens(), kind, filepath.Join(t.TempDir(), "out"+kind.Extension()))
			require.NoError(t, err)

			got, err := sink.Read(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, sampleGoldens(), got)
		})
	}
}

func TestSink_Write_JSONIsIndentedArray(t *testing.T) {
	path, err := NewSink().Write(context.Background(), sampleGoldens()[:2], domain.DatasetJSON, filepath.Join(t.TempDir(), "out.json"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "[\n  {"))

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 2)
	assert.Nil(t, raw[1]["expected_output"])
	assert.Nil(t, raw[1]["context"])
	for _, key := range []string{"id", "input", "expected_output", "context", "trace", "origin"} {
		assert.Contains(t, raw[0], key)
	}
}

func TestSink_Write_CSVLayout(t *testing.T) {
	path, err := NewSink().Write(context.Background(), sampleGoldens()[1:2], domain.DatasetCSV, filepath.Join(t.TempDir(), "out.csv"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,input,expected_output,context,trace,origin", lines[0])
	assert.Equal(t, `g-2,"List three prime numbers, comma separated",,,"{""steps"":[""constrained""],""truncated"":true}",from_prompt`, lines[1])
}

func TestSink_CSVTextCells(t *testing.T) {
	tests := []struct {
		name string
		text string
		cell string
	}{
		{"plain text", "What is RAG?", "What is RAG?"},
		{"newline only", "a\nb", "a\nb"},
		{"carriage return", "a\r\nb", `"a\r\nb"`},
		{"looks like json", `"hi"`, `"\"hi\""`},
		{"partial quote", `"hi" she said`, `"hi" she said`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.cell, textCell(tt.text))
			assert.Equal(t, tt.text, parseTextCell(textCell(tt.text)))
		})
	}
}

func TestSink_CSV_KeepsCarriageReturns(t *testing.T) {
	g := domain.Golden{
		ID:             "crlf",
		Input:          "a\r\nb",
		ExpectedOutput: ptr("line one\r\nline two"),
		Context:        domain.ContextGroup{"p\r\nq"},
		Origin:         domain.OriginContext,
	}
	sink := NewSink()
	path, err := sink.Write(context.Background(), []domain.Golden{g}, domain.DatasetCSV, filepath.Join(t.TempDir(), "crlf.csv"))
	require.NoError(t, err)

	got, err := sink.Read(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a\r\nb", got[0].Input)
	require.NotNil(t, got[0].ExpectedOutput)
	assert.Equal(t, "line one\r\nline two", *got[0].ExpectedOutput)
	assert.Equal(t, domain.ContextGroup{"p\r\nq"}, got[0].Context)
}

func TestSink_Write_InfersKindFromExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goldens.yml")

	written, err := NewSink().Write(context.Background(), sampleGoldens(), "", path)
	require.NoError(t, err)

	data, err := os.ReadFile(written)
	require.NoError(t, err)
	assert.Contains(t, string(data), "- id: g-1")
}

func TestSink_Write_DirectoryGetsTimestampedName(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink()
	sink.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

	written, err := sink.Write(context.Background(), sampleGoldens(), domain.DatasetCSV, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "goldens_20260304T050607.csv"), written)

	written, err = sink.Write(context.Background(), sampleGoldens(), "", filepath.Join(dir, "new")+"/")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "new", "goldens_20260304T050607.json"), written)
	_, err = os.Stat(written)
	assert.NoError(t, err)
}

func TestSink_Write_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "goldens.json")

	_, err := NewSink().Write(context.Background(), sampleGoldens(), domain.DatasetJSON, path)

	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSink_Write_UnknownKind(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		kind domain.DatasetKind
		path string
	}{
		{"explicit kind", "parquet", filepath.Join(dir, "out.parquet")},
		{"explicit kind into directory", "xml", dir},
		{"unknown extension", "", filepath.Join(dir, "out.txt")},
		{"no extension", "", filepath.Join(dir, "out")},
		{"empty path", domain.DatasetJSON, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSink().Write(context.Background(), sampleGoldens(), tt.kind, tt.path)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}

func TestSink_Write_EmptyDataset(t *testing.T) {
	for _, kind := range domain.AllDatasetKinds() {
		t.Run(kind.String(), func(t *testing.T) {
			sink := NewSink()
			path, err := sink.Write(context.Background(), nil, kind, filepath.Join(t.TempDir(), "empty"+kind.Extension()))
			require.NoError(t, err)

			got, err := sink.Read(context.Background(), path)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestSink_Write_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSink().Write(ctx, sampleGoldens(), domain.DatasetJSON, filepath.Join(t.TempDir(), "out.json"))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestSink_Read_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
		return path
	}

	tests := []struct {
		name string
		path string
		want error
	}{
		{"unknown extension", write("data.txt", "[]"), domain.ErrInvalidConfig},
		{"missing file", filepath.Join(dir, "missing.json"), domain.ErrNotFound},
		{"malformed json", write("bad.json", "{not json"), domain.ErrInvalidInput},
		{"malformed yaml", write("bad.yaml", "- id: [unclosed"), domain.ErrInvalidInput},
		{"csv wrong header", write("header.csv", "a,b,c,d,e,f\n"), domain.ErrInvalidInput},
		{"csv bad context cell", write("ctx.csv", "id,input,expected_output,context,trace,origin\ng,in,,not-json,,from_prompt\n"), domain.ErrInvalidInput},
		{"csv short row", write("short.csv", "id,input,expected_output,context,trace,origin\ng,in\n"), domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSink().Read(context.Background(), tt.path)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSink_Read_CSVEmptyCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	content := "id,input,expected_output,context,trace,origin\n" +
		"g,question,,,,from_prompt\n" +
		"h,other,answer,[],\"{\"\"steps\"\":[\"\"reasoning\"\"],\"\"truncated\"\":false}\",from_context\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	got, err := NewSink().Read(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].ExpectedOutput)
	assert.Nil(t, got[0].Context)
	assert.Equal(t, 0, got[0].Trace.Len())
	require.NotNil(t, got[1].ExpectedOutput)
	assert.Equal(t, "answer", *got[1].ExpectedOutput)
	assert.NotNil(t, got[1].Context)
	assert.Empty(t, got[1].Context)
	assert.Equal(t, []domain.EvolutionKind{domain.EvolutionReasoning}, got[1].Trace.Steps)
}
