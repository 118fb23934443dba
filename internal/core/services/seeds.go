package services

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
	"github.com/custodia-labs/goldsmith/internal/logger"
)

// SeedGenerator produces the initial inputs that evolution rounds operate on.
type SeedGenerator struct {
	completer completer
	prompts   promptBook
}

// FromContext asks for up to max inputs grounded in the group.
// A response holding fewer inputs than requested is accepted as is.
func (g *SeedGenerator) FromContext(ctx context.Context, group domain.ContextGroup, max int) ([]domain.SeedInput, error) {
	if max <= 0 {
		return nil, nil
	}
	ctx, span := domain.StartSpan(ctx, "seeds", "origin", string(domain.OriginContext))
	prompt := g.prompts.render(driven.PromptSeedFromContext, map[string]string{
		"context": formatContext(group),
		"count":   strconv.Itoa(max),
	})

	texts, err := g.generate(ctx, prompt, max)
	span.End(err)
	if err != nil {
		return nil, err
	}

	seeds := make([]domain.SeedInput, len(texts))
	for i, text := range texts {
		seeds[i] = domain.SeedInput{Text: text, Context: group.Clone(), Origin: domain.OriginContext}
	}
	return seeds, nil
}

// FromPrompt treats a caller-supplied prompt as a seed, without a model call.
func (g *SeedGenerator) FromPrompt(prompt string) domain.SeedInput {
	return domain.SeedInput{Text: strings.TrimSpace(prompt), Origin: domain.OriginPrompt}
}

// FromScratch issues a single call for spec.NumInitialGoldens inputs.
func (g *SeedGenerator) FromScratch(ctx context.Context, spec domain.ScratchSpec) ([]domain.SeedInput, error) {
	if err := ValidateScratch(spec); err != nil {
		return nil, err
	}
	ctx, span := domain.StartSpan(ctx, "seeds", "origin", string(domain.OriginScratch))
	format := spec.OutputFormat
	if strings.TrimSpace(format) == "" {
		format = "free text"
	}
	prompt := g.prompts.render(driven.PromptSeedFromScratch, map[string]string{
		"subject":       spec.Subject,
		"task":          spec.Task,
		"output_format": format,
		"count":         strconv.Itoa(spec.NumInitialGoldens),
	})

	texts, err := g.generate(ctx, prompt, spec.NumInitialGoldens)
	span.End(err)
	if err != nil {
		return nil, err
	}

	seeds := make([]domain.SeedInput, len(texts))
	for i, text := range texts {
		seeds[i] = domain.SeedInput{Text: text, Origin: domain.OriginScratch}
	}
	return seeds, nil
}

func (g *SeedGenerator) generate(ctx context.Context, prompt string, limit int) ([]string, error) {
	raw, err := g.completer.complete(ctx, domain.StageSeed, prompt)
	if err != nil {
		return nil, err
	}
	texts, err := ParseInputs(raw, limit)
	if err != nil {
		return nil, domain.NewGenerationFailure(domain.StageSeed, 1, err)
	}
	if len(texts) < limit {
		logger.Debug("accepted partial seed batch", "requested", limit, "parsed", len(texts))
	}
	return texts, nil
}

var (
	fencePattern     = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
	inputFieldRegexp = regexp.MustCompile(`"(?:input|question|prompt)"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	listItemPattern  = regexp.MustCompile(`^\s*(?:\d+[.):]|[-*•])\s+(.+)$`)
	blankLinePattern = regexp.MustCompile(`\n\s*\n`)
)

// ParseInputs extracts candidate inputs from a model response, best effort.
// It accepts, in order of preference: a {"data": [...]} object, a JSON array,
// "input" fields salvaged from truncated JSON, a numbered or bulleted list,
// and finally blank-line separated paragraphs. Results are de-duplicated and
// capped at limit when limit > 0. Zero usable inputs is a ParseError.
func ParseInputs(raw string, limit int) ([]string, error) {
	body := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(body); m != nil {
		body = strings.TrimSpace(m[1])
	}

	var inputs []string
	for _, parse := range []func(string) []string{parseJSONInputs, salvageInputFields, parseListItems, parseParagraphs} {
		if inputs = parse(body); len(inputs) > 0 {
			break
		}
	}

	inputs = dedupe(inputs)
	if len(inputs) == 0 {
		return nil, &domain.ParseError{Raw: raw, Err: errors.New("no inputs found in response")}
	}
	if limit > 0 && len(inputs) > limit {
		inputs = inputs[:limit]
	}
	return inputs, nil
}

func parseJSONInputs(body string) []string {
	start := strings.IndexAny(body, "{[")
	if start < 0 {
		return nil
	}
	body = body[start:]

	// Decode only the first JSON value so trailing chatter is ignored.
	var first json.RawMessage
	if err := json.NewDecoder(strings.NewReader(body)).Decode(&first); err != nil {
		return nil
	}
	var wrapped struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(first, &wrapped); err == nil && len(wrapped.Data) > 0 {
		return decodeItems(wrapped.Data)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(first, &items); err == nil {
		return decodeItems(items)
	}
	return nil
}

func decodeItems(items []json.RawMessage) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		for _, key := range []string{"input", "question", "prompt"} {
			if v, ok := obj[key].(string); ok {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

func salvageInputFields(body string) []string {
	var out []string
	for _, m := range inputFieldRegexp.FindAllStringSubmatch(body, -1) {
		s, err := strconv.Unquote(`"` + m[1] + `"`)
		if err != nil {
			s = m[1]
		}
		out = append(out, s)
	}
	return out
}

func parseListItems(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		if m := listItemPattern.FindStringSubmatch(line); m != nil {
			out = append(out, m[1])
		}
	}
	return out
}

func parseParagraphs(body string) []string {
	if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
		return nil
	}
	var out []string
	for _, p := range blankLinePattern.Split(body, -1) {
		if p = strings.Join(strings.Fields(p), " "); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func dedupe(inputs []string) []string {
	seen := make(map[string]bool, len(inputs))
	out := inputs[:0]
	for _, s := range inputs {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
