package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
)

var errBlankResponse = errors.New("model returned an empty response")

// completer issues text generation calls on behalf of a pipeline stage.
type completer struct {
	llm     driven.LLMService
	metrics driven.MetricsRecorder
	opts    driven.GenerateOptions
}

// complete runs one generation call and returns the trimmed response.
// Any failure is reported as a GenerationFailure for the stage. Retries and
// per-call timeouts belong to the LLMService implementation; a failure it
// reports without a stage is attributed to this one.
func (c completer) complete(ctx context.Context, stage domain.WarningStage, prompt string) (string, error) {
	if c.llm == nil {
		return "", domain.NewGenerationFailure(stage, 0, domain.ErrLLMUnavailable)
	}

	start := time.Now()
	out, err := c.llm.Generate(ctx, prompt, c.opts)
	return c.settle(stage, out, err, time.Since(start))
}

// completeAll runs one call per prompt and returns results by index.
// A BatchLLMService completes them concurrently; any other service is called
// once per prompt, in order.
func (c completer) completeAll(ctx context.Context, stage domain.WarningStage, prompts []string) ([]string, []error) {
	outs := make([]string, len(prompts))
	errs := make([]error, len(prompts))

	batch, ok := c.llm.(driven.BatchLLMService)
	if !ok || len(prompts) < 2 {
		for i, p := range prompts {
			outs[i], errs[i] = c.complete(ctx, stage, p)
		}
		return outs, errs
	}

	start := time.Now()
	raw, rawErrs := batch.GenerateBatch(ctx, prompts, c.opts)
	elapsed := time.Since(start)
	for i := range prompts {
		var out string
		var err error
		if i < len(raw) {
			out = raw[i]
		}
		if i < len(rawErrs) {
			err = rawErrs[i]
		}
		outs[i], errs[i] = c.settle(stage, out, err, elapsed)
	}
	return outs, errs
}

// settle records the call and normalises its result.
func (c completer) settle(stage domain.WarningStage, out string, err error, elapsed time.Duration) (string, error) {
	if err == nil && strings.TrimSpace(out) == "" {
		err = errBlankResponse
	}
	if c.metrics != nil {
		c.metrics.LLMCall(c.llm.ModelName(), elapsed, err)
	}
	if err != nil {
		var gf *domain.GenerationFailure
		if errors.As(err, &gf) {
			if gf.Stage == "" {
				return "", domain.NewGenerationFailure(stage, gf.Attempts, gf.Err)
			}
			return "", err
		}
		return "", domain.NewGenerationFailure(stage, 1, err)
	}
	return strings.TrimSpace(out), nil
}
