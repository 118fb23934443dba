// Package resilient decorates an LLMService with retries, per-call timeouts and pacing.
//
// Transient provider failures (rate limits, timeouts, 5xx, connection resets)
// are retried with bounded exponential backoff. Any other failure, or running
// out of attempts, is returned as a domain.GenerationFailure carrying the
// number of attempts made. The pipeline stage is filled in by the caller.
package resilient

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
	"github.com/custodia-labs/goldsmith/internal/logger"
)

// Ensure LLMService implements the batch interface.
var _ driven.BatchLLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultMaxAttempts     = 3
	DefaultCallTimeout     = 60 * time.Second
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 10 * time.Second
	DefaultBatchWorkers    = 4
)

// Config holds the retry and pacing policy.
type Config struct {
	// MaxAttempts is the number of attempts per call, first try included (default: 3).
	MaxAttempts int

	// CallTimeout bounds each attempt (default: 60s). Negative disables it.
	CallTimeout time.Duration

	// RequestsPerSecond paces calls across all goroutines. Zero disables pacing.
	RequestsPerSecond float64

	// InitialInterval is the first backoff wait (default: 500ms).
	InitialInterval time.Duration

	// MaxInterval caps a single backoff wait (default: 10s).
	MaxInterval time.Duration

	// BatchWorkers bounds GenerateBatch parallelism (default: 4).
	BatchWorkers int
}

// LLMService wraps another LLMService with the retry policy.
type LLMService struct {
	next    driven.LLMService
	cfg     Config
	limiter *RateLimiter
}

// New wraps next. Zero config fields take their defaults.
func New(next driven.LLMService, cfg Config) *LLMService {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultInitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = DefaultMaxInterval
	}
	if cfg.BatchWorkers <= 0 {
		cfg.BatchWorkers = DefaultBatchWorkers
	}
	return &LLMService{
		next:    next,
		cfg:     cfg,
		limiter: NewRateLimiter(cfg.RequestsPerSecond, 0),
	}
}

// Config returns the effective policy.
func (s *LLMService) Config() Config {
	return s.cfg
}

// Generate completes prompt, retrying transient failures.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return s.call(ctx, "generate", func(ctx context.Context) (string, error) {
		return s.next.Generate(ctx, prompt, opts)
	})
}

// Chat runs a conversation turn, retrying transient failures.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	return s.call(ctx, "chat", func(ctx context.Context) (string, error) {
		return s.next.Chat(ctx, messages, opts)
	})
}

// GenerateBatch completes every prompt with at most BatchWorkers calls in flight.
// One prompt failing does not cancel the others.
func (s *LLMService) GenerateBatch(ctx context.Context, prompts []string, opts driven.GenerateOptions) ([]string, []error) {
	outs := make([]string, len(prompts))
	errs := make([]error, len(prompts))

	var g errgroup.Group
	g.SetLimit(s.cfg.BatchWorkers)
	for i, prompt := range prompts {
		g.Go(func() error {
			outs[i], errs[i] = s.Generate(ctx, prompt, opts)
			return nil
		})
	}
	_ = g.Wait()

	return outs, errs
}

// ModelName returns the wrapped model name.
func (s *LLMService) ModelName() string {
	return s.next.ModelName()
}

// Ping checks the wrapped service once, within the call timeout.
func (s *LLMService) Ping(ctx context.Context) error {
	if s.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()
	}
	return s.next.Ping(ctx)
}

// Close closes the wrapped service.
func (s *LLMService) Close() error {
	return s.next.Close()
}

func (s *LLMService) call(ctx context.Context, op string, fn func(context.Context) (string, error)) (string, error) {
	attempts := 0
	var last error

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialInterval
	b.MaxInterval = s.cfg.MaxInterval

	out, err := backoff.Retry(ctx, func() (string, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", backoff.Permanent(err)
		}
		attempts++
		out, err := s.attempt(ctx, fn)
		if err == nil {
			return out, nil
		}
		last = err
		if !domain.IsTransient(err) {
			return "", backoff.Permanent(err)
		}
		if d, ok := domain.RetryAfter(err); ok {
			s.limiter.RecordRateLimit(d)
		}
		return "", err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(s.cfg.MaxAttempts)), //nolint:gosec // MaxAttempts is positive
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Debug("retrying model call", "op", op, "model", s.next.ModelName(), "wait", wait, "error", err)
		}),
	)
	if err == nil {
		return out, nil
	}

	if last == nil || ctx.Err() != nil {
		last = err
	}
	var permanent *backoff.PermanentError
	if errors.As(last, &permanent) {
		last = permanent.Unwrap()
	}
	return "", domain.NewGenerationFailure("", attempts, last)
}

// attempt runs fn under the per-call timeout. A timeout of the attempt alone,
// with the caller still waiting, is transient.
func (s *LLMService) attempt(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	if s.cfg.CallTimeout <= 0 {
		return fn(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	out, err := fn(actx)
	if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) && !domain.IsTransient(err) {
		err = domain.NewTransientError("call timeout", err, 0)
	}
	return out, err
}
