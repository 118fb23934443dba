package resilient

import (
	"context"
	"sync"

	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
)

// scriptedLLM returns the next scripted outcome on every call and repeats the last one.
type scriptedLLM struct {
	mu      sync.Mutex
	results []result
	calls   int
	block   bool
	pingErr error
	closed  bool
}

type result struct {
	out string
	err error
}

func (m *scriptedLLM) Generate(ctx context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	return m.next(ctx)
}

func (m *scriptedLLM) Chat(ctx context.Context, _ []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	return m.next(ctx)
}

func (m *scriptedLLM) next(ctx context.Context) (string, error) {
	m.mu.Lock()
	i := min(m.calls, len(m.results)-1)
	m.calls++
	block := m.block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return m.results[i].out, m.results[i].err
}

func (m *scriptedLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *scriptedLLM) ModelName() string { return "scripted" }

func (m *scriptedLLM) Ping(_ context.Context) error { return m.pingErr }

func (m *scriptedLLM) Close() error {
	m.closed = true
	return nil
}
