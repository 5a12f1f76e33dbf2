package mock

import (
	"context"
	"sync"

	"github.com/poiesic/gleaner/ai"
)

// DefaultReply is the record returned by a MockCompleter with no CompleteFunc.
const DefaultReply = `{"author": "unknown", "site": "unknown", "publish_date": "unknown", ` +
	`"main_topic": "unknown", "parent_topic": "unknown", "field": "unknown", ` +
	`"keywords": [], "major_insights": [], "supporting_details": [], ` +
	`"relevant_quotations": [], "external_links": []}`

// Call records one Complete invocation.
type Call struct {
	Prompt  ai.Prompt
	Profile ai.Profile
}

// MockCompleter is a test double for ai.Completer.
// It allows custom behavior injection via a function field and is safe for
// concurrent use, since chunk extraction calls it from a worker pool.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, DefaultReply is returned.
	CompleteFunc func(ctx context.Context, prompt ai.Prompt, profile ai.Profile) (string, error)

	mu    sync.Mutex
	calls []Call
}

// NewMockCompleter creates a mock completer with default behavior.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// WithCompleteFunc sets custom behavior and returns the mock for chaining.
func (m *MockCompleter) WithCompleteFunc(f func(ctx context.Context, prompt ai.Prompt, profile ai.Profile) (string, error)) *MockCompleter {
	m.CompleteFunc = f
	return m
}

// Complete records the call and delegates to CompleteFunc.
func (m *MockCompleter) Complete(ctx context.Context, prompt ai.Prompt, profile ai.Profile) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Prompt: prompt, Profile: profile})
	f := m.CompleteFunc
	m.mu.Unlock()

	if f != nil {
		return f(ctx, prompt, profile)
	}
	return DefaultReply, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// CallsFor returns the calls made with the named profile.
func (m *MockCompleter) CallsFor(profile string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.calls {
		if c.Profile.Name == profile {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears recorded calls and custom behavior.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.CompleteFunc = nil
}
