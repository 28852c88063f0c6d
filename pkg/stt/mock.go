package stt

import (
	"context"
	"sync"
	"time"
)

// Mock implements Recognizer for testing.
type Mock struct {
	// RecognizeFunc is called when Recognize is invoked.
	// If nil, returns ErrNoTranscript.
	RecognizeFunc func(ctx context.Context, audio []byte) (*Result, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Bytes  int
	Time   time.Time
}

// NewMock creates a mock that returns the given transcripts in order,
// then ErrNoTranscript once they run out.
func NewMock(transcripts ...string) *Mock {
	m := &Mock{}
	var next int
	m.RecognizeFunc = func(ctx context.Context, audio []byte) (*Result, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if next >= len(transcripts) {
			return nil, ErrNoTranscript
		}
		t := transcripts[next]
		next++
		if t == "" {
			return nil, ErrNoTranscript
		}
		return &Result{Transcript: t, Confidence: 0.9, LanguageCode: "en-US"}, nil
	}
	return m
}

// WithError returns a mock that always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		RecognizeFunc: func(ctx context.Context, audio []byte) (*Result, error) {
			return nil, err
		},
	}
}

// Recognize calls RecognizeFunc and records the call.
func (m *Mock) Recognize(ctx context.Context, audio []byte) (*Result, error) {
	m.recordCall("Recognize", len(audio))
	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(ctx, audio)
	}
	return nil, ErrNoTranscript
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.recordCall("Close", 0)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *Mock) recordCall(method string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Bytes: n, Time: time.Now()})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

var _ Recognizer = (*Mock)(nil)
