package tts

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"
)

// Mock implements Provider for testing.
type Mock struct {
	// StreamFunc is called when Stream is invoked.
	StreamFunc func(ctx context.Context, req *Request) (AudioStream, error)

	// HealthFunc is called when Health is invoked.
	HealthFunc func(ctx context.Context) error

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation.
type MockCall struct {
	Method  string
	Text    string
	VoiceID string
	Time    time.Time
}

// NewMock creates a mock that streams a short fake MP3 payload.
func NewMock() *Mock {
	return &Mock{
		StreamFunc: func(ctx context.Context, req *Request) (AudioStream, error) {
			return NewBufferStream([]byte("ID3mock-audio"), AudioFormat{
				Encoding:   EncodingMP3,
				SampleRate: EncodingMP3.SampleRate(),
				Channels:   1,
			}), nil
		},
		HealthFunc: func(ctx context.Context) error {
			return nil
		},
	}
}

// Stream calls StreamFunc and records the call.
func (m *Mock) Stream(ctx context.Context, req *Request) (AudioStream, error) {
	m.recordCall("Stream", req)
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req)
	}
	return nil, WrapError("mock", ErrProviderUnavailable)
}

// Synthesize drains StreamFunc and records the call.
func (m *Mock) Synthesize(ctx context.Context, req *Request) (*AudioResult, error) {
	m.recordCall("Synthesize", req)
	if m.StreamFunc == nil {
		return nil, WrapError("mock", ErrProviderUnavailable)
	}
	start := time.Now()
	stream, err := m.StreamFunc(ctx, req)
	if err != nil {
		return nil, err
	}
	return readAll(stream, len(req.Text), start)
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.recordCall("Health", nil)
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.recordCall("Close", nil)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *Mock) recordCall(method string, req *Request) {
	call := MockCall{Method: method, Time: time.Now()}
	if req != nil {
		call.Text = req.Text
		call.VoiceID = req.VoiceID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
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

// LastCall returns the most recent call, or nil if none.
func (m *Mock) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// WithError returns a mock that always returns the given error.
func WithError(err error) *Mock {
	return &Mock{
		StreamFunc: func(ctx context.Context, req *Request) (AudioStream, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// bufferStream serves an in-memory buffer as an AudioStream.
type bufferStream struct {
	io.Reader
	format AudioFormat
	closed bool
}

// NewBufferStream wraps data as an AudioStream.
func NewBufferStream(data []byte, format AudioFormat) AudioStream {
	return &bufferStream{Reader: bytes.NewReader(data), format: format}
}

func (s *bufferStream) Close() error {
	s.closed = true
	return nil
}

func (s *bufferStream) Format() AudioFormat {
	return s.format
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
