package category

import (
	"sync"

	"github.com/kernelflux/aether/record"
)

// TestSink is an in-memory Sink used by tests that want to assert on
// what a Category would have written without touching a filesystem.
type TestSink struct {
	mu      sync.Mutex
	Records []record.Record
	Bodies  []string
	Raw     [][]byte
	closed  bool
}

func (s *TestSink) Write(rec record.Record, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Records = append(s.Records, rec)
	s.Bodies = append(s.Bodies, body)
	return nil
}

func (s *TestSink) WriteRaw(line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Raw = append(s.Raw, append([]byte(nil), line...))
	return nil
}

func (s *TestSink) Flush() error { return nil }

func (s *TestSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called, useful for asserting
// release/teardown ordering in registry tests.
func (s *TestSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
