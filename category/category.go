// Package category implements the level-gated write path a caller
// actually calls into: a Category checks severity against its
// configured level and, if the record passes, hands it to whatever
// Sink backs it. The Sink abstraction is what lets the registry wire a
// real on-disk Appender in production and a plain in-memory recorder
// in tests, without either side knowing about the other.
package category

import (
	"sync"

	"github.com/kernelflux/aether/record"
)

// Sink is the write surface a Category delegates to. *appender.Appender
// satisfies this interface structurally; TestSink is the in-memory
// stand-in used by tests.
type Sink interface {
	Write(rec record.Record, body string) error
	WriteRaw(line []byte) error
	Flush() error
	Close() error
}

// Category gates writes by severity before handing them to a Sink.
type Category struct {
	mu    sync.RWMutex
	level record.Severity
	sink  Sink
}

// New builds a Category backed by sink, starting at level.
func New(sink Sink, level record.Severity) *Category {
	return &Category{sink: sink, level: level}
}

// IsEnabledFor reports whether a record at severity s would actually
// be written, without performing the write.
func (c *Category) IsEnabledFor(s record.Severity) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.level != record.None && s >= c.level
}

// Level returns the Category's current gate.
func (c *Category) Level() record.Severity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.level
}

// SetLevel changes the Category's gate.
func (c *Category) SetLevel(level record.Severity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level = level
}

// Write passes rec/body to the sink if rec's severity clears the gate.
// A gated-out record is not an error; it is simply dropped.
func (c *Category) Write(rec record.Record, body string) error {
	if !c.IsEnabledFor(rec.Severity) {
		return nil
	}
	c.mu.RLock()
	sink := c.sink
	c.mu.RUnlock()
	return sink.Write(rec, body)
}

// WriteRaw bypasses the severity gate and the formatter entirely; it
// exists for the header emitter's preamble, which is not a caller log
// record.
func (c *Category) WriteRaw(line []byte) error {
	c.mu.RLock()
	sink := c.sink
	c.mu.RUnlock()
	return sink.WriteRaw(line)
}

// Flush flushes the backing sink.
func (c *Category) Flush() error {
	c.mu.RLock()
	sink := c.sink
	c.mu.RUnlock()
	return sink.Flush()
}

// Close closes the backing sink.
func (c *Category) Close() error {
	c.mu.RLock()
	sink := c.sink
	c.mu.RUnlock()
	return sink.Close()
}
