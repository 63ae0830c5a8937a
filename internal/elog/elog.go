// Package elog is the engine's own operational logger: the messages
// aether emits about itself (mmap fallback, rotation, retention sweep
// outcomes), never the caller's records. It is deliberately a much
// small logger: one priority hierarchy, one async writer goroutine, no
// syslog/rotation support of its own since engine diagnostics are
// expected to ride on whatever stderr/stdout plumbing the host process
// already has.
package elog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Priority is a small level hierarchy trimmed to the levels this
// package actually emits.
type Priority int

const (
	Debug Priority = iota
	Info
	Warn
	Err
)

func (p Priority) String() string {
	switch p {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Err:
		return "ERR"
	default:
		return "?"
	}
}

// Logger is an async, priority-gated sink for engine diagnostics.
type Logger struct {
	level Priority
	out   chan string

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// New starts a Logger writing lines at level or above to w.
func New(w io.Writer, level Priority) *Logger {
	l := &Logger{
		level: level,
		out:   make(chan string, 256),
		done:  make(chan struct{}),
	}
	go l.run(w)
	return l
}

func (l *Logger) run(w io.Writer) {
	defer close(l.done)
	for line := range l.out {
		fmt.Fprint(w, line)
	}
}

func (l *Logger) logf(p Priority, format string, args ...interface{}) {
	if p < l.level {
		return
	}
	line := fmt.Sprintf("%s [%s] %s\n", time.Now().Format("2006-01-02 15:04:05.000"), p, fmt.Sprintf(format, args...))

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.out <- line:
	default:
		// channel full: diagnostics are best-effort, never block the
		// write path waiting for stderr.
	}
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(Debug, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logf(Info, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logf(Warn, format, args...) }
func (l *Logger) Errf(format string, args ...interface{})   { l.logf(Err, format, args...) }

// Close stops accepting new messages and waits for the writer goroutine
// to drain the channel.
func (l *Logger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.out)
	l.mu.Unlock()

	<-l.done
	return nil
}

// Default is a process-wide engine logger writing to stderr at Warn
// level, used wherever a component is not given an explicit Logger.
var Default = New(os.Stderr, Warn)
