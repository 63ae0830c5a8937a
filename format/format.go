// Package format renders one log record into the fixed text-line layout
// xlog has always used: a caller never sees binary framing, only this
// line, before it goes into the buffer.
package format

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kernelflux/aether/record"
)

// OverflowHeadroom is the minimum free capacity format.Line requires in
// the destination buffer before it will emit a normal line. Below this
// threshold it emits the terminal "[F]" marker instead and the caller
// must drop the record.
const OverflowHeadroom = 5 * 1024

// overflow line guard state. The original C++ keeps these as
// function-local statics in log_formater(); here they are held in a
// small package-level counter guarded by a mutex so concurrent
// Appenders sharing the process see one rolling count, matching that
// behavior.
var overflowMu sync.Mutex
var overflowCount int

// Line formats rec/body into a single newline-terminated text line.
// available is the caller's estimate of free space remaining in the
// buffer the line is about to be written into; when it is below
// OverflowHeadroom, Line drops the record and instead returns the
// "[F]log_size..." marker line, bumping a rolling counter across calls.
func Line(rec record.Record, body string, available int) []byte {
	if available < OverflowHeadroom {
		overflowMu.Lock()
		overflowCount++
		n := overflowCount
		overflowMu.Unlock()
		return []byte(fmt.Sprintf("[F]log_size <= 5*1024, err(%d, %d)\n", n, len(body)))
	}

	if len(body) > record.MaxBodyLen {
		body = body[:record.MaxBodyLen]
	}

	var b strings.Builder
	b.Grow(len(body) + 128)

	t := rec.Time()
	writeTimestamp(&b, t)
	b.WriteByte(' ')

	b.WriteByte('[')
	writeInt(&b, rec.Pid)
	b.WriteByte(':')
	writeInt(&b, rec.Tid)
	if rec.IsMainThread() {
		b.WriteByte('*')
	}
	b.WriteByte(']')
	b.WriteByte(' ')

	b.WriteString(rec.Severity.Letter())
	b.WriteByte('/')
	if rec.Tag != "" {
		b.WriteString(rec.Tag)
	} else {
		b.WriteByte('-')
	}
	b.WriteByte(' ')

	b.WriteString(location(rec))
	b.WriteString(" - ")

	writeBody(&b, body)

	out := b.String()
	if len(out) == 0 || out[len(out)-1] != '\n' {
		out += "\n"
	}
	return []byte(out)
}

// location renders the LOC field. With a line number above zero it is
// "filename:line" if filename is non-empty, else "funcname:line", else
// ":line"; without one it is filename alone, else funcname alone, else
// empty.
func location(rec record.Record) string {
	switch {
	case rec.Filename != "" && rec.Line > 0:
		return rec.Filename + ":" + itoa(rec.Line)
	case rec.Funcname != "" && rec.Line > 0:
		return rec.Funcname + ":" + itoa(rec.Line)
	case rec.Line > 0:
		return ":" + itoa(rec.Line)
	case rec.Filename != "":
		return rec.Filename
	case rec.Funcname != "":
		return rec.Funcname
	default:
		return ""
	}
}

// writeBody handles the multi-line continuation rule: the first line is
// emitted verbatim; every subsequent non-empty line gets a four-space
// indent.
func writeBody(b *strings.Builder, body string) {
	if body == "" {
		b.WriteString("NULL == log")
		return
	}

	lines := strings.Split(body, "\n")
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
			if l != "" {
				b.WriteString("    ")
			}
		}
		b.WriteString(l)
	}
}

func writeTimestamp(b *strings.Builder, t time.Time) {
	y, m, d := t.Date()
	writePad(b, y, 4)
	b.WriteByte('-')
	writePad(b, int(m), 2)
	b.WriteByte('-')
	writePad(b, d, 2)
	b.WriteByte(' ')

	hh, mm, ss := t.Clock()
	writePad(b, hh, 2)
	b.WriteByte(':')
	writePad(b, mm, 2)
	b.WriteByte(':')
	writePad(b, ss, 2)
	b.WriteByte('.')
	writePad(b, t.Nanosecond()/1e6, 3)
}

func writeInt(b *strings.Builder, v int64) {
	b.WriteString(itoaInt64(v))
}

// itoa/itoaInt64/writePad are cheap fixed-width decimal renderers that
// avoid fmt.Sprintf on the hot path.
func writePad(b *strings.Builder, v int, width int) {
	s := itoa(v)
	for len(s) < width {
		s = "0" + s
	}
	b.WriteString(s)
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func itoaInt64(v int64) string {
	return itoa(int(v))
}
