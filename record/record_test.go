package record_test

import (
	"runtime"
	"testing"
	"time"

	"github.com/kernelflux/aether/record"
)

func assert(cond bool, t *testing.T) {
	if cond {
		return
	}
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file = "???"
		line = 0
	}
	t.Fatalf("%s: %d: Assertion failed\n", file, line)
}

func TestSeverityLetter(t *testing.T) {
	assert(record.Verbose.Letter() == "V", t)
	assert(record.Debug.Letter() == "D", t)
	assert(record.Info.Letter() == "I", t)
	assert(record.Warn.Letter() == "W", t)
	assert(record.Error.Letter() == "E", t)
	assert(record.Fatal.Letter() == "F", t)
	assert(record.Severity(99).Letter() == "?", t)
}

func TestRecordTime(t *testing.T) {
	r := record.Record{Sec: 1700000000, Usec: 500000}
	got := r.Time()
	want := time.Unix(1700000000, 500000*1000).Local()
	assert(got.Equal(want), t)
}

func TestIsMainThread(t *testing.T) {
	r := record.Record{Tid: 7, MainTid: 7}
	assert(r.IsMainThread(), t)

	r2 := record.Record{Tid: 7, MainTid: 8}
	assert(!r2.IsMainThread(), t)
}
