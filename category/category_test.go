package category_test

import (
	"runtime"
	"testing"

	"github.com/kernelflux/aether/category"
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

func TestWriteGatedBySeverity(t *testing.T) {
	sink := &category.TestSink{}
	c := category.New(sink, record.Warn)

	assert(c.Write(record.Record{Severity: record.Info}, "dropped") == nil, t)
	assert(len(sink.Bodies) == 0, t)

	assert(c.Write(record.Record{Severity: record.Error}, "kept") == nil, t)
	assert(len(sink.Bodies) == 1, t)
	assert(sink.Bodies[0] == "kept", t)
}

func TestLevelNoneDisablesEverything(t *testing.T) {
	sink := &category.TestSink{}
	c := category.New(sink, record.None)
	assert(!c.IsEnabledFor(record.Fatal), t)
}

func TestSetLevelTakesEffectImmediately(t *testing.T) {
	sink := &category.TestSink{}
	c := category.New(sink, record.Error)
	assert(!c.IsEnabledFor(record.Warn), t)
	c.SetLevel(record.Warn)
	assert(c.IsEnabledFor(record.Warn), t)
}

func TestWriteRawBypassesGate(t *testing.T) {
	sink := &category.TestSink{}
	c := category.New(sink, record.None)
	assert(c.WriteRaw([]byte("preamble\n")) == nil, t)
	assert(len(sink.Raw) == 1, t)
}

func TestCloseDelegatesToSink(t *testing.T) {
	sink := &category.TestSink{}
	c := category.New(sink, record.Verbose)
	assert(c.Close() == nil, t)
	assert(sink.Closed(), t)
}
