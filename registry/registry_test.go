package registry_test

import (
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/kernelflux/aether/category"
	"github.com/kernelflux/aether/record"
	"github.com/kernelflux/aether/registry"
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

func TestRegisterAndGet(t *testing.T) {
	r := registry.New()
	sink := &category.TestSink{}
	cat := category.New(sink, record.Info)

	r.Register("net", cat)
	got, ok := r.Get("net")
	assert(ok, t)
	assert(got == cat, t)

	_, ok = r.Get("missing")
	assert(!ok, t)
}

func TestFlushAllWithSeveralModulesSucceeds(t *testing.T) {
	r := registry.New()
	sinkA := &category.TestSink{}
	sinkB := &category.TestSink{}
	r.Register("a", category.New(sinkA, record.Verbose))
	r.Register("b", category.New(sinkB, record.Verbose))

	assert(r.FlushAll() == nil, t)
}

func TestFlushModuleUnknownReturnsError(t *testing.T) {
	r := registry.New()
	assert(r.FlushModule("nope") != nil, t)
}

func TestReleaseDetachesImmediatelyDefersClose(t *testing.T) {
	r := registry.New()
	sink := &category.TestSink{}
	cat := category.New(sink, record.Verbose)
	r.Register("net", cat)

	r.Release("net")

	_, ok := r.Get("net")
	assert(!ok, t)
	assert(!sink.Closed(), t)

	time.Sleep(50 * time.Millisecond)
	assert(!sink.Closed(), t) // still well inside the grace window
}

func TestEmitHeaderOnlyWritesOnce(t *testing.T) {
	r := registry.New()
	sink := &category.TestSink{}
	cat := category.New(sink, record.Verbose)

	assert(r.EmitHeader("net", cat, 123, nil) == nil, t)
	assert(len(sink.Raw) == 1, t)

	assert(r.EmitHeader("net", cat, 123, nil) == nil, t)
	assert(len(sink.Raw) == 1, t)
}

func TestEmitHeaderIncludesCustomFieldsAndSkipsComments(t *testing.T) {
	r := registry.New()
	sink := &category.TestSink{}
	cat := category.New(sink, record.Verbose)

	err := r.EmitHeader("net", cat, 0, []string{"# a comment", "", "custom: value"})
	assert(err == nil, t)
	assert(len(sink.Raw) == 1, t)

	text := string(sink.Raw[0])
	assert(!strings.Contains(text, "# a comment"), t)
	assert(strings.Contains(text, "custom: value"), t)
}
