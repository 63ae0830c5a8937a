package aether_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/kernelflux/aether"
	"github.com/kernelflux/aether/config"
	"github.com/kernelflux/aether/internal/xlogdecode"
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

func sample(sev record.Severity, tag string) record.Record {
	return record.Record{
		Severity: sev,
		Sec:      1700000000,
		Pid:      1,
		Tid:      1,
		MainTid:  1,
		Tag:      tag,
		Filename: "app.go",
		Funcname: "run",
		Line:     10,
	}
}

func newCfg(t *testing.T, prefix string) config.ModuleConfig {
	return config.ModuleConfig{
		LogDir:     t.TempDir(),
		NamePrefix: prefix,
	}
}

func TestNewInstanceIsIdempotentByName(t *testing.T) {
	e := aether.New()
	cfg := newCfg(t, "app")

	h1, err := e.NewInstance(cfg, record.Info)
	assert(err == nil, t)
	h2, err := e.NewInstance(cfg, record.Info)
	assert(err == nil, t)
	assert(h1 == h2, t)

	got, ok := e.GetInstance("app")
	assert(ok, t)
	assert(got == h1, t)

	e.ReleaseInstance("app")
	_, ok = e.GetInstance("app")
	assert(!ok, t)
}

func TestWriteFlushDecode(t *testing.T) {
	e := aether.New()
	cfg := newCfg(t, "app")

	h, err := e.NewInstance(cfg, record.Debug)
	assert(err == nil, t)

	assert(e.Write(h, sample(record.Info, "net"), "a") == nil, t)
	assert(e.Write(h, sample(record.Info, "net"), "b") == nil, t)
	assert(e.FlushModule("app", true) == nil, t)

	files, err := e.GetLogFiles("app")
	assert(err == nil, t)
	assert(len(files) == 1, t)

	data, err := os.ReadFile(files[0])
	assert(err == nil, t)
	assert(len(data) > 0, t)

	blocks, err := xlogdecode.DecodeDayFile(data, nil)
	assert(err == nil, t)
	assert(len(blocks) == 1, t)
	frames := blocks[0].Frames
	assert(len(frames) >= 2, t)
	assert(strings.HasSuffix(string(frames[len(frames)-2]), " - a\n"), t)
	assert(strings.HasSuffix(string(frames[len(frames)-1]), " - b\n"), t)
}

func TestWriteGatedBySeverityIsNotAnError(t *testing.T) {
	e := aether.New()
	cfg := newCfg(t, "app")

	h, err := e.NewInstance(cfg, record.Error)
	assert(err == nil, t)
	assert(e.Write(h, sample(record.Debug, "net"), "quiet") == nil, t)
}

func TestWriteWithUnknownHandleIsAnError(t *testing.T) {
	e := aether.New()
	assert(e.Write(aether.Handle(99), sample(record.Info, "x"), "y") != nil, t)
}

func TestOpenCloseLegacyInstance(t *testing.T) {
	e := aether.New()
	cfg := newCfg(t, "legacy")

	assert(e.Open(record.Info, cfg) == nil, t)
	assert(e.Flush(true) == nil, t)
	assert(e.Close() == nil, t)

	_, ok := e.GetInstance("legacy")
	assert(!ok, t)
}

func TestSetLevelIsReportedByGetLevel(t *testing.T) {
	e := aether.New()
	cfg := newCfg(t, "app")
	h, err := e.NewInstance(cfg, record.Info)
	assert(err == nil, t)

	assert(e.SetLevel("app", record.Error) == nil, t)
	lvl, err := e.GetLevel("app")
	assert(err == nil, t)
	assert(lvl == record.Error, t)

	assert(e.Write(h, sample(record.Warn, "net"), "dropped") == nil, t)
}

func TestClearFileCacheOnLiveInstance(t *testing.T) {
	e := aether.New()
	cfg := newCfg(t, "app")
	_, err := e.NewInstance(cfg, record.Info)
	assert(err == nil, t)

	assert(e.ClearFileCache("app") == nil, t)
	e.ClearAllFileCache()
}

func TestRuntimeKnobSetters(t *testing.T) {
	e := aether.New()
	cfg := newCfg(t, "app")
	_, err := e.NewInstance(cfg, record.Info)
	assert(err == nil, t)

	assert(e.SetAppenderMode("app", config.ModeSync) == nil, t)
	assert(e.SetConsoleLogOpen("app", true) == nil, t)
	assert(e.SetMaxFileSize("app", 4096) == nil, t)
	assert(e.SetMaxAliveTime("app", 60) == nil, t)

	assert(e.SetAppenderMode("missing", config.ModeSync) != nil, t)
}

func TestCustomHeaderInfoAppliesToNewInstances(t *testing.T) {
	e := aether.New()
	e.SetCustomHeaderInfo([]string{"build: test"})

	cfg := newCfg(t, "app")
	h, err := e.NewInstance(cfg, record.Info)
	assert(err == nil, t)
	assert(e.Write(h, sample(record.Info, "net"), "hi") == nil, t)
	assert(e.FlushModule("app", true) == nil, t)

	files, err := e.GetLogFiles("app")
	assert(err == nil, t)
	assert(len(files) == 1, t)

	data, err := os.ReadFile(files[0])
	assert(err == nil, t)
	assert(len(data) > 0, t)
	assert(strings.Contains(string(data), "build: test"), t)
}

func TestNewInstanceConcurrentCallersForSameNameConverge(t *testing.T) {
	e := aether.New()
	cfg := newCfg(t, "app")

	const n = 8
	handles := make([]aether.Handle, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = e.NewInstance(cfg, record.Info)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		assert(errs[i] == nil, t)
		assert(handles[i] == handles[0], t)
	}

	got, ok := e.GetInstance("app")
	assert(ok, t)
	assert(got == handles[0], t)
}

func TestNewInstanceDifferentNamesDoNotBlockEachOther(t *testing.T) {
	e := aether.New()

	const n = 8
	handles := make([]aether.Handle, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = e.NewInstance(newCfg(t, "app"+string(rune('a'+i))), record.Info)
		}(i)
	}
	wg.Wait()

	seen := make(map[aether.Handle]bool)
	for i := 0; i < n; i++ {
		assert(errs[i] == nil, t)
		assert(handles[i] != aether.NoHandle, t)
		assert(!seen[handles[i]], t)
		seen[handles[i]] = true
	}
}

func TestPackageLevelWrappersUseDefaultEngine(t *testing.T) {
	aether.Init()
	defer aether.Teardown()

	dir := t.TempDir()
	cfg := config.ModuleConfig{LogDir: dir, NamePrefix: "pkg"}

	h, err := aether.NewInstance(cfg, record.Info)
	assert(err == nil, t)
	assert(aether.Write(h, sample(record.Info, "net"), "hi") == nil, t)
	assert(aether.FlushModule("pkg", true) == nil, t)

	files, err := aether.GetLogFiles("pkg")
	assert(err == nil, t)
	assert(len(files) == 1, t)
	assert(filepath.Dir(files[0]) == dir, t)

	aether.ReleaseInstance("pkg")
}
