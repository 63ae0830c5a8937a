package config_test

import (
	"runtime"
	"testing"

	"github.com/kernelflux/aether/config"
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

func TestParseBundle(t *testing.T) {
	doc := []byte(`
global_level: warn
modules:
  - name: net
    log_dir: /var/log/app
    name_prefix: net
    level: info
    is_compress: true
  - name: audit
    log_dir: /var/log/app/audit
    cache_dir: /data/cache
    name_prefix: audit
    level: error
    cache_days: 3
`)
	b, err := config.Parse(doc)
	assert(err == nil, t)
	assert(b.GlobalLevel == record.Warn, t)
	assert(len(b.Modules) == 2, t)
	assert(b.Modules[0].Level == record.Info, t)
	assert(b.Modules[0].Compress, t)
	assert(b.Modules[1].CacheDays == 3, t)
}

func TestParseRejectsMissingLogDir(t *testing.T) {
	doc := []byte(`
modules:
  - name: bad
    name_prefix: bad
`)
	_, err := config.Parse(doc)
	assert(err != nil, t)
}

func TestParseRejectsMissingPrefix(t *testing.T) {
	doc := []byte(`
modules:
  - name: bad
    log_dir: /tmp/x
`)
	_, err := config.Parse(doc)
	assert(err != nil, t)
}

func TestValidateRejectsNegativeCacheDays(t *testing.T) {
	c := config.ModuleConfig{LogDir: "/tmp", NamePrefix: "x", CacheDays: -1}
	assert(c.Validate() != nil, t)
}
