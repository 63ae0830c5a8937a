package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/kernelflux/aether/category"
)

// Build-time identification fields, populated by a host binary via
// -ldflags -X github.com/kernelflux/aether/registry.Path=... and
// siblings. Left as "unknown" otherwise; invoking a build tool from
// this module is out of scope.
var (
	Path      = "unknown"
	Revision  = "unknown"
	BuildTime = "unknown"
	URL       = ""
	BuildJob  = ""
)

// now is overridable in tests.
var now = time.Now

// EmitHeader writes the one-shot preamble for name if it has not
// already been written for this Registry. The "written" bit is set
// before the write happens, and the Registry lock is released before
// the write I/O, so two goroutines racing to open the same module name
// cannot both emit a header, and a slow write never holds up unrelated
// lookups.
func (r *Registry) EmitHeader(name string, cat *category.Category, mmapMicros int64, customHeaderInfo []string) error {
	r.mu.Lock()
	if r.headerWritten[name] {
		r.mu.Unlock()
		return nil
	}
	r.headerWritten[name] = true
	r.mu.Unlock()

	return cat.WriteRaw([]byte(renderHeader(mmapMicros, customHeaderInfo)))
}

func renderHeader(mmapMicros int64, customHeaderInfo []string) string {
	var b strings.Builder
	t := now()

	fmt.Fprintf(&b, "aether log file, build %s\n", t.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "[%d,%d][%d]\n", pid(), tid(), t.Unix())
	fmt.Fprintf(&b, "get mmap time: %d\n", mmapMicros)
	fmt.Fprintf(&b, "AETHER_PATH: %s\n", Path)
	fmt.Fprintf(&b, "AETHER_REVISION: %s\n", Revision)
	fmt.Fprintf(&b, "AETHER_BUILD_TIME: %s\n", BuildTime)
	if URL != "" {
		fmt.Fprintf(&b, "AETHER_URL: %s\n", URL)
	}
	if BuildJob != "" {
		fmt.Fprintf(&b, "AETHER_BUILD_JOB: %s\n", BuildJob)
	}

	for _, field := range customHeaderFields(customHeaderInfo) {
		b.WriteString(field)
		b.WriteByte('\n')
	}

	return b.String()
}

// customHeaderFields filters blank and '#'-comment lines out of a
// custom header block.
func customHeaderFields(lines []string) []string {
	var out []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		out = append(out, l)
	}
	return out
}
