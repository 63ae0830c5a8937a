package appender

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kernelflux/aether/buffer"
)

const dayLayout = "20060102"

// today is overridable in tests.
var today = func() string { return time.Now().Format(dayLayout) }

// fileName builds the day-partitioned path for index idx: index 0 has
// no numeric suffix, matching the original naming scheme.
func fileName(dir, prefix, day string, idx int) string {
	if idx == 0 {
		return filepath.Join(dir, fmt.Sprintf("%s_%s.xlog", prefix, day))
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s_%d.xlog", prefix, day, idx))
}

// nextFileIndex scans increasing indexes starting at 0 and returns the
// first whose file is absent or still under maxSize. Behavior under
// contention from another process writing the same prefix is
// unspecified; this only looks at what os.Stat reports at call time.
func nextFileIndex(dir, prefix, day string, maxSize int64) (int, error) {
	for idx := 0; ; idx++ {
		st, err := os.Stat(fileName(dir, prefix, day, idx))
		if os.IsNotExist(err) {
			return idx, nil
		}
		if err != nil {
			return 0, fmt.Errorf("appender: stat candidate file: %w", err)
		}
		if st.Size() < maxSize {
			return idx, nil
		}
	}
}

// dirWritable probes dir with a throwaway file rather than trusting
// permission bits, since the failure mode that matters here is a full
// or read-only filesystem, not just a mode bit.
func dirWritable(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	probe := filepath.Join(dir, ".write_probe")
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(probe)
	return true
}

// target is where a sealed block should land, and whether that
// decision used the cache-dir spillover path.
type target struct {
	dir       string
	useCache  bool
}

// resolveTarget implements the cache_policy decision: spill to the
// cache directory when the primary log directory is unwritable, or
// when today's primary file does not exist yet and the cache
// directory has at least 1 GiB free.
func (a *Appender) resolveTarget(day string) target {
	if a.cfg.CacheDir == "" || a.cfg.CacheDays <= 0 {
		return target{dir: a.cfg.LogDir}
	}

	if !dirWritable(a.cfg.LogDir) {
		return target{dir: a.cfg.CacheDir, useCache: true}
	}

	primaryToday := fileName(a.cfg.LogDir, a.cfg.NamePrefix, day, 0)
	if _, err := os.Stat(primaryToday); os.IsNotExist(err) {
		if free, ferr := buffer.FreeBytes(a.cfg.CacheDir); ferr == nil && free >= cacheFreeThreshold {
			return target{dir: a.cfg.CacheDir, useCache: true}
		}
	}

	return target{dir: a.cfg.LogDir}
}

// writeBlock appends a sealed block to the resolved day file, rolling
// back a partial write if the write itself fails partway through, and
// opportunistically merges any pending cache-dir files for the day
// back into the primary directory whenever that directory is writable,
// whichever directory the block itself went to.
func (a *Appender) writeBlock(data []byte) error {
	day := today()
	tgt := a.resolveTarget(day)

	a.fileMu.Lock()
	defer a.fileMu.Unlock()

	idx, err := nextFileIndex(tgt.dir, a.cfg.NamePrefix, day, a.maxFileSizeKnob())
	if err != nil {
		return err
	}
	path := fileName(tgt.dir, a.cfg.NamePrefix, day, idx)

	if err := appendWithRollback(path, frameBlock(data)); err != nil {
		return err
	}
	a.cat.Invalidate()

	// Merge opportunistically whenever the primary directory is
	// reachable, regardless of which directory this particular write
	// landed in: this is what eventually drains a run of cache-dir
	// writes back into the primary day file once conditions improve.
	if a.cfg.CacheDir != "" && dirWritable(a.cfg.LogDir) {
		if err := a.mergeCacheLocked(day); err != nil {
			a.log.Warnf("%s: merge cache files for %s: %v", a.cfg.NamePrefix, day, err)
		}
	}
	return nil
}

// frameBlock prefixes a sealed block with its own byte length so that
// a day file holding several flushes remains unambiguous to decode:
// without this, nothing on disk marks where one sealed block's body
// ends and the next one's header begins.
func frameBlock(data []byte) []byte {
	out := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(out[:4], uint32(len(data)))
	copy(out[4:], data)
	return out
}

// appendWithRollback appends data to path, truncating back to the
// file's pre-write size if the write is interrupted partway through.
func appendWithRollback(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("appender: open %s: %w", path, err)
	}
	defer f.Close()

	before, err := f.Seek(0, os.SEEK_END)
	if err != nil {
		return fmt.Errorf("appender: seek %s: %w", path, err)
	}

	n, werr := f.Write(data)
	if werr != nil {
		if n > 0 {
			if terr := f.Truncate(before); terr != nil {
				return fmt.Errorf("appender: write %s failed (%v) and rollback failed: %w", path, werr, terr)
			}
		}
		return fmt.Errorf("appender: write %s: %w", path, werr)
	}
	return nil
}

// mergeCacheLocked appends any cache-dir files matching this prefix
// and day onto the primary day file(s), then removes them. Caller
// must hold fileMu.
func (a *Appender) mergeCacheLocked(day string) error {
	if a.cfg.CacheDir == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(a.cfg.CacheDir, fmt.Sprintf("%s_%s*.xlog", a.cfg.NamePrefix, day)))
	if err != nil {
		return fmt.Errorf("appender: glob cache dir: %w", err)
	}
	if len(matches) == 0 {
		return nil
	}
	sort.Strings(matches)

	for _, cachePath := range matches {
		data, err := os.ReadFile(cachePath)
		if err != nil {
			return fmt.Errorf("appender: read cache file %s: %w", cachePath, err)
		}

		idx, err := nextFileIndex(a.cfg.LogDir, a.cfg.NamePrefix, day, a.maxFileSizeKnob())
		if err != nil {
			return err
		}
		dest := fileName(a.cfg.LogDir, a.cfg.NamePrefix, day, idx)
		if err := appendWithRollback(dest, data); err != nil {
			return err
		}
		if err := os.Remove(cachePath); err != nil {
			return fmt.Errorf("appender: remove merged cache file %s: %w", cachePath, err)
		}
	}
	a.cat.Invalidate()
	return nil
}
