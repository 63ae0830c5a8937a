// Package catalogue maintains the day-scoped view of an Appender's
// on-disk files: both the primary log directory and its cache-dir
// spillover counterpart, so management operations like GetLogFiles and
// the retention sweep don't re-walk the filesystem on every call.
//
// Directory reads are defensive: an unreadable directory is treated as
// no files rather than an error.
package catalogue

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"
)

// Entry describes one log file the catalogue knows about.
type Entry struct {
	Path       string
	Size       int64
	ModTime    time.Time
	IsCacheDir bool
	Day        string // YYYYMMDD extracted from the filename
}

// dayLayout is the on-disk date token used in file names.
const dayLayout = "20060102"

var nameRe = regexp.MustCompile(`^(.+)_(\d{8})(?:_(\d+))?\.xlog$`)

// Catalogue caches the set of files belonging to one name prefix
// across a log directory and an optional cache directory.
type Catalogue struct {
	mu       sync.Mutex
	logDir   string
	cacheDir string
	prefix   string

	cachedDay string
	entries   []Entry
}

// New builds a Catalogue for prefix, scoped to logDir and, if non-empty,
// cacheDir.
func New(logDir, cacheDir, prefix string) *Catalogue {
	return &Catalogue{logDir: logDir, cacheDir: cacheDir, prefix: prefix}
}

// today is overridable in tests so day-rollover behavior can be
// exercised without waiting for a real day boundary.
var today = func() string { return time.Now().Format(dayLayout) }

// refresh rescans both directories if the day has rolled over since
// the last scan, or if any previously cached path has disappeared.
// Caller must hold mu.
func (c *Catalogue) refresh() error {
	day := today()
	if day == c.cachedDay && c.allCachedPathsExist() {
		return nil
	}

	var entries []Entry
	if dirEntries, err := scanDir(c.logDir, c.prefix, false); err == nil {
		entries = append(entries, dirEntries...)
	} else if !os.IsNotExist(err) {
		return err
	}
	if c.cacheDir != "" {
		if dirEntries, err := scanDir(c.cacheDir, c.prefix, true); err == nil {
			entries = append(entries, dirEntries...)
		} else if !os.IsNotExist(err) {
			return err
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	c.entries = entries
	c.cachedDay = day
	return nil
}

func (c *Catalogue) allCachedPathsExist() bool {
	for _, e := range c.entries {
		if _, err := os.Stat(e.Path); err != nil {
			return false
		}
	}
	return true
}

func scanDir(dir, prefix string, isCacheDir bool) ([]Entry, error) {
	fis, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, fi := range fis {
		if fi.IsDir() {
			continue
		}
		m := nameRe.FindStringSubmatch(fi.Name())
		if m == nil || m[1] != prefix {
			continue
		}
		info, err := fi.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Path:       filepath.Join(dir, fi.Name()),
			Size:       info.Size(),
			ModTime:    info.ModTime(),
			IsCacheDir: isCacheDir,
			Day:        m[2],
		})
	}
	return out, nil
}

// Invalidate forces the next call to rescan both directories.
func (c *Catalogue) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cachedDay = ""
	c.entries = nil
}

// Files returns the paths of every known file, sorted by mtime
// descending.
func (c *Catalogue) Files() ([]string, error) {
	infos, err := c.FileInfos()
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(infos))
	for i, e := range infos {
		paths[i] = e.Path
	}
	return paths, nil
}

// FileInfos returns every known file's metadata, sorted by mtime
// descending (newest first), ties broken by path for a stable order.
func (c *Catalogue) FileInfos() ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.refresh(); err != nil {
		return nil, err
	}
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].ModTime.After(out[j].ModTime)
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

// ByDays returns files whose embedded day is no earlier than n days
// before today: n = 0 selects today only, n = 7 selects today plus the
// seven days before it. n is clamped to [0, 365].
func (c *Catalogue) ByDays(n int) ([]Entry, error) {
	if n < 0 {
		n = 0
	}
	if n > 365 {
		n = 365
	}

	all, err := c.FileInfos()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -n)
	cutoffDay := cutoff.Format(dayLayout)

	var out []Entry
	for _, e := range all {
		if e.Day >= cutoffDay {
			out = append(out, e)
		}
	}
	return out, nil
}

// ByTimeRange returns files whose embedded day falls within
// [start, end]. The range is clamped to a 30-day window (end truncated
// to start+30 days) so a single call never iterates more than 30 days
// of candidate names.
func (c *Catalogue) ByTimeRange(start, end time.Time) ([]Entry, error) {
	if end.Before(start) {
		start, end = end, start
	}
	if end.Sub(start) > 30*24*time.Hour {
		end = start.Add(30 * 24 * time.Hour)
	}

	all, err := c.FileInfos()
	if err != nil {
		return nil, err
	}

	startDay := start.Format(dayLayout)
	endDay := end.Format(dayLayout)

	var out []Entry
	for _, e := range all {
		if e.Day >= startDay && e.Day <= endDay {
			out = append(out, e)
		}
	}
	return out, nil
}
