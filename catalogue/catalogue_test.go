package catalogue_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/kernelflux/aether/catalogue"
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

func touch(t *testing.T, dir, name string) {
	f, err := os.Create(filepath.Join(dir, name))
	assert(err == nil, t)
	assert(f.Close() == nil, t)
}

func TestFileInfosListsBothDirs(t *testing.T) {
	logDir := t.TempDir()
	cacheDir := t.TempDir()

	today := time.Now().Format("20060102")
	touch(t, logDir, "app_"+today+".xlog")
	touch(t, cacheDir, "app_"+today+"_1.xlog")
	touch(t, logDir, "other_"+today+".xlog") // different prefix, excluded

	c := catalogue.New(logDir, cacheDir, "app")
	infos, err := c.FileInfos()
	assert(err == nil, t)
	assert(len(infos) == 2, t)

	var sawCache bool
	for _, e := range infos {
		if e.IsCacheDir {
			sawCache = true
		}
	}
	assert(sawCache, t)
}

func TestByDaysClampsRange(t *testing.T) {
	logDir := t.TempDir()
	c := catalogue.New(logDir, "", "app")

	old := time.Now().AddDate(0, -2, 0).Format("20060102")
	recent := time.Now().Format("20060102")
	touch(t, logDir, "app_"+old+".xlog")
	touch(t, logDir, "app_"+recent+".xlog")

	entries, err := c.ByDays(7)
	assert(err == nil, t)
	assert(len(entries) == 1, t)
	assert(entries[0].Day == recent, t)
}

func TestByTimeRangeClampsTo30Days(t *testing.T) {
	logDir := t.TempDir()
	c := catalogue.New(logDir, "", "app")

	start := time.Now().AddDate(0, 0, -60)
	end := time.Now()

	touch(t, logDir, "app_"+start.Format("20060102")+".xlog")
	touch(t, logDir, "app_"+end.Format("20060102")+".xlog")

	entries, err := c.ByTimeRange(start, end)
	assert(err == nil, t)
	// end gets clamped to start+30d, so the file at "end" (60 days out) drops.
	assert(len(entries) == 1, t)
}

func TestMissingLogDirIsNotAnError(t *testing.T) {
	c := catalogue.New(filepath.Join(t.TempDir(), "missing"), "", "app")
	infos, err := c.FileInfos()
	assert(err == nil, t)
	assert(len(infos) == 0, t)
}

func TestFileInfosSortsByModTimeDescending(t *testing.T) {
	logDir := t.TempDir()
	today := time.Now().Format("20060102")

	touch(t, logDir, "app_"+today+".xlog")
	touch(t, logDir, "app_"+today+"_1.xlog")
	touch(t, logDir, "app_"+today+"_2.xlog")

	now := time.Now()
	assert(os.Chtimes(filepath.Join(logDir, "app_"+today+".xlog"), now, now.Add(-2*time.Hour)) == nil, t)
	assert(os.Chtimes(filepath.Join(logDir, "app_"+today+"_1.xlog"), now, now) == nil, t)
	assert(os.Chtimes(filepath.Join(logDir, "app_"+today+"_2.xlog"), now, now.Add(-1*time.Hour)) == nil, t)

	c := catalogue.New(logDir, "", "app")
	infos, err := c.FileInfos()
	assert(err == nil, t)
	assert(len(infos) == 3, t)

	assert(filepath.Base(infos[0].Path) == "app_"+today+"_1.xlog", t)
	assert(filepath.Base(infos[1].Path) == "app_"+today+"_2.xlog", t)
	assert(filepath.Base(infos[2].Path) == "app_"+today+".xlog", t)

	for i := 1; i < len(infos); i++ {
		assert(!infos[i].ModTime.After(infos[i-1].ModTime), t)
	}
}

func TestByDaysSortsByModTimeDescending(t *testing.T) {
	logDir := t.TempDir()
	today := time.Now().Format("20060102")

	touch(t, logDir, "app_"+today+".xlog")
	touch(t, logDir, "app_"+today+"_1.xlog")

	now := time.Now()
	assert(os.Chtimes(filepath.Join(logDir, "app_"+today+".xlog"), now, now.Add(-1*time.Hour)) == nil, t)
	assert(os.Chtimes(filepath.Join(logDir, "app_"+today+"_1.xlog"), now, now) == nil, t)

	c := catalogue.New(logDir, "", "app")
	entries, err := c.ByDays(7)
	assert(err == nil, t)
	assert(len(entries) == 2, t)
	assert(filepath.Base(entries[0].Path) == "app_"+today+"_1.xlog", t)
}

func TestInvalidateForcesRescan(t *testing.T) {
	logDir := t.TempDir()
	c := catalogue.New(logDir, "", "app")

	infos, err := c.FileInfos()
	assert(err == nil, t)
	assert(len(infos) == 0, t)

	touch(t, logDir, "app_"+time.Now().Format("20060102")+".xlog")
	c.Invalidate()

	infos, err = c.FileInfos()
	assert(err == nil, t)
	assert(len(infos) == 1, t)
}
