package aether

import (
	"fmt"
	"os"
	"time"

	"github.com/kernelflux/aether/catalogue"
	"github.com/kernelflux/aether/config"
	"github.com/kernelflux/aether/record"
)

func consoleWriter() *os.File { return os.Stdout }

// Open creates (or fetches) the legacy global instance described by
// cfg and remembers its name so Close and Flush can address it without
// a name or handle. It is the facade's concession to
// hosts that want one always-on default logger rather than juggling
// instance handles for everything.
func (e *Engine) Open(level record.Severity, cfg config.ModuleConfig) error {
	_, err := e.NewInstance(cfg, level)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.legacyName = cfg.NamePrefix
	e.mu.Unlock()
	return nil
}

// Close releases the legacy global instance Open created.
func (e *Engine) Close() error {
	e.mu.Lock()
	name := e.legacyName
	e.legacyName = ""
	e.mu.Unlock()

	if name == "" {
		return nil
	}
	e.ReleaseInstance(name)
	return nil
}

// Write submits rec/body to the instance named by h. A record gated
// out by the instance's level is dropped, not an error.
func (e *Engine) Write(h Handle, rec record.Record, body string) error {
	inst, ok := e.instanceByHandle(h)
	if !ok {
		return fmt.Errorf("aether: unknown handle %d", h)
	}
	return inst.cat.Write(rec, body)
}

// Flush flushes the legacy global instance. sync is accepted for
// parity with the management-operation surface; both the signaled and
// synchronous flush paths perform the same seal-and-write here (see
// appender.FlushSync's doc comment), so it has no additional effect.
func (e *Engine) Flush(sync bool) error {
	e.mu.Lock()
	name := e.legacyName
	e.mu.Unlock()
	if name == "" {
		return nil
	}
	return e.FlushModule(name, sync)
}

// FlushAll flushes every live instance.
func (e *Engine) FlushAll(sync bool) error {
	return e.reg.FlushAll()
}

// FlushModule flushes the single named instance.
func (e *Engine) FlushModule(name string, sync bool) error {
	return e.reg.FlushModule(name)
}

// GetLogFiles returns the paths of every file the named instance's
// catalogue currently knows about.
func (e *Engine) GetLogFiles(name string) ([]string, error) {
	cat, err := e.catalogueOf(name)
	if err != nil {
		return nil, err
	}
	return cat.Files()
}

// GetLogFileInfos returns file metadata for the named instance. days
// selects ByDays(days); days <= 0 returns every known file.
func (e *Engine) GetLogFileInfos(name string, days int) ([]catalogue.Entry, error) {
	cat, err := e.catalogueOf(name)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		return cat.FileInfos()
	}
	return cat.ByDays(days)
}

// GetLogFileInfosRange is GetLogFileInfos restricted to a [start, end]
// window, clamped by Catalogue.ByTimeRange to 30 days.
func (e *Engine) GetLogFileInfosRange(name string, start, end time.Time) ([]catalogue.Entry, error) {
	cat, err := e.catalogueOf(name)
	if err != nil {
		return nil, err
	}
	return cat.ByTimeRange(start, end)
}

// ClearFileCache drops the named instance's cached file listing,
// forcing the next catalogue query to rescan the filesystem.
func (e *Engine) ClearFileCache(name string) error {
	cat, err := e.catalogueOf(name)
	if err != nil {
		return err
	}
	cat.Invalidate()
	return nil
}

// ClearAllFileCache drops every live instance's cached file listing.
func (e *Engine) ClearAllFileCache() {
	for _, inst := range e.allInstances() {
		inst.app.Catalogue().Invalidate()
	}
}

// SetLevel changes the severity gate of the named instance.
func (e *Engine) SetLevel(name string, level record.Severity) error {
	inst, ok := e.instanceByName(name)
	if !ok {
		return fmt.Errorf("aether: no instance named %q", name)
	}
	inst.cat.SetLevel(level)
	return nil
}

// GetLevel returns the named instance's current severity gate.
func (e *Engine) GetLevel(name string) (record.Severity, error) {
	inst, ok := e.instanceByName(name)
	if !ok {
		return record.None, fmt.Errorf("aether: no instance named %q", name)
	}
	return inst.cat.Level(), nil
}

// SetAppenderMode switches the named instance between synchronous and
// asynchronous flushing.
func (e *Engine) SetAppenderMode(name string, mode config.Mode) error {
	inst, ok := e.instanceByName(name)
	if !ok {
		return fmt.Errorf("aether: no instance named %q", name)
	}
	inst.app.SetMode(mode)
	return nil
}

// SetConsoleLogOpen attaches or detaches the named instance's console
// mirror.
func (e *Engine) SetConsoleLogOpen(name string, open bool) error {
	inst, ok := e.instanceByName(name)
	if !ok {
		return fmt.Errorf("aether: no instance named %q", name)
	}
	if open {
		inst.app.SetConsole(consoleWriter())
	} else {
		inst.app.SetConsole(nil)
	}
	return nil
}

// SetMaxFileSize changes the named instance's rotation threshold.
// bytes <= 0 restores the default (appender.DefaultMaxFileSize); the
// engine never disables rotation outright since an unbounded day file
// would defeat the retention sweep's file-level granularity.
func (e *Engine) SetMaxFileSize(name string, bytes int64) error {
	inst, ok := e.instanceByName(name)
	if !ok {
		return fmt.Errorf("aether: no instance named %q", name)
	}
	inst.app.SetMaxFileSize(bytes)
	return nil
}

// SetMaxAliveTime changes the named instance's retention horizon.
// seconds <= 0 disables the retention sweep for that instance.
func (e *Engine) SetMaxAliveTime(name string, seconds int64) error {
	inst, ok := e.instanceByName(name)
	if !ok {
		return fmt.Errorf("aether: no instance named %q", name)
	}
	inst.app.SetMaxAliveTime(time.Duration(seconds) * time.Second)
	return nil
}

// SetCustomHeaderInfo sets the process-wide custom header fields
// applied to every instance created after this call. It does not
// retroactively rewrite a header already emitted for an existing
// instance.
func (e *Engine) SetCustomHeaderInfo(info []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.customHeaderInfo = info
}

// --- package-level wrappers over the default Engine ---

func NewInstance(cfg config.ModuleConfig, level record.Severity) (Handle, error) {
	return Default().NewInstance(cfg, level)
}

func GetInstance(name string) (Handle, bool) { return Default().GetInstance(name) }

func ReleaseInstance(name string) { Default().ReleaseInstance(name) }

func Write(h Handle, rec record.Record, body string) error {
	return Default().Write(h, rec, body)
}

func Open(level record.Severity, cfg config.ModuleConfig) error {
	return Default().Open(level, cfg)
}

func Close() error { return Default().Close() }

func Flush(sync bool) error { return Default().Flush(sync) }

func FlushAll(sync bool) error { return Default().FlushAll(sync) }

func FlushModule(name string, sync bool) error { return Default().FlushModule(name, sync) }

func GetLogFiles(name string) ([]string, error) { return Default().GetLogFiles(name) }

func GetLogFileInfos(name string, days int) ([]catalogue.Entry, error) {
	return Default().GetLogFileInfos(name, days)
}

func ClearFileCache(name string) error { return Default().ClearFileCache(name) }

func ClearAllFileCache() { Default().ClearAllFileCache() }

func SetLevel(name string, level record.Severity) error { return Default().SetLevel(name, level) }

func GetLevel(name string) (record.Severity, error) { return Default().GetLevel(name) }

func SetAppenderMode(name string, mode config.Mode) error {
	return Default().SetAppenderMode(name, mode)
}

func SetConsoleLogOpen(name string, open bool) error {
	return Default().SetConsoleLogOpen(name, open)
}

func SetMaxFileSize(name string, bytes int64) error { return Default().SetMaxFileSize(name, bytes) }

func SetMaxAliveTime(name string, seconds int64) error {
	return Default().SetMaxAliveTime(name, seconds)
}

func SetCustomHeaderInfo(info []string) { Default().SetCustomHeaderInfo(info) }
