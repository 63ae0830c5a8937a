// Package appender owns one module's write path end to end: the
// mmap-backed scratch buffer, the async flusher, day-file rotation and
// cache-dir spillover, and the retention sweep that deletes aged files.
//
// A background goroutine performs the size-, Fatal- and timer-driven
// flushes of Async mode. Sync-mode writes, explicit Flush/FlushSync
// calls and the flush a write triggers when the buffer is full do
// their file I/O in the calling goroutine. Lock discipline never holds
// the same lock across both buffer mutation and file I/O.
package appender

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kernelflux/aether/buffer"
	"github.com/kernelflux/aether/catalogue"
	"github.com/kernelflux/aether/config"
	"github.com/kernelflux/aether/format"
	"github.com/kernelflux/aether/internal/elog"
	"github.com/kernelflux/aether/record"
)

// Defaults used when a ModuleConfig leaves the corresponding field
// unset.
const (
	DefaultMaxFileSize     = 10 * 1024 * 1024
	DefaultFlushInterval   = 15 * time.Minute
	DefaultRetentionPeriod = time.Hour
	cacheFreeThreshold     = 1 << 30 // 1 GiB
)

// Appender is the write path for one module.
type Appender struct {
	cfg config.ModuleConfig

	mu        sync.Mutex // guards buf swap bookkeeping; never held across file I/O
	buf       *buffer.Buffer
	regFile   *os.File
	cat       *catalogue.Catalogue
	log       *elog.Logger
	console   *os.File
	consoleMu sync.Mutex

	fileMu sync.Mutex // serializes actual day-file writes

	// Knobs a host can change at runtime via the management operations
	// (SetMode, SetMaxFileSize, SetMaxAliveTime). Separate from cfg so
	// the static, Open-time-only settings never need this lock.
	knobsMu      sync.RWMutex
	mode         config.Mode
	syncCoalesce bool
	maxFileSize  int64
	maxAliveTime time.Duration

	flushSig  chan struct{}
	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup

	retentionStop chan struct{}
}

// Open attaches an Appender to cfg, creating the log/cache directories
// and the mmap-backed scratch region as needed.
func Open(cfg config.ModuleConfig) (*Appender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("appender: create log dir: %w", err)
	}
	if cfg.CacheDir != "" {
		if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("appender: create cache dir: %w", err)
		}
	}

	regPath := filepath.Join(cfg.LogDir, cfg.NamePrefix+".region")
	regFile, err := os.OpenFile(regPath, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("appender: open region file: %w", err)
	}

	buf, err := buffer.Open(regFile, buffer.Config{Compress: cfg.Compress, DestKey: cfg.PubKey})
	if err != nil {
		regFile.Close()
		return nil, fmt.Errorf("appender: open buffer: %w", err)
	}

	a := &Appender{
		cfg:          cfg,
		buf:          buf,
		regFile:      regFile,
		cat:          catalogue.New(cfg.LogDir, cfg.CacheDir, cfg.NamePrefix),
		log:          elog.Default,
		flushSig:     make(chan struct{}, 1),
		closed:       make(chan struct{}),
		mode:         cfg.Mode,
		syncCoalesce: cfg.SyncCoalesce,
		maxFileSize:  cfg.MaxFileSize,
		maxAliveTime: cfg.MaxAliveTime,
	}

	a.wg.Add(1)
	go a.flusherLoop()

	a.retentionStop = make(chan struct{})
	a.wg.Add(1)
	go a.retentionLoop()

	return a, nil
}

// SetMode changes whether writes flush synchronously.
func (a *Appender) SetMode(mode config.Mode) {
	a.knobsMu.Lock()
	defer a.knobsMu.Unlock()
	a.mode = mode
}

// SetSyncCoalesce toggles the escape hatch that lets Sync mode batch
// writes instead of flushing after every one.
func (a *Appender) SetSyncCoalesce(coalesce bool) {
	a.knobsMu.Lock()
	defer a.knobsMu.Unlock()
	a.syncCoalesce = coalesce
}

// SetMaxFileSize changes the rotation threshold used by future writes.
func (a *Appender) SetMaxFileSize(n int64) {
	if n <= 0 {
		n = DefaultMaxFileSize
	}
	a.knobsMu.Lock()
	defer a.knobsMu.Unlock()
	a.maxFileSize = n
}

// SetMaxAliveTime changes the retention window the sweep goroutine
// enforces; zero disables the sweep.
func (a *Appender) SetMaxAliveTime(d time.Duration) {
	a.knobsMu.Lock()
	defer a.knobsMu.Unlock()
	a.maxAliveTime = d
}

func (a *Appender) modeKnob() (config.Mode, bool) {
	a.knobsMu.RLock()
	defer a.knobsMu.RUnlock()
	return a.mode, a.syncCoalesce
}

func (a *Appender) maxFileSizeKnob() int64 {
	a.knobsMu.RLock()
	defer a.knobsMu.RUnlock()
	return a.maxFileSize
}

func (a *Appender) maxAliveTimeKnob() time.Duration {
	a.knobsMu.RLock()
	defer a.knobsMu.RUnlock()
	return a.maxAliveTime
}

// Write formats rec/body and appends it to the buffer, triggering a
// flush per the module's mode and the severity/size thresholds.
func (a *Appender) Write(rec record.Record, body string) error {
	a.mu.Lock()
	avail := a.buf.Avail()
	line := format.Line(rec, body, avail)
	ok := a.buf.Write(line)
	if !ok {
		a.mu.Unlock()
		if err := a.Flush(); err != nil {
			return err
		}
		a.mu.Lock()
		ok = a.buf.Write(line)
	}
	full := a.buf.Len() >= buffer.RegionSize/3
	a.mu.Unlock()

	if !ok {
		return fmt.Errorf("appender: record too large for an empty buffer (%d bytes)", len(line))
	}

	a.writeConsole(line)

	mode, syncCoalesce := a.modeKnob()
	switch {
	case mode == config.ModeSync && !syncCoalesce:
		return a.FlushSync()
	case full || rec.Severity == record.Fatal:
		a.signalFlush()
	}
	return nil
}

// WriteRaw appends line to the buffer unformatted, bypassing the
// formatter and the severity gate. It exists for the header emitter's
// one-shot preamble, which is not a caller log record.
func (a *Appender) WriteRaw(line []byte) error {
	a.mu.Lock()
	ok := a.buf.Write(line)
	a.mu.Unlock()

	if !ok {
		if err := a.Flush(); err != nil {
			return err
		}
		a.mu.Lock()
		ok = a.buf.Write(line)
		a.mu.Unlock()
		if !ok {
			return fmt.Errorf("appender: header line too large for an empty buffer (%d bytes)", len(line))
		}
	}
	a.writeConsole(line)
	return nil
}

func (a *Appender) signalFlush() {
	select {
	case a.flushSig <- struct{}{}:
	default:
	}
}

// Flush seals the buffered content and writes it to the day file in
// the calling goroutine, returning once that write is done. It does
// not hand the work to the background flusher goroutine.
func (a *Appender) Flush() error {
	return a.flush()
}

// FlushSync is Flush under another name, kept distinct so call sites
// documenting "this path must be durable before returning" read
// clearly; both do the same synchronous seal-and-write.
func (a *Appender) FlushSync() error {
	return a.flush()
}

func (a *Appender) flush() error {
	a.mu.Lock()
	if a.buf.IsEmpty() {
		a.mu.Unlock()
		return nil
	}
	sealed, err := a.buf.Seal()
	if err != nil {
		a.mu.Unlock()
		return fmt.Errorf("appender: seal buffer: %w", err)
	}
	a.buf.Reset()
	a.mu.Unlock()

	return a.writeBlock(sealed)
}

func (a *Appender) flusherLoop() {
	defer a.wg.Done()
	timer := time.NewTimer(DefaultFlushInterval)
	defer timer.Stop()

	for {
		select {
		case <-a.flushSig:
			if err := a.flush(); err != nil {
				a.log.Errf("%s: flush: %v", a.cfg.NamePrefix, err)
			}
			resetTimer(timer, DefaultFlushInterval)
		case <-timer.C:
			if err := a.flush(); err != nil {
				a.log.Errf("%s: periodic flush: %v", a.cfg.NamePrefix, err)
			}
			resetTimer(timer, DefaultFlushInterval)
		case <-a.closed:
			return
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// SetConsole attaches (or detaches, with nil) a console sink that
// receives a copy of every formatted line, independent of the
// buffered file write path.
func (a *Appender) SetConsole(w *os.File) {
	a.consoleMu.Lock()
	defer a.consoleMu.Unlock()
	a.console = w
}

func (a *Appender) writeConsole(line []byte) {
	a.consoleMu.Lock()
	w := a.console
	a.consoleMu.Unlock()
	if w != nil {
		w.Write(line)
	}
}

// Catalogue exposes the Appender's file catalogue for management
// operations (GetLogFiles, GetLogFileInfos, ClearFileCache).
func (a *Appender) Catalogue() *catalogue.Catalogue { return a.cat }

// Close flushes any remaining content, stops the background
// goroutines, and releases the mmap region.
func (a *Appender) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.closed)
		if a.retentionStop != nil {
			close(a.retentionStop)
		}
		a.wg.Wait()

		if ferr := a.flush(); ferr != nil {
			err = ferr
		}
		if cerr := a.buf.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if cerr := a.regFile.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}
