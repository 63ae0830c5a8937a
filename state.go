package aether

import (
	"fmt"
	"sync"

	"github.com/kernelflux/aether/appender"
	"github.com/kernelflux/aether/catalogue"
	"github.com/kernelflux/aether/category"
	"github.com/kernelflux/aether/config"
	"github.com/kernelflux/aether/record"
	"github.com/kernelflux/aether/registry"
)

// Handle is the stable opaque id returned by NewInstance. Once
// ReleaseInstance runs, the handle no longer resolves and Write with it
// returns an error; a Write that resolved it just before the release
// still completes safely, since the registry closes the Appender only
// after its delayed-destruction grace window.
type Handle int64

// NoHandle is returned alongside an error from NewInstance.
const NoHandle Handle = 0

type instance struct {
	name   string
	cfg    config.ModuleConfig
	app    *appender.Appender
	cat    *category.Category
	handle Handle
}

// Engine is the process-wide state a binding layer drives: the set of
// named instances, the handle table, and process-wide settings like
// the custom header block. Tests construct their own Engine with New
// to keep state isolated from other tests; a host binding layer
// typically uses the package-level default returned by Init.
type Engine struct {
	mu         sync.Mutex
	reg        *registry.Registry
	byName     map[string]*instance
	byHandle   map[Handle]*instance
	nextHandle int64
	creating   map[string]chan struct{} // names with a NewInstance call in flight

	customHeaderInfo []string

	legacyName string // NamePrefix of the instance Open/Close manage, if any
}

// New builds an empty Engine backed by its own Registry.
func New() *Engine {
	return &Engine{
		reg:      registry.New(),
		byName:   make(map[string]*instance),
		byHandle: make(map[Handle]*instance),
		creating: make(map[string]chan struct{}),
	}
}

var (
	defaultMu  sync.Mutex
	defaultEng *Engine
)

// Init constructs the package-level default Engine, replacing any
// prior one. A host binding layer calls this once at process startup.
func Init() *Engine {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultEng = New()
	return defaultEng
}

// Teardown drops the package-level default Engine. It does not close
// any instance still registered on it; callers should ReleaseInstance
// (or Close, for the legacy global) everything first.
func Teardown() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultEng = nil
}

// Default returns the package-level Engine, constructing one via Init
// if a binding layer never called it explicitly.
func Default() *Engine {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultEng == nil {
		defaultEng = New()
	}
	return defaultEng
}

// NewInstance creates (or, if NamePrefix already names a live
// instance, fetches) a named logging instance and returns its handle.
// The underlying Appender and Category are only constructed once per
// name; a second call with the same NamePrefix is a cheap lookup.
//
// e.mu is only ever held for map lookups and bookkeeping, never across
// appender.Open's directory/mmap setup or EmitHeader's disk write, so
// one module's setup I/O never blocks a concurrent NewInstance,
// GetInstance, or Write call for an unrelated name. Two callers racing
// to create the *same* name don't duplicate that setup I/O either:
// the second one waits on a channel for the first to finish, then
// reuses its result, rather than opening a second appender over the
// same files only to discard it.
func (e *Engine) NewInstance(cfg config.ModuleConfig, level record.Severity) (Handle, error) {
	for {
		e.mu.Lock()
		if inst, ok := e.byName[cfg.NamePrefix]; ok {
			e.mu.Unlock()
			return inst.handle, nil
		}
		if ch, inFlight := e.creating[cfg.NamePrefix]; inFlight {
			e.mu.Unlock()
			<-ch
			continue
		}
		ch := make(chan struct{})
		e.creating[cfg.NamePrefix] = ch
		headerInfo := e.customHeaderInfo
		e.mu.Unlock()

		h, err := e.buildInstance(cfg, level, headerInfo)

		e.mu.Lock()
		delete(e.creating, cfg.NamePrefix)
		e.mu.Unlock()
		close(ch)

		return h, err
	}
}

// buildInstance does the actual I/O for NewInstance: opening the
// appender and emitting its header. Called with no lock held; the
// caller is solely responsible for the name until it delivers an
// instance or error, since e.creating guarantees no one else is
// building the same name concurrently.
func (e *Engine) buildInstance(cfg config.ModuleConfig, level record.Severity, headerInfo []string) (Handle, error) {
	app, err := appender.Open(cfg)
	if err != nil {
		return NoHandle, err
	}
	if cfg.ConsoleLogOpen {
		app.SetConsole(consoleWriter())
	}

	cat := category.New(app, level)
	e.reg.Register(cfg.NamePrefix, cat)
	if err := e.reg.EmitHeader(cfg.NamePrefix, cat, 0, headerInfo); err != nil {
		e.reg.Release(cfg.NamePrefix)
		return NoHandle, fmt.Errorf("aether: emit header for %q: %w", cfg.NamePrefix, err)
	}

	e.mu.Lock()
	e.nextHandle++
	h := Handle(e.nextHandle)
	inst := &instance{name: cfg.NamePrefix, cfg: cfg, app: app, cat: cat, handle: h}
	e.byName[cfg.NamePrefix] = inst
	e.byHandle[h] = inst
	e.mu.Unlock()
	return h, nil
}

// GetInstance returns the handle already registered for name, if any.
func (e *Engine) GetInstance(name string) (Handle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst, ok := e.byName[name]
	if !ok {
		return NoHandle, false
	}
	return inst.handle, true
}

// ReleaseInstance detaches name from the Engine and the Registry. Per
// the Registry's delayed-destruction policy, the backing Appender
// keeps running for a short grace window so an in-flight caller that
// already holds its handle can finish.
func (e *Engine) ReleaseInstance(name string) {
	e.mu.Lock()
	inst, ok := e.byName[name]
	if ok {
		delete(e.byName, name)
		delete(e.byHandle, inst.handle)
	}
	e.mu.Unlock()

	if ok {
		e.reg.Release(name)
	}
}

func (e *Engine) instanceByHandle(h Handle) (*instance, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst, ok := e.byHandle[h]
	return inst, ok
}

func (e *Engine) instanceByName(name string) (*instance, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst, ok := e.byName[name]
	return inst, ok
}

func (e *Engine) allInstances() []*instance {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*instance, 0, len(e.byName))
	for _, inst := range e.byName {
		out = append(out, inst)
	}
	return out
}

// catalogueOf resolves name to its Appender's Catalogue, the shared
// helper behind the file-listing and cache-clearing operations.
func (e *Engine) catalogueOf(name string) (*catalogue.Catalogue, error) {
	inst, ok := e.instanceByName(name)
	if !ok {
		return nil, fmt.Errorf("aether: no instance named %q", name)
	}
	return inst.app.Catalogue(), nil
}
