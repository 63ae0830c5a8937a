// Package registry is the process-wide name-to-Category directory.
// Global() returns a process-wide Registry built on first use; New
// builds an independent one, which is what each aether.Engine uses.
//
// Lock ordering follows the original design this was grounded on:
// Registry mutex, then Category, then Appender-buffer, and the
// Registry's own mutex is always released before any per-instance I/O
// (flushing, header writing) begins.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/kernelflux/aether/category"
)

// releaseGrace is how long a released Category's Sink stays alive
// after release before it is actually closed, so a reader that grabbed
// a handle just before release doesn't use it after Close.
const releaseGrace = 5 * time.Second

// Registry maps module names to their Category.
type Registry struct {
	mu            sync.Mutex
	categories    map[string]*category.Category
	headerWritten map[string]bool
	grace         time.Duration
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{
		categories:    make(map[string]*category.Category),
		headerWritten: make(map[string]bool),
		grace:         releaseGrace,
	}
}

var (
	globalOnce sync.Once
	globalReg  *Registry
)

// Global returns the process-wide Registry, constructing it on first
// use.
func Global() *Registry {
	globalOnce.Do(func() { globalReg = New() })
	return globalReg
}

// Register adds or replaces the Category for name.
func (r *Registry) Register(name string, cat *category.Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories[name] = cat
}

// Get returns the Category registered for name, if any.
func (r *Registry) Get(name string) (*category.Category, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cat, ok := r.categories[name]
	return cat, ok
}

// Names returns every currently registered module name.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.categories))
	for name := range r.categories {
		out = append(out, name)
	}
	return out
}

// Release detaches name from the Registry immediately so new lookups
// fail right away, but defers actually closing its Category for
// grace, giving any in-flight caller that already holds the Category
// time to finish.
func (r *Registry) Release(name string) {
	r.mu.Lock()
	cat, ok := r.categories[name]
	if ok {
		delete(r.categories, name)
		delete(r.headerWritten, name)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	time.AfterFunc(r.grace, func() { cat.Close() })
}

// FlushAll flushes every registered Category. The Registry lock is
// held only long enough to snapshot the current set of categories;
// none of the actual flush I/O happens while it is held.
func (r *Registry) FlushAll() error {
	r.mu.Lock()
	cats := make([]*category.Category, 0, len(r.categories))
	for _, cat := range r.categories {
		cats = append(cats, cat)
	}
	r.mu.Unlock()

	var firstErr error
	for _, cat := range cats {
		if err := cat.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// FlushModule flushes a single named Category.
func (r *Registry) FlushModule(name string) error {
	r.mu.Lock()
	cat, ok := r.categories[name]
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("registry: unknown module %q", name)
	}
	return cat.Flush()
}
