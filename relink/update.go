package relink

import (
	"sync"

	"github.com/tliron/commonlog"
)

// Updater runs the rewrite-and-reload pipeline. One updater serves a host
// runtime for the life of the process; each module's pipeline runs under a
// per-module lock, so concurrent triggers for the same module serialize
// instead of racing on the swap.
type Updater struct {
	host HostRuntime
	log  commonlog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewUpdater creates an updater driving the given host runtime.
func NewUpdater(h HostRuntime) *Updater {
	return &Updater{
		host:  h,
		log:   commonlog.GetLogger("seam.relink"),
		locks: make(map[string]*sync.Mutex),
	}
}

// moduleLock returns the mutex guarding one module's pipeline.
func (u *Updater) moduleLock(module string) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()
	lock, ok := u.locks[module]
	if !ok {
		lock = &sync.Mutex{}
		u.locks[module] = lock
	}
	return lock
}

// Update rewrites a loaded module for the running host version and swaps
// the rewritten image in: resolve version, extract forms, read the rule
// table, rewrite, recompile, replace. The first failure aborts the
// pipeline; until the final load step the old image is untouched, and a
// second Update on an already-rewritten module is a harmless no-op swap.
func (u *Updater) Update(module string) error {
	lock := u.moduleLock(module)
	lock.Lock()
	defer lock.Unlock()

	version := ResolveVersion(u.host.Release())
	u.log.Debugf("updating %s for host version %d", module, version)

	mod, err := Extract(u.host, module)
	if err != nil {
		return err
	}

	rules, err := RulesOf(mod)
	if err != nil {
		return err
	}

	rewritten := Rewrite(mod, rules, version)

	data, err := CompileForms(rewritten)
	if err != nil {
		return err
	}

	// Swap. Unload is best effort: not-loaded is fine, and frames still
	// executing the old code keep their chunks until they return.
	u.host.Unload(module)
	if err := u.host.Load(module, data); err != nil {
		return &LoadError{Module: module, Err: err}
	}

	u.log.Infof("module %s rewritten and reloaded (host version %d)", module, version)
	return nil
}
