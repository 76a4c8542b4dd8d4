// Package host implements the seam host runtime: the process-wide module
// registry, the loader primitives the rewrite pipeline drives, and function
// call dispatch into loaded modules.
package host

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/seam-lang/seam/pkg/bytecode"
	"github.com/seam-lang/seam/pkg/forms"
	"github.com/seam-lang/seam/pkg/image"
)

// MaxCallDepth bounds local call recursion per external call.
const MaxCallDepth = 64

// reservedModules are system module names the loader refuses to replace.
var reservedModules = map[string]bool{
	"seam": true,
}

// Updater runs the rewrite-and-reload pipeline for a module. It is
// registered by the pipeline package so that the "update" host intrinsic
// can trigger it from inside running bytecode.
type Updater interface {
	Update(module string) error
}

// loadedModule is one resident module: its raw image bytes, the decoded
// image, and the pre-deserialized chunks keyed by name/arity.
type loadedModule struct {
	raw    []byte
	img    *image.Image
	chunks map[forms.FuncRef]*bytecode.Chunk
}

// Runtime owns the module-to-image mapping for a process. All mutation
// goes through Load and Unload; lookups take a read lock, so a replace is
// observed atomically by the next call.
type Runtime struct {
	mu      sync.RWMutex
	modules map[string]*loadedModule
	release string
	updater Updater

	log commonlog.Logger
}

// NewRuntime creates a runtime reporting the given host release string.
func NewRuntime(release string) *Runtime {
	return &Runtime{
		modules: make(map[string]*loadedModule),
		release: release,
		log:     commonlog.GetLogger("seam.host"),
	}
}

// Release returns the host release string.
func (rt *Runtime) Release() string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.release
}

// SetRelease overrides the host release string.
func (rt *Runtime) SetRelease(release string) {
	rt.mu.Lock()
	rt.release = release
	rt.mu.Unlock()
}

// SetUpdater registers the pipeline behind the "update" host intrinsic.
func (rt *Runtime) SetUpdater(u Updater) {
	rt.mu.Lock()
	rt.updater = u
	rt.mu.Unlock()
}

// Load decodes, links, and installs an image under the given module name,
// replacing any previous image for that name. The replace is atomic:
// callers either resolve the old module or the new one, never neither.
func (rt *Runtime) Load(name string, data []byte) error {
	if reservedModules[name] {
		return fmt.Errorf("module name %q clashes with a protected system module", name)
	}

	img, err := image.Decode(data)
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	if img.Module != name {
		return fmt.Errorf("load %s: image is for module %q", name, img.Module)
	}

	// Link step: deserialize every chunk and check export closure before
	// touching the registry.
	chunks := make(map[forms.FuncRef]*bytecode.Chunk, len(img.Functions))
	for i := range img.Functions {
		f := &img.Functions[i]
		chunk, err := bytecode.Deserialize(f.Code)
		if err != nil {
			return fmt.Errorf("load %s: function %s: %w", name, f.Ref(), err)
		}
		chunks[f.Ref()] = chunk
	}
	for _, ref := range img.Exports {
		if _, ok := chunks[ref]; !ok {
			return fmt.Errorf("load %s: export of missing function %s", name, ref)
		}
	}

	raw := make([]byte, len(data))
	copy(raw, data)

	rt.mu.Lock()
	rt.modules[name] = &loadedModule{raw: raw, img: img, chunks: chunks}
	rt.mu.Unlock()

	rt.log.Debugf("loaded module %s (%d functions, %d exports)", name, len(chunks), len(img.Exports))
	return nil
}

// Unload removes a module from the registry and reports whether it was
// resident. Frames already executing the old code keep their chunks and
// finish normally.
func (rt *Runtime) Unload(name string) bool {
	rt.mu.Lock()
	_, ok := rt.modules[name]
	delete(rt.modules, name)
	rt.mu.Unlock()

	if ok {
		rt.log.Debugf("unloaded module %s", name)
	}
	return ok
}

// ImageFor returns a copy of the raw image bytes for a loaded module.
func (rt *Runtime) ImageFor(name string) ([]byte, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	m, ok := rt.modules[name]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(m.raw))
	copy(out, m.raw)
	return out, true
}

// Loaded reports whether a module is resident.
func (rt *Runtime) Loaded(name string) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	_, ok := rt.modules[name]
	return ok
}

// Modules returns the names of all resident modules.
func (rt *Runtime) Modules() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	names := make([]string, 0, len(rt.modules))
	for name := range rt.modules {
		names = append(names, name)
	}
	return names
}

// Chunk returns the chunk for one function of a loaded module, for
// inspection and disassembly.
func (rt *Runtime) Chunk(module string, ref forms.FuncRef) (*bytecode.Chunk, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	m, ok := rt.modules[module]
	if !ok {
		return nil, false
	}
	chunk, ok := m.chunks[ref]
	return chunk, ok
}

// Call invokes an exported function of a loaded module. The function is
// resolved through the registry at call time, so a module swapped by the
// pipeline is observed immediately.
func (rt *Runtime) Call(module, function string, args ...string) (string, error) {
	ref := forms.FuncRef{Name: function, Arity: len(args)}

	rt.mu.RLock()
	m, ok := rt.modules[module]
	rt.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("module %s is not loaded", module)
	}
	if !m.img.IsExported(ref) {
		return "", fmt.Errorf("function %s:%s is not exported", module, ref)
	}
	chunk, ok := m.chunks[ref]
	if !ok {
		return "", fmt.Errorf("undefined function %s:%s", module, ref)
	}

	frame := &callFrame{rt: rt, module: module}
	return frame.execute(chunk, args)
}

// callFrame carries per-call-chain state: the module local calls resolve
// against and the recursion depth guard.
type callFrame struct {
	rt     *Runtime
	module string
	depth  int
}

func (f *callFrame) execute(chunk *bytecode.Chunk, args []string) (string, error) {
	vm := bytecode.NewVM()
	vm.SetResolver(f)
	vm.SetHostDispatcher(f)
	return vm.Execute(chunk, args)
}

// CallLocal resolves a module-local call against the current registry
// state. A trigger stub that just swapped its own module redispatches here
// and lands in the rewritten code.
func (f *callFrame) CallLocal(name string, args ...string) (string, error) {
	if f.depth >= MaxCallDepth {
		return "", fmt.Errorf("call depth limit (%d) exceeded in module %s", MaxCallDepth, f.module)
	}

	ref := forms.FuncRef{Name: name, Arity: len(args)}
	f.rt.mu.RLock()
	m, ok := f.rt.modules[f.module]
	f.rt.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("module %s is not loaded", f.module)
	}
	chunk, ok := m.chunks[ref]
	if !ok {
		return "", fmt.Errorf("undefined function %s:%s", f.module, ref)
	}

	f.depth++
	defer func() { f.depth-- }()
	return f.execute(chunk, args)
}

// CallHost dispatches host intrinsics available to bytecode.
func (f *callFrame) CallHost(name string, args ...string) (string, error) {
	switch name {
	case "release":
		if len(args) != 0 {
			return "", errors.New("release intrinsic takes no arguments")
		}
		return f.rt.Release(), nil

	case "update":
		if len(args) != 1 {
			return "", errors.New("update intrinsic takes exactly one argument")
		}
		f.rt.mu.RLock()
		updater := f.rt.updater
		f.rt.mu.RUnlock()
		if updater == nil {
			return "", errors.New("no updater registered")
		}
		if err := updater.Update(args[0]); err != nil {
			return "", fmt.Errorf("update %s: %w", args[0], err)
		}
		return "ok", nil

	default:
		return "", fmt.Errorf("unknown host intrinsic %q", name)
	}
}
