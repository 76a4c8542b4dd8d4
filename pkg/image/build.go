package image

import (
	"fmt"
	"strings"

	"github.com/seam-lang/seam/pkg/bytecode"
	"github.com/seam-lang/seam/pkg/forms"
)

// BuildError reports everything that kept a module from compiling.
type BuildError struct {
	Module      string
	Diagnostics []string
}

// Error lists the module and every diagnostic.
func (e *BuildError) Error() string {
	return fmt.Sprintf("module %s failed to compile: %s", e.Module, strings.Join(e.Diagnostics, "; "))
}

// Build compiles a module's forms into an image. Tombstones are skipped;
// every function is lowered through the bytecode compiler; the export table
// is the union of the module's export attributes, checked against the
// compiled function set. The (possibly rewritten) forms are re-embedded so
// the resulting image stays rewritable.
func Build(mod *forms.Module) (*Image, error) {
	var diags []string

	// Local call table for the compiler
	locals := make(map[forms.FuncRef]bool)
	for _, fn := range mod.Functions() {
		ref := fn.Ref()
		if locals[ref] {
			diags = append(diags, fmt.Sprintf("%s: defined more than once", ref))
		}
		locals[ref] = true
	}

	img := &Image{Module: mod.Name}
	for _, fn := range mod.Functions() {
		chunk, fnDiags := bytecode.CompileFunction(fn, locals)
		if len(fnDiags) > 0 {
			for _, d := range fnDiags {
				diags = append(diags, d.String())
			}
			continue
		}
		code, err := chunk.Serialize()
		if err != nil {
			diags = append(diags, fmt.Sprintf("%s: serialize: %v", fn.Ref(), err))
			continue
		}
		img.Functions = append(img.Functions, CompiledFunc{
			Name:  fn.Name,
			Arity: fn.Arity(),
			Code:  code,
		})
	}

	// Export closure: every exported function must exist.
	for _, ref := range mod.Exports() {
		if !locals[ref] {
			diags = append(diags, fmt.Sprintf("export of undefined function %s", ref))
			continue
		}
		img.Exports = append(img.Exports, ref)
	}

	if len(diags) > 0 {
		return nil, &BuildError{Module: mod.Name, Diagnostics: diags}
	}

	embedded, err := forms.MarshalModule(mod)
	if err != nil {
		return nil, &BuildError{Module: mod.Name, Diagnostics: []string{fmt.Sprintf("embed forms: %v", err)}}
	}
	img.Forms = embedded

	return img, nil
}
