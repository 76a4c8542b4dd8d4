package relink

import (
	"errors"

	"github.com/seam-lang/seam/pkg/forms"
	"github.com/seam-lang/seam/pkg/image"
)

// CompileForms turns a (rewritten) program representation back into image
// bytes ready for loading. The forms are re-embedded in the image, so the
// result remains extractable. Any diagnostic surfaces as *CompileError.
func CompileForms(mod *forms.Module) ([]byte, error) {
	img, err := image.Build(mod)
	if err != nil {
		var be *image.BuildError
		if errors.As(err, &be) {
			return nil, &CompileError{Module: be.Module, Diagnostics: be.Diagnostics}
		}
		return nil, &CompileError{Module: mod.Name, Diagnostics: []string{err.Error()}}
	}

	data, err := img.Encode()
	if err != nil {
		return nil, &CompileError{Module: mod.Name, Diagnostics: []string{err.Error()}}
	}
	return data, nil
}
