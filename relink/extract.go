package relink

import (
	"errors"
	"fmt"

	"github.com/seam-lang/seam/pkg/forms"
	"github.com/seam-lang/seam/pkg/image"
)

// HostRuntime is the set of loader primitives the pipeline drives. The
// concrete host runtime satisfies it; tests substitute their own.
type HostRuntime interface {
	// Release returns the host release string.
	Release() string

	// ImageFor returns the loaded image bytes for a module.
	ImageFor(module string) ([]byte, bool)

	// Unload removes a module, reporting whether it was resident.
	Unload(module string) bool

	// Load installs an image under the module name.
	Load(module string, data []byte) error
}

// Extract obtains a module's loaded image and decodes its structured
// program representation. The returned declaration list is the image's,
// unmodified and in declaration order.
func Extract(h HostRuntime, module string) (*forms.Module, error) {
	data, ok := h.ImageFor(module)
	if !ok {
		return nil, fmt.Errorf("extract %s: %w", module, ErrModuleNotFound)
	}

	img, err := image.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w: %v", module, ErrNoRepresentation, err)
	}

	mod, err := img.ExtractForms()
	if err != nil {
		if errors.Is(err, image.ErrNoForms) {
			return nil, fmt.Errorf("extract %s: %w: image was stripped", module, ErrNoRepresentation)
		}
		return nil, fmt.Errorf("extract %s: %w: %v", module, ErrNoRepresentation, err)
	}
	return mod, nil
}
