// Package image defines the module image: the serialized, loadable form of
// a compiled seam module. An image carries the compiled function chunks,
// the export table, and (unless stripped) the module's structured program
// representation, which is what makes the module rewritable after the fact.
package image

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/seam-lang/seam/pkg/forms"
)

// ImageVersion is the current image format version.
const ImageVersion uint16 = 1

// Magic bytes for module images: "SMIM" (Seam Module IMage)
var ImageMagic = []byte{'S', 'M', 'I', 'M'}

// ErrNoForms indicates an image without an embedded program representation
// (typically one that was stripped).
var ErrNoForms = errors.New("image has no embedded program representation")

// cborEncMode uses canonical encoding so identical modules always produce
// identical image bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// CompiledFunc is one compiled function inside an image.
type CompiledFunc struct {
	Name  string `cbor:"1,keyasint"`
	Arity int    `cbor:"2,keyasint"`
	Code  []byte `cbor:"3,keyasint"` // serialized bytecode chunk
}

// Ref returns the function's name/arity reference.
func (f *CompiledFunc) Ref() forms.FuncRef {
	return forms.FuncRef{Name: f.Name, Arity: f.Arity}
}

// Image is a compiled module ready for loading.
type Image struct {
	Module    string          `cbor:"1,keyasint"`
	Functions []CompiledFunc  `cbor:"2,keyasint,omitempty"`
	Exports   []forms.FuncRef `cbor:"3,keyasint,omitempty"`
	Forms     []byte          `cbor:"4,keyasint,omitempty"` // CBOR-encoded forms.Module
}

// Lookup returns the compiled function matching ref, or nil.
func (img *Image) Lookup(ref forms.FuncRef) *CompiledFunc {
	for i := range img.Functions {
		if img.Functions[i].Name == ref.Name && img.Functions[i].Arity == ref.Arity {
			return &img.Functions[i]
		}
	}
	return nil
}

// IsExported reports whether ref appears in the export table.
func (img *Image) IsExported(ref forms.FuncRef) bool {
	for _, e := range img.Exports {
		if e == ref {
			return true
		}
	}
	return false
}

// ExtractForms decodes the embedded program representation.
// Returns ErrNoForms for a stripped image.
func (img *Image) ExtractForms() (*forms.Module, error) {
	if len(img.Forms) == 0 {
		return nil, ErrNoForms
	}
	m, err := forms.UnmarshalModule(img.Forms)
	if err != nil {
		return nil, fmt.Errorf("image %s: decode embedded forms: %w", img.Module, err)
	}
	return m, nil
}

// StripForms returns a copy of the image without the embedded program
// representation, the way a debug-stripped build would ship.
func (img *Image) StripForms() *Image {
	out := *img
	out.Forms = nil
	return &out
}

// Encode serializes the image. Format: [magic:4] [version:2] [cbor payload].
func (img *Image) Encode() ([]byte, error) {
	payload, err := cborEncMode.Marshal(img)
	if err != nil {
		return nil, fmt.Errorf("image %s: encode: %w", img.Module, err)
	}
	buf := make([]byte, 0, 6+len(payload))
	buf = append(buf, ImageMagic...)
	buf = binary.BigEndian.AppendUint16(buf, ImageVersion)
	buf = append(buf, payload...)
	return buf, nil
}

// Decode deserializes an image.
func Decode(data []byte) (*Image, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("image too short: need at least 6 bytes, got %d", len(data))
	}
	if string(data[0:4]) != string(ImageMagic) {
		return nil, fmt.Errorf("invalid image magic: expected %q, got %q", ImageMagic, data[0:4])
	}
	version := binary.BigEndian.Uint16(data[4:6])
	if version > ImageVersion {
		return nil, fmt.Errorf("image version %d is newer than supported version %d", version, ImageVersion)
	}
	var img Image
	if err := cbor.Unmarshal(data[6:], &img); err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return &img, nil
}
