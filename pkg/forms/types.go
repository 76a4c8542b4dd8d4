// Package forms defines the structured program representation for seam
// modules: an ordered list of top-level declarations (functions and
// attributes) that can be rewritten, recompiled, and embedded in images.
package forms

import "fmt"

// DeclKind discriminates the top-level declaration variants.
type DeclKind uint8

const (
	// DeclFunction is a function definition.
	DeclFunction DeclKind = 1

	// DeclAttribute is a module attribute (export list, gate table, ...).
	DeclAttribute DeclKind = 2

	// DeclTombstone is an inert placeholder left where a function was
	// deleted, so declaration positions stay stable.
	DeclTombstone DeclKind = 3
)

// String returns a human-readable name for DeclKind.
func (k DeclKind) String() string {
	switch k {
	case DeclFunction:
		return "function"
	case DeclAttribute:
		return "attribute"
	case DeclTombstone:
		return "tombstone"
	default:
		return fmt.Sprintf("DeclKind(%d)", uint8(k))
	}
}

// Decl is one top-level declaration. Exactly one of Func/Attr is set,
// according to Kind; a tombstone carries only its note.
type Decl struct {
	Kind DeclKind   `cbor:"1,keyasint"`
	Func *Function  `cbor:"2,keyasint,omitempty"`
	Attr *Attribute `cbor:"3,keyasint,omitempty"`
	Note string     `cbor:"4,keyasint,omitempty"`
}

// FuncRef identifies a function by name and arity.
type FuncRef struct {
	Name  string `cbor:"1,keyasint"`
	Arity int    `cbor:"2,keyasint"`
}

// String formats the reference as "name/arity".
func (r FuncRef) String() string {
	return fmt.Sprintf("%s/%d", r.Name, r.Arity)
}

// Function is a function definition. The body is a statement list; the
// value of the last statement is the function's return value.
type Function struct {
	Name   string   `cbor:"1,keyasint"`
	Params []string `cbor:"2,keyasint,omitempty"`
	Body   []Expr   `cbor:"3,keyasint,omitempty"`
}

// Arity returns the number of parameters.
func (f *Function) Arity() int {
	return len(f.Params)
}

// Ref returns the function's name/arity reference.
func (f *Function) Ref() FuncRef {
	return FuncRef{Name: f.Name, Arity: len(f.Params)}
}

// Well-known attribute names.
const (
	AttrExport = "export"
	AttrGate   = "gate"
	AttrVsn    = "vsn"
)

// Attribute is a module attribute. The payload field used depends on the
// attribute name: Exports for "export", Rules for "gate", Value otherwise.
type Attribute struct {
	Name    string        `cbor:"1,keyasint"`
	Exports []FuncRef     `cbor:"2,keyasint,omitempty"`
	Rules   []VersionRule `cbor:"3,keyasint,omitempty"`
	Value   string        `cbor:"4,keyasint,omitempty"`
}

// VersionRule declares, for one host version threshold, the functions that
// switch implementation at that threshold.
type VersionRule struct {
	Threshold int           `cbor:"1,keyasint"`
	Mappings  []FuncMapping `cbor:"2,keyasint,omitempty"`
}

// FuncMapping is one function's three identities: the canonical name
// callers use, the legacy implementation (host version below threshold),
// and the current implementation (host version at or above threshold).
type FuncMapping struct {
	Canonical string `cbor:"1,keyasint"`
	Arity     int    `cbor:"2,keyasint"`
	Legacy    string `cbor:"3,keyasint"`
	Current   string `cbor:"4,keyasint"`
}

// CanonicalRef returns the canonical name/arity pair.
func (m FuncMapping) CanonicalRef() FuncRef {
	return FuncRef{Name: m.Canonical, Arity: m.Arity}
}

// LegacyRef returns the legacy name/arity pair.
func (m FuncMapping) LegacyRef() FuncRef {
	return FuncRef{Name: m.Legacy, Arity: m.Arity}
}

// CurrentRef returns the current name/arity pair.
func (m FuncMapping) CurrentRef() FuncRef {
	return FuncRef{Name: m.Current, Arity: m.Arity}
}

// Module is an ordered sequence of top-level declarations.
type Module struct {
	Name  string `cbor:"1,keyasint"`
	Decls []Decl `cbor:"2,keyasint,omitempty"`
}

// NewModule creates an empty module with the given name.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// AddFunction appends a function declaration.
func (m *Module) AddFunction(f *Function) {
	m.Decls = append(m.Decls, Decl{Kind: DeclFunction, Func: f})
}

// AddAttribute appends an attribute declaration.
func (m *Module) AddAttribute(a *Attribute) {
	m.Decls = append(m.Decls, Decl{Kind: DeclAttribute, Attr: a})
}

// AddExport appends an export attribute listing the given references.
func (m *Module) AddExport(refs ...FuncRef) {
	m.AddAttribute(&Attribute{Name: AttrExport, Exports: refs})
}

// AddGate appends a gate attribute carrying the given version rules.
func (m *Module) AddGate(rules ...VersionRule) {
	m.AddAttribute(&Attribute{Name: AttrGate, Rules: rules})
}

// FindFunction returns the function declaration matching ref, or nil.
func (m *Module) FindFunction(ref FuncRef) *Function {
	for i := range m.Decls {
		d := &m.Decls[i]
		if d.Kind == DeclFunction && d.Func.Name == ref.Name && d.Func.Arity() == ref.Arity {
			return d.Func
		}
	}
	return nil
}

// Functions returns all function declarations in declaration order.
func (m *Module) Functions() []*Function {
	var fns []*Function
	for i := range m.Decls {
		if m.Decls[i].Kind == DeclFunction {
			fns = append(fns, m.Decls[i].Func)
		}
	}
	return fns
}

// Exports returns the union of all export attributes, in declaration order.
func (m *Module) Exports() []FuncRef {
	var refs []FuncRef
	for i := range m.Decls {
		d := &m.Decls[i]
		if d.Kind == DeclAttribute && d.Attr.Name == AttrExport {
			refs = append(refs, d.Attr.Exports...)
		}
	}
	return refs
}

// IsExported reports whether ref appears in any export attribute.
func (m *Module) IsExported(ref FuncRef) bool {
	for _, e := range m.Exports() {
		if e == ref {
			return true
		}
	}
	return false
}

// GateRules returns the rules of the first gate attribute. The second
// result is false when the module carries no gate attribute at all; an
// empty-but-present gate attribute returns (nil, true).
func (m *Module) GateRules() ([]VersionRule, bool) {
	for i := range m.Decls {
		d := &m.Decls[i]
		if d.Kind == DeclAttribute && d.Attr.Name == AttrGate {
			return d.Attr.Rules, true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the module.
func (m *Module) Clone() *Module {
	out := &Module{Name: m.Name}
	if m.Decls == nil {
		return out
	}
	out.Decls = make([]Decl, len(m.Decls))
	for i, d := range m.Decls {
		nd := Decl{Kind: d.Kind, Note: d.Note}
		switch d.Kind {
		case DeclFunction:
			f := &Function{Name: d.Func.Name}
			f.Params = append([]string(nil), d.Func.Params...)
			f.Body = cloneExprs(d.Func.Body)
			nd.Func = f
		case DeclAttribute:
			a := &Attribute{Name: d.Attr.Name, Value: d.Attr.Value}
			a.Exports = append([]FuncRef(nil), d.Attr.Exports...)
			for _, r := range d.Attr.Rules {
				a.Rules = append(a.Rules, VersionRule{
					Threshold: r.Threshold,
					Mappings:  append([]FuncMapping(nil), r.Mappings...),
				})
			}
			nd.Attr = a
		case DeclTombstone:
			// Nothing beyond the note.
		}
		out.Decls[i] = nd
	}
	return out
}

// ValidateRules checks the data-model invariants of a version-rule table:
// arities are non-negative, the three names of each mapping are pairwise
// distinct, and every (name, arity) key is unique across the whole table.
func ValidateRules(rules []VersionRule) error {
	seen := make(map[FuncRef]bool)
	for _, rule := range rules {
		for _, m := range rule.Mappings {
			if m.Arity < 0 {
				return fmt.Errorf("mapping %s: negative arity", m.Canonical)
			}
			if m.Canonical == "" || m.Legacy == "" || m.Current == "" {
				return fmt.Errorf("mapping %q: empty function name", m.Canonical)
			}
			if m.Canonical == m.Legacy || m.Canonical == m.Current || m.Legacy == m.Current {
				return fmt.Errorf("mapping %s/%d: canonical, legacy, and current names must be pairwise distinct", m.Canonical, m.Arity)
			}
			for _, ref := range []FuncRef{m.CanonicalRef(), m.LegacyRef(), m.CurrentRef()} {
				if seen[ref] {
					return fmt.Errorf("duplicate function key %s in version-rule table", ref)
				}
				seen[ref] = true
			}
		}
	}
	return nil
}
