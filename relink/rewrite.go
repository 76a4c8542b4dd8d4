package relink

import (
	"fmt"

	"github.com/seam-lang/seam/pkg/forms"
)

// RulesOf reads and validates the version-rule table from a module's gate
// attribute. A module without a gate attribute is an authoring bug; a gate
// attribute with zero rules is a valid, empty table.
func RulesOf(mod *forms.Module) ([]forms.VersionRule, error) {
	rules, ok := mod.GateRules()
	if !ok {
		return nil, fmt.Errorf("module %s: %w: no gate attribute", mod.Name, ErrMalformedVersionTable)
	}
	if err := forms.ValidateRules(rules); err != nil {
		return nil, fmt.Errorf("module %s: %w: %v", mod.Name, ErrMalformedVersionTable, err)
	}
	return rules, nil
}

// Rewrite produces the transformed representation: for every mapping, the
// variant selected by the host version survives under its canonical name,
// while the discarded variant and the original canonical trigger stub are
// tombstoned and dropped from the export list.
//
// Rules are partitioned by threshold against the host version, and the
// not-yet-active group (threshold > version, legacy variant selected) is
// applied before the active group (current variant selected). The groups
// are disjoint by the rule-table uniqueness invariant; the fixed order
// keeps the transform deterministic.
//
// A mapping whose selected variant is absent from the tree has already
// been applied and is skipped whole, which makes rewriting an
// already-rewritten module a no-op. The input module is not mutated.
func Rewrite(mod *forms.Module, rules []forms.VersionRule, version int) *forms.Module {
	var notYetActive, active []forms.VersionRule
	for _, rule := range rules {
		if rule.Threshold > version {
			notYetActive = append(notYetActive, rule)
		} else {
			active = append(active, rule)
		}
	}

	out := mod.Clone()
	applyPass(out, notYetActive, false)
	applyPass(out, active, true)
	return out
}

// applyPass performs one selection pass over the declaration list.
// selectsCurrent picks which variant survives: current for the active
// group, legacy for the not-yet-active group.
func applyPass(mod *forms.Module, group []forms.VersionRule, selectsCurrent bool) {
	// Pre-rename chosen ref -> canonical name
	renames := make(map[forms.FuncRef]string)
	// Refs to tombstone: the discarded variant and the trigger stub
	deletes := make(map[forms.FuncRef]bool)
	// Refs to drop from export attributes
	unexports := make(map[forms.FuncRef]bool)

	for _, rule := range group {
		for _, m := range rule.Mappings {
			chosen, discarded := m.LegacyRef(), m.CurrentRef()
			if selectsCurrent {
				chosen, discarded = discarded, chosen
			}

			// Chosen variant already gone: this mapping was applied by an
			// earlier run. Leave the module alone.
			if mod.FindFunction(chosen) == nil {
				continue
			}

			renames[chosen] = m.Canonical
			deletes[discarded] = true
			deletes[m.CanonicalRef()] = true
			unexports[chosen] = true
			unexports[discarded] = true
		}
	}

	if len(renames) == 0 && len(deletes) == 0 {
		return
	}

	for i := range mod.Decls {
		d := &mod.Decls[i]
		switch d.Kind {
		case forms.DeclFunction:
			ref := d.Func.Ref()
			if canonical, ok := renames[ref]; ok {
				// Rename in place; the body is untouched.
				d.Func.Name = canonical
				continue
			}
			if deletes[ref] {
				// Replace with an inert placeholder so declaration
				// positions stay stable.
				*d = forms.Decl{Kind: forms.DeclTombstone, Note: fmt.Sprintf("%s removed", ref)}
			}

		case forms.DeclAttribute:
			if d.Attr.Name != forms.AttrExport {
				continue
			}
			kept := d.Attr.Exports[:0]
			for _, ref := range d.Attr.Exports {
				if !unexports[ref] {
					kept = append(kept, ref)
				}
			}
			d.Attr.Exports = kept

		case forms.DeclTombstone:
			// Already inert.
		}
	}
}
