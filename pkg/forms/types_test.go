package forms

import "testing"

func sampleRules() []VersionRule {
	return []VersionRule{
		{
			Threshold: 18,
			Mappings: []FuncMapping{
				{Canonical: "now", Arity: 0, Legacy: "now_fallback", Current: "now_native"},
			},
		},
	}
}

func TestValidateRules(t *testing.T) {
	if err := ValidateRules(sampleRules()); err != nil {
		t.Errorf("valid rules rejected: %v", err)
	}
	if err := ValidateRules(nil); err != nil {
		t.Errorf("empty table rejected: %v", err)
	}
}

func TestValidateRulesRejectsBadTables(t *testing.T) {
	tests := []struct {
		name  string
		rules []VersionRule
	}{
		{
			"same name for canonical and legacy",
			[]VersionRule{{Threshold: 18, Mappings: []FuncMapping{
				{Canonical: "now", Arity: 0, Legacy: "now", Current: "now_native"},
			}}},
		},
		{
			"same name for legacy and current",
			[]VersionRule{{Threshold: 18, Mappings: []FuncMapping{
				{Canonical: "now", Arity: 0, Legacy: "now_impl", Current: "now_impl"},
			}}},
		},
		{
			"empty function name",
			[]VersionRule{{Threshold: 18, Mappings: []FuncMapping{
				{Canonical: "now", Arity: 0, Legacy: "", Current: "now_native"},
			}}},
		},
		{
			"negative arity",
			[]VersionRule{{Threshold: 18, Mappings: []FuncMapping{
				{Canonical: "now", Arity: -1, Legacy: "now_fallback", Current: "now_native"},
			}}},
		},
		{
			"duplicate key across rules",
			[]VersionRule{
				{Threshold: 18, Mappings: []FuncMapping{
					{Canonical: "now", Arity: 0, Legacy: "now_fallback", Current: "now_native"},
				}},
				{Threshold: 20, Mappings: []FuncMapping{
					{Canonical: "ts", Arity: 0, Legacy: "now_native", Current: "ts_native"},
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateRules(tt.rules); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestGateRules(t *testing.T) {
	m := NewModule("clock")
	if _, ok := m.GateRules(); ok {
		t.Error("module without gate attribute reported one")
	}

	// Present but empty is distinct from absent
	m.AddGate()
	rules, ok := m.GateRules()
	if !ok {
		t.Fatal("empty gate attribute not found")
	}
	if len(rules) != 0 {
		t.Errorf("empty gate attribute has %d rules", len(rules))
	}

	m2 := NewModule("clock")
	m2.AddGate(sampleRules()...)
	rules, ok = m2.GateRules()
	if !ok || len(rules) != 1 {
		t.Fatalf("GateRules = (%v, %v), want 1 rule", rules, ok)
	}
	if rules[0].Threshold != 18 {
		t.Errorf("threshold = %d, want 18", rules[0].Threshold)
	}
}

func TestExportsUnion(t *testing.T) {
	m := NewModule("clock")
	m.AddExport(FuncRef{Name: "now", Arity: 0})
	m.AddExport(FuncRef{Name: "at", Arity: 1})

	exports := m.Exports()
	if len(exports) != 2 {
		t.Fatalf("exports = %v, want 2 entries", exports)
	}
	if !m.IsExported(FuncRef{Name: "at", Arity: 1}) {
		t.Error("at/1 not reported as exported")
	}
	if m.IsExported(FuncRef{Name: "at", Arity: 2}) {
		t.Error("at/2 reported as exported")
	}
}

func TestFindFunctionMatchesArity(t *testing.T) {
	m := NewModule("clock")
	m.AddFunction(&Function{Name: "at", Params: []string{"tz"}})

	if m.FindFunction(FuncRef{Name: "at", Arity: 1}) == nil {
		t.Error("at/1 not found")
	}
	if m.FindFunction(FuncRef{Name: "at", Arity: 0}) != nil {
		t.Error("at/0 found but not defined")
	}
}

func TestCloneIsDeep(t *testing.T) {
	m := NewModule("clock")
	m.AddExport(FuncRef{Name: "now", Arity: 0})
	m.AddGate(sampleRules()...)
	m.AddFunction(&Function{
		Name: "now",
		Body: []Expr{If(Eq(Param("x"), Lit("1")), Lit("one"), Lit("other"))},
	})

	clone := m.Clone()
	clone.Decls[0].Attr.Exports[0].Name = "changed"
	clone.Decls[1].Attr.Rules[0].Mappings[0].Canonical = "changed"
	clone.Decls[2].Func.Name = "changed"
	clone.Decls[2].Func.Body[0].Args[0].Text = "changed"

	if m.Decls[0].Attr.Exports[0].Name != "now" {
		t.Error("clone shares export slice")
	}
	if m.Decls[1].Attr.Rules[0].Mappings[0].Canonical != "now" {
		t.Error("clone shares rule slice")
	}
	if m.Decls[2].Func.Name != "now" {
		t.Error("clone shares function")
	}
	if m.Decls[2].Func.Body[0].Args[0].Text != "" {
		t.Error("clone shares expression tree")
	}
}

func TestModuleRoundTrip(t *testing.T) {
	m := NewModule("clock")
	m.AddExport(FuncRef{Name: "now", Arity: 0})
	m.AddGate(sampleRules()...)
	m.AddFunction(&Function{Name: "now", Body: []Expr{Lit("tick")}})
	m.Decls = append(m.Decls, Decl{Kind: DeclTombstone, Note: "old/0 removed"})

	data, err := MarshalModule(m)
	if err != nil {
		t.Fatalf("MarshalModule failed: %v", err)
	}
	got, err := UnmarshalModule(data)
	if err != nil {
		t.Fatalf("UnmarshalModule failed: %v", err)
	}

	if got.Name != "clock" {
		t.Errorf("name = %q, want clock", got.Name)
	}
	if len(got.Decls) != len(m.Decls) {
		t.Fatalf("decl count = %d, want %d", len(got.Decls), len(m.Decls))
	}
	if got.Decls[3].Kind != DeclTombstone || got.Decls[3].Note != "old/0 removed" {
		t.Errorf("tombstone not preserved: %+v", got.Decls[3])
	}
	rules, ok := got.GateRules()
	if !ok || len(rules) != 1 || rules[0].Mappings[0].Current != "now_native" {
		t.Errorf("gate rules not preserved: %+v", rules)
	}
}
