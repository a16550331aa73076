package lower

import "testing"

// The table is populated during package init; every documented builtin must
// be reachable by its qualified name.
func TestBuiltinTable(t *testing.T) {
	want := []string{
		"fn:doc",
		"pf:distinct-doc-order",
		"fn:count",
		"fn:empty",
		"fn:not",
		"fn:boolean",
	}
	if len(builtins) != len(want) {
		t.Errorf("builtin table has %d entries, want %d", len(builtins), len(want))
	}
	for _, name := range want {
		if builtins[name] == nil {
			t.Errorf("builtin %s is not registered", name)
		}
	}
}
