package main

import (
	"testing"

	"github.com/akhildatla/loft/pkg/lower"
	"github.com/akhildatla/loft/pkg/ws"
)

// Every registered example must translate and run against the built-in
// document.
func TestExamplesTranslate(t *testing.T) {
	for name, ex := range examples {
		t.Run(name, func(t *testing.T) {
			w := ws.New()
			if _, err := w.LoadDocument("books.xml", builtinBooksTable()); err != nil {
				t.Fatalf("load: %v", err)
			}
			df, prog, err := lower.Run(w, ex.build(), lower.Options{Strict: true})
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if prog.Len() == 0 {
				t.Error("no operations emitted")
			}
			if df.NRows() == 0 {
				t.Errorf("example %s produced no rows", name)
			}
		})
	}
}

func TestExampleResults(t *testing.T) {
	w := ws.New()
	if _, err := w.LoadDocument("books.xml", builtinBooksTable()); err != nil {
		t.Fatalf("load: %v", err)
	}

	df, _, err := lower.Run(w, examples["count"].build(), lower.Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := df.Series[2].Value(0); got != "2" {
		t.Errorf("count = %v, want 2", got)
	}
}

func TestSetupRejectsUnknownQuery(t *testing.T) {
	if _, _, _, err := setup("run", []string{"nonsense"}); err == nil {
		t.Error("expected an error for an unknown query name")
	}
}
