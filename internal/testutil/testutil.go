// Package testutil provides IR builders and document fixtures shared by the
// translator tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	dataframe "github.com/rocketlaunchr/dataframe-go"

	"github.com/akhildatla/loft/pkg/core"
	"github.com/akhildatla/loft/pkg/ws"
)

// TempFile creates a temporary file with the given content and extension.
// The file is cleaned up when the test finishes.
func TempFile(t *testing.T, content, ext string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "table"+ext)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

// BooksCSV returns a small serialized node table: a bib document with two
// book elements carrying a year attribute and a title child.
func BooksCSV() string {
	return `level,kind,name,value
0,elem,bib,
1,elem,book,
2,attr,year,1994
2,elem,title,
3,text,,TCP/IP Illustrated
1,elem,book,
2,attr,year,2000
2,elem,title,
3,text,,Data on the Web`
}

// BooksFrame builds the BooksCSV node table as a frame directly, skipping
// the file round trip.
func BooksFrame() *dataframe.DataFrame {
	return dataframe.NewDataFrame(
		dataframe.NewSeriesInt64("level", nil, 0, 1, 2, 2, 3, 1, 2, 2, 3),
		dataframe.NewSeriesString("kind", nil,
			"elem", "elem", "attr", "elem", "text", "elem", "attr", "elem", "text"),
		dataframe.NewSeriesString("name", nil,
			"bib", "book", "year", "title", "", "book", "year", "title", ""),
		dataframe.NewSeriesString("value", nil,
			"", "", "1994", "", "TCP/IP Illustrated", "", "2000", "", "Data on the Web"),
	)
}

// LoadBooks loads the books fixture into w under the name "books.xml".
func LoadBooks(t *testing.T, w *ws.WorkingSet) ws.DocHandle {
	t.Helper()
	h, err := w.LoadDocument("books.xml", BooksFrame())
	if err != nil {
		t.Fatalf("failed to load books fixture: %v", err)
	}
	return h
}

// ===== IR builders =====

// V makes a fresh variable.
func V(name string) *core.Var { return &core.Var{Name: name} }

// Ref makes a use of v.
func Ref(v *core.Var) *core.VarRef { return &core.VarRef{Var: v} }

// ForIn builds for $v in src return body.
func ForIn(v *core.Var, src, body core.Node) *core.For {
	return &core.For{Var: v, Source: src, Body: body}
}

// ForAt builds for $v at $p in src return body.
func ForAt(v, p *core.Var, src, body core.Node) *core.For {
	return &core.For{Var: v, Pos: p, Source: src, Body: body}
}

// LetIn builds let $v := bound return body.
func LetIn(v *core.Var, bound, body core.Node) *core.Let {
	return &core.Let{Var: v, Bound: bound, Body: body}
}

// Ife builds if cond then thn else els.
func Ife(cond, thn, els core.Node) *core.IfThenElse {
	return &core.IfThenElse{Cond: cond, Then: thn, Else: els}
}

// SeqOf folds nodes into a right-nested sequence. No nodes is Empty.
func SeqOf(nodes ...core.Node) core.Node {
	if len(nodes) == 0 {
		return &core.Empty{}
	}
	out := nodes[len(nodes)-1]
	for i := len(nodes) - 2; i >= 0; i-- {
		out = &core.Seq{Left: nodes[i], Right: out}
	}
	return out
}

// ChildNamed builds input/child::loc.
func ChildNamed(input core.Node, loc string) *core.PathStep {
	return &core.PathStep{
		Axis:  core.AxisChild,
		Test:  core.NodeTest{Kind: core.TestName, Loc: loc},
		Input: input,
	}
}

// StepOn builds input/axis::test for arbitrary axis and test.
func StepOn(input core.Node, axis core.Axis, test core.NodeTest) *core.PathStep {
	return &core.PathStep{Axis: axis, Test: test, Input: input}
}

// Elem builds element {loc} {content} with a constant tag.
func Elem(loc string, content core.Node) *core.ElemConstr {
	return &core.ElemConstr{
		Name:    &core.TagName{Name: core.QName{Loc: loc}},
		Content: content,
	}
}

// Attr builds attribute {loc} {value} with a constant tag.
func Attr(loc string, value core.Node) *core.AttrConstr {
	return &core.AttrConstr{
		Name:  &core.TagName{Name: core.QName{Loc: loc}},
		Value: value,
	}
}

// Text builds text {value}.
func Text(value core.Node) *core.TextConstr { return &core.TextConstr{Value: value} }

// Str builds a string literal.
func Str(s string) *core.LitString { return &core.LitString{Value: s} }

// Int builds an integer literal.
func Int(v int64) *core.LitInt { return &core.LitInt{Value: v} }

// Call builds an fn: function application.
func Call(loc string, args ...core.Node) *core.Apply {
	return &core.Apply{
		Fn:   core.QName{NS: "fn", Loc: loc},
		Args: args,
	}
}

// Ints builds the sequence (v1, v2, ...) of integer literals.
func Ints(vs ...int64) core.Node {
	nodes := make([]core.Node, len(vs))
	for i, v := range vs {
		nodes[i] = Int(v)
	}
	return SeqOf(nodes...)
}
