package ws_test

import (
	"errors"
	"reflect"
	"testing"

	dataframe "github.com/rocketlaunchr/dataframe-go"

	"github.com/akhildatla/loft/internal/testutil"
	"github.com/akhildatla/loft/pkg/ws"
)

func badKindFrame() *dataframe.DataFrame {
	return dataframe.NewDataFrame(
		dataframe.NewSeriesInt64("level", nil, 0),
		dataframe.NewSeriesString("kind", nil, "cdata"),
		dataframe.NewSeriesString("name", nil, ""),
		dataframe.NewSeriesString("value", nil, ""),
	)
}

func TestKindEncoding(t *testing.T) {
	k := ws.EncodeKind(ws.TagNode, 3)
	if ws.Tag(k) != ws.TagNode {
		t.Errorf("tag = %d, want TagNode", ws.Tag(k))
	}
	if ws.Frag(k) != 3 {
		t.Errorf("frag = %d, want 3", ws.Frag(k))
	}

	if ws.Tag(ws.EncodeKind(ws.TagInt, 0)) != ws.TagInt {
		t.Error("atom tags must survive encoding")
	}
}

func TestInternDedup(t *testing.T) {
	w := ws.New()

	a := w.InternString("hello")
	b := w.InternString("hello")
	if a != b {
		t.Errorf("string interning returned %d then %d", a, b)
	}
	if w.StringAt(a) != "hello" {
		t.Errorf("StringAt(%d) = %q", a, w.StringAt(a))
	}

	// The empty string is pre-interned at index 0.
	if w.InternString("") != 0 {
		t.Error("empty string should intern at index 0")
	}

	i1 := w.InternInt(42)
	i2 := w.InternInt(42)
	i3 := w.InternInt(7)
	if i1 != i2 || i1 == i3 {
		t.Errorf("int interning: got %d, %d, %d", i1, i2, i3)
	}
	if w.IntAt(i3) != 7 {
		t.Errorf("IntAt(%d) = %d, want 7", i3, w.IntAt(i3))
	}

	d1 := w.InternDec(1.5)
	d2 := w.InternDbl(1.5)
	if w.DecAt(d1) != 1.5 || w.DblAt(d2) != 1.5 {
		t.Error("decimal and double pools must store independently")
	}

	q1 := w.InternQName("", "book")
	q2 := w.InternQName("", "book")
	q3 := w.InternQName("ns", "book")
	if q1 != q2 || q1 == q3 {
		t.Errorf("qname interning: got %d, %d, %d", q1, q2, q3)
	}
	ns, loc := w.QNameAt(q3)
	if ns != "ns" || loc != "book" {
		t.Errorf("QNameAt = (%q, %q)", ns, loc)
	}
}

func TestLoadDocument(t *testing.T) {
	w := ws.New()
	h, err := w.LoadDocument("books.xml", testutil.BooksFrame())
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if h.Frag != 1 || h.Root != 0 {
		t.Fatalf("handle = %+v, want frag 1 root 0", h)
	}

	f := w.Fragment(h.Frag)
	if f.Len() != 8 {
		t.Fatalf("fragment has %d nodes, want 8 (doc root + 7)", f.Len())
	}
	if f.Kind[0] != ws.NodeDoc {
		t.Error("pre 0 should be the synthesized document root")
	}
	wantSize := []int64{7, 6, 2, 1, 0, 2, 1, 0}
	if !reflect.DeepEqual(f.Size, wantSize) {
		t.Errorf("size = %v, want %v", f.Size, wantSize)
	}
	wantParent := []int64{-1, 0, 1, 2, 3, 1, 5, 6}
	if !reflect.DeepEqual(f.Parent, wantParent) {
		t.Errorf("parent = %v, want %v", f.Parent, wantParent)
	}

	if got := w.AttrCount(); got != 2 {
		t.Fatalf("attr count = %d, want 2", got)
	}
	if w.AttrOwn(0) != 2 || w.AttrOwn(1) != 5 {
		t.Errorf("attr owners = %d, %d; want 2, 5", w.AttrOwn(0), w.AttrOwn(1))
	}
	if w.StringAt(w.AttrProp(0)) != "1994" {
		t.Errorf("first attr value = %q", w.StringAt(w.AttrProp(0)))
	}

	got, err := w.Doc("books.xml")
	if err != nil || got != h {
		t.Errorf("Doc lookup = %+v, %v", got, err)
	}
	if _, err := w.Doc("missing.xml"); !errors.Is(err, ws.ErrUnknownDocument) {
		t.Errorf("missing doc error = %v", err)
	}

	if w.Height() < 4 {
		t.Errorf("height = %d, want at least 4", w.Height())
	}
}

func TestLoadDocument_Malformed(t *testing.T) {
	w := ws.New()
	_, err := w.LoadDocument("bad.xml", badKindFrame())
	if !errors.Is(err, ws.ErrBadNodeTable) {
		t.Errorf("err = %v, want ErrBadNodeTable", err)
	}
}

func TestAppendSubtrees(t *testing.T) {
	w := ws.New()
	qn := w.InternQName("", "a")
	txt := w.InternString("hi")

	// <a><text>hi</text></a> followed by a second root <a/>.
	base := w.AppendSubtrees(
		[]int64{0, 1, 0},
		[]int64{1, 0, 0},
		[]int64{ws.NodeElem, ws.NodeText, ws.NodeElem},
		[]int64{qn, txt, qn},
	)
	if base != 0 {
		t.Fatalf("base = %d, want 0", base)
	}
	f := w.Fragment(w.WorkingFrag())
	wantParent := []int64{-1, 0, -1}
	if !reflect.DeepEqual(f.Parent, wantParent) {
		t.Errorf("parent = %v, want %v", f.Parent, wantParent)
	}

	// A later append lands after the existing rows.
	next := w.AppendSubtrees([]int64{0}, []int64{0}, []int64{ws.NodeElem}, []int64{qn})
	if next != 3 {
		t.Errorf("second base = %d, want 3", next)
	}
}

func TestRender(t *testing.T) {
	w := ws.New()
	testutil.LoadBooks(t, w)

	iter := []int64{1, 1, 2}
	pos := []int64{1, 2, 1}
	item := []int64{w.InternInt(7), w.InternString("x"), 1}
	kind := []int64{ws.TagInt, ws.TagStr, ws.TagBool}

	df := w.Render(iter, pos, item, kind)
	if df.NRows() != 3 {
		t.Fatalf("rendered %d rows, want 3", df.NRows())
	}
	if got := df.Series[2].Value(0); got != "7" {
		t.Errorf("row 0 item = %v, want 7", got)
	}
	if got := df.Series[2].Value(1); got != "x" {
		t.Errorf("row 1 item = %v, want x", got)
	}
	if got := df.Series[2].Value(2); got != "true" {
		t.Errorf("row 2 item = %v, want true", got)
	}
}

func TestAtomStringNodes(t *testing.T) {
	w := ws.New()
	h := testutil.LoadBooks(t, w)

	elemKind := ws.EncodeKind(ws.TagNode, h.Frag)
	if got := w.AtomString(1, elemKind); got != "<bib/>" {
		t.Errorf("element renders as %q", got)
	}
	if got := w.AtomString(4, elemKind); got != "TCP/IP Illustrated" {
		t.Errorf("text renders as %q", got)
	}

	attrKind := ws.EncodeKind(ws.TagAttr, h.Frag)
	if got := w.AtomString(0, attrKind); got != `year="1994"` {
		t.Errorf("attribute renders as %q", got)
	}
}
