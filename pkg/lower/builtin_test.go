package lower_test

import (
	"bytes"
	"errors"
	"log"
	"reflect"
	"strings"
	"testing"

	"github.com/akhildatla/loft/internal/testutil"
	"github.com/akhildatla/loft/pkg/core"
	"github.com/akhildatla/loft/pkg/lower"
	"github.com/akhildatla/loft/pkg/ws"
)

func bools(t *testing.T, r lower.Result) []bool {
	t.Helper()
	out := make([]bool, r.Len())
	for i := range r.Item {
		if ws.Tag(r.Kind[i]) != ws.TagBool {
			t.Fatalf("row %d has tag %d, want TagBool", i, ws.Tag(r.Kind[i]))
		}
		out[i] = r.Item[i] == 1
	}
	return out
}

func TestFnDoc(t *testing.T) {
	w := ws.New()
	h := testutil.LoadBooks(t, w)

	_, res := translate(t, w, testutil.Call("doc", testutil.Str("books.xml")))
	if res.Len() != 1 || res.Item[0] != h.Root || ws.Frag(res.Kind[0]) != h.Frag {
		t.Errorf("fn:doc result = %+v", res)
	}
}

func TestFnDocUnknown(t *testing.T) {
	w := ws.New()
	_, _, err := lower.New(w, quietOpts()).Translate(
		testutil.Call("doc", testutil.Str("nowhere.xml")))
	if !errors.Is(err, ws.ErrUnknownDocument) {
		t.Errorf("err = %v, want ErrUnknownDocument", err)
	}
}

func TestFnCount(t *testing.T) {
	w := ws.New()
	_, res := translate(t, w, testutil.Call("count", testutil.Ints(4, 5, 6)))
	if got := ints(t, w, res); !reflect.DeepEqual(got, []int64{3}) {
		t.Errorf("count = %v, want [3]", got)
	}
}

// fn:count reports zero for iterations whose argument is empty.
func TestFnCountPerIteration(t *testing.T) {
	w := ws.New()
	b := testutil.V("b")
	root := testutil.ForIn(b,
		testutil.SeqOf(&core.True{}, &core.False{}),
		testutil.Call("count",
			testutil.Ife(testutil.Ref(b), testutil.Ints(1, 2), &core.Empty{})))
	_, res := translate(t, w, root)

	if got := ints(t, w, res); !reflect.DeepEqual(got, []int64{2, 0}) {
		t.Errorf("counts = %v, want [2 0]", got)
	}
}

func TestFnEmpty(t *testing.T) {
	w := ws.New()
	_, res := translate(t, w, testutil.Call("empty", &core.Empty{}))
	if got := bools(t, res); !reflect.DeepEqual(got, []bool{true}) {
		t.Errorf("empty(()) = %v, want [true]", got)
	}

	_, res = translate(t, w, testutil.Call("empty", testutil.Int(1)))
	if got := bools(t, res); !reflect.DeepEqual(got, []bool{false}) {
		t.Errorf("empty(1) = %v, want [false]", got)
	}
}

func TestFnNot(t *testing.T) {
	w := ws.New()
	_, res := translate(t, w, testutil.Call("not", &core.False{}))
	if got := bools(t, res); !reflect.DeepEqual(got, []bool{true}) {
		t.Errorf("not(false) = %v", got)
	}

	_, _, err := lower.New(w, quietOpts()).Translate(
		testutil.Call("not", testutil.Int(1)))
	if !errors.Is(err, lower.ErrBadCondition) {
		t.Errorf("not(1) err = %v, want ErrBadCondition", err)
	}
}

func TestFnBoolean(t *testing.T) {
	w := ws.New()

	tests := []struct {
		name string
		arg  core.Node
		want bool
	}{
		{"empty sequence", &core.Empty{}, false},
		{"single false", &core.False{}, false},
		{"single true", &core.True{}, true},
		{"non-boolean atom", testutil.Int(0), true},
		{"longer sequence", testutil.Ints(1, 2), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, res := translate(t, w, testutil.Call("boolean", tt.arg))
			if got := bools(t, res); !reflect.DeepEqual(got, []bool{tt.want}) {
				t.Errorf("boolean = %v, want [%v]", got, tt.want)
			}
		})
	}
}

func TestFnDistinctDocOrder(t *testing.T) {
	w := ws.New()
	testutil.LoadBooks(t, w)

	// Union of overlapping steps: bib/book and bib/* produce the books
	// twice; distinct-doc-order collapses and orders them.
	bib := func() core.Node {
		return testutil.ChildNamed(testutil.Call("doc", testutil.Str("books.xml")), "bib")
	}
	arg := testutil.SeqOf(
		testutil.ChildNamed(bib(), "book"),
		testutil.StepOn(bib(), core.AxisChild,
			core.NodeTest{Kind: core.TestName, WildcardNS: true, WildcardLc: true}),
	)
	root := &core.Apply{
		Fn:   core.QName{NS: "pf", Loc: "distinct-doc-order"},
		Args: []core.Node{arg},
	}
	_, res := translate(t, w, root)

	if !reflect.DeepEqual(res.Item, []int64{2, 5}) {
		t.Errorf("distinct nodes = %v, want [2 5]", res.Item)
	}
	if !reflect.DeepEqual(res.Pos, []int64{1, 2}) {
		t.Errorf("pos = %v", res.Pos)
	}
}

// Unknown functions degrade to the empty sequence with a warning unless
// strict mode is on.
func TestUnknownFunction(t *testing.T) {
	w := ws.New()
	var buf bytes.Buffer
	opts := lower.Options{Log: log.New(&buf, "", 0)}

	_, res, err := lower.New(w, opts).Translate(
		testutil.Call("upper-case", testutil.Str("x")))
	if err != nil {
		t.Fatalf("permissive mode errored: %v", err)
	}
	if res.Len() != 0 {
		t.Errorf("result has %d rows, want 0", res.Len())
	}
	if !strings.Contains(buf.String(), "fn:upper-case") {
		t.Errorf("warning log = %q, want mention of fn:upper-case", buf.String())
	}

	opts.Strict = true
	_, _, err = lower.New(w, opts).Translate(
		testutil.Call("upper-case", testutil.Str("x")))
	if !errors.Is(err, lower.ErrUnknownFunction) {
		t.Errorf("strict mode err = %v, want ErrUnknownFunction", err)
	}
}
