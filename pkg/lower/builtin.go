package lower

import (
	"fmt"

	"github.com/akhildatla/loft/pkg/core"
	"github.com/akhildatla/loft/pkg/vector"
	"github.com/akhildatla/loft/pkg/ws"
)

// lowerApply dispatches a function application against the builtin table.
// Unknown functions degrade to the empty sequence with a warning, or fail
// hard in strict mode.
func (t *Translator) lowerApply(c *core.Apply) error {
	key := c.Fn.NS + ":" + c.Fn.Loc
	fn, ok := builtins[key]
	if !ok {
		if t.opts.Strict {
			return fmt.Errorf("%w: %s", ErrUnknownFunction, key)
		}
		t.log.Printf("unknown function %s is translated to the empty sequence", key)
		t.cur = Result{}
		return nil
	}
	if len(c.Args) != 1 {
		return fmt.Errorf("%w: %s expects 1 argument, got %d", ErrUnknownFunction, key, len(c.Args))
	}
	return fn(t, c.Args[0])
}

// builtins is filled in init: the method expressions reference lower, which
// dispatches back through this table, so a composite literal initializer
// would form an initialization cycle.
var builtins map[string]func(*Translator, core.Node) error

func init() {
	builtins = map[string]func(*Translator, core.Node) error{
		"fn:doc":                (*Translator).fnDoc,
		"pf:distinct-doc-order": (*Translator).fnDistinctDocOrder,
		"fn:count":              (*Translator).fnCount,
		"fn:empty":              (*Translator).fnEmpty,
		"fn:not":                (*Translator).fnNot,
		"fn:boolean":            (*Translator).fnBoolean,
	}
}

// fnDoc resolves document names to their loaded root nodes.
func (t *Translator) fnDoc(arg core.Node) error {
	if err := t.lower(arg); err != nil {
		return err
	}
	in := t.cur

	t.prog.append("doc_tbl", "")
	n := in.Len()
	item := make([]int64, n)
	kind := make([]int64, n)
	for i := 0; i < n; i++ {
		h, err := t.ws.Doc(t.ws.AtomString(in.Item[i], in.Kind[i]))
		if err != nil {
			return err
		}
		item[i] = h.Root
		kind[i] = ws.EncodeKind(ws.TagNode, h.Frag)
	}
	t.cur = Result{
		Iter: in.Iter,
		Pos:  t.markGrp(in.Iter, "pos"),
		Item: item,
		Kind: kind,
	}
	return nil
}

// fnDistinctDocOrder deduplicates node rows per iteration and restores
// document order (fragment, then pre).
func (t *Translator) fnDistinctDocOrder(arg core.Node) error {
	if err := t.lower(arg); err != nil {
		return err
	}
	in := t.cur

	t.prog.append("kunique", "iter item")
	rows := vector.UniqueRows(in.Iter, in.Item, in.Kind)
	iter := vector.Gather(in.Iter, rows)
	item := vector.Gather(in.Item, rows)
	kind := vector.Gather(in.Kind, rows)

	t.prog.append("sort_refine", "doc order")
	order := vector.SortRefine(iter, kind, item)
	iter = vector.Gather(iter, order)
	item = vector.Gather(item, order)
	kind = vector.Gather(kind, order)

	t.cur = Result{
		Iter: iter,
		Pos:  t.markGrp(iter, "pos"),
		Item: item,
		Kind: kind,
	}
	return nil
}

// fnCount yields the number of rows per live iteration, zero included.
func (t *Translator) fnCount(arg core.Node) error {
	counts, err := t.perIterCounts(arg)
	if err != nil {
		return err
	}
	loop := t.top().loop
	item := make([]int64, len(loop))
	for i, c := range counts {
		item[i] = t.ws.InternInt(c)
	}
	t.finishPerIter(item, ws.TagInt)
	return nil
}

// fnEmpty tests per iteration whether the argument produced no rows.
func (t *Translator) fnEmpty(arg core.Node) error {
	counts, err := t.perIterCounts(arg)
	if err != nil {
		return err
	}
	item := make([]int64, len(counts))
	for i, c := range counts {
		if c == 0 {
			item[i] = 1
		}
	}
	t.finishPerIter(item, ws.TagBool)
	return nil
}

// fnNot negates a boolean per iteration.
func (t *Translator) fnNot(arg core.Node) error {
	if err := t.lower(arg); err != nil {
		return err
	}
	in := t.cur
	for _, k := range in.Kind {
		if ws.Tag(k) != ws.TagBool {
			return ErrBadCondition
		}
	}
	t.prog.append("bool_not", "")
	item := make([]int64, in.Len())
	for i := range in.Item {
		item[i] = 1 - in.Item[i]
	}
	t.cur = Result{Iter: in.Iter, Pos: in.Pos, Item: item, Kind: in.Kind}
	return nil
}

// fnBoolean computes the effective boolean value per iteration: false for
// no rows, the value itself for a single boolean, true for any other
// non-empty sequence.
func (t *Translator) fnBoolean(arg core.Node) error {
	if err := t.lower(arg); err != nil {
		return err
	}
	in := t.cur

	byIter := make(map[int64][]int)
	for i := range in.Iter {
		byIter[in.Iter[i]] = append(byIter[in.Iter[i]], i)
	}
	t.prog.append("ebv", "")
	loop := t.top().loop
	item := make([]int64, len(loop))
	for i, it := range loop {
		rows := byIter[it]
		switch {
		case len(rows) == 0:
			item[i] = 0
		case len(rows) == 1 && ws.Tag(in.Kind[rows[0]]) == ws.TagBool:
			item[i] = in.Item[rows[0]]
		default:
			item[i] = 1
		}
	}
	t.finishPerIter(item, ws.TagBool)
	return nil
}

// perIterCounts lowers arg and counts its rows per live iteration context.
func (t *Translator) perIterCounts(arg core.Node) ([]int64, error) {
	if err := t.lower(arg); err != nil {
		return nil, err
	}
	t.prog.append("count", "per iter")
	return vector.CountPerGroup(t.cur.Iter, t.top().loop), nil
}

// finishPerIter wraps one item per live iteration into the current result.
func (t *Translator) finishPerIter(item []int64, tag int64) {
	loop := t.top().loop
	iter := make([]int64, len(loop))
	copy(iter, loop)
	t.cur = Result{
		Iter: iter,
		Pos:  t.project(len(loop), 1, "pos"),
		Item: item,
		Kind: t.project(len(loop), tag, "kind"),
	}
}
