package lower

import (
	"github.com/akhildatla/loft/pkg/core"
	"github.com/akhildatla/loft/pkg/ws"
)

// lowerFor runs the for-loop state machine: lower the source in the
// enclosing level, enter a new level whose iteration contexts are the source
// rows, expand the live outer bindings into the new environment, bind the
// item (and positional) variable, lower the body, and map the body's result
// back into the enclosing contexts.
func (t *Translator) lowerFor(c *core.For) error {
	if err := t.lower(c.Source); err != nil {
		return err
	}
	src := t.cur
	fid := t.an.FID(c)
	parent := t.top()

	// Enter: inner iteration contexts are numbered 1..n over the source
	// rows; outer remembers where each came from.
	outer := make([]int64, src.Len())
	copy(outer, src.Iter)
	inner := t.mark(src.Len(), 1, "inner loop")
	lvl := &level{outer: outer, loop: inner, env: &envTable{}}
	t.levels = append(t.levels, lvl)

	vids := t.an.Usage.Expanded(fid)
	if len(vids) == 0 {
		t.prog.append("new_var_table", "env")
	}
	for _, vid := range vids {
		t.expandVar(vid, parent.env, outer, inner)
	}

	if info, _ := t.an.Var(c.Var); info.Used {
		t.insertVar(info.VID, Result{
			Iter: inner,
			Pos:  t.project(src.Len(), 1, "pos"),
			Item: src.Item,
			Kind: src.Kind,
		})
	}
	if c.Pos != nil {
		if info, _ := t.an.Var(c.Pos); info.Used {
			t.bindPosVar(info.VID, outer, inner)
		}
	}

	if err := t.lower(c.Body); err != nil {
		t.levels = t.levels[:len(t.levels)-1]
		return err
	}
	body := t.cur

	// Map back: inner iter i originated from outer[i-1]; iterations whose
	// body produced nothing stay absent.
	t.prog.append("leftfetchjoin", "iter map-back")
	mapped := make([]int64, body.Len())
	for i := range body.Iter {
		mapped[i] = outer[body.Iter[i]-1]
	}

	t.levels = t.levels[:len(t.levels)-1]
	t.cur = Result{
		Iter: mapped,
		Pos:  t.markGrp(mapped, "pos"),
		Item: body.Item,
		Kind: body.Kind,
	}
	return nil
}

// expandVar threads one outer binding through to the new level: every outer
// row of vid is replicated for each inner iteration spawned from its
// iteration context.
func (t *Translator) expandVar(vid int, parent *envTable, outer, inner []int64) {
	t.prog.append("expand", "env")

	rowsByIter := make(map[int64][]int)
	for i := 0; i < parent.n; i++ {
		if parent.vid[i] == int64(vid) {
			rowsByIter[parent.iter[i]] = append(rowsByIter[parent.iter[i]], i)
		}
	}

	env := t.top().env
	for i, in := range inner {
		for _, row := range rowsByIter[outer[i]] {
			env.push(int64(vid), in, parent.pos[row], parent.item[row], parent.kind[row])
		}
	}
}

// bindPosVar binds the positional variable to the 1-based position of each
// source item within its enclosing iteration context.
func (t *Translator) bindPosVar(vid int, outer, inner []int64) {
	positions := t.markGrp(outer, "pos var")
	items := make([]int64, len(positions))
	for i, p := range positions {
		items[i] = t.ws.InternInt(p)
	}
	t.insertVar(vid, Result{
		Iter: inner,
		Pos:  t.project(len(inner), 1, "pos"),
		Item: items,
		Kind: t.project(len(inner), ws.TagInt, "kind"),
	})
}
