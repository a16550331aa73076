package lower

import (
	"github.com/akhildatla/loft/pkg/core"
	"github.com/akhildatla/loft/pkg/vector"
	"github.com/akhildatla/loft/pkg/ws"
)

// condFrame saves the loop and environment replaced while a conditional
// branch runs under a restricted partition.
type condFrame struct {
	loop []int64
	env  *envTable
}

// lowerIf partitions the live iteration contexts by the condition's truth
// value and lowers each branch against its partition. A branch whose
// partition is empty is skipped entirely; a branch whose partition covers
// the whole loop runs without the restrict/restore phases; a statically
// empty branch is elided before any of that.
func (t *Translator) lowerIf(c *core.IfThenElse) error {
	if err := t.lower(c.Cond); err != nil {
		return err
	}
	cond := t.cur
	for _, k := range cond.Kind {
		if ws.Tag(k) != ws.TagBool {
			return ErrBadCondition
		}
	}

	loop := t.top().loop
	t.prog.append("ord_uselect", "cond true")
	var trueIters []int64
	for i := range cond.Item {
		if cond.Item[i] == 1 {
			trueIters = append(trueIters, cond.Iter[i])
		}
	}
	t.prog.append("kdiff", "cond false")
	falseIters := vector.KDiff(loop, trueIters)

	// skip = 2: condition holds everywhere, the else partition is empty.
	// skip = 1: condition holds nowhere, the then partition is empty.
	skip := 0
	switch {
	case len(trueIters) == len(loop):
		skip = 2
	case len(trueIters) == 0:
		skip = 1
	}

	thenRes, err := t.lowerBranch(c.Then, trueIters, skip == 2)
	if err != nil {
		return err
	}
	elseRes, err := t.lowerBranch(c.Else, falseIters, skip == 1)
	if err != nil {
		return err
	}
	t.cur = t.merge(thenRes, elseRes)
	return nil
}

func (t *Translator) lowerBranch(branch core.Node, part []int64, total bool) (Result, error) {
	if staticEmpty(branch) || len(part) == 0 {
		return Result{}, nil
	}
	if total {
		if err := t.lower(branch); err != nil {
			return Result{}, err
		}
		return t.cur, nil
	}

	t.restrictLoop(part)
	err := t.lower(branch)
	t.restoreLoop()
	if err != nil {
		return Result{}, err
	}
	return t.cur, nil
}

// restrictLoop narrows the current level to a partition of its iteration
// contexts, filtering the environment down to the surviving iters.
func (t *Translator) restrictLoop(part []int64) {
	lvl := t.top()
	t.conds = append(t.conds, condFrame{loop: lvl.loop, env: lvl.env})

	keep := make(map[int64]struct{}, len(part))
	for _, it := range part {
		keep[it] = struct{}{}
	}
	t.prog.append("ord_uselect", "loop restrict")
	lvl.loop = part
	t.prog.append("leftfetchjoin", "env restrict")
	lvl.env = lvl.env.restricted(keep)
}

func (t *Translator) restoreLoop() {
	lvl := t.top()
	frame := t.conds[len(t.conds)-1]
	t.conds = t.conds[:len(t.conds)-1]
	lvl.loop = frame.loop
	lvl.env = frame.env
}
