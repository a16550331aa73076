package lower

import (
	"github.com/akhildatla/loft/pkg/core"
	"github.com/akhildatla/loft/pkg/ws"
)

// lowerStep lowers one path step: restrict the input to node rows, run the
// loop-lifted staircase join for the axis, and renumber positions per
// iteration.
func (t *Translator) lowerStep(c *core.PathStep) error {
	if err := t.lower(c.Input); err != nil {
		return err
	}
	in := t.cur

	t.prog.append("ord_uselect", "node rows")
	var rows []int
	for i := range in.Kind {
		if ws.Tag(in.Kind[i]) == ws.TagNode {
			rows = append(rows, i)
		}
	}
	iter := t.fetch(in.Iter, rows, "node iter")
	item := t.fetch(in.Item, rows, "node item")
	kind := t.fetch(in.Kind, rows, "node kind")

	t.prog.append("scj_"+c.Axis.String(), "")
	oIter, oItem, oKind, err := t.ws.Step(c.Axis, c.Test, iter, item, kind)
	if err != nil {
		return err
	}

	t.cur = Result{
		Iter: oIter,
		Pos:  t.markGrp(oIter, "pos"),
		Item: oItem,
		Kind: oKind,
	}
	return nil
}
