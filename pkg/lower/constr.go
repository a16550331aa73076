package lower

import (
	"fmt"

	"github.com/akhildatla/loft/pkg/core"
	"github.com/akhildatla/loft/pkg/ws"
)

// lowerText builds one text node per iteration from a single string value.
// A non-string value or more than one value in an iteration is a hard
// error; an iteration without a value simply constructs nothing.
func (t *Translator) lowerText(c *core.TextConstr) error {
	if err := t.lower(c.Value); err != nil {
		return err
	}
	val := t.cur
	for i := 0; i < val.Len(); i++ {
		if ws.Tag(val.Kind[i]) != ws.TagStr {
			return ErrBadTextValue
		}
		if i > 0 && val.Iter[i] == val.Iter[i-1] {
			return &CardinalityError{Construct: "text"}
		}
	}

	t.prog.append("text_constr", "")
	n := val.Len()
	level := make([]int64, n)
	size := make([]int64, n)
	kind := make([]int64, n)
	prop := make([]int64, n)
	for i := 0; i < n; i++ {
		kind[i] = ws.NodeText
		// string items are already pool indexes
		prop[i] = val.Item[i]
	}
	base := t.ws.AppendSubtrees(level, size, kind, prop)
	t.ws.NoteHeight(1)

	frag := t.ws.WorkingFrag()
	item := make([]int64, n)
	for i := range item {
		item[i] = base + int64(i)
	}
	t.cur = Result{
		Iter: val.Iter,
		Pos:  t.project(n, 1, "pos"),
		Item: item,
		Kind: t.project(n, ws.EncodeKind(ws.TagNode, frag), "kind"),
	}
	return nil
}

// lowerAttr builds one attribute per iteration. The tagname must cover
// every live iteration; the value must be at most one string per iteration
// (anything else is a hard error), with missing values filled by the
// interned empty string. The attributes stay unattached until element
// construction claims them.
func (t *Translator) lowerAttr(c *core.AttrConstr) error {
	names, err := t.lowerTagNames(c.Name, "attribute")
	if err != nil {
		return err
	}
	if err := t.lower(c.Value); err != nil {
		return err
	}
	val := t.cur

	valueByIter := make(map[int64]int64, val.Len())
	for i := 0; i < val.Len(); i++ {
		if ws.Tag(val.Kind[i]) != ws.TagStr {
			return ErrBadAttrValue
		}
		if _, dup := valueByIter[val.Iter[i]]; dup {
			return &CardinalityError{Construct: "attribute"}
		}
		valueByIter[val.Iter[i]] = val.Item[i]
	}

	t.prog.append("attr_constr", "")
	loop := t.top().loop
	frag := t.ws.WorkingFrag()
	item := make([]int64, len(loop))
	for i, it := range loop {
		prop, ok := valueByIter[it]
		if !ok {
			prop = t.ws.InternString("")
		}
		item[i] = t.ws.AppendAttr(-1, frag, names[it], prop)
	}

	iter := make([]int64, len(loop))
	copy(iter, loop)
	t.cur = Result{
		Iter: iter,
		Pos:  t.project(len(loop), 1, "pos"),
		Item: item,
		Kind: t.project(len(loop), ws.EncodeKind(ws.TagAttr, frag), "kind"),
	}
	return nil
}

// pendingAttr is an attribute row to append once the constructed batch's
// base pre is known; owner is batch-relative.
type pendingAttr struct {
	owner int64
	qn    int64
	prop  int64
}

// elemBatch accumulates the nodes and attributes of one element
// construction before they are appended to the working fragment.
type elemBatch struct {
	level, size, kind, prop []int64
	attrs                   []pendingAttr
}

// lowerElem builds one element per iteration: a fresh root carrying the
// iteration's tagname, the content's nodes copied in as level-shifted
// subtrees with their attributes re-homed, and the content's attribute rows
// bound to the root under a per-iteration uniqueness check.
func (t *Translator) lowerElem(c *core.ElemConstr) error {
	names, err := t.lowerTagNames(c.Name, "element")
	if err != nil {
		return err
	}
	if err := t.lower(c.Content); err != nil {
		return err
	}
	content := t.cur
	for _, k := range content.Kind {
		if tag := ws.Tag(k); tag != ws.TagNode && tag != ws.TagAttr {
			return ErrBadContent
		}
	}

	t.prog.append("elem_constr", "")
	frag := t.ws.WorkingFrag()
	loop := t.top().loop

	var b elemBatch
	rootIdx := make([]int64, len(loop))
	maxHeight := 1

	row := 0
	for li, it := range loop {
		root := int64(len(b.level))
		rootIdx[li] = root
		b.level = append(b.level, 0)
		b.size = append(b.size, 0)
		b.kind = append(b.kind, ws.NodeElem)
		b.prop = append(b.prop, names[it])

		seenAttr := make(map[int64]struct{})
		descendants := int64(0)
		for ; row < content.Len() && content.Iter[row] == it; row++ {
			switch ws.Tag(content.Kind[row]) {
			case ws.TagAttr:
				a := content.Item[row]
				qn := t.ws.AttrQn(a)
				if _, dup := seenAttr[qn]; dup {
					_, loc := t.ws.QNameAt(names[it])
					return &CardinalityError{Construct: "element", Tag: loc}
				}
				seenAttr[qn] = struct{}{}
				b.attrs = append(b.attrs, pendingAttr{owner: root, qn: qn, prop: t.ws.AttrProp(a)})

			case ws.TagNode:
				h := t.copySubtree(&b, content.Kind[row], content.Item[row])
				descendants = int64(len(b.level)) - root - 1
				if h+1 > maxHeight {
					maxHeight = h + 1
				}
			}
		}
		b.size[root] = descendants
	}
	if row != content.Len() {
		return fmt.Errorf("element content carries rows outside the live loop")
	}

	base := t.ws.AppendSubtrees(b.level, b.size, b.kind, b.prop)
	for _, a := range b.attrs {
		t.ws.AppendAttr(base+a.owner, frag, a.qn, a.prop)
	}
	t.ws.NoteHeight(maxHeight)

	iter := make([]int64, len(loop))
	item := make([]int64, len(loop))
	for i := range loop {
		iter[i] = loop[i]
		item[i] = base + rootIdx[i]
	}
	t.cur = Result{
		Iter: iter,
		Pos:  t.project(len(loop), 1, "pos"),
		Item: item,
		Kind: t.project(len(loop), ws.EncodeKind(ws.TagNode, frag), "kind"),
	}
	return nil
}

// copySubtree appends the subtree rooted at the node (kind, pre) to the
// batch, shifted one level below a constructed root, and queues copies of
// the attributes owned by every copied element. It returns the subtree's
// height.
func (t *Translator) copySubtree(b *elemBatch, kind, pre int64) int {
	srcFrag := ws.Frag(kind)
	f := t.ws.Fragment(srcFrag)
	at := int64(len(b.level))
	end := pre + f.Size[pre]
	maxLevel := f.Level[pre]

	for q := pre; q <= end; q++ {
		b.level = append(b.level, 1+f.Level[q]-f.Level[pre])
		b.size = append(b.size, f.Size[q])
		b.kind = append(b.kind, f.Kind[q])
		b.prop = append(b.prop, f.Prop[q])
		if f.Level[q] > maxLevel {
			maxLevel = f.Level[q]
		}
		if f.Kind[q] == ws.NodeElem {
			for _, a := range t.ws.AttrsOf(srcFrag, q) {
				b.attrs = append(b.attrs, pendingAttr{
					owner: at + (q - pre),
					qn:    t.ws.AttrQn(a),
					prop:  t.ws.AttrProp(a),
				})
			}
		}
	}
	return int(maxLevel-f.Level[pre]) + 1
}

// lowerTagNames lowers a constructor name expression and checks it produces
// exactly one qualified name per live iteration.
func (t *Translator) lowerTagNames(name core.Node, construct string) (map[int64]int64, error) {
	if err := t.lower(name); err != nil {
		return nil, err
	}
	res := t.cur
	names := make(map[int64]int64, res.Len())
	for i := 0; i < res.Len(); i++ {
		if ws.Tag(res.Kind[i]) != ws.TagQName {
			return nil, fmt.Errorf("%w in %s construction", ErrBadTagName, construct)
		}
		if _, dup := names[res.Iter[i]]; dup {
			return nil, &CardinalityError{Construct: construct}
		}
		names[res.Iter[i]] = res.Item[i]
	}
	for _, it := range t.top().loop {
		if _, ok := names[it]; !ok {
			return nil, fmt.Errorf("%w in %s construction", ErrBadTagName, construct)
		}
	}
	return names, nil
}
