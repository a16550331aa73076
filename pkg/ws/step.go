package ws

import (
	"errors"
	"fmt"
	"sort"

	"github.com/akhildatla/loft/pkg/core"
)

// ErrIllegalAxis reports a path step over an axis the backend has no join
// for.
var ErrIllegalAxis = errors.New("illegal axis in path step")

// ErrIllegalNodeTest reports an axis/test combination with no defined
// semantics, such as an attribute test off the attribute axis.
var ErrIllegalNodeTest = errors.New("illegal node test in path step")

// Step performs one loop-lifted path step: for every node row of the input
// result it joins the nodes reachable along axis that satisfy test, then
// returns the matches deduplicated per iteration and ordered by
// (iter, fragment, document order). Non-node input rows are skipped; pos is
// left to the caller, which renumbers per iteration.
func (w *WorkingSet) Step(axis core.Axis, test core.NodeTest, iter, item, kind []int64) (oIter, oItem, oKind []int64, err error) {
	if axis == core.AxisAttribute {
		if test.Kind != core.TestAttr && test.Kind != core.TestName {
			return nil, nil, nil, fmt.Errorf("%w: %s() on attribute axis", ErrIllegalNodeTest, testName(test.Kind))
		}
	} else if test.Kind == core.TestAttr {
		return nil, nil, nil, fmt.Errorf("%w: attribute() on %s axis", ErrIllegalNodeTest, axis)
	}

	i := 0
	for i < len(iter) {
		j := i
		for j < len(iter) && iter[j] == iter[i] {
			j++
		}
		var gIter, gItem, gKind []int64
		if axis == core.AxisAttribute {
			gItem, gKind = w.stepAttrs(test, item[i:j], kind[i:j])
		} else {
			gItem, gKind, err = w.stepNodes(axis, test, item[i:j], kind[i:j])
			if err != nil {
				return nil, nil, nil, err
			}
		}
		gIter = make([]int64, len(gItem))
		for g := range gIter {
			gIter[g] = iter[i]
		}
		oIter = append(oIter, gIter...)
		oItem = append(oItem, gItem...)
		oKind = append(oKind, gKind...)
		i = j
	}
	return oIter, oItem, oKind, nil
}

type nodeRef struct {
	frag int
	pre  int64
}

func (w *WorkingSet) stepNodes(axis core.Axis, test core.NodeTest, item, kind []int64) ([]int64, []int64, error) {
	seen := make(map[nodeRef]struct{})
	var hits []nodeRef
	for r := range item {
		if Tag(kind[r]) != TagNode {
			continue
		}
		frag := Frag(kind[r])
		f := w.frags[frag]
		err := axisWalk(f, item[r], axis, func(p int64) {
			if !w.matchTest(f, p, test) {
				return
			}
			ref := nodeRef{frag, p}
			if _, dup := seen[ref]; dup {
				return
			}
			seen[ref] = struct{}{}
			hits = append(hits, ref)
		})
		if err != nil {
			return nil, nil, err
		}
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].frag != hits[b].frag {
			return hits[a].frag < hits[b].frag
		}
		return hits[a].pre < hits[b].pre
	})
	oItem := make([]int64, len(hits))
	oKind := make([]int64, len(hits))
	for i, h := range hits {
		oItem[i] = h.pre
		oKind[i] = EncodeKind(TagNode, h.frag)
	}
	return oItem, oKind, nil
}

// stepAttrs handles the attribute axis, which is a property lookup rather
// than a structural join.
func (w *WorkingSet) stepAttrs(test core.NodeTest, item, kind []int64) ([]int64, []int64) {
	seen := make(map[int64]struct{})
	var rows []int64
	for r := range item {
		if Tag(kind[r]) != TagNode {
			continue
		}
		frag := Frag(kind[r])
		for _, row := range w.AttrsOf(frag, item[r]) {
			if test.Kind == core.TestName {
				ns, loc := w.QNameAt(w.attrQn[row])
				if !matchQName(test, ns, loc) {
					continue
				}
			}
			if _, dup := seen[row]; dup {
				continue
			}
			seen[row] = struct{}{}
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(a, b int) bool { return rows[a] < rows[b] })
	oKind := make([]int64, len(rows))
	for i, row := range rows {
		oKind[i] = EncodeKind(TagAttr, int(w.attrFrag[row]))
	}
	return rows, oKind
}

// axisWalk visits the pres reachable from pre along axis, in document order.
func axisWalk(f *Fragment, pre int64, axis core.Axis, visit func(int64)) error {
	n := int64(f.Len())
	switch axis {
	case core.AxisSelf:
		visit(pre)

	case core.AxisChild:
		end := pre + f.Size[pre]
		for v := pre + 1; v <= end; v += f.Size[v] + 1 {
			visit(v)
		}

	case core.AxisDescendant:
		for v := pre + 1; v <= pre+f.Size[pre]; v++ {
			visit(v)
		}

	case core.AxisDescendantOrSelf:
		for v := pre; v <= pre+f.Size[pre]; v++ {
			visit(v)
		}

	case core.AxisParent:
		if p := f.Parent[pre]; p >= 0 {
			visit(p)
		}

	case core.AxisAncestor:
		for p := f.Parent[pre]; p >= 0; p = f.Parent[p] {
			visit(p)
		}

	case core.AxisAncestorOrSelf:
		for p := pre; p >= 0; p = f.Parent[p] {
			visit(p)
		}

	case core.AxisFollowingSibling:
		p := f.Parent[pre]
		for v := pre + f.Size[pre] + 1; v < n && f.Parent[v] == p; v += f.Size[v] + 1 {
			visit(v)
		}

	case core.AxisPrecedingSibling:
		// Start at the parent's first child (or the first root) and hop
		// sibling subtrees until pre.
		for v := f.Parent[pre] + 1; v < pre; v += f.Size[v] + 1 {
			visit(v)
		}

	case core.AxisFollowing:
		for v := pre + f.Size[pre] + 1; v < n; v++ {
			visit(v)
		}

	case core.AxisPreceding:
		anc := make(map[int64]struct{})
		for p := f.Parent[pre]; p >= 0; p = f.Parent[p] {
			anc[p] = struct{}{}
		}
		for v := int64(0); v < pre; v++ {
			if _, isAnc := anc[v]; !isAnc {
				visit(v)
			}
		}

	default:
		return fmt.Errorf("%w: %s", ErrIllegalAxis, axis)
	}
	return nil
}

func (w *WorkingSet) matchTest(f *Fragment, pre int64, test core.NodeTest) bool {
	switch test.Kind {
	case core.TestAnyNode:
		return true
	case core.TestElement:
		return f.Kind[pre] == NodeElem
	case core.TestText:
		return f.Kind[pre] == NodeText
	case core.TestComment:
		return f.Kind[pre] == NodeComment
	case core.TestPI:
		return f.Kind[pre] == NodePI
	case core.TestDocument:
		return f.Kind[pre] == NodeDoc
	case core.TestName:
		if f.Kind[pre] != NodeElem {
			return false
		}
		ns, loc := w.QNameAt(f.Prop[pre])
		return matchQName(test, ns, loc)
	default:
		return false
	}
}

func matchQName(test core.NodeTest, ns, loc string) bool {
	if !test.WildcardNS && test.NS != ns {
		return false
	}
	if !test.WildcardLc && test.Loc != loc {
		return false
	}
	return true
}

func testName(k core.TestKind) string {
	switch k {
	case core.TestName:
		return "name"
	case core.TestAnyNode:
		return "node"
	case core.TestElement:
		return "element"
	case core.TestText:
		return "text"
	case core.TestComment:
		return "comment"
	case core.TestPI:
		return "processing-instruction"
	case core.TestDocument:
		return "document-node"
	case core.TestAttr:
		return "attribute"
	default:
		return "unknown"
	}
}
