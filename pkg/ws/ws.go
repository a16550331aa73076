// Package ws implements the working set: the persistent columnar store that
// holds every document fragment visible to a translation, the attribute and
// qualified-name tables, and the deduplicating value pools for strings,
// integers, decimals and doubles.
//
// Fragments store nodes in document order as parallel pre-order arrays
// (level, size, kind, prop) plus a precomputed parent index. Fragment 0 is
// the working fragment that receives nodes built by constructors; loaded
// documents occupy fragments 1..n.
package ws

import (
	"errors"
	"fmt"
	"strconv"

	dataframe "github.com/rocketlaunchr/dataframe-go"
)

// ErrUnknownDocument reports a document lookup for a name that was never
// loaded into the working set.
var ErrUnknownDocument = errors.New("document not loaded")

// Fragment is one document fragment in pre-order array form. Size counts the
// descendants of a node, so the subtree of pre p spans [p, p+Size[p]].
// Parent holds the parent pre, -1 for roots.
type Fragment struct {
	Name   string
	Level  []int64
	Size   []int64
	Kind   []int64
	Prop   []int64
	Parent []int64
}

// Len returns the number of nodes in the fragment.
func (f *Fragment) Len() int { return len(f.Level) }

// DocHandle locates a loaded document inside the working set.
type DocHandle struct {
	Frag int
	Root int64
}

type qnameKey struct {
	ns, loc string
}

// WorkingSet is the shared store for one translation session. It is not safe
// for concurrent mutation; each translation owns its working set.
type WorkingSet struct {
	frags []*Fragment

	attrOwn  []int64
	attrQn   []int64
	attrProp []int64
	attrFrag []int64

	qnNS    []string
	qnLoc   []string
	qnIndex map[qnameKey]int64

	strPool  []string
	strIndex map[string]int64
	intPool  []int64
	intIndex map[int64]int64
	decPool  []float64
	decIndex map[float64]int64
	dblPool  []float64
	dblIndex map[float64]int64

	docs    map[string]DocHandle
	lastDoc string
	height  int
}

// New returns an empty working set. The empty string is pre-interned at
// index 0 so constructors can fill missing attribute values without a pool
// round trip.
func New() *WorkingSet {
	w := &WorkingSet{
		qnIndex:  make(map[qnameKey]int64),
		strIndex: make(map[string]int64),
		intIndex: make(map[int64]int64),
		decIndex: make(map[float64]int64),
		dblIndex: make(map[float64]int64),
		docs:     make(map[string]DocHandle),
	}
	w.frags = append(w.frags, &Fragment{})
	w.InternString("")
	return w
}

// WorkingFrag is the fragment id receiving constructed nodes.
func (w *WorkingSet) WorkingFrag() int { return 0 }

// Fragment returns fragment i.
func (w *WorkingSet) Fragment(i int) *Fragment { return w.frags[i] }

// NumFrags returns the number of fragments, the working fragment included.
func (w *WorkingSet) NumFrags() int { return len(w.frags) }

func (w *WorkingSet) addFragment(f *Fragment) int {
	w.frags = append(w.frags, f)
	return len(w.frags) - 1
}

// ===== Qualified names =====

// InternQName returns the id of the (ns, loc) pair, adding it on first use.
func (w *WorkingSet) InternQName(ns, loc string) int64 {
	k := qnameKey{ns, loc}
	if id, ok := w.qnIndex[k]; ok {
		return id
	}
	id := int64(len(w.qnNS))
	w.qnNS = append(w.qnNS, ns)
	w.qnLoc = append(w.qnLoc, loc)
	w.qnIndex[k] = id
	return id
}

// QNameAt returns the (ns, loc) pair for a qname id.
func (w *WorkingSet) QNameAt(id int64) (ns, loc string) {
	return w.qnNS[id], w.qnLoc[id]
}

// ===== Value pools =====

// InternString returns the pool index of s, adding it on first use.
func (w *WorkingSet) InternString(s string) int64 {
	if id, ok := w.strIndex[s]; ok {
		return id
	}
	id := int64(len(w.strPool))
	w.strPool = append(w.strPool, s)
	w.strIndex[s] = id
	return id
}

// InternInt returns the pool index of v, adding it on first use.
func (w *WorkingSet) InternInt(v int64) int64 {
	if id, ok := w.intIndex[v]; ok {
		return id
	}
	id := int64(len(w.intPool))
	w.intPool = append(w.intPool, v)
	w.intIndex[v] = id
	return id
}

// InternDec returns the pool index of v in the decimal pool.
func (w *WorkingSet) InternDec(v float64) int64 {
	if id, ok := w.decIndex[v]; ok {
		return id
	}
	id := int64(len(w.decPool))
	w.decPool = append(w.decPool, v)
	w.decIndex[v] = id
	return id
}

// InternDbl returns the pool index of v in the double pool.
func (w *WorkingSet) InternDbl(v float64) int64 {
	if id, ok := w.dblIndex[v]; ok {
		return id
	}
	id := int64(len(w.dblPool))
	w.dblPool = append(w.dblPool, v)
	w.dblIndex[v] = id
	return id
}

// StringAt returns the pooled string at index id.
func (w *WorkingSet) StringAt(id int64) string { return w.strPool[id] }

// IntAt returns the pooled integer at index id.
func (w *WorkingSet) IntAt(id int64) int64 { return w.intPool[id] }

// DecAt returns the pooled decimal at index id.
func (w *WorkingSet) DecAt(id int64) float64 { return w.decPool[id] }

// DblAt returns the pooled double at index id.
func (w *WorkingSet) DblAt(id int64) float64 { return w.dblPool[id] }

// ===== Attributes =====

// AppendAttr adds one attribute row (owner pre, owner fragment, qname id,
// string pool index of the value) and returns its row index.
func (w *WorkingSet) AppendAttr(own int64, frag int, qn, prop int64) int64 {
	row := int64(len(w.attrOwn))
	w.attrOwn = append(w.attrOwn, own)
	w.attrQn = append(w.attrQn, qn)
	w.attrProp = append(w.attrProp, prop)
	w.attrFrag = append(w.attrFrag, int64(frag))
	return row
}

// AttrCount returns the number of attribute rows.
func (w *WorkingSet) AttrCount() int { return len(w.attrOwn) }

// AttrOwn returns the owner pre of attribute row i.
func (w *WorkingSet) AttrOwn(i int64) int64 { return w.attrOwn[i] }

// AttrQn returns the qname id of attribute row i.
func (w *WorkingSet) AttrQn(i int64) int64 { return w.attrQn[i] }

// AttrProp returns the value pool index of attribute row i.
func (w *WorkingSet) AttrProp(i int64) int64 { return w.attrProp[i] }

// AttrFrag returns the owner fragment of attribute row i.
func (w *WorkingSet) AttrFrag(i int64) int { return int(w.attrFrag[i]) }

// AttrsOf returns the attribute rows owned by node pre of fragment frag, in
// insertion order.
func (w *WorkingSet) AttrsOf(frag int, pre int64) []int64 {
	var rows []int64
	for i := range w.attrOwn {
		if w.attrFrag[i] == int64(frag) && w.attrOwn[i] == pre {
			rows = append(rows, int64(i))
		}
	}
	return rows
}

// ===== Construction =====

// AppendSubtrees appends a batch of constructed nodes to the working
// fragment and returns the pre of the first appended node. The input arrays
// describe the new nodes in document order; parents are derived from the
// level column, with level-0 rows becoming roots.
func (w *WorkingSet) AppendSubtrees(level, size, kind, prop []int64) int64 {
	f := w.frags[0]
	base := int64(f.Len())

	type ent struct {
		level int64
		pre   int64
	}
	var stack []ent
	for i := range level {
		for len(stack) > 0 && stack[len(stack)-1].level >= level[i] {
			stack = stack[:len(stack)-1]
		}
		parent := int64(-1)
		if len(stack) > 0 {
			parent = stack[len(stack)-1].pre
		}
		pre := base + int64(i)
		f.Level = append(f.Level, level[i])
		f.Size = append(f.Size, size[i])
		f.Kind = append(f.Kind, kind[i])
		f.Prop = append(f.Prop, prop[i])
		f.Parent = append(f.Parent, parent)
		stack = append(stack, ent{level[i], pre})
	}
	return base
}

// NoteHeight records a subtree height if it exceeds the current maximum.
func (w *WorkingSet) NoteHeight(h int) {
	if h > w.height {
		w.height = h
	}
}

// Height returns the maximum subtree height seen so far.
func (w *WorkingSet) Height() int { return w.height }

// ===== Documents =====

// Doc returns the handle of a loaded document.
func (w *WorkingSet) Doc(name string) (DocHandle, error) {
	h, ok := w.docs[name]
	if !ok {
		return DocHandle{}, fmt.Errorf("%w: %q", ErrUnknownDocument, name)
	}
	return h, nil
}

// LastDoc returns the most recently loaded document.
func (w *WorkingSet) LastDoc() (DocHandle, error) {
	if w.lastDoc == "" {
		return DocHandle{}, fmt.Errorf("%w: no document loaded", ErrUnknownDocument)
	}
	return w.docs[w.lastDoc], nil
}

// ===== Rendering =====

// AtomString renders one result item as text, the way query output prints
// it.
func (w *WorkingSet) AtomString(item, kind int64) string {
	switch Tag(kind) {
	case TagNode:
		return w.nodeString(Frag(kind), item)
	case TagAttr:
		ns, loc := w.QNameAt(w.attrQn[item])
		return qnameString(ns, loc) + "=\"" + w.strPool[w.attrProp[item]] + "\""
	case TagQName:
		return qnameString(w.QNameAt(item))
	case TagBool:
		if item == 0 {
			return "false"
		}
		return "true"
	case TagInt:
		return strconv.FormatInt(w.intPool[item], 10)
	case TagStr:
		return w.strPool[item]
	case TagDec:
		return strconv.FormatFloat(w.decPool[item], 'g', -1, 64)
	case TagDbl:
		return strconv.FormatFloat(w.dblPool[item], 'g', -1, 64)
	default:
		return "?"
	}
}

func (w *WorkingSet) nodeString(frag int, pre int64) string {
	f := w.frags[frag]
	switch f.Kind[pre] {
	case NodeElem:
		ns, loc := w.QNameAt(f.Prop[pre])
		return "<" + qnameString(ns, loc) + "/>"
	case NodeText:
		return w.strPool[f.Prop[pre]]
	case NodeComment:
		return "<!--" + w.strPool[f.Prop[pre]] + "-->"
	case NodePI:
		return "<?" + w.strPool[f.Prop[pre]] + "?>"
	case NodeDoc:
		return "document(" + w.strPool[f.Prop[pre]] + ")"
	default:
		return "?"
	}
}

func qnameString(ns, loc string) string {
	if ns == "" {
		return loc
	}
	return "{" + ns + "}" + loc
}

// Render materializes a result as a frame with iter, pos and a rendered
// item column, the surface query output takes.
func (w *WorkingSet) Render(iter, pos, item, kind []int64) *dataframe.DataFrame {
	values := make([]string, len(item))
	for i := range item {
		values[i] = w.AtomString(item[i], kind[i])
	}
	iters := make([]interface{}, len(iter))
	poss := make([]interface{}, len(pos))
	vals := make([]interface{}, len(values))
	for i := range iter {
		iters[i] = iter[i]
		poss[i] = pos[i]
		vals[i] = values[i]
	}
	return dataframe.NewDataFrame(
		dataframe.NewSeriesInt64("iter", nil, iters...),
		dataframe.NewSeriesInt64("pos", nil, poss...),
		dataframe.NewSeriesString("item", nil, vals...),
	)
}
