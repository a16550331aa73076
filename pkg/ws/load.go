package ws

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	dataframe "github.com/rocketlaunchr/dataframe-go"
)

// ErrBadNodeTable reports a node-table frame that cannot be turned into a
// fragment.
var ErrBadNodeTable = errors.New("malformed node table")

// LoadDocument builds a new fragment from a node-table frame and registers
// it under name. A document root is synthesized above the table's rows, so
// the returned handle's Root always points at a document node. Attribute
// rows become attribute-table entries owned by the preceding element.
func (w *WorkingSet) LoadDocument(name string, df *dataframe.DataFrame) (DocHandle, error) {
	cols := make(map[string]dataframe.Series, len(df.Series))
	for _, s := range df.Series {
		cols[s.Name()] = s
	}
	for _, need := range []string{"level", "kind", "name", "value"} {
		if _, ok := cols[need]; !ok {
			return DocHandle{}, fmt.Errorf("%w: missing column %q", ErrBadNodeTable, need)
		}
	}

	level := []int64{0}
	kind := []int64{NodeDoc}
	prop := []int64{w.InternString(name)}

	type pendingAttr struct {
		owner int64
		qn    int64
		prop  int64
	}
	var attrs []pendingAttr
	lastElemAt := make(map[int64]int64)
	maxLevel := int64(0)

	n := df.NRows()
	for row := 0; row < n; row++ {
		lvl, ok := asInt(cols["level"].Value(row))
		if !ok {
			return DocHandle{}, fmt.Errorf("%w: row %d has no numeric level", ErrBadNodeTable, row)
		}
		lvl++ // shift below the synthesized document root
		rowKind := asString(cols["kind"].Value(row))
		rowName := asString(cols["name"].Value(row))
		rowValue := asString(cols["value"].Value(row))

		switch rowKind {
		case "elem":
			ns, loc := splitQName(rowName)
			lastElemAt[lvl] = int64(len(level))
			level = append(level, lvl)
			kind = append(kind, NodeElem)
			prop = append(prop, w.InternQName(ns, loc))
		case "text":
			level = append(level, lvl)
			kind = append(kind, NodeText)
			prop = append(prop, w.InternString(rowValue))
		case "comment":
			level = append(level, lvl)
			kind = append(kind, NodeComment)
			prop = append(prop, w.InternString(rowValue))
		case "pi":
			level = append(level, lvl)
			kind = append(kind, NodePI)
			prop = append(prop, w.InternString(rowName))
		case "attr":
			owner, ok := lastElemAt[lvl-1]
			if !ok {
				return DocHandle{}, fmt.Errorf("%w: attribute row %d has no owning element", ErrBadNodeTable, row)
			}
			ns, loc := splitQName(rowName)
			attrs = append(attrs, pendingAttr{
				owner: owner,
				qn:    w.InternQName(ns, loc),
				prop:  w.InternString(rowValue),
			})
		default:
			return DocHandle{}, fmt.Errorf("%w: row %d has unknown kind %q", ErrBadNodeTable, row, rowKind)
		}
		if lvl > maxLevel {
			maxLevel = lvl
		}
	}

	f := &Fragment{
		Name:   name,
		Level:  level,
		Kind:   kind,
		Prop:   prop,
		Size:   make([]int64, len(level)),
		Parent: make([]int64, len(level)),
	}
	deriveSizeParent(f)
	frag := w.addFragment(f)

	for _, a := range attrs {
		w.AppendAttr(a.owner, frag, a.qn, a.prop)
	}

	w.NoteHeight(int(maxLevel))
	h := DocHandle{Frag: frag, Root: 0}
	w.docs[name] = h
	w.lastDoc = name
	return h, nil
}

// deriveSizeParent fills Size and Parent from the Level column: a node's
// subtree runs until the next row at its level or shallower.
func deriveSizeParent(f *Fragment) {
	var stack []int
	for i := range f.Level {
		for len(stack) > 0 && f.Level[stack[len(stack)-1]] >= f.Level[i] {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			f.Size[top] = int64(i - top - 1)
		}
		if len(stack) > 0 {
			f.Parent[i] = int64(stack[len(stack)-1])
		} else {
			f.Parent[i] = -1
		}
		stack = append(stack, i)
	}
	for _, top := range stack {
		f.Size[top] = int64(len(f.Level) - top - 1)
	}
}

func splitQName(name string) (ns, loc string) {
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

func asInt(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func asString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
