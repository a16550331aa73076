// Package scope implements the annotation pass that runs once over an IR
// tree before lowering.
//
// The pass assigns a scope id (fid) to every For node, a variable id (vid)
// and base scope to every bound variable, computes liveness, and collects
// the (vid, fid) usage records that tell the lowering engine which variables
// must be expanded into each nested iteration scope.
//
// Annotation is a pure function over the tree: results are returned in an
// Annotation value keyed by node identity, and the IR is never mutated.
package scope

import (
	"errors"
	"fmt"
	"sort"

	"github.com/akhildatla/loft/pkg/core"
)

// ErrUnboundVariable reports a variable use with no enclosing binder, which
// means the tree violates the annotator's precondition.
var ErrUnboundVariable = errors.New("variable used without enclosing binding")

// Info is the annotation attached to one bound variable.
type Info struct {
	VID  int  // unique variable id
	Base int  // fid of the innermost enclosing iteration scope at the binder
	Used bool // true iff at least one use site exists
}

// Annotation is the result of annotating one tree.
type Annotation struct {
	Vars   map[*core.Var]Info
	ForIDs map[*core.For]int
	Usage  *UsageIndex
}

// Var returns the annotation for v. The second result is false when v was
// never bound in the annotated tree.
func (a *Annotation) Var(v *core.Var) (Info, bool) {
	info, ok := a.Vars[v]
	return info, ok
}

// FID returns the scope id assigned to f.
func (a *Annotation) FID(f *core.For) int {
	return a.ForIDs[f]
}

type annotator struct {
	vars    map[*core.Var]Info
	forIDs  map[*core.For]int
	usage   []UsageRecord
	way     []int // path of fids from the root to the current position
	nextFID int
	actFID  int
	nextVID int
}

// Annotate walks the tree once and returns the complete annotation. The root
// scope has the implicit id 0. Trees containing a variable use that is not
// dominated by a binding for that variable produce ErrUnboundVariable.
func Annotate(root core.Node) (*Annotation, error) {
	an := &annotator{
		vars:   make(map[*core.Var]Info),
		forIDs: make(map[*core.For]int),
	}
	if err := an.walk(root); err != nil {
		return nil, err
	}
	return &Annotation{
		Vars:   an.vars,
		ForIDs: an.forIDs,
		Usage:  buildUsageIndex(an.usage),
	}, nil
}

func (an *annotator) walk(n core.Node) error {
	switch c := n.(type) {
	case *core.VarRef:
		info, ok := an.vars[c.Var]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnboundVariable, c.Var.Name)
		}
		// Every scope nested strictly inside the binding site, down to and
		// including the use site, must thread the value through.
		for m := len(an.way) - 1; m >= 0 && an.way[m] > info.Base; m-- {
			an.usage = append(an.usage, UsageRecord{VID: info.VID, FID: an.way[m]})
		}
		info.Used = true
		an.vars[c.Var] = info
		return nil

	case *core.For:
		// The source sequence belongs to the enclosing scope.
		if err := an.walk(c.Source); err != nil {
			return err
		}

		an.nextFID++
		fid := an.nextFID
		an.forIDs[c] = fid
		an.way = append(an.way, fid)
		an.actFID = fid

		an.bind(c.Var, fid)
		if c.Pos != nil {
			an.bind(c.Pos, fid)
		}

		if err := an.walk(c.Body); err != nil {
			return err
		}

		an.actFID = an.way[len(an.way)-1]
		an.way = an.way[:len(an.way)-1]
		return nil

	case *core.Let:
		if err := an.walk(c.Bound); err != nil {
			return err
		}
		an.bind(c.Var, an.actFID)
		return an.walk(c.Body)

	default:
		for _, child := range core.Children(n) {
			if err := an.walk(child); err != nil {
				return err
			}
		}
		return nil
	}
}

func (an *annotator) bind(v *core.Var, base int) {
	an.vars[v] = Info{VID: an.nextVID, Base: base, Used: false}
	an.nextVID++
}

// UsageRecord states that variable VID must stay live through scope FID.
type UsageRecord struct {
	VID int
	FID int
}

// UsageIndex is the deduplicated usage relation as two parallel arrays,
// sorted ascending by (fid, vid) so lowering can take contiguous per-fid
// range scans.
type UsageIndex struct {
	FIDs []int
	VIDs []int
}

func buildUsageIndex(records []UsageRecord) *UsageIndex {
	seen := make(map[UsageRecord]struct{}, len(records))
	uniq := records[:0:0]
	for _, r := range records {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		uniq = append(uniq, r)
	}
	sort.Slice(uniq, func(i, j int) bool {
		if uniq[i].FID != uniq[j].FID {
			return uniq[i].FID < uniq[j].FID
		}
		return uniq[i].VID < uniq[j].VID
	})

	idx := &UsageIndex{
		FIDs: make([]int, len(uniq)),
		VIDs: make([]int, len(uniq)),
	}
	for i, r := range uniq {
		idx.FIDs[i] = r.FID
		idx.VIDs[i] = r.VID
	}
	return idx
}

// Len returns the number of usage records.
func (u *UsageIndex) Len() int { return len(u.FIDs) }

// Expanded returns the vids that must be expanded into scope fid, in
// ascending vid order.
func (u *UsageIndex) Expanded(fid int) []int {
	lo := sort.SearchInts(u.FIDs, fid)
	hi := sort.SearchInts(u.FIDs, fid+1)
	if lo == hi {
		return nil
	}
	return u.VIDs[lo:hi]
}
