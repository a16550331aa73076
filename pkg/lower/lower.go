// Package lower implements the loop-lifting translation: it turns an
// annotated IR tree into an append-only program of columnar operations and,
// applying each operation as it is emitted, into the final result columns.
//
// Evaluation is set-at-a-time. A result is four parallel columns
// (iter, pos, item, kind): one row per produced value, tagged with the
// iteration context it belongs to. The translator maintains one level per
// active for-nesting, each holding the loop of live iteration contexts, the
// mapping back to the enclosing level and an environment table of expanded
// variable bindings.
package lower

import (
	"fmt"
	"log"
	"os"

	dataframe "github.com/rocketlaunchr/dataframe-go"

	"github.com/akhildatla/loft/pkg/core"
	"github.com/akhildatla/loft/pkg/scope"
	"github.com/akhildatla/loft/pkg/vector"
	"github.com/akhildatla/loft/pkg/ws"
)

// Result holds one intermediate or final result as four parallel columns.
// Rows are sorted by Iter; Pos numbers rows 1-based within each iteration.
type Result struct {
	Iter []int64
	Pos  []int64
	Item []int64
	Kind []int64
}

// Len returns the number of rows.
func (r Result) Len() int { return len(r.Iter) }

// Options configure a Translator.
type Options struct {
	// Strict turns degrade-path warnings (unknown functions, unsupported
	// constructs) into hard errors.
	Strict bool
	// Log receives degrade-path warnings. Defaults to stderr.
	Log *log.Logger
}

// Translator lowers annotated trees against one working set. A translator
// is single-use state per Translate call but may be reused sequentially.
type Translator struct {
	ws   *ws.WorkingSet
	opts Options
	log  *log.Logger

	an     *scope.Annotation
	prog   *Program
	cur    Result
	saves  []Result
	levels []*level
	conds  []condFrame
}

// New returns a translator over w.
func New(w *ws.WorkingSet, opts Options) *Translator {
	l := opts.Log
	if l == nil {
		l = log.New(os.Stderr, "lower: ", 0)
	}
	return &Translator{ws: w, opts: opts, log: l}
}

// Translate annotates root, lowers it for the single outermost iteration
// context, and returns the emitted program together with the final result.
func (t *Translator) Translate(root core.Node) (*Program, Result, error) {
	an, err := scope.Annotate(root)
	if err != nil {
		return nil, Result{}, err
	}
	t.an = an
	t.prog = &Program{}
	t.saves = nil
	t.conds = nil
	t.levels = []*level{{loop: []int64{1}, env: &envTable{}}}

	if err := t.lower(root); err != nil {
		return nil, Result{}, err
	}
	return t.prog, t.cur, nil
}

// Run translates root and renders the final result as a frame.
func Run(w *ws.WorkingSet, root core.Node, opts Options) (*dataframe.DataFrame, *Program, error) {
	t := New(w, opts)
	prog, res, err := t.Translate(root)
	if err != nil {
		return nil, nil, err
	}
	return w.Render(res.Iter, res.Pos, res.Item, res.Kind), prog, nil
}

// ===== levels and environments =====

type level struct {
	// outer maps this level's iteration contexts back to the enclosing
	// level: inner iter i originated from outer[i-1].
	outer []int64
	// loop lists the live iteration contexts, ascending.
	loop []int64
	env  *envTable
}

func (t *Translator) top() *level { return t.levels[len(t.levels)-1] }

// envTable stores expanded variable bindings as five parallel append-only
// columns. Capacity grows by doubling.
type envTable struct {
	n    int
	vid  []int64
	iter []int64
	pos  []int64
	item []int64
	kind []int64
}

func (e *envTable) push(vid, iter, pos, item, kind int64) {
	if e.n == len(e.vid) {
		grown := len(e.vid) * 2
		if grown == 0 {
			grown = 8
		}
		e.vid = growCol(e.vid, grown)
		e.iter = growCol(e.iter, grown)
		e.pos = growCol(e.pos, grown)
		e.item = growCol(e.item, grown)
		e.kind = growCol(e.kind, grown)
	}
	e.vid[e.n] = vid
	e.iter[e.n] = iter
	e.pos[e.n] = pos
	e.item[e.n] = item
	e.kind[e.n] = kind
	e.n++
}

func growCol(col []int64, to int) []int64 {
	next := make([]int64, to)
	copy(next, col)
	return next
}

// restricted returns a copy of e containing only rows whose iter is in keep.
func (e *envTable) restricted(keep map[int64]struct{}) *envTable {
	out := &envTable{}
	for i := 0; i < e.n; i++ {
		if _, ok := keep[e.iter[i]]; ok {
			out.push(e.vid[i], e.iter[i], e.pos[i], e.item[i], e.kind[i])
		}
	}
	return out
}

// ===== emitting kernel wrappers =====

func (t *Translator) project(n int, v int64, note string) []int64 {
	t.prog.append("project", note)
	return vector.Project(n, v)
}

func (t *Translator) mark(n int, offset int64, note string) []int64 {
	t.prog.append("mark", note)
	return vector.Mark(n, offset)
}

func (t *Translator) markGrp(grp []int64, note string) []int64 {
	t.prog.append("mark_grp", note)
	return vector.MarkGrp(grp)
}

func (t *Translator) fetch(col []int64, rows []int, note string) []int64 {
	t.prog.append("leftfetchjoin", note)
	return vector.Gather(col, rows)
}

func (t *Translator) selectEq(col []int64, v int64, note string) []int {
	t.prog.append("ord_uselect", note)
	return vector.SelectEq(col, v)
}

// ===== dispatch =====

func (t *Translator) lower(n core.Node) error {
	switch c := n.(type) {
	case *core.LitString:
		t.lowerConst(t.ws.InternString(c.Value), ws.TagStr)
	case *core.LitInt:
		t.lowerConst(t.ws.InternInt(c.Value), ws.TagInt)
	case *core.LitDec:
		t.lowerConst(t.ws.InternDec(c.Value), ws.TagDec)
	case *core.LitDbl:
		t.lowerConst(t.ws.InternDbl(c.Value), ws.TagDbl)
	case *core.True:
		t.lowerConst(1, ws.TagBool)
	case *core.False:
		t.lowerConst(0, ws.TagBool)
	case *core.TagName:
		t.lowerConst(t.ws.InternQName(c.Name.NS, c.Name.Loc), ws.TagQName)
	case *core.Empty:
		t.cur = Result{}
	case *core.Root:
		return t.lowerRoot()
	case *core.VarRef:
		return t.lowerVar(c)
	case *core.Seq:
		return t.lowerSeq(c)
	case *core.Let:
		return t.lowerLet(c)
	case *core.For:
		return t.lowerFor(c)
	case *core.IfThenElse:
		return t.lowerIf(c)
	case *core.PathStep:
		return t.lowerStep(c)
	case *core.ElemConstr:
		return t.lowerElem(c)
	case *core.AttrConstr:
		return t.lowerAttr(c)
	case *core.TextConstr:
		return t.lowerText(c)
	case *core.SeqCast:
		// Sequence casts carry no runtime behavior here; the operand's
		// lowering stands for the whole cast.
		t.log.Printf("ignoring sequence cast to %s", c.Type)
		return t.lower(c.Operand)
	case *core.Apply:
		return t.lowerApply(c)
	default:
		if t.opts.Strict {
			return &unsupportedError{n}
		}
		t.log.Printf("unsupported construct %T is translated to the empty sequence", n)
		t.cur = Result{}
	}
	return nil
}

type unsupportedError struct {
	n core.Node
}

func (e *unsupportedError) Error() string {
	return fmt.Sprintf("unsupported construct %T in strict mode", e.n)
}

// lowerConst loop-lifts an interned constant: one row per live iteration
// context, pos 1.
func (t *Translator) lowerConst(item, tag int64) {
	loop := t.top().loop
	iter := make([]int64, len(loop))
	copy(iter, loop)
	t.cur = Result{
		Iter: iter,
		Pos:  t.project(len(loop), 1, "pos"),
		Item: t.project(len(loop), item, "item"),
		Kind: t.project(len(loop), tag, "kind"),
	}
}

// lowerRoot yields the root of the most recently loaded document in every
// live iteration context.
func (t *Translator) lowerRoot() error {
	h, err := t.ws.LastDoc()
	if err != nil {
		return err
	}
	t.lowerConst(h.Root, ws.EncodeKind(ws.TagNode, h.Frag))
	return nil
}

// lowerVar reads a variable's expanded rows from the current level's
// environment table.
func (t *Translator) lowerVar(c *core.VarRef) error {
	info, ok := t.an.Var(c.Var)
	if !ok {
		return scope.ErrUnboundVariable
	}
	env := t.top().env
	rows := t.selectEq(env.vid[:env.n], int64(info.VID), "env vid")
	t.cur = Result{
		Iter: t.fetch(env.iter[:env.n], rows, "env iter"),
		Pos:  t.fetch(env.pos[:env.n], rows, "env pos"),
		Item: t.fetch(env.item[:env.n], rows, "env item"),
		Kind: t.fetch(env.kind[:env.n], rows, "env kind"),
	}
	return nil
}

// lowerSeq concatenates two results, left before right within each
// iteration. A statically empty side skips the merge entirely.
func (t *Translator) lowerSeq(c *core.Seq) error {
	if staticEmpty(c.Left) {
		return t.lower(c.Right)
	}
	if staticEmpty(c.Right) {
		return t.lower(c.Left)
	}

	if err := t.lower(c.Left); err != nil {
		return err
	}
	t.save()
	if err := t.lower(c.Right); err != nil {
		return err
	}
	left := t.restore()
	t.cur = t.merge(left, t.cur)
	return nil
}

// merge combines two iter-sorted results, left rows first on shared iters,
// and renumbers pos per iteration.
func (t *Translator) merge(left, right Result) Result {
	if left.Len() == 0 {
		return right
	}
	if right.Len() == 0 {
		return left
	}
	t.prog.append("merged_union", "iter")
	iter, payload := vector.MergedUnion(left.Iter, right.Iter,
		[][]int64{left.Item, left.Kind},
		[][]int64{right.Item, right.Kind})
	return Result{
		Iter: iter,
		Pos:  t.markGrp(iter, "pos"),
		Item: payload[0],
		Kind: payload[1],
	}
}

// lowerLet binds the whole value of Bound to the variable without opening a
// new iteration scope. Dead bindings are evaluated but never stored.
func (t *Translator) lowerLet(c *core.Let) error {
	if err := t.lower(c.Bound); err != nil {
		return err
	}
	info, _ := t.an.Var(c.Var)
	if info.Used {
		t.insertVar(info.VID, t.cur)
	}
	return t.lower(c.Body)
}

// insertVar appends a result's rows into the current level's environment
// table under vid.
func (t *Translator) insertVar(vid int, r Result) {
	t.prog.append("insert_var", "env")
	env := t.top().env
	for i := 0; i < r.Len(); i++ {
		env.push(int64(vid), r.Iter[i], r.Pos[i], r.Item[i], r.Kind[i])
	}
}

func (t *Translator) save() {
	t.saves = append(t.saves, t.cur)
}

func (t *Translator) restore() Result {
	r := t.saves[len(t.saves)-1]
	t.saves = t.saves[:len(t.saves)-1]
	return r
}

func staticEmpty(n core.Node) bool {
	_, ok := n.(*core.Empty)
	return ok
}
