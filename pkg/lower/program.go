package lower

import "strings"

// Op is one emitted backend operation. Name is the operation, Note says
// which column or purpose it serves.
type Op struct {
	Name string
	Note string
}

// Program is the append-only log of operations emitted by one translation.
// Operations are recorded in emission order, which is also the order they
// were applied to the live columns.
type Program struct {
	ops []Op
}

func (p *Program) append(name, note string) {
	p.ops = append(p.ops, Op{Name: name, Note: note})
}

// Ops returns the emitted operations in order.
func (p *Program) Ops() []Op { return p.ops }

// Len returns the number of emitted operations.
func (p *Program) Len() int { return len(p.ops) }

// Count returns how many ops with the given name were emitted.
func (p *Program) Count(name string) int {
	n := 0
	for _, op := range p.ops {
		if op.Name == name {
			n++
		}
	}
	return n
}

// Listing renders the program one operation per line.
func (p *Program) Listing() string {
	var b strings.Builder
	for _, op := range p.ops {
		b.WriteString(op.Name)
		if op.Note != "" {
			b.WriteByte(' ')
			b.WriteString(op.Note)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
