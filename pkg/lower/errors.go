package lower

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownFunction reports an application of a function that has no
	// lowering, raised only in strict mode.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrBadContent reports element content carrying atomic values, which
	// have no place inside a constructed element.
	ErrBadContent = errors.New("only nodes and attributes are allowed in element content")

	// ErrBadTagName reports a constructor whose name expression does not
	// produce a qualified name for every iteration.
	ErrBadTagName = errors.New("empty tagname is not allowed")

	// ErrBadCondition reports an if condition producing non-boolean rows.
	ErrBadCondition = errors.New("condition did not evaluate to booleans")

	// ErrBadTextValue reports a text constructor fed a non-string value.
	ErrBadTextValue = errors.New("text constructor awaits exactly one string for each iter")

	// ErrBadAttrValue reports an attribute constructor fed a non-string
	// value.
	ErrBadAttrValue = errors.New("there can be only one string for each iter in attribute construction")
)

// CardinalityError reports data that violates a constructor's per-iteration
// cardinality rules; it is raised while applying emitted operations, not
// while type checking the tree.
type CardinalityError struct {
	Construct string // "attribute", "text" or "element"
	Tag       string // offending tag for element attribute clashes
}

func (e *CardinalityError) Error() string {
	if e.Construct == "element" {
		return fmt.Sprintf("attributes are not unique in element construction of '%s'", e.Tag)
	}
	return fmt.Sprintf("more than 1 argument in %s constructor", e.Construct)
}
