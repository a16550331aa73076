package ws

// Tags for the kind column of an intermediate result. The low byte of a kind
// value is the tag; for TagNode and TagAttr the remaining bits carry the
// fragment id of the referenced node.
const (
	TagNode int64 = iota
	TagAttr
	TagQName
	TagBool
	TagInt
	TagStr
	TagDec
	TagDbl
)

const fragShift = 8

// EncodeKind packs a tag and a fragment id into one kind value. Non-node
// tags ignore frag.
func EncodeKind(tag int64, frag int) int64 {
	return tag | int64(frag)<<fragShift
}

// Tag extracts the tag from a kind value.
func Tag(kind int64) int64 {
	return kind & (1<<fragShift - 1)
}

// Frag extracts the fragment id from a node or attribute kind value.
func Frag(kind int64) int {
	return int(kind >> fragShift)
}

// Node kinds stored in a fragment's kind column.
const (
	NodeElem int64 = iota
	NodeText
	NodeComment
	NodePI
	NodeDoc
)
