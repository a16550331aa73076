// Package loader reads serialized document node tables into frames.
//
// A node table describes one document in pre-order, one row per node, with
// four columns:
//
//	level  nesting depth of the node, root children at 0
//	kind   one of elem, text, comment, pi, attr
//	name   qualified name ("loc" or "ns:loc") for elem/attr, target for pi
//	value  text content for text/comment/pi, attribute value for attr
//
// Attribute rows follow the element row that owns them. The frame is handed
// to the working set, which derives sizes, parents and the document root.
package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	dataframe "github.com/rocketlaunchr/dataframe-go"
)

var (
	// ErrEmptyTable reports a file that produced no rows or columns.
	ErrEmptyTable = errors.New("empty node table")
	// ErrMissingColumn reports a node table lacking a required column.
	ErrMissingColumn = errors.New("node table missing column")
	// ErrUnknownFormat reports a file extension no loader handles.
	ErrUnknownFormat = errors.New("unknown node table format")
)

var requiredColumns = []string{"level", "kind", "name", "value"}

// Load reads a node table, dispatching on the file extension (.csv, .json,
// .parquet).
func Load(path string) (*dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".json":
		return LoadJSON(path)
	case ".parquet":
		return LoadParquet(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// validate checks that df carries every node-table column.
func validate(df *dataframe.DataFrame) error {
	if df == nil || len(df.Series) == 0 {
		return ErrEmptyTable
	}
	have := make(map[string]bool, len(df.Series))
	for _, s := range df.Series {
		have[s.Name()] = true
	}
	for _, col := range requiredColumns {
		if !have[col] {
			return fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	return nil
}
