// Package main provides the CLI entry point for loft, the loop-lifting
// columnar translator.
//
// Usage:
//
//	loft list                    # list built-in example queries
//	loft lower titles            # print the emitted op listing for a query
//	loft run titles              # translate and print the result table
//	loft run titles -doc t.csv   # run against a node table file
//
// Trees normally arrive from a front end; the CLI ships a few registered
// example trees so the pipeline can be exercised standalone.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	dataframe "github.com/rocketlaunchr/dataframe-go"

	"github.com/akhildatla/loft/pkg/core"
	"github.com/akhildatla/loft/pkg/loader"
	"github.com/akhildatla/loft/pkg/lower"
	"github.com/akhildatla/loft/pkg/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return printUsage()
	}

	switch os.Args[1] {
	case "list":
		return listCommand()
	case "lower":
		return lowerCommand(os.Args[2:])
	case "run":
		return runCommand(os.Args[2:])
	case "help", "-h", "--help":
		return printUsage()
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

func printUsage() error {
	fmt.Println(`loft - loop-lifting columnar translator

Usage:
  loft list                 list built-in example queries
  loft lower <query>        print the emitted operations for a query
  loft run <query>          translate a query and print the result
  loft help                 show this help

Options for lower/run:
  -doc path                 node table file to load as "books.xml"
                            (.csv, .json or .parquet; default: built-in)
  -strict                   fail on unknown functions instead of warning`)
	return nil
}

func listCommand() error {
	names := make([]string, 0, len(examples))
	for name := range examples {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-12s %s\n", name, examples[name].about)
	}
	return nil
}

func lowerCommand(args []string) error {
	w, root, opts, err := setup("lower", args)
	if err != nil {
		return err
	}
	prog, _, err := lower.New(w, opts).Translate(root)
	if err != nil {
		return err
	}
	fmt.Print(prog.Listing())
	return nil
}

func runCommand(args []string) error {
	w, root, opts, err := setup("run", args)
	if err != nil {
		return err
	}
	df, _, err := lower.Run(w, root, opts)
	if err != nil {
		return err
	}
	fmt.Println(df.Table())
	return nil
}

// setup parses the shared flags, loads the document and resolves the query.
func setup(cmd string, args []string) (*ws.WorkingSet, core.Node, lower.Options, error) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	docPath := fs.String("doc", "", "node table file to load as books.xml")
	strict := fs.Bool("strict", false, "fail on unknown functions")
	if err := fs.Parse(args); err != nil {
		return nil, nil, lower.Options{}, err
	}
	if fs.NArg() != 1 {
		return nil, nil, lower.Options{}, fmt.Errorf("%s expects exactly one query name (try: loft list)", cmd)
	}
	ex, ok := examples[fs.Arg(0)]
	if !ok {
		return nil, nil, lower.Options{}, fmt.Errorf("unknown query %q (try: loft list)", fs.Arg(0))
	}

	w := ws.New()
	df := builtinBooksTable()
	if *docPath != "" {
		var err error
		df, err = loader.Load(*docPath)
		if err != nil {
			return nil, nil, lower.Options{}, err
		}
	}
	if _, err := w.LoadDocument("books.xml", df); err != nil {
		return nil, nil, lower.Options{}, err
	}

	return w, ex.build(), lower.Options{Strict: *strict}, nil
}

// builtinBooksTable is the default document: a bib with two attributed
// books.
func builtinBooksTable() *dataframe.DataFrame {
	return dataframe.NewDataFrame(
		dataframe.NewSeriesInt64("level", nil, 0, 1, 2, 2, 3, 1, 2, 2, 3),
		dataframe.NewSeriesString("kind", nil,
			"elem", "elem", "attr", "elem", "text", "elem", "attr", "elem", "text"),
		dataframe.NewSeriesString("name", nil,
			"bib", "book", "year", "title", "", "book", "year", "title", ""),
		dataframe.NewSeriesString("value", nil,
			"", "", "1994", "", "TCP/IP Illustrated", "", "2000", "", "Data on the Web"),
	)
}

type example struct {
	about string
	build func() core.Node
}

var examples = map[string]example{
	"titles": {
		about: "for $b in doc()/bib/book return $b/title",
		build: func() core.Node {
			b := &core.Var{Name: "b"}
			return &core.For{
				Var:    b,
				Source: childStep(childStep(docCall(), "bib"), "book"),
				Body:   childStep(&core.VarRef{Var: b}, "title"),
			}
		},
	},
	"count": {
		about: "fn:count(doc()/bib/book)",
		build: func() core.Node {
			return &core.Apply{
				Fn:   core.QName{NS: "fn", Loc: "count"},
				Args: []core.Node{childStep(childStep(docCall(), "bib"), "book")},
			}
		},
	},
	"wrap": {
		about: "for $b in doc()/bib/book return element pick { $b }",
		build: func() core.Node {
			b := &core.Var{Name: "b"}
			return &core.For{
				Var:    b,
				Source: childStep(childStep(docCall(), "bib"), "book"),
				Body: &core.ElemConstr{
					Name:    &core.TagName{Name: core.QName{Loc: "pick"}},
					Content: &core.VarRef{Var: b},
				},
			}
		},
	},
	"positions": {
		about: "for $b at $p in doc()/bib/book return $p",
		build: func() core.Node {
			b := &core.Var{Name: "b"}
			p := &core.Var{Name: "p"}
			return &core.For{
				Var:    b,
				Pos:    p,
				Source: childStep(childStep(docCall(), "bib"), "book"),
				Body:   &core.VarRef{Var: p},
			}
		},
	},
	"years": {
		about: "for $b in doc()/bib/book return $b/attribute::year",
		build: func() core.Node {
			b := &core.Var{Name: "b"}
			return &core.For{
				Var:    b,
				Source: childStep(childStep(docCall(), "bib"), "book"),
				Body: &core.PathStep{
					Axis:  core.AxisAttribute,
					Test:  core.NodeTest{Kind: core.TestName, Loc: "year"},
					Input: &core.VarRef{Var: b},
				},
			}
		},
	},
}

func docCall() core.Node {
	return &core.Apply{
		Fn:   core.QName{NS: "fn", Loc: "doc"},
		Args: []core.Node{&core.LitString{Value: "books.xml"}},
	}
}

func childStep(input core.Node, loc string) core.Node {
	return &core.PathStep{
		Axis:  core.AxisChild,
		Test:  core.NodeTest{Kind: core.TestName, Loc: loc},
		Input: input,
	}
}
