package golang

import (
	"go/ast"
	goparser "go/parser"
	"go/token"
	"strconv"
	"strings"

	"sui/pkg/value"
)

var supportImports = []string{"bufio", "fmt", "os", "strings"}

// support is appended after the value semantics. Generated programs have no
// host function table, so every foreign call fails and yields Nothing.
const support = `
var g = map[int]Value{}

var stdin = bufio.NewReader(os.Stdin)

func output(x Value) {
	fmt.Println(x.String())
}

func input() Value {
	line, _ := stdin.ReadString('\n')
	return Parse(strings.TrimRight(line, "\r\n"))
}

func bind(a []Value, n int) []Value {
	b := make([]Value, n)
	copy(b, a)
	return b
}

func foreign(name Value, args ...Value) Value {
	fmt.Fprintf(os.Stderr, "foreign call %s failed: no host functions available\n", name)
	return Nothing()
}

func seedArgs(args []string) {
	g[100] = Int(int64(len(args)))
	for i, s := range args {
		g[101+i] = Parse(s)
	}
}
`

// inlineValue returns the declarations of the value package without its
// package clause and imports, plus the import paths they need.
func inlineValue() (decls string, imports []string, err error) {
	fset := token.NewFileSet()
	f, err := goparser.ParseFile(fset, "value.go", value.Source, goparser.ParseComments)
	if err != nil {
		return "", nil, err
	}

	for _, imp := range f.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			return "", nil, err
		}
		imports = append(imports, path)
	}

	var b strings.Builder
	for _, d := range f.Decls {
		start := d.Pos()
		switch d := d.(type) {
		case *ast.GenDecl:
			if d.Tok == token.IMPORT {
				continue
			}
			if d.Doc != nil {
				start = d.Doc.Pos()
			}
		case *ast.FuncDecl:
			if d.Doc != nil {
				start = d.Doc.Pos()
			}
		}

		b.WriteString(value.Source[fset.Position(start).Offset:fset.Position(d.End()).Offset])
		b.WriteString("\n\n")
	}

	return b.String(), imports, nil
}
