// Package golang translates programs into a standalone Go main package.
package golang

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"slices"

	"sui/pkg/codegen"
	"sui/pkg/parser"

	"github.com/charmbracelet/log"
)

type goGen struct {
	prog   *parser.Program // program being translated
	output string          // output file name

	header  bytes.Buffer // package clause and imports
	runtime bytes.Buffer // inlined value semantics and support functions
	text    bytes.Buffer // translated functions, run and main

	code string // formatted result of Generate
}

// New creates a Go source generator for prog
func New(prog *parser.Program, output string) codegen.Backend {
	return &goGen{prog: prog, output: output}
}

// Generate translates the whole program and formats it
func (g *goGen) Generate() error {
	g.header.Reset()
	g.runtime.Reset()
	g.text.Reset()

	decls, imports, err := inlineValue()
	if err != nil {
		return fmt.Errorf("inline value semantics: %w", err)
	}

	imports = append(imports, supportImports...)
	slices.Sort(imports)
	imports = slices.Compact(imports)

	g.header.WriteString("// Code generated by sui; DO NOT EDIT.\n\npackage main\n\nimport (\n")
	for _, imp := range imports {
		fmt.Fprintf(&g.header, "\t%q\n", imp)
	}
	g.header.WriteString(")\n")

	g.runtime.WriteString(decls)
	g.runtime.WriteString(support)

	for _, id := range g.prog.FunctionIDs() {
		fn := g.prog.Functions[id]
		if err := g.emitFunction(fmt.Sprintf("f%d", id), "a ...Value", fn.Arity, fn.Body); err != nil {
			return fmt.Errorf("function %d: %w", id, err)
		}
	}
	if err := g.emitFunction("run", "", 0, g.prog.Main); err != nil {
		return fmt.Errorf("main: %w", err)
	}
	g.addText("func main() {")
	g.addText("\tseedArgs(os.Args[1:])")
	g.addText("\trun()")
	g.addText("}")

	var src bytes.Buffer
	src.Write(g.header.Bytes())
	src.WriteString("\n")
	src.Write(g.runtime.Bytes())
	src.WriteString("\n")
	src.Write(g.text.Bytes())

	formatted, err := format.Source(src.Bytes())
	if err != nil {
		return fmt.Errorf("format generated source: %w", err)
	}
	g.code = string(formatted)

	log.Debug("generated go source", "functions", len(g.prog.Functions), "bytes", len(g.code))
	return nil
}

// GetCode returns the generated Go source
func (g *goGen) GetCode() string {
	return g.code
}

// Build writes the generated source to the output file
func (g *goGen) Build() error {
	if g.output == "" {
		return fmt.Errorf("no output file given")
	}
	if err := os.WriteFile(g.output, []byte(g.code), 0644); err != nil {
		return fmt.Errorf("failed to write go source: %w", err)
	}
	return nil
}

// addText adds a line to the text section
func (g *goGen) addText(line string) {
	g.text.WriteString(line + "\n")
}
