package compiler

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"sui/internal/config"
	"sui/internal/repl"
	"sui/pkg/codegen"
	"sui/pkg/codegen/golang"
	"sui/pkg/codegen/wat"
	"sui/pkg/codegen/wat/host"
	"sui/pkg/color"
	"sui/pkg/ffi"
	"sui/pkg/interpreter"
	"sui/pkg/parser"

	"github.com/charmbracelet/log"
)

var ErrValidation = errors.New("validation failed")

type Compiler struct {
	Help            bool     // Show help message
	Verbose         bool     // Enable verbose output
	ShouldInterpret bool     // Whether to interpret the code
	ShouldValidate  bool     // Whether to only validate the code
	ShouldExecute   bool     // Whether to run the generated wat module on the bundled host
	Interactive     bool     // Start the interactive session
	NoColor         bool     // Disable colored output
	Target          string   // Code generation target ("go" or "wat"), empty for none
	SourceFile      string   // Path to the source file
	OutputFile      string   // Path to the output file, stdout when empty
	ConfigFile      string   // Path to the YAML configuration
	Args            []string // Arguments passed to the program

	Config *config.Config // Settings, Default() when nil
	Stdout io.Writer      // Program output, os.Stdout when nil
}

func (opts *Compiler) setup() {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
}

// newInterpreter builds an interpreter from the configured limits and capabilities.
func (opts *Compiler) newInterpreter() *interpreter.Interpreter {
	iopts := []interpreter.Option{
		interpreter.WithWriter(opts.Stdout),
		interpreter.WithMaxSteps(opts.Config.MaxSteps),
	}
	if opts.Config.Foreign {
		iopts = append(iopts, interpreter.WithForeign(ffi.Default()))
	}
	return interpreter.NewInterpreter(iopts...)
}

// Compile processes the source file and validates, runs or translates it
// based on the options set.
func (opts *Compiler) Compile() error {
	opts.setup()

	if opts.Interactive {
		return repl.New(opts.newInterpreter(), opts.Stdout, opts.Config.HistoryFile).Run()
	}

	log.Info("Processing file", "file", opts.SourceFile)

	input, err := os.ReadFile(opts.SourceFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", opts.SourceFile, err)
	}
	source := string(input)

	if opts.ShouldValidate {
		return opts.validate(source)
	}

	prog, err := parser.Load(source)
	if err != nil {
		var lerr *parser.LoadError
		if errors.As(err, &lerr) {
			fmt.Fprintln(os.Stderr, lerr.Pretty())
		}
		return fmt.Errorf("load failed: %w", err)
	}

	if opts.Verbose {
		opts.dump(prog)
	}

	if opts.Target != "" {
		if err := opts.generate(prog); err != nil {
			return err
		}
	} else if opts.ShouldExecute {
		return fmt.Errorf("-x needs a wat target")
	}

	if opts.ShouldInterpret || (opts.Target == "" && !opts.ShouldExecute) {
		it := opts.newInterpreter()
		it.SeedArgs(opts.Args)
		res, err := it.Execute(prog)
		if err != nil {
			return fmt.Errorf("interpretation failed: %w", err)
		}
		log.Debug("program finished", "return", res.Return, "steps", it.Steps())
	}

	return nil
}

func (opts *Compiler) validate(source string) error {
	errs := parser.Validate(source)
	if len(errs) == 0 {
		fmt.Fprintln(opts.Stdout, color.GreenText("Validation successful"))
		return nil
	}

	fmt.Fprintln(opts.Stdout, color.BrightRedText("=== Validation Errors ==="))
	for _, e := range errs {
		fmt.Fprintln(opts.Stdout, e.Pretty())
	}
	return fmt.Errorf("%w with %d errors", ErrValidation, len(errs))
}

func (opts *Compiler) generate(prog *parser.Program) error {
	var backend codegen.Backend
	switch opts.Target {
	case "go":
		backend = golang.New(prog, opts.OutputFile)
	case "wat":
		backend = wat.New(prog, opts.OutputFile, wat.WithMemoryPages(opts.Config.MemoryPages))
	default:
		return fmt.Errorf("unknown target %q (want go or wat)", opts.Target)
	}
	if opts.ShouldExecute && opts.Target != "wat" {
		return fmt.Errorf("-x needs a wat target, got %s", opts.Target)
	}

	if err := backend.Generate(); err != nil {
		return fmt.Errorf("%s generation failed: %w", opts.Target, err)
	}

	if opts.OutputFile == "" {
		fmt.Fprint(opts.Stdout, backend.GetCode())
	} else {
		if opts.Verbose {
			fmt.Fprintln(opts.Stdout, color.GreenText("\n=== Generated "+opts.Target+" ==="))
			fmt.Fprint(opts.Stdout, backend.GetCode())
		}
		if err := backend.Build(); err != nil {
			return fmt.Errorf("%s build failed: %w", opts.Target, err)
		}
		log.Info("Wrote output", "file", opts.OutputFile)
	}

	if opts.ShouldExecute {
		m, err := host.Load(backend.GetCode(), host.WithWriter(opts.Stdout), host.WithMaxSteps(opts.Config.MaxSteps))
		if err != nil {
			return fmt.Errorf("host load failed: %w", err)
		}
		m.SeedArgs(opts.Args)
		res, err := m.Run()
		if err != nil {
			return fmt.Errorf("host run failed: %w", err)
		}
		log.Debug("module finished", "return", res.Return, "steps", m.Steps())
	}
	return nil
}

// dump prints the decoded instructions of every block.
func (opts *Compiler) dump(prog *parser.Program) {
	fmt.Fprintln(opts.Stdout, color.GreenText("=== Token Lines ==="))

	for _, id := range prog.FunctionIDs() {
		fn := prog.Functions[id]
		fmt.Fprintln(opts.Stdout, color.BoldText(fmt.Sprintf("function %d (arity %d)", id, fn.Arity)))
		for _, line := range fn.Body {
			opts.dumpInstruction(parser.Decode(line))
		}
	}

	fmt.Fprintln(opts.Stdout, color.BoldText("main"))
	for _, line := range prog.Main {
		opts.dumpInstruction(parser.Decode(line))
	}
	fmt.Fprintln(opts.Stdout)
}

func (opts *Compiler) dumpInstruction(in parser.Instruction) {
	args := make([]string, len(in.Args))
	for i, a := range in.Args {
		args[i] = color.BlueText(a.Text)
	}
	fmt.Fprintf(opts.Stdout, "%s: (%s, %s)\n",
		color.CyanText(fmt.Sprintf("%d", in.Line.Num)),
		color.YellowText(string(in.Op)),
		strings.Join(args, ", "))
}
