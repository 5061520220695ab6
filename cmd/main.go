package main

import (
	"flag"
	"fmt"
	"os"
	"sui/internal/compiler"
	"sui/internal/config"
	"sui/internal/logger"
	"sui/pkg/color"

	"github.com/charmbracelet/log"
)

// Main entry point for the sui toolchain.
func main() {
	options := compiler.Compiler{}

	flag.BoolVar(&options.Help, "h", false, "Show help")
	flag.BoolVar(&options.Verbose, "v", false, "Verbose mode")
	flag.BoolVar(&options.ShouldInterpret, "r", false, "Run with interpreter (default when no target is given)")
	flag.BoolVar(&options.ShouldValidate, "validate", false, "Only validate the source")
	flag.StringVar(&options.Target, "t", "", "Code generation target (go, wat)")
	flag.StringVar(&options.OutputFile, "o", "", "Output file for generated code, stdout when empty")
	flag.BoolVar(&options.ShouldExecute, "x", false, "Run the generated wat module on the bundled host")
	flag.BoolVar(&options.Interactive, "i", false, "Start an interactive session")
	flag.BoolVar(&options.NoColor, "n", false, "No color")
	flag.StringVar(&options.ConfigFile, "config", "", "YAML configuration file")

	flag.Parse()
	args := flag.Args()

	cfg, err := config.Load(options.ConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.Error(err.Error()))
		os.Exit(1)
	}
	options.Config = cfg

	level := cfg.LogLevel
	if options.Verbose {
		level = "debug"
	}
	noColor := options.NoColor || !cfg.Color
	logger.Init(level, noColor)
	if noColor {
		color.EnableColor(false)
	}

	if options.Help {
		fmt.Printf("Usage: %s [options] <file> [args...]\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
		return
	}

	if !options.Interactive {
		if len(args) == 0 {
			log.Fatal("No input file provided", "help", fmt.Sprintf("%s -h", os.Args[0]))
		}
		options.SourceFile = args[0]
		options.Args = args[1:]
	}

	if err := options.Compile(); err != nil {
		log.Fatal("Compilation failed", "error", err)
	}
}
