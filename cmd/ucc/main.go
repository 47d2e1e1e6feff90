// SPDX-License-Identifier: Apache-2.0

// Command ucc compiles a uC source file: parse, semantically analyze,
// lower to three-address IR, optionally optimize, and emit IR text and/or
// a per-function control-flow graph in DOT. Grounded on the teacher's
// root main.go (flag-free, color-status CLI) generalized to uC's extra
// compiler stages and a real flag set.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"

	"uc/internal/cfg"
	"uc/internal/config"
	"uc/internal/errors"
	"uc/internal/ir"
	"uc/internal/optimizer"
	"uc/internal/parser"
	"uc/internal/semantic"
)

var log = commonlog.GetLogger("ucc")

func main() {
	var (
		emitIR     = flag.Bool("emit-ir", false, "print the lowered (and optimized, if enabled) IR")
		optimize   = flag.Int("optimize", -1, "optimization level: 0 disables internal/optimizer, 1 runs it (default from ucc.yaml, else 1)")
		dotDir     = flag.String("dot", "", "write one <function>.dot control-flow graph per function into this directory")
		errorsJSON = flag.Bool("errors-json", false, "emit diagnostics as JSON instead of the default Rust-like text format")
		configPath = flag.String("config", "ucc.yaml", "path to the project configuration file")
		verbose    = flag.Bool("v", false, "enable debug-level logging of pass timing")
	)
	flag.Parse()

	if *verbose {
		commonlog.Configure(1, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: ucc [flags] <file.uc>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfgVal, err := config.Load(*configPath)
	if err != nil {
		color.Red("config error: %s", err)
		os.Exit(1)
	}
	if *errorsJSON {
		cfgVal.ErrorFormat = "json"
	}
	if *dotDir != "" {
		cfgVal.DOTDir = *dotDir
	}
	optimizeLevel := cfgVal.Optimize
	if *optimize >= 0 {
		optimizeLevel = *optimize
	}

	if err := run(path, cfgVal, optimizeLevel, *emitIR); err != nil {
		color.Red("%s", err)
		os.Exit(1)
	}
}

func run(path string, cfgVal config.Config, optimizeLevel int, emitIR bool) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	log.Infof("parsing %s", path)
	tree, err := parser.ParseSource(path, string(source))
	if err != nil {
		return reportParseError(path, string(source), err, cfgVal)
	}

	astProg := parser.ToAST(tree)

	log.Info("running semantic analysis")
	analyzer := semantic.NewAnalyzer()
	diags := analyzer.Analyze(astProg)
	if len(diags) > 0 {
		reportDiagnostics(path, string(source), diags, cfgVal)
		for _, d := range diags {
			if d.Level == errors.Error {
				return fmt.Errorf("compilation failed with %d error(s)", countErrors(diags))
			}
		}
	}

	log.Info("lowering to IR")
	program := ir.NewBuilder().Build(astProg, analyzer.Constants().Strings())

	if optimizeLevel > 0 {
		pipeline := optimizer.NewPipeline()
		results := pipeline.Run(program)
		for _, r := range results {
			if r.Changed {
				log.Debugf("%s: %s changed %s", r.Function, r.Pass, path)
			}
		}
	}

	if emitIR {
		fmt.Print(ir.Print(program))
	}

	if cfgVal.DOTDir != "" {
		if err := emitDOT(program, cfgVal.DOTDir); err != nil {
			return err
		}
	}

	color.Green("compiled %s", path)
	return nil
}

func emitDOT(program *ir.Program, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	for _, fn := range program.Functions {
		out := filepath.Join(dir, fn.Name+".dot")
		if err := os.WriteFile(out, []byte(cfg.Render(fn)), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		log.Debugf("wrote %s", out)
	}
	return nil
}

func countErrors(diags []errors.CompilerError) int {
	n := 0
	for _, d := range diags {
		if d.Level == errors.Error {
			n++
		}
	}
	return n
}

func reportDiagnostics(path, source string, diags []errors.CompilerError, cfgVal config.Config) {
	if cfgVal.ErrorFormat == "json" {
		for _, d := range diags {
			fmt.Printf("{\"level\":%q,\"code\":%q,\"message\":%q,\"line\":%d,\"column\":%d}\n",
				d.Level, d.Code, d.Message, d.Position.Line, d.Position.Column)
		}
		return
	}
	reporter := errors.NewErrorReporter(path, source)
	for _, d := range diags {
		fmt.Print(reporter.FormatError(d))
	}
}

func reportParseError(path, source string, err error, cfgVal config.Config) error {
	pe, ok := err.(*parser.ParseError)
	if !ok {
		return err
	}
	if cfgVal.ErrorFormat == "json" {
		fmt.Printf("{\"level\":\"error\",\"code\":\"E0100\",\"message\":%q,\"line\":%d,\"column\":%d}\n",
			pe.Message, pe.Line, pe.Column)
		return fmt.Errorf("syntax error")
	}

	lines := strings.Split(source, "\n")
	if pe.Line <= 0 || pe.Line > len(lines) {
		return pe
	}
	line := lines[pe.Line-1]
	caret := strings.Repeat(" ", max(pe.Column-1, 0)) + "^"
	color.Red("error[E0100]: %s", pe.Message)
	fmt.Printf("  --> %s:%d:%d\n", path, pe.Line, pe.Column)
	fmt.Println(line)
	color.HiRed(caret)
	return fmt.Errorf("syntax error")
}
