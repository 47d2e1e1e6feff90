package ir

import (
	"fmt"
	"strings"
)

// Printer renders a Program as the textual IR surface: the constant pool and
// globals first, then one blank-line-separated section per function, each
// block introduced by its label and its instructions indented two spaces.
type Printer struct {
	output strings.Builder
}

func NewPrinter() *Printer { return &Printer{} }

// Print returns program's textual form.
func Print(program *Program) string {
	p := NewPrinter()
	p.printProgram(program)
	return p.output.String()
}

func (p *Printer) line(format string, args ...interface{}) {
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printProgram(program *Program) {
	for i, s := range program.Constants {
		p.line("global_string @.str.%d '%s'", i, s)
	}
	for _, g := range program.Globals {
		if len(g.Dims) > 0 {
			dims := ""
			for _, d := range g.Dims {
				dims += fmt.Sprintf("_%d", d)
			}
			p.line("global_%s%s @%s", g.Type, dims, g.Name)
			continue
		}
		if g.Init != "" {
			p.line("global_%s @%s %s", g.Type, g.Name, g.Init)
		} else {
			p.line("global_%s @%s", g.Type, g.Name)
		}
	}

	for _, fn := range program.Functions {
		p.line("")
		p.printFunction(fn)
	}
}

func (p *Printer) printFunction(fn *Function) {
	p.line("define @%s", fn.Name)
	for _, blk := range fn.Blocks {
		p.printBlock(blk)
	}
}

func (p *Printer) printBlock(blk *BasicBlock) {
	if blk.Label != "" {
		p.line("%s:", blk.Label)
	}
	for _, inst := range blk.Instructions {
		if !inst.Active {
			continue
		}
		p.printInstruction(inst)
	}
}

func (p *Printer) printInstruction(inst *Instruction) {
	switch inst.Op {
	case "print_void", "return_void":
		p.line("  %s", inst.Op)
		return
	}
	if len(inst.Args) == 0 {
		p.line("  %s", inst.Op)
		return
	}
	args := strings.Join(inst.Args, ", ")
	p.line("  %s %s", inst.Op, args)
}
