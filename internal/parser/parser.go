// Package parser builds uC source into the semantic AST (uc/internal/ast) by
// running it through participle's generated grammar parser and converting
// the resulting parse tree.
package parser

import (
	"fmt"
	"sync"

	"github.com/alecthomas/participle/v2"

	"uc/grammar"
)

var (
	once     sync.Once
	instance *participle.Parser[grammar.Program]
	buildErr error
)

func build() (*participle.Parser[grammar.Program], error) {
	once.Do(func() {
		instance, buildErr = participle.Build[grammar.Program](
			participle.Lexer(grammar.UCLexer),
			participle.Elide("Whitespace", "Comment", "BlockComment"),
			participle.UseLookahead(5),
		)
	})
	return instance, buildErr
}

// ParseError is a syntax error located in the source, distinct from the
// semantic diagnostics internal/errors reports.
type ParseError struct {
	Filename string
	Line     int
	Column   int
	Message  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Filename, e.Line, e.Column, e.Message)
}

// ParseSource parses source into participle's parse tree (grammar.Program);
// ToAST converts that tree into the semantic AST, which carries no semantic
// info until internal/semantic decorates it.
func ParseSource(filename, source string) (*grammar.Program, error) {
	p, err := build()
	if err != nil {
		return nil, err
	}

	tree, err := p.ParseString(filename, source)
	if err != nil {
		if pe, ok := err.(participle.Error); ok {
			pos := pe.Position()
			return nil, &ParseError{Filename: pos.Filename, Line: pos.Line, Column: pos.Column, Message: pe.Message()}
		}
		return nil, err
	}
	return tree, nil
}
