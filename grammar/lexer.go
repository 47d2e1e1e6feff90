// Package grammar defines the participle grammar for uC source and the
// stateful lexer feeding it.
package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var UCLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"BlockComment", `/\*([^*]|\*[^/])*\*/`, nil},

		{"Float", `[0-9]+\.[0-9]+`, nil},
		{"Integer", `0x[0-9a-fA-F]+|[0-9]+`, nil},
		{"Char", `'(\\.|[^'\\])'`, nil},
		{"String", `"(\\.|[^"\\])*"`, nil},

		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},

		{"Operator", `\+\+|--|&&|\|\||==|!=|<=|>=|\+=|-=|\*=|/=|%=|[-+*/%=<>!&]`, nil},
		{"Punctuation", `[{}\[\]();,]`, nil},

		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
