package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// CheckDPLexer tokenizes the C-subset dialect accepted by the preprocessor
// and transformer: a single function body that opens with up to three
// plain string-literal annotation statements (spec.md §4.1 — the distance,
// precondition, and goal annotations, following the original
// implementation's convention of leading C string-constant statements
// rather than comments), followed by declarations, assignments, if/while,
// and the Lap/OUTPUT/ASSERT/ASSUME intrinsics.
var CheckDPLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"String", `"[^"]*"`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Float", `[0-9]+\.[0-9]+`, nil},
		{"Integer", `0x[0-9a-fA-F]+|[0-9]+`, nil},
		{"Operator", `(\|\||&&|==|!=|<=|>=|\+=|-=|\*=|/=|=|[-+*/%<>!?:])`, nil},
		{"Punctuation", `[{}\[\](),;]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
