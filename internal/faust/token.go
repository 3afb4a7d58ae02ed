// Package faust tokenizes FAUST source for the pre-compile checker.
// This is a lexer only: it recognizes exactly enough structure (identifiers,
// literals, composition operators, delimiters) for the validator to scan
// definitions and call sites. It is not a parser and performs no signal-flow
// analysis.
package faust

import "fmt"

// Kind classifies a token.
type Kind int

const (
	KindIdent     Kind = iota // foo, os.osc, _
	KindNumber                // 440, 0.5, 1e-3
	KindString                // "stdfaust.lib"
	KindOperator              // : <: :> ~ , = + - * / etc.
	KindDelim                 // ( ) [ ] { }
	KindSemicolon             // ;
	KindIllegal               // unterminated string/comment, stray byte
)

func (k Kind) String() string {
	switch k {
	case KindIdent:
		return "ident"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindOperator:
		return "operator"
	case KindDelim:
		return "delim"
	case KindSemicolon:
		return "semicolon"
	case KindIllegal:
		return "illegal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Token is one lexeme with its source position (1-based).
type Token struct {
	Kind Kind
	Text string
	Line int
	Col  int
}

// IsWire reports whether the token is the identity wire `_`.
func (t Token) IsWire() bool { return t.Kind == KindIdent && t.Text == "_" }

// IsQualified reports whether the identifier carries a library prefix.
func (t Token) IsQualified() bool {
	if t.Kind != KindIdent {
		return false
	}
	for i := 0; i < len(t.Text); i++ {
		if t.Text[i] == '.' {
			return true
		}
	}
	return false
}

// Composition operators the validator must not mistake for call arguments.
var compositionOps = map[string]bool{
	":":  true, // sequential
	"<:": true, // split
	":>": true, // merge
	"~":  true, // recursive
	",":  true, // parallel
}

// IsComposition reports whether the token is a block-diagram composition
// operator.
func (t Token) IsComposition() bool {
	return t.Kind == KindOperator && compositionOps[t.Text]
}
