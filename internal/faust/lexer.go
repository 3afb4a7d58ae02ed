package faust

import (
	"strings"
	"unicode"
)

// multi-character operators, longest first so the scanner is greedy.
var multiOps = []string{"<:", ":>", "<=", ">=", "==", "!=", "^", "&", "|"}

// Lex tokenizes FAUST source. It never fails: lexical problems surface as
// KindIllegal tokens carrying a message in Text, positioned where the
// problem starts.
func Lex(src string) []Token {
	l := &lexer{src: src, line: 1, col: 1}
	return l.run()
}

type lexer struct {
	src    string
	pos    int
	line   int
	col    int
	tokens []Token
}

func (l *lexer) run() []Token {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance(1)

		case c == '/' && l.peek(1) == '/':
			l.skipLineComment()

		case c == '/' && l.peek(1) == '*':
			l.skipBlockComment()

		case c == '"':
			l.lexString()

		case isDigit(c) || c == '.' && isDigit(l.peek(1)):
			l.lexNumber()

		case isIdentStart(c):
			l.lexIdent()

		case c == ';':
			l.emit(KindSemicolon, ";")
			l.advance(1)

		case strings.IndexByte("()[]{}", c) >= 0:
			l.emit(KindDelim, string(c))
			l.advance(1)

		default:
			l.lexOperator()
		}
	}
	return l.tokens
}

func (l *lexer) lexIdent() {
	start := l.pos
	line, col := l.line, l.col
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.advance(1)
	}
	// Qualified name: ident '.' ident, as in os.osc. A trailing dot is not
	// consumed so "osc." lexes as ident + operator.
	for l.pos < len(l.src) && l.src[l.pos] == '.' && l.pos+1 < len(l.src) && isIdentStart(l.src[l.pos+1]) {
		l.advance(1) // dot
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.advance(1)
		}
	}
	l.tokens = append(l.tokens, Token{Kind: KindIdent, Text: l.src[start:l.pos], Line: line, Col: col})
}

func (l *lexer) lexNumber() {
	start := l.pos
	line, col := l.line, l.col
	seenDot := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if isDigit(c) {
			l.advance(1)
			continue
		}
		if c == '.' && !seenDot && isDigit(l.peek(1)) {
			seenDot = true
			l.advance(1)
			continue
		}
		if (c == 'e' || c == 'E') && l.pos > start {
			next := l.peek(1)
			if isDigit(next) || (next == '+' || next == '-') && isDigit(l.peek(2)) {
				l.advance(2)
				continue
			}
		}
		break
	}
	l.tokens = append(l.tokens, Token{Kind: KindNumber, Text: l.src[start:l.pos], Line: line, Col: col})
}

func (l *lexer) lexString() {
	start := l.pos
	line, col := l.line, l.col
	l.advance(1) // opening quote
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\\' && l.pos+1 < len(l.src) {
			l.advance(2)
			continue
		}
		if c == '"' {
			l.advance(1)
			l.tokens = append(l.tokens, Token{Kind: KindString, Text: l.src[start:l.pos], Line: line, Col: col})
			return
		}
		if c == '\n' {
			break
		}
		l.advance(1)
	}
	l.tokens = append(l.tokens, Token{Kind: KindIllegal, Text: "unterminated string literal", Line: line, Col: col})
}

func (l *lexer) skipLineComment() {
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.advance(1)
	}
}

// skipBlockComment consumes /* ... */. FAUST block comments do not nest.
func (l *lexer) skipBlockComment() {
	line, col := l.line, l.col
	l.advance(2)
	for l.pos < len(l.src) {
		if l.src[l.pos] == '*' && l.peek(1) == '/' {
			l.advance(2)
			return
		}
		l.advance(1)
	}
	l.tokens = append(l.tokens, Token{Kind: KindIllegal, Text: "unterminated block comment", Line: line, Col: col})
}

func (l *lexer) lexOperator() {
	line, col := l.line, l.col
	for _, op := range multiOps {
		if strings.HasPrefix(l.src[l.pos:], op) {
			l.tokens = append(l.tokens, Token{Kind: KindOperator, Text: op, Line: line, Col: col})
			l.advance(len(op))
			return
		}
	}

	c := rune(l.src[l.pos])
	if strings.ContainsRune(":~,=+-*/%<>!@'.", c) {
		l.tokens = append(l.tokens, Token{Kind: KindOperator, Text: string(c), Line: line, Col: col})
		l.advance(1)
		return
	}

	if unicode.IsPrint(c) {
		l.tokens = append(l.tokens, Token{Kind: KindIllegal, Text: "unexpected character " + string(c), Line: line, Col: col})
	} else {
		l.tokens = append(l.tokens, Token{Kind: KindIllegal, Text: "unexpected byte", Line: line, Col: col})
	}
	l.advance(1)
}

func (l *lexer) emit(kind Kind, text string) {
	l.tokens = append(l.tokens, Token{Kind: kind, Text: text, Line: l.line, Col: l.col})
}

func (l *lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.src); i++ {
		if l.src[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

func (l *lexer) peek(n int) byte {
	if l.pos+n >= len(l.src) {
		return 0
	}
	return l.src[l.pos+n]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
