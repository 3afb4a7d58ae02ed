package validate

import (
	"strings"

	"faustpilot/internal/faust"
)

// definition is one `name = expr;` or `name(params) = expr;` statement,
// found at top level or inside a with/letrec block.
type definition struct {
	name    faust.Token
	params  []string
	eqIndex int // token index of '='
	bodyLen int // tokens between '=' and the terminating ';'
}

// callSite is one identifier usage, with argument info when it is applied
// with parentheses.
type callSite struct {
	name      faust.Token
	args      int
	hasParens bool
}

// analysis is everything the rules need from one pass over the tokens.
type analysis struct {
	tokens  []faust.Token
	imports []string
	defs    []definition
	locals  map[string]bool // definition names, params, iteration vars
	calls   []callSite
	// unterminated is the first token of a trailing definition statement
	// that never saw its ';'.
	unterminated *faust.Token
	// missingSemis are name tokens of statements that lost their ';' and
	// ran into the next definition.
	missingSemis []faust.Token
}

// iterationPrims bind their first argument as a local identifier.
var iterationPrims = map[string]bool{"par": true, "seq": true, "sum": true, "prod": true}

// analyze segments the token stream into statements and records
// definitions, imports and call sites.
func analyze(tokens []faust.Token) *analysis {
	a := &analysis{
		tokens: tokens,
		locals: make(map[string]bool),
	}

	a.collectStatements()
	a.collectImports()
	a.collectCalls()
	return a
}

// collectStatements finds definitions. Statements begin at the start of the
// stream and after each ';', '{' or '}' so with-block members are seen too.
func (a *analysis) collectStatements() {
	starts := []int{0}
	for i, t := range a.tokens {
		if t.Kind == faust.KindSemicolon || t.Kind == faust.KindDelim && (t.Text == "{" || t.Text == "}") {
			starts = append(starts, i+1)
		}
	}

	lastStart := starts[len(starts)-1]

	for n := 0; n < len(starts); n++ {
		s := starts[n]
		def, ok := a.parseDefinition(s)
		if !ok {
			continue
		}
		// A definition head opening at the start of a later line inside
		// the body means this statement lost its ';'. Split there so the
		// absorbed definition is still recognized.
		if split := a.splitPoint(def); split > 0 {
			a.missingSemis = append(a.missingSemis, def.name)
			def.bodyLen = split - def.eqIndex - 1
			starts = append(starts, split)
			if s == lastStart {
				lastStart = split
			}
		}
		a.defs = append(a.defs, def)
		a.locals[def.name.Text] = true
		for _, p := range def.params {
			a.locals[p] = true
		}
	}

	// A trailing definition with no ';' is a statement that never ended.
	if def, ok := a.parseDefinition(lastStart); ok {
		end := def.eqIndex + 1 + def.bodyLen
		if end >= len(a.tokens) || a.tokens[end].Kind != faust.KindSemicolon {
			tok := def.name
			a.unterminated = &tok
		}
	}
}

// splitPoint scans a definition body for a bare identifier that starts a
// line at the statement's own depth and is itself followed by '='. That
// shape only occurs when the statement above is missing its ';'. Returns
// 0 when the body is a single statement.
func (a *analysis) splitPoint(def definition) int {
	depth := 0
	eqLine := a.tokens[def.eqIndex].Line
	for j := def.eqIndex + 1; j <= def.eqIndex+def.bodyLen && j < len(a.tokens); j++ {
		t := a.tokens[j]
		if t.Kind == faust.KindDelim {
			switch t.Text {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				depth--
			}
			continue
		}
		if depth != 0 || t.Col != 1 || t.Line <= eqLine {
			continue
		}
		if t.Kind != faust.KindIdent || t.IsWire() || t.IsQualified() {
			continue
		}
		if _, ok := a.parseDefinition(j); ok {
			return j
		}
	}
	return 0
}

// parseDefinition recognizes `name [(p1, p2)] = body` starting at token s.
func (a *analysis) parseDefinition(s int) (definition, bool) {
	if s >= len(a.tokens) || a.tokens[s].Kind != faust.KindIdent || a.tokens[s].IsWire() {
		return definition{}, false
	}

	i := s + 1
	var params []string
	if i < len(a.tokens) && a.tokens[i].Kind == faust.KindDelim && a.tokens[i].Text == "(" {
		close, names, ok := a.scanParams(i)
		if !ok {
			return definition{}, false
		}
		params = names
		i = close + 1
	}

	if i >= len(a.tokens) || a.tokens[i].Kind != faust.KindOperator || a.tokens[i].Text != "=" {
		return definition{}, false
	}

	// Body runs to the next ';' at the statement's depth. A closing brace
	// at depth 0 belongs to an enclosing with-block and ends the body too.
	bodyLen := 0
	depth := 0
scan:
	for j := i + 1; j < len(a.tokens); j++ {
		t := a.tokens[j]
		if t.Kind == faust.KindDelim {
			switch t.Text {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				if depth == 0 {
					break scan
				}
				depth--
			}
		}
		if t.Kind == faust.KindSemicolon && depth == 0 {
			break
		}
		bodyLen++
	}

	return definition{name: a.tokens[s], params: params, eqIndex: i, bodyLen: bodyLen}, true
}

// scanParams reads `(a, b)` at open and returns the close index and names.
// Anything other than plain identifiers between the parens means this is
// not a parameter list.
func (a *analysis) scanParams(open int) (int, []string, bool) {
	var names []string
	expectIdent := true
	for i := open + 1; i < len(a.tokens); i++ {
		t := a.tokens[i]
		switch {
		case t.Kind == faust.KindDelim && t.Text == ")":
			if expectIdent && len(names) > 0 {
				return 0, nil, false // trailing comma
			}
			return i, names, true
		case expectIdent && t.Kind == faust.KindIdent && !t.IsQualified() && !t.IsWire():
			names = append(names, t.Text)
			expectIdent = false
		case !expectIdent && t.Kind == faust.KindOperator && t.Text == ",":
			expectIdent = true
		default:
			return 0, nil, false
		}
	}
	return 0, nil, false
}

// collectImports records import("...") targets.
func (a *analysis) collectImports() {
	for i := 0; i+3 < len(a.tokens); i++ {
		if a.tokens[i].Kind == faust.KindIdent && a.tokens[i].Text == "import" &&
			a.tokens[i+1].Text == "(" &&
			a.tokens[i+2].Kind == faust.KindString &&
			a.tokens[i+3].Text == ")" {
			a.imports = append(a.imports, strings.Trim(a.tokens[i+2].Text, `"`))
		}
	}
}

// importsLibrary reports whether the given library file is imported.
func (a *analysis) importsLibrary(lib string) bool {
	for _, imp := range a.imports {
		if imp == lib {
			return true
		}
	}
	return false
}

// importsStdfaust reports whether the stdlib umbrella import is present.
func (a *analysis) importsStdfaust() bool {
	return a.importsLibrary("stdfaust.lib")
}

// collectCalls records every identifier usage outside definition heads and
// import statements, with argument counts for paren applications.
func (a *analysis) collectCalls() {
	defHead := make(map[int]bool)
	for _, d := range a.defs {
		// Skip the defined name and its parameter list tokens.
		nameIdx := a.indexOf(d.name)
		for i := nameIdx; i >= 0 && i < d.eqIndex; i++ {
			defHead[i] = true
		}
	}

	for i := 0; i < len(a.tokens); i++ {
		t := a.tokens[i]
		if t.Kind != faust.KindIdent || t.IsWire() || defHead[i] || t.Text == "import" {
			continue
		}

		if i+1 < len(a.tokens) && a.tokens[i+1].Kind == faust.KindDelim && a.tokens[i+1].Text == "(" {
			args, firstArg, close := a.countArgs(i + 1)
			if close < 0 {
				// Unbalanced; the delimiter rule reports it.
				a.calls = append(a.calls, callSite{name: t})
				continue
			}
			if iterationPrims[t.Text] && firstArg != "" {
				a.locals[firstArg] = true
			}
			a.calls = append(a.calls, callSite{name: t, args: args, hasParens: true})
			continue
		}

		a.calls = append(a.calls, callSite{name: t})
	}
}

// countArgs counts top-level comma-separated arguments of the paren group
// opening at index open. firstArg is the text of the first argument when it
// is a single bare identifier.
func (a *analysis) countArgs(open int) (args int, firstArg string, close int) {
	depth := 0
	commas := 0
	total := 0 // tokens inside the group
	firstTok := -1
	firstLen := 0 // tokens in the first argument
	for i := open; i < len(a.tokens); i++ {
		t := a.tokens[i]
		if t.Kind == faust.KindDelim {
			switch t.Text {
			case "(", "[", "{":
				depth++
				if depth > 1 {
					total++
				}
				continue
			case ")", "]", "}":
				depth--
				if depth == 0 {
					if total == 0 {
						return 0, "", i
					}
					if firstLen == 1 && firstTok >= 0 && a.tokens[firstTok].Kind == faust.KindIdent {
						firstArg = a.tokens[firstTok].Text
					}
					return commas + 1, firstArg, i
				}
				total++
				continue
			}
		}
		total++
		if depth == 1 && t.Kind == faust.KindOperator && t.Text == "," {
			commas++
			continue
		}
		if depth == 1 && commas == 0 {
			if firstTok < 0 {
				firstTok = i
			}
			firstLen++
		}
	}
	return 0, "", -1
}

func (a *analysis) indexOf(tok faust.Token) int {
	for i, t := range a.tokens {
		if t.Line == tok.Line && t.Col == tok.Col && t.Text == tok.Text {
			return i
		}
	}
	return -1
}
