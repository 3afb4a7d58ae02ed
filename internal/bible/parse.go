package bible

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"

	"faustpilot/internal/logging"
)

// Heading form used throughout faustlibraries docs: `(os.)osc`.
var entryHeading = regexp.MustCompile(`^\(([A-Za-z][A-Za-z0-9]*)\.\)([A-Za-z_][A-Za-z0-9_]*)$`)

// ParseLibrary parses one markdown documentation file into entries.
// library is the source file the docs describe, e.g. "oscillators.lib".
//
// Parsing is tolerant: a malformed section is skipped and reported in the
// returned warnings, never as an error, so one bad page cannot sink a whole
// bible build.
func ParseLibrary(library string, src []byte) ([]Entry, []string) {
	log := logging.For(logging.CategoryBible)

	md := goldmark.New()
	doc := md.Parser().Parse(gtext.NewReader(src))

	var (
		entries  []Entry
		warnings []string
		current  *Entry
		section  string // lower-cased level-4 heading under the current entry
	)

	finalize := func() {
		if current == nil {
			return
		}
		if current.Signature == "" {
			warnings = append(warnings, fmt.Sprintf("%s: %s has no usage signature", library, current.Qualified()))
			current = nil
			return
		}
		finishEntry(current)
		entries = append(entries, *current)
		current = nil
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch v := n.(type) {
		case *ast.Heading:
			txt := strings.TrimSpace(nodeText(v, src))
			switch {
			case v.Level <= 3:
				finalize()
				section = ""
				if m := entryHeading.FindStringSubmatch(txt); m != nil {
					current = &Entry{Prefix: m[1], Name: m[2], Library: library}
				}
			case v.Level == 4 && current != nil:
				section = strings.ToLower(txt)
			}

		case *ast.FencedCodeBlock:
			if current != nil && strings.HasPrefix(section, "usage") && current.Signature == "" {
				current.Signature = firstLine(blockText(v, src))
			}

		case *ast.CodeBlock:
			if current != nil && strings.HasPrefix(section, "usage") && current.Signature == "" {
				current.Signature = firstLine(blockText(v, src))
			}

		case *ast.Paragraph:
			if current == nil {
				continue
			}
			txt := strings.TrimSpace(nodeText(v, src))
			switch {
			case section == "" && current.Description == "" && txt != "":
				current.Description = txt
			case strings.HasPrefix(section, "reference") && current.Reference == "":
				current.Reference = firstLink(v, src)
			}

		case *ast.List:
			if current != nil && strings.HasPrefix(section, "usage") {
				current.Params = mergeParamDocs(current.Params, parseParamBullets(v, src))
			}
		}
	}
	finalize()

	log.Debugw("parsed library docs", "library", library, "entries", len(entries), "warnings", len(warnings))
	return entries, warnings
}

// Build walks a documentation directory (one .md per library, faustlibraries
// layout) and assembles the bible.
func Build(dir string) (*Bible, []string, error) {
	b := New()
	var warnings []string

	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".md") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk docs dir: %w", err)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no markdown files under %s", dir)
	}
	sort.Strings(files)

	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
		library := strings.TrimSuffix(filepath.Base(path), ".md") + ".lib"
		entries, warns := ParseLibrary(library, src)
		warnings = append(warnings, warns...)
		for _, e := range entries {
			if err := b.Add(e); err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: %v", path, err))
			}
		}
	}

	logging.For(logging.CategoryBible).Infow("bible built",
		"files", len(files), "entries", b.Len(), "warnings", len(warnings))
	return b, warnings, nil
}

// finishEntry derives params and signal IO from the usage signature.
func finishEntry(e *Entry) {
	names := signatureParams(e.Signature, e.Name)
	if len(names) > 0 {
		// Signature is authoritative for the parameter list; bullet docs
		// only contribute descriptions.
		docs := make(map[string]string, len(e.Params))
		for _, p := range e.Params {
			docs[p.Name] = p.Doc
		}
		e.Params = make([]Param, 0, len(names))
		for _, n := range names {
			e.Params = append(e.Params, Param{Name: n, Doc: docs[n]})
		}
	}

	in, out, known := inferIO(e.Signature, e.Name)
	e.Inputs, e.Outputs = in, out
	e.IOUnknown = !known
}

// signatureParams extracts parameter names from "name(a, b) : _".
func signatureParams(sig, name string) []string {
	idx := nameIndex(sig, name)
	if idx < 0 {
		return nil
	}
	rest := sig[idx+len(name):]
	if !strings.HasPrefix(rest, "(") {
		return nil
	}
	depth := 0
	end := -1
	for i, r := range rest {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return nil
	}
	inner := rest[1:end]
	if strings.TrimSpace(inner) == "" {
		return nil
	}
	parts := splitTopLevel(inner, ',')
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		names = append(names, strings.TrimSpace(p))
	}
	return names
}

// inferIO counts `_` placeholders on either side of the function position in
// the usage line: "_ : lowpass(ct, fs) : _" has 1 input and 1 output. A
// usage with no composition context yields the conservative default (0 in,
// 1 out) and known=false.
func inferIO(sig, name string) (inputs, outputs int, known bool) {
	segments := splitTopLevel(sig, ':')
	if len(segments) < 2 {
		return 0, 1, false
	}

	nameSeg := -1
	for i, seg := range segments {
		if nameIndex(seg, name) >= 0 {
			nameSeg = i
			break
		}
	}
	if nameSeg < 0 {
		return 0, 1, false
	}

	for i, seg := range segments {
		wires := strings.Count(seg, "_")
		switch {
		case i < nameSeg:
			inputs += wires
		case i > nameSeg:
			outputs += wires
		}
	}
	return inputs, outputs, true
}

// nameIndex finds name in s as a whole identifier (not a substring of a
// longer one), allowing an optional "xx." prefix before it.
func nameIndex(s, name string) int {
	for start := 0; ; {
		i := strings.Index(s[start:], name)
		if i < 0 {
			return -1
		}
		i += start
		before := byte(0)
		if i > 0 {
			before = s[i-1]
		}
		after := byte(0)
		if i+len(name) < len(s) {
			after = s[i+len(name)]
		}
		if !isIdentByte(before) && !isIdentByte(after) {
			return i
		}
		start = i + len(name)
		if start >= len(s) {
			return -1
		}
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// splitTopLevel splits on sep outside any parentheses or brackets.
func splitTopLevel(s string, sep rune) []string {
	var (
		parts []string
		depth int
		cur   strings.Builder
	)
	for _, r := range s {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		}
		if r == sep && depth == 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	parts = append(parts, cur.String())
	return parts
}

// parseParamBullets reads "`freq`: the oscillator frequency" list items.
func parseParamBullets(list *ast.List, src []byte) []Param {
	var params []Param
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		txt := strings.TrimSpace(nodeText(item, src))
		name, doc, found := strings.Cut(txt, ":")
		if !found {
			continue
		}
		name = strings.Trim(strings.TrimSpace(name), "`")
		if name == "" || strings.ContainsAny(name, " \t") {
			continue
		}
		params = append(params, Param{Name: name, Doc: strings.TrimSpace(doc)})
	}
	return params
}

// mergeParamDocs keeps earlier bullets but lets later ones fill gaps.
func mergeParamDocs(existing, extra []Param) []Param {
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[p.Name] = true
	}
	for _, p := range extra {
		if !seen[p.Name] {
			existing = append(existing, p)
			seen[p.Name] = true
		}
	}
	return existing
}

// nodeText collects the plain text under a node, including code spans.
func nodeText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := c.(*ast.Text); ok {
				sb.Write(t.Segment.Value(src))
			}
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

// blockText joins the raw lines of a code block.
func blockText(n ast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return sb.String()
}

// firstLink returns the destination of the first link under n.
func firstLink(n ast.Node, src []byte) string {
	var url string
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || url != "" {
			return ast.WalkContinue, nil
		}
		switch l := c.(type) {
		case *ast.Link:
			url = string(l.Destination)
			return ast.WalkStop, nil
		case *ast.AutoLink:
			url = string(l.URL(src))
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return url
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
