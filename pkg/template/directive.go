package template

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/Chahine-tech/sqltwoway/pkg/sqlerr"
	"github.com/Chahine-tech/sqltwoway/pkg/value"
)

type directiveKind int

const (
	dirNone directiveKind = iota
	dirIf
	dirElseif
	dirElse
	dirEnd
)

var (
	reDirIf     = regexp.MustCompile(`(?i)^\s*--\s*%IF\s+(.+?)\s*$`)
	reDirElseif = regexp.MustCompile(`(?i)^\s*--\s*%ELSEIF\s+(.+?)\s*$`)
	reDirElse   = regexp.MustCompile(`(?i)^\s*--\s*%ELSE\s*$`)
	reDirEnd    = regexp.MustCompile(`(?i)^\s*--\s*%END\s*$`)
)

func classifyDirective(content string) (directiveKind, string) {
	if m := reDirIf.FindStringSubmatch(content); m != nil {
		return dirIf, m[1]
	}
	if m := reDirElseif.FindStringSubmatch(content); m != nil {
		return dirElseif, m[1]
	}
	if reDirElse.MatchString(content) {
		return dirElse, ""
	}
	if reDirEnd.MatchString(content) {
		return dirEnd, ""
	}
	return dirNone, ""
}

type ifBranch struct {
	cond   string
	isElse bool
	lines  []*Line
}

// resolveDirectives performs a single pass over logical lines, recursively
// resolving nested %IF/%END blocks inside whichever branch is selected and
// discarding everything else.
func resolveDirectives(lines []*Line, params map[string]value.Value) ([]*Line, error) {
	var out []*Line
	i := 0
	for i < len(lines) {
		ln := lines[i]
		if ln.Indent == -1 {
			out = append(out, ln)
			i++
			continue
		}
		kind, _ := classifyDirective(ln.Content)
		switch kind {
		case dirIf:
			branches, next, err := collectIfBlock(lines, i)
			if err != nil {
				return nil, err
			}
			selected, err := selectBranch(branches, params)
			if err != nil {
				return nil, err
			}
			if selected != nil {
				resolvedBranch, err := resolveDirectives(selected.lines, params)
				if err != nil {
					return nil, err
				}
				out = append(out, resolvedBranch...)
			}
			i = next
		case dirElseif:
			return nil, sqlerr.New(sqlerr.DirectiveMisuse, "%ELSEIF without matching %IF").WithLine(ln.Number)
		case dirElse:
			return nil, sqlerr.New(sqlerr.DirectiveMisuse, "%ELSE without matching %IF").WithLine(ln.Number)
		case dirEnd:
			return nil, sqlerr.New(sqlerr.DirectiveMisuse, "%END without matching %IF").WithLine(ln.Number)
		default:
			out = append(out, ln)
			i++
		}
	}
	return out, nil
}

// collectIfBlock gathers the branches of the %IF block starting at ifIdx,
// tracking nested %IF/%END pairs, and returns the index just past the
// matching %END.
func collectIfBlock(lines []*Line, ifIdx int) ([]ifBranch, int, error) {
	_, cond := classifyDirective(lines[ifIdx].Content)
	var branches []ifBranch
	curCond, curIsElse := cond, false
	segStart := ifIdx + 1
	depth := 0

	i := ifIdx + 1
	for i < len(lines) {
		ln := lines[i]
		if ln.Indent == -1 {
			i++
			continue
		}
		kind, c := classifyDirective(ln.Content)
		switch kind {
		case dirIf:
			depth++
		case dirEnd:
			if depth > 0 {
				depth--
			} else {
				branches = append(branches, ifBranch{cond: curCond, isElse: curIsElse, lines: lines[segStart:i]})
				return branches, i + 1, nil
			}
		case dirElseif:
			if depth == 0 {
				branches = append(branches, ifBranch{cond: curCond, isElse: curIsElse, lines: lines[segStart:i]})
				curCond, curIsElse = c, false
				segStart = i + 1
			}
		case dirElse:
			if depth == 0 {
				branches = append(branches, ifBranch{cond: curCond, isElse: curIsElse, lines: lines[segStart:i]})
				curCond, curIsElse = "", true
				segStart = i + 1
			}
		}
		i++
	}
	return nil, 0, sqlerr.New(sqlerr.DirectiveMisuse, "unclosed %IF").WithLine(lines[ifIdx].Number)
}

func selectBranch(branches []ifBranch, params map[string]value.Value) (*ifBranch, error) {
	for idx := range branches {
		b := &branches[idx]
		if b.isElse {
			return b, nil
		}
		ok, err := evalExpr(b.cond, params)
		if err != nil {
			return nil, err
		}
		if ok {
			return b, nil
		}
	}
	return nil, nil
}

// --- Shared boolean expression grammar, used by block directives and
// inline conditionals alike.
//
//	expr := or
//	or   := and ( 'OR' and )*
//	and  := not ( 'AND' not )*
//	not  := 'NOT' primary | primary
//	primary := identifier | '(' expr ')'

type exprParser struct {
	tokens []string
	pos    int
	params map[string]value.Value
}

func evalExpr(expr string, params map[string]value.Value) (bool, error) {
	toks := tokenizeExpr(expr)
	p := &exprParser{tokens: toks, params: params}
	v, err := p.parseOr()
	if err != nil {
		return false, err
	}
	if p.pos != len(p.tokens) {
		return false, sqlerr.New(sqlerr.DirectiveMisuse, fmt.Sprintf("unexpected trailing tokens in expression: %q", expr))
	}
	return v, nil
}

func tokenizeExpr(expr string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range expr {
		switch {
		case r == '(' || r == ')':
			flush()
			toks = append(toks, string(r))
		case unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

func (p *exprParser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

func (p *exprParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *exprParser) parseOr() (bool, error) {
	v, err := p.parseAnd()
	if err != nil {
		return false, err
	}
	for strings.EqualFold(p.peek(), "OR") {
		p.next()
		rhs, err := p.parseAnd()
		if err != nil {
			return false, err
		}
		v = v || rhs
	}
	return v, nil
}

func (p *exprParser) parseAnd() (bool, error) {
	v, err := p.parseNot()
	if err != nil {
		return false, err
	}
	for strings.EqualFold(p.peek(), "AND") {
		p.next()
		rhs, err := p.parseNot()
		if err != nil {
			return false, err
		}
		v = v && rhs
	}
	return v, nil
}

func (p *exprParser) parseNot() (bool, error) {
	if strings.EqualFold(p.peek(), "NOT") {
		p.next()
		v, err := p.parsePrimary()
		if err != nil {
			return false, err
		}
		return !v, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (bool, error) {
	t := p.peek()
	if t == "" {
		return false, sqlerr.New(sqlerr.DirectiveMisuse, "unexpected end of expression")
	}
	if t == "(" {
		p.next()
		v, err := p.parseOr()
		if err != nil {
			return false, err
		}
		if p.peek() != ")" {
			return false, sqlerr.New(sqlerr.DirectiveMisuse, "missing closing parenthesis in expression")
		}
		p.next()
		return v, nil
	}
	p.next()
	return !value.IsNegative(value.Lookup(p.params, t)), nil
}
