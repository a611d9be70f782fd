package template

import (
	"fmt"
	"strings"

	"github.com/Chahine-tech/sqltwoway/pkg/dialect"
	"github.com/Chahine-tech/sqltwoway/pkg/paramtoken"
	"github.com/Chahine-tech/sqltwoway/pkg/sqlerr"
	"github.com/Chahine-tech/sqltwoway/pkg/value"
)

// rebuildCtx accumulates bound parameters while rebuildSQL walks the
// surviving lines.
type rebuildCtx struct {
	style      dialect.PlaceholderStyle
	dlct       dialect.Dialect
	hasDialect bool
	positional []value.Value
	named      map[string]value.Value
}

func (c *rebuildCtx) effectiveDialect() dialect.Dialect {
	if c.hasDialect {
		return c.dlct
	}
	return dialect.Sqlite
}

func (c *rebuildCtx) bind(name string, v value.Value) string {
	if c.style == dialect.Named {
		c.named[name] = v
		return ":" + name
	}
	c.positional = append(c.positional, v)
	return c.style.String()
}

func (c *rebuildCtx) bindIndexed(name string, idx int, v value.Value) string {
	if c.style == dialect.Named {
		key := fmt.Sprintf("%s_%d", name, idx)
		c.named[key] = v
		return ":" + key
	}
	c.positional = append(c.positional, v)
	return c.style.String()
}

// rebuildSQL walks surviving lines in order, resolving inline conditionals
// and helper functions, rewriting parameter sites into placeholders, and
// accumulating the bound-parameter sequence.
func rebuildSQL(lines []*Line, params map[string]value.Value, style dialect.PlaceholderStyle, d *dialect.Dialect) (string, []value.Value, map[string]value.Value, error) {
	ctx := &rebuildCtx{style: style, named: map[string]value.Value{}}
	if d != nil {
		ctx.dlct = *d
		ctx.hasDialect = true
	}

	var outLines []string
	for _, ln := range lines {
		if ln.Removed {
			continue
		}
		if ln.Indent == -1 {
			// Blank lines pass through verbatim.
			outLines = append(outLines, ln.Original)
			continue
		}

		content, err := resolveInlineConditionals(ln.Content, params)
		if err != nil {
			return "", nil, nil, err
		}

		toks := paramtoken.Scan(content)
		if len(toks) == 0 {
			outLines = append(outLines, emitLine(ln.Indent, content))
			continue
		}

		rewritten, err := ctx.rewriteLine(content, toks, params, ln.Number)
		if err != nil {
			return "", nil, nil, err
		}
		outLines = append(outLines, emitLine(ln.Indent, rewritten))
	}

	return strings.Join(outLines, "\n"), ctx.positional, ctx.named, nil
}

// emitLine re-attaches a logical line's indent and trims trailing whitespace.
// Trimming happens here, at the logical-line boundary where quote state is
// balanced, so the interior of a literal joined across physical lines keeps
// its bytes untouched.
func emitLine(indent int, content string) string {
	return strings.TrimRight(strings.Repeat(" ", indent)+content, " \t")
}

func (c *rebuildCtx) rewriteLine(line string, toks []paramtoken.Token, params map[string]value.Value, lineNo int) (string, error) {
	for i := len(toks) - 1; i >= 0; i-- {
		start, end, repl, err := c.rewriteToken(line, toks[i], params, lineNo)
		if err != nil {
			return "", err
		}
		line = line[:start] + repl + line[end:]
	}
	return line, nil
}

func (c *rebuildCtx) rewriteToken(line string, tok paramtoken.Token, params map[string]value.Value, lineNo int) (int, int, string, error) {
	switch tok.Role {
	case paramtoken.Plain:
		if tok.Mods.Bindless {
			// Only the comment is deleted; any literal default stays in
			// place as plain SQL text.
			return tok.Start, tok.End, tok.Default, nil
		}
		v := value.Lookup(params, tok.Name)
		return tok.Start, tok.End, c.bind(tok.Name, v), nil

	case paramtoken.InClause:
		return c.rewriteInClause(line, tok, params, lineNo)

	case paramtoken.Operator:
		return tok.Start, tok.End, c.rewriteOperator(tok, params), nil

	case paramtoken.Like:
		// The rewrite re-emits the column expression itself, so the replaced
		// span starts at the column, not at the comment.
		start := tok.Start
		if tok.Column != "" {
			left := strings.TrimRight(line[:tok.Start], " \t")
			start = len(left) - len(tok.Column)
		}
		return start, tok.End, c.rewriteLike(tok, params), nil

	case paramtoken.PartialIn:
		return tok.Start, tok.End, c.rewritePartialIn(tok, params), nil

	case paramtoken.Helper:
		return tok.Start, tok.End, c.rewriteHelper(tok, params), nil

	case paramtoken.Fallback:
		for _, n := range tok.FallbackNames {
			v := value.Lookup(params, n)
			if !value.IsNegative(v) {
				return tok.Start, tok.End, c.bind(n, v), nil
			}
		}
		// All chained names negative: the removal pass already dropped the
		// line, so this is only reached for a blank replacement.
		return tok.Start, tok.End, "", nil

	default:
		return tok.Start, tok.End, "", nil
	}
}

func (c *rebuildCtx) rewriteInClause(line string, tok paramtoken.Token, params map[string]value.Value, lineNo int) (int, int, string, error) {
	v := value.Lookup(params, tok.Name)
	if v.Kind() != value.List {
		// scalar or null: single bound element.
		return tok.Start, tok.End, fmt.Sprintf("IN (%s)", c.bind(tok.Name, v)), nil
	}

	list := v.List()
	if len(list) == 0 {
		return tok.Start, tok.End, "IN (NULL)", nil
	}

	limit := 0
	if c.hasDialect {
		limit = c.dlct.InClauseLimit
	}
	if limit > dialect.Unlimited && len(list) > limit {
		colExpr, colStart, err := extractInClauseColumn(line, tok.Start, lineNo)
		if err != nil {
			return 0, 0, "", err
		}
		var parts []string
		idx := 0
		for i := 0; i < len(list); i += limit {
			end := i + limit
			if end > len(list) {
				end = len(list)
			}
			var phs []string
			for _, cv := range list[i:end] {
				phs = append(phs, c.bindIndexed(tok.Name, idx, cv))
				idx++
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", colExpr, strings.Join(phs, ", ")))
		}
		return colStart, tok.End, "(" + strings.Join(parts, " OR ") + ")", nil
	}

	var phs []string
	for i, cv := range list {
		phs = append(phs, c.bindIndexed(tok.Name, i, cv))
	}
	return tok.Start, tok.End, fmt.Sprintf("IN (%s)", strings.Join(phs, ", ")), nil
}

func (c *rebuildCtx) rewriteOperator(tok paramtoken.Token, params map[string]value.Value) string {
	v := value.Lookup(params, tok.Name)
	isNotEq := tok.Operator == "<>" || tok.Operator == "!="

	switch v.Kind() {
	case value.Null:
		if isNotEq {
			return "IS NOT NULL"
		}
		return "IS NULL"
	case value.List:
		list := v.List()
		switch {
		case len(list) == 0:
			if isNotEq {
				return "IS NOT NULL"
			}
			return "IS NULL"
		case len(list) == 1:
			op := "="
			if isNotEq {
				op = "<>"
			}
			return fmt.Sprintf("%s %s", op, c.bind(tok.Name, list[0]))
		default:
			var phs []string
			for i, cv := range list {
				phs = append(phs, c.bindIndexed(tok.Name, i, cv))
			}
			kw := "IN"
			if isNotEq {
				kw = "NOT IN"
			}
			return fmt.Sprintf("%s (%s)", kw, strings.Join(phs, ", "))
		}
	default:
		return fmt.Sprintf("%s %s", tok.Operator, c.bind(tok.Name, v))
	}
}

func (c *rebuildCtx) rewriteLike(tok paramtoken.Token, params map[string]value.Value) string {
	v := value.Lookup(params, tok.Name)
	kw := "LIKE"
	if tok.NotLike {
		kw = "NOT LIKE"
	}

	if v.Kind() == value.List {
		list := v.List()
		if len(list) == 0 {
			if tok.NotLike {
				return "1=1"
			}
			return "1=0"
		}
		var parts []string
		for _, cv := range list {
			parts = append(parts, fmt.Sprintf("%s %s %s", tok.Column, kw, c.bind(tok.Name, cv)))
		}
		joiner := " OR "
		if tok.NotLike {
			joiner = " AND "
		}
		return "(" + strings.Join(parts, joiner) + ")"
	}

	return fmt.Sprintf("%s %s %s", tok.Column, kw, c.bind(tok.Name, v))
}

func (c *rebuildCtx) rewritePartialIn(tok paramtoken.Token, params map[string]value.Value) string {
	v := value.Lookup(params, tok.Name)
	if v.Kind() == value.List {
		list := v.List()
		if len(list) == 0 {
			return "NULL"
		}
		var phs []string
		for i, cv := range list {
			phs = append(phs, c.bindIndexed(tok.Name, i, cv))
		}
		return strings.Join(phs, ", ")
	}
	return c.bind(tok.Name, v)
}

func (c *rebuildCtx) rewriteHelper(tok paramtoken.Token, params map[string]value.Value) string {
	switch tok.HelperName {
	case "concat", "C":
		s := concatArgs(tok.HelperArgs, params)
		return c.bind(helperBindName(tok.HelperArgs, "_concat"), value.TextValue(s))
	case "L":
		d := c.effectiveDialect()
		s := concatArgsWithLikeEscape(tok.HelperArgs, params, d)
		ph := c.bind(helperBindName(tok.HelperArgs, "_like_escape"), value.TextValue(s))
		return fmt.Sprintf("%s escape '%s'", ph, d.LikeEscapeChar)
	case "STR", "SQL":
		return strInterpolate(params, tok.Name, tok.Default)
	default:
		return ""
	}
}

func helperBindName(args []string, fallback string) string {
	for _, a := range args {
		if !isLiteral(a) {
			return a
		}
	}
	return fallback
}

func isLiteral(s string) bool {
	if len(s) < 2 {
		return false
	}
	return (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"')
}

func unquoteLiteral(s string) string {
	if len(s) < 2 {
		return s
	}
	q := s[0]
	inner := s[1 : len(s)-1]
	if q == '\'' {
		return strings.ReplaceAll(inner, "''", "'")
	}
	return strings.ReplaceAll(inner, `""`, `"`)
}

func concatArgs(args []string, params map[string]value.Value) string {
	var sb strings.Builder
	for _, a := range args {
		if isLiteral(a) {
			sb.WriteString(unquoteLiteral(a))
			continue
		}
		if v, ok := params[a]; ok {
			sb.WriteString(v.String())
		}
	}
	return sb.String()
}

func concatArgsWithLikeEscape(args []string, params map[string]value.Value, d dialect.Dialect) string {
	var sb strings.Builder
	for _, a := range args {
		if isLiteral(a) {
			sb.WriteString(unquoteLiteral(a))
			continue
		}
		if v, ok := params[a]; ok {
			sb.WriteString(likeEscape(v.String(), d))
		}
	}
	return sb.String()
}

func likeEscape(s string, d dialect.Dialect) string {
	var sb strings.Builder
	for _, r := range s {
		if strings.ContainsRune(d.LikeEscapeChars, r) {
			sb.WriteString(d.LikeEscapeChar)
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func strInterpolate(params map[string]value.Value, name, def string) string {
	if v, ok := params[name]; ok {
		return v.String()
	}
	if isLiteral(def) {
		return unquoteLiteral(def)
	}
	return def
}

// --- IN-clause chunking column extraction. The heuristic accepts identifier
// chains, quoted identifiers, and a single optional function call. Anything
// else (e.g. "id + 1") is deliberately an error, not a guess.

func extractInClauseColumn(line string, tokenStart int, lineNo int) (string, int, error) {
	prefix := strings.TrimRight(line[:tokenStart], " \t")
	if prefix == "" {
		return "", 0, sqlerr.New(sqlerr.UnresolvedColumn, "no column expression before IN").WithLine(lineNo).WithFragment(line, true)
	}
	end := len(prefix) - 1

	if prefix[end] == ')' {
		openIdx := findMatchingOpenParen(prefix, end)
		if openIdx < 0 {
			return "", 0, sqlerr.New(sqlerr.UnresolvedColumn, "unbalanced parenthesis before IN").WithLine(lineNo).WithFragment(line, true)
		}
		exprStart := openIdx
		if funcStart := parseIdentifierChain(prefix, openIdx-1); funcStart >= 0 {
			exprStart = funcStart
		}
		return strings.TrimSpace(prefix[exprStart : end+1]), exprStart, nil
	}

	identStart := parseIdentifierChain(prefix, end)
	if identStart < 0 {
		return "", 0, sqlerr.New(sqlerr.UnresolvedColumn, "could not parse identifier chain before IN").WithLine(lineNo).WithFragment(line, true)
	}
	return strings.TrimSpace(prefix[identStart : end+1]), identStart, nil
}

func parseIdentifierChain(s string, end int) int {
	i := end
	for i >= 0 && isSpaceByte(s[i]) {
		i--
	}
	if i < 0 {
		return -1
	}
	start := parseIdentifierSegment(s, i)
	if start < 0 {
		return -1
	}
	i = start - 1
	for i >= 0 {
		if isSpaceByte(s[i]) || s[i] != '.' {
			return start
		}
		i--
		segStart := parseIdentifierSegment(s, i)
		if segStart < 0 {
			return start
		}
		start = segStart
		i = start - 1
	}
	return start
}

func parseIdentifierSegment(s string, end int) int {
	if end < 0 {
		return -1
	}
	if s[end] == '"' {
		i := end - 1
		for i >= 0 {
			if s[i] == '"' {
				if i-1 >= 0 && s[i-1] == '"' {
					i -= 2
					continue
				}
				return i
			}
			i--
		}
		return -1
	}
	if !isIdentByte(s[end]) {
		return -1
	}
	i := end
	for i >= 0 && isIdentByte(s[i]) {
		i--
	}
	start := i + 1
	if !isAlphaByte(s[start]) && s[start] != '_' {
		return -1
	}
	return start
}

func findMatchingOpenParen(s string, closeIdx int) int {
	depth := 0
	inSingle, inDouble := false, false
	i := closeIdx
	for i >= 0 {
		ch := s[i]
		switch {
		case ch == '\'' && !inDouble:
			if i > 0 && s[i-1] == '\'' {
				i -= 2
				continue
			}
			inSingle = !inSingle
			i--
			continue
		case ch == '"' && !inSingle:
			if i > 0 && s[i-1] == '"' {
				i -= 2
				continue
			}
			inDouble = !inDouble
			i--
			continue
		case inSingle || inDouble:
			i--
			continue
		case ch == ')':
			depth++
		case ch == '(':
			depth--
			if depth == 0 {
				return i
			}
		}
		i--
	}
	return -1
}

func isIdentByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '$'
}

func isAlphaByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t'
}
