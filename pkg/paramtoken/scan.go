package paramtoken

import (
	"regexp"
	"strings"
)

// defaultFrag matches one of the literal default forms accepted by every
// comment role: a single- or double-quoted string (SQL doubled-quote
// escape), NULL, a signed integer or decimal, a parenthesised list, or a
// bare identifier.
const defaultFrag = `('(?:[^']|'')*'|"(?:[^"]|"")*"|NULL|[+-]?\d+(?:\.\d+)?|\([^)]*\)|\w+)`

const quotedFrag = `'(?:[^']|'')*'|"(?:[^"]|"")*"`

var (
	reIn         = regexp.MustCompile(`(?i)\bIN\s*/\*\s*([$&!@]*)(\w+)\s*\*/\s*\(([^)]*)\)`)
	reOperator   = regexp.MustCompile(`/\*\s*([$&!@]*)(\w+)\s*\*/\s*(=|<>|!=)\s*` + defaultFrag)
	reLike       = regexp.MustCompile(`(?i)/\*\s*([$&!@]*)(\w+)\s*\*/\s*(NOT\s+)?LIKE\s+(` + quotedFrag + `)`)
	reHelperCatC = regexp.MustCompile(`/\*\s*%(?:concat\(([^)]*)\)|C\s+([^*]*?))\s*\*/\s*` + defaultFrag + `?`)
	reHelperLike = regexp.MustCompile(`/\*\s*%L\s+([^*]*?)\s*\*/\s*` + defaultFrag + `?`)
	reHelperStr  = regexp.MustCompile(`/\*\s*%(STR|SQL)\(([^)]*)\)\s*\*/\s*` + defaultFrag + `?`)
	reFallback   = regexp.MustCompile(`/\*\s*((?:\?\w+\s*)+)\*/\s*` + defaultFrag)
	rePlain      = regexp.MustCompile(`/\*\s*([$&!@]*)(\w+)\s*\*/\s*` + defaultFrag + `?`)
	reIdentChain = regexp.MustCompile(`[\w."]+$`)
)

// claimed tracks half-open ranges already reserved by a higher-precedence
// layer; later layers must not emit a token overlapping any of them.
type claimed struct {
	ranges [][2]int
}

func (c *claimed) overlaps(start, end int) bool {
	for _, r := range c.ranges {
		if start < r[1] && end > r[0] {
			return true
		}
	}
	return false
}

func (c *claimed) add(start, end int) {
	c.ranges = append(c.ranges, [2]int{start, end})
}

// Scan tokenizes one logical line into ordered, non-overlapping tokens.
// Recognition is layered by precedence: IN > operator > LIKE > helpers >
// fallback > plain; an earlier layer's match reserves its character range.
func Scan(line string) []Token {
	var toks []Token
	cl := &claimed{}

	// 1. IN-clause comment.
	for _, m := range reIn.FindAllStringSubmatchIndex(line, -1) {
		start, end := m[0], m[1]
		if cl.overlaps(start, end) {
			continue
		}
		modStr := line[m[2]:m[3]]
		nameStr := line[m[4]:m[5]]
		mods, _ := parseModifiers(modStr)
		toks = append(toks, Token{
			Name:    nameStr,
			Mods:    mods,
			Default: line[m[6]:m[7]],
			Role:    InClause,
			Start:   start,
			End:     end,
		})
		cl.add(start, end)
	}

	// 2. Operator-bearing comment.
	for _, m := range reOperator.FindAllStringSubmatchIndex(line, -1) {
		start, end := m[0], m[1]
		if cl.overlaps(start, end) {
			continue
		}
		modStr := line[m[2]:m[3]]
		nameStr := line[m[4]:m[5]]
		mods, _ := parseModifiers(modStr)
		toks = append(toks, Token{
			Name:     nameStr,
			Mods:     mods,
			Operator: line[m[6]:m[7]],
			Default:  line[m[8]:m[9]],
			Role:     Operator,
			Start:    start,
			End:      end,
		})
		cl.add(start, end)
	}

	// 3. LIKE-bearing comment.
	for _, m := range reLike.FindAllStringSubmatchIndex(line, -1) {
		start, end := m[0], m[1]
		if cl.overlaps(start, end) {
			continue
		}
		modStr := line[m[2]:m[3]]
		nameStr := line[m[4]:m[5]]
		mods, _ := parseModifiers(modStr)
		notLike := m[6] != -1 && m[7] != -1
		toks = append(toks, Token{
			Name:    nameStr,
			Mods:    mods,
			Default: line[m[8]:m[9]],
			Role:    Like,
			NotLike: notLike,
			Column:  leftIdentChain(line, start),
			Start:   start,
			End:     end,
		})
		cl.add(start, end)
	}

	// 4a. Helper: %concat / %C.
	for _, m := range reHelperCatC.FindAllStringSubmatchIndex(line, -1) {
		start, end := m[0], m[1]
		if cl.overlaps(start, end) {
			continue
		}
		var argsText string
		if m[2] != -1 {
			argsText = line[m[2]:m[3]]
		} else if m[4] != -1 {
			argsText = line[m[4]:m[5]]
		}
		def := ""
		if m[6] != -1 {
			def = line[m[6]:m[7]]
		}
		toks = append(toks, Token{
			HelperName: "concat",
			HelperArgs: parseHelperArgs(argsText),
			Default:    def,
			Role:       Helper,
			Start:      start,
			End:        end,
		})
		cl.add(start, end)
	}

	// 4b. Helper: %L (concat + LIKE-escape).
	for _, m := range reHelperLike.FindAllStringSubmatchIndex(line, -1) {
		start, end := m[0], m[1]
		if cl.overlaps(start, end) {
			continue
		}
		argsText := line[m[2]:m[3]]
		def := ""
		if m[4] != -1 {
			def = line[m[4]:m[5]]
		}
		toks = append(toks, Token{
			HelperName: "L",
			HelperArgs: parseHelperArgs(argsText),
			Default:    def,
			Role:       Helper,
			Start:      start,
			End:        end,
		})
		cl.add(start, end)
	}

	// 4c. Helper: %STR / %SQL (raw interpolation).
	for _, m := range reHelperStr.FindAllStringSubmatchIndex(line, -1) {
		start, end := m[0], m[1]
		if cl.overlaps(start, end) {
			continue
		}
		name := line[m[2]:m[3]]
		param := line[m[4]:m[5]]
		def := ""
		if m[6] != -1 {
			def = line[m[6]:m[7]]
		}
		toks = append(toks, Token{
			Name:       param,
			HelperName: name,
			Default:    def,
			Role:       Helper,
			Start:      start,
			End:        end,
		})
		cl.add(start, end)
	}

	// 5. Fallback chain.
	for _, m := range reFallback.FindAllStringSubmatchIndex(line, -1) {
		start, end := m[0], m[1]
		if cl.overlaps(start, end) {
			continue
		}
		chainText := line[m[2]:m[3]]
		names := parseFallbackNames(chainText)
		if len(names) == 0 {
			continue
		}
		toks = append(toks, Token{
			Name:          names[0],
			Mods:          Modifiers{IsFallback: true},
			Default:       line[m[4]:m[5]],
			Role:          Fallback,
			FallbackNames: names,
			Start:         start,
			End:           end,
		})
		cl.add(start, end)
	}

	// 6. Plain parameter comment.
	for _, m := range rePlain.FindAllStringSubmatchIndex(line, -1) {
		start, end := m[0], m[1]
		if cl.overlaps(start, end) {
			continue
		}
		modStr := line[m[2]:m[3]]
		nameStr := line[m[4]:m[5]]
		mods, _ := parseModifiers(modStr)
		def := ""
		if m[6] != -1 {
			def = line[m[6]:m[7]]
		}
		role := Plain
		if isInsideInClause(line, start, end) {
			role = PartialIn
		}
		toks = append(toks, Token{
			Name:    nameStr,
			Mods:    mods,
			Default: def,
			Role:    role,
			Start:   start,
			End:     end,
		})
		cl.add(start, end)
	}

	sortTokensByStart(toks)
	return toks
}

func sortTokensByStart(toks []Token) {
	for i := 1; i < len(toks); i++ {
		for j := i; j > 0 && toks[j-1].Start > toks[j].Start; j-- {
			toks[j-1], toks[j] = toks[j], toks[j-1]
		}
	}
}

// leftIdentChain returns the dotted identifier chain immediately preceding
// offset pos in line (the LIKE token's column expression).
func leftIdentChain(line string, pos int) string {
	left := line[:pos]
	left = strings.TrimRight(left, " \t")
	m := reIdentChain.FindString(left)
	return m
}

// isInsideInClause walks backward from a plain token's start counting
// paren depth to find an enclosing unmatched '(' preceded by IN, and
// confirms a ')' exists after the token's end.
func isInsideInClause(line string, start, end int) bool {
	depth := 0
	i := start - 1
	for i >= 0 {
		switch line[i] {
		case ')':
			depth++
		case '(':
			if depth == 0 {
				// Found the enclosing '('; check it's preceded by IN.
				before := strings.TrimRight(line[:i], " \t")
				if len(before) >= 2 && strings.EqualFold(before[len(before)-2:], "in") {
					// Confirm a matching ')' exists after end.
					return strings.Contains(line[end:], ")")
				}
				return false
			}
			depth--
		}
		i--
	}
	return false
}

// parseHelperArgs splits a helper argument list on commas or whitespace,
// respecting single/double-quoted segments with doubled-quote escaping.
func parseHelperArgs(s string) []string {
	var args []string
	var cur strings.Builder
	inSingle, inDouble := false, false
	flush := func() {
		a := strings.TrimSpace(cur.String())
		if a != "" {
			args = append(args, a)
		}
		cur.Reset()
	}
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inSingle:
			cur.WriteRune(r)
			if r == '\'' {
				if i+1 < len(runes) && runes[i+1] == '\'' {
					cur.WriteRune(runes[i+1])
					i++
					continue
				}
				inSingle = false
			}
		case inDouble:
			cur.WriteRune(r)
			if r == '"' {
				if i+1 < len(runes) && runes[i+1] == '"' {
					cur.WriteRune(runes[i+1])
					i++
					continue
				}
				inDouble = false
			}
		case r == '\'':
			inSingle = true
			cur.WriteRune(r)
		case r == '"':
			inDouble = true
			cur.WriteRune(r)
		case r == ',' || r == ' ' || r == '\t':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return args
}

// parseFallbackNames extracts the ordered ?name entries from a fallback
// chain's comment body.
func parseFallbackNames(chain string) []string {
	fields := strings.Fields(chain)
	var names []string
	for _, f := range fields {
		if strings.HasPrefix(f, "?") {
			names = append(names, strings.TrimPrefix(f, "?"))
		}
	}
	return names
}
