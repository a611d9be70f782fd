package template

import (
	"regexp"
	"strings"

	"github.com/Chahine-tech/sqltwoway/pkg/lexer"
)

// cleanSQL runs the six-step cleanup pass over the rebuilt SQL text,
// repeatedly removing the syntactic debris that conditional removal leaves
// behind: orphan set operators, lines that are only a stray ')', trailing
// AND/OR, trailing commas before a closing paren, leading AND/OR right after
// WHERE/HAVING, and a dangling WHERE/HAVING with nothing following it.
func cleanSQL(sql string) string {
	lines := strings.Split(sql, "\n")
	lines = removeOrphanSetOperators(lines)
	lines = removeUnmatchedCloseParenLines(lines)
	lines = removeTrailingBooleanOps(lines)
	lines = removeTrailingCommasBeforeParen(lines)
	lines = removeLeadingBooleanAfterClause(lines)
	lines = removeDanglingClauseKeyword(lines)
	return strings.Join(lines, "\n")
}

var reSetOperatorOnly = regexp.MustCompile(`(?i)^\s*(UNION(\s+ALL)?|EXCEPT|INTERSECT)\s*$`)

// removeOrphanSetOperators drops a UNION/UNION ALL/EXCEPT/INTERSECT line
// that no longer has a statement on both sides of it, repeating until
// stable, then collapses a run of consecutive set-operator lines to its
// first member.
func removeOrphanSetOperators(lines []string) []string {
	changed := true
	for changed {
		changed = false
		var out []string
		for i, ln := range lines {
			if reSetOperatorOnly.MatchString(ln) {
				if !hasStatementTowards(lines, i-1, -1) || !hasStatementTowards(lines, i+1, +1) {
					changed = true
					continue
				}
			}
			out = append(out, ln)
		}
		lines = out
	}

	var out []string
	inRun := false
	for _, ln := range lines {
		if reSetOperatorOnly.MatchString(ln) {
			if inRun {
				continue
			}
			inRun = true
		} else if strings.TrimSpace(ln) != "" {
			inRun = false
		}
		out = append(out, ln)
	}
	return out
}

// hasStatementTowards reports whether a non-blank, non-set-operator line
// exists scanning from index from in direction step.
func hasStatementTowards(lines []string, from, step int) bool {
	for i := from; i >= 0 && i < len(lines); i += step {
		if strings.TrimSpace(lines[i]) == "" || reSetOperatorOnly.MatchString(lines[i]) {
			continue
		}
		return true
	}
	return false
}

var reCloseParenOnly = regexp.MustCompile(`^\s*\)\s*,?\s*$`)

// removeUnmatchedCloseParenLines drops a line that is nothing but a ')' (or
// '),') when the corresponding '(' was itself removed, leaving no opener in
// the surviving text above it.
func removeUnmatchedCloseParenLines(lines []string) []string {
	var out []string
	depth := 0
	for _, ln := range lines {
		opens := strings.Count(ln, "(")
		closes := strings.Count(ln, ")")
		if reCloseParenOnly.MatchString(ln) && depth <= 0 {
			continue
		}
		depth += opens - closes
		out = append(out, ln)
	}
	return out
}

var reTrailingBoolOp = regexp.MustCompile(`(?i)\s+(AND|OR)\s*$`)

// removeTrailingBooleanOps strips a dangling AND/OR left at the very end of
// a line once whatever followed it was removed, to a fixed point since
// stripping one can expose another on the line above.
func removeTrailingBooleanOps(lines []string) []string {
	changed := true
	for changed {
		changed = false
		for i := len(lines) - 1; i >= 0; i-- {
			if i == len(lines)-1 || allBlankAfter(lines, i+1) {
				if m := reTrailingBoolOp.FindStringIndex(lines[i]); m != nil {
					lines[i] = lines[i][:m[0]]
					changed = true
				}
			}
		}
	}
	return lines
}

func allBlankAfter(lines []string, from int) bool {
	for i := from; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			return false
		}
	}
	return true
}

var reTrailingComma = regexp.MustCompile(`,\s*$`)

// removeTrailingCommasBeforeParen strips a trailing comma from the last
// surviving item in a list when the line immediately below (skipping blanks)
// is a closing paren, so "a,\nb,\n)" becomes "a,\nb\n)".
func removeTrailingCommasBeforeParen(lines []string) []string {
	for i := 0; i < len(lines); i++ {
		if !reTrailingComma.MatchString(lines[i]) {
			continue
		}
		j := i + 1
		for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
			j++
		}
		if j < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[j]), ")") {
			lines[i] = reTrailingComma.ReplaceAllString(lines[i], "")
		}
	}
	return lines
}

var reLeadingBoolOp = regexp.MustCompile(`(?i)^(\s*)(AND|OR)\s+`)

// removeLeadingBooleanAfterClause strips a leading AND/OR that now sits
// immediately after a WHERE/HAVING keyword (the predicate that used to
// precede it was removed).
func removeLeadingBooleanAfterClause(lines []string) []string {
	for i := 1; i < len(lines); i++ {
		m := reLeadingBoolOp.FindStringSubmatchIndex(lines[i])
		if m == nil {
			continue
		}
		prevLine := lastNonBlank(lines, i-1)
		if prevLine == "" {
			continue
		}
		if endsWithClauseKeyword(prevLine) {
			lines[i] = lines[i][:m[3]] + lines[i][m[1]:]
		}
	}
	return lines
}

func lastNonBlank(lines []string, from int) string {
	for i := from; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return lines[i]
		}
	}
	return ""
}

func endsWithClauseKeyword(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	last := strings.ToUpper(fields[len(fields)-1])
	return last == "WHERE" || last == "HAVING"
}

var reClauseKeywordOnly = regexp.MustCompile(`(?i)^\s*(WHERE|HAVING)\s*$`)

// removeDanglingClauseKeyword drops a WHERE/HAVING line that has nothing
// after it (end of statement, or immediately followed by the next clause
// keyword such as GROUP BY/ORDER BY).
func removeDanglingClauseKeyword(lines []string) []string {
	var out []string
	for i, ln := range lines {
		if reClauseKeywordOnly.MatchString(ln) {
			next := firstNonBlankAfter(lines, i+1)
			if next == "" || lexer.IsClauseKeyword(next) {
				continue
			}
		}
		out = append(out, ln)
	}
	return out
}

func firstNonBlankAfter(lines []string, from int) string {
	for i := from; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			return strings.TrimSpace(lines[i])
		}
	}
	return ""
}
