package template

import (
	"regexp"

	"github.com/Chahine-tech/sqltwoway/pkg/sqlerr"
	"github.com/Chahine-tech/sqltwoway/pkg/value"
)

// Inline conditionals share the block directive's boolean grammar but
// live inside a single line's text: /*%if cond*/.../*%elseif cond*/.../*%else*/.../*%end*/
// A plain regex can't capture a variable number of %elseif branches, so this
// is a manual scan over marker positions.

var (
	reMarker       = regexp.MustCompile(`(?i)/\*%(?:if\s+.+?|elseif\s+.+?|else|end)\s*\*/`)
	reInlineIf     = regexp.MustCompile(`(?i)^/\*%if\s+(.+?)\s*\*/$`)
	reInlineElseif = regexp.MustCompile(`(?i)^/\*%elseif\s+(.+?)\s*\*/$`)
	reInlineElse   = regexp.MustCompile(`(?i)^/\*%else\s*\*/$`)
	reInlineEnd    = regexp.MustCompile(`(?i)^/\*%end\s*\*/$`)
)

func classifyInlineMarker(s string) (directiveKind, string) {
	if m := reInlineIf.FindStringSubmatch(s); m != nil {
		return dirIf, m[1]
	}
	if m := reInlineElseif.FindStringSubmatch(s); m != nil {
		return dirElseif, m[1]
	}
	if reInlineElse.MatchString(s) {
		return dirElse, ""
	}
	if reInlineEnd.MatchString(s) {
		return dirEnd, ""
	}
	return dirNone, ""
}

type inlineSeg struct {
	cond       string
	isElse     bool
	start, end int
}

// resolveInlineConditionals repeatedly finds the first /*%if*/ in content,
// locates its matching /*%end*/ (tracking nested ifs), picks the surviving
// branch, recurses into it for any nested conditionals, and splices the
// result back in, until no markers remain.
func resolveInlineConditionals(content string, params map[string]value.Value) (string, error) {
	for {
		markers := reMarker.FindAllStringIndex(content, -1)
		if len(markers) == 0 {
			return content, nil
		}

		first := markers[0]
		kind, cond := classifyInlineMarker(content[first[0]:first[1]])
		if kind != dirIf {
			return "", sqlerr.New(sqlerr.DirectiveMisuse, "inline %elseif/%else/%end without matching %if")
		}

		var segs []inlineSeg
		curCond, curIsElse := cond, false
		segStart := first[1]
		depth := 0
		matchedEndIdx := -1

		for i := 1; i < len(markers); i++ {
			m := markers[i]
			k, c := classifyInlineMarker(content[m[0]:m[1]])
			switch k {
			case dirIf:
				depth++
			case dirEnd:
				if depth > 0 {
					depth--
				} else {
					segs = append(segs, inlineSeg{curCond, curIsElse, segStart, m[0]})
					matchedEndIdx = i
				}
			case dirElseif:
				if depth == 0 {
					segs = append(segs, inlineSeg{curCond, curIsElse, segStart, m[0]})
					curCond, curIsElse = c, false
					segStart = m[1]
				}
			case dirElse:
				if depth == 0 {
					segs = append(segs, inlineSeg{curCond, curIsElse, segStart, m[0]})
					curCond, curIsElse = "", true
					segStart = m[1]
				}
			}
			if matchedEndIdx != -1 {
				break
			}
		}
		if matchedEndIdx == -1 {
			return "", sqlerr.New(sqlerr.DirectiveMisuse, "unclosed inline %if")
		}
		endMarker := markers[matchedEndIdx]

		var chosen *inlineSeg
		for idx := range segs {
			s := &segs[idx]
			if s.isElse {
				chosen = s
				break
			}
			ok, err := evalExpr(s.cond, params)
			if err != nil {
				return "", err
			}
			if ok {
				chosen = s
				break
			}
		}

		replacement := ""
		if chosen != nil {
			branchText := content[chosen.start:chosen.end]
			resolved, err := resolveInlineConditionals(branchText, params)
			if err != nil {
				return "", err
			}
			replacement = resolved
		}
		content = content[:first[0]] + replacement + content[endMarker[1]:]
	}
}
