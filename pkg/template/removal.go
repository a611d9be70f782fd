package template

import (
	"fmt"
	"strings"

	"github.com/Chahine-tech/sqltwoway/pkg/lexer"
	"github.com/Chahine-tech/sqltwoway/pkg/paramtoken"
	"github.com/Chahine-tech/sqltwoway/pkg/sqlerr"
	"github.com/Chahine-tech/sqltwoway/pkg/value"
)

// evaluateParams is Phase A of the removal engine: per-line, top-down
// modifier evaluation. It returns a line-index-keyed map of human-readable
// removal reasons, built as a byproduct for the diagnostics side channel.
func evaluateParams(lines []*Line, params map[string]value.Value) (map[int]string, error) {
	reasons := make(map[int]string)
	for idx, ln := range lines {
		if ln.Indent == -1 || ln.Removed {
			continue
		}
		for _, tok := range paramtoken.Scan(ln.Content) {
			if err := applyModifiers(lines, idx, tok, params, reasons); err != nil {
				return reasons, err
			}
			if ln.Removed {
				break
			}
		}
	}
	return reasons, nil
}

func applyModifiers(lines []*Line, idx int, tok paramtoken.Token, params map[string]value.Value, reasons map[int]string) error {
	ln := lines[idx]

	if tok.Role == paramtoken.Fallback {
		allNegative := true
		for _, n := range tok.FallbackNames {
			if !value.IsNegative(value.Lookup(params, n)) {
				allNegative = false
				break
			}
		}
		if allNegative {
			ln.Removed = true
			reasons[idx] = fmt.Sprintf("fallback: all of %s negative", strings.Join(tok.FallbackNames, ","))
		}
		return nil
	}

	if tok.Name == "" {
		return nil // helper invocations with no bound parameter name carry no modifiers
	}

	neg := value.IsNegative(value.Lookup(params, tok.Name))
	if tok.Mods.Negated {
		neg = !neg
	}
	if tok.Mods.Required && neg {
		return sqlerr.New(sqlerr.RequiredMissing, tok.Name).WithParam(tok.Name).WithLine(ln.Number)
	}
	if (tok.Mods.Removable || tok.Mods.Bindless) && neg {
		if tok.Role == paramtoken.InClause {
			v := value.Lookup(params, tok.Name)
			if v.Kind() == value.List && len(v.List()) == 0 {
				return nil // preserved so the rebuilder can emit IN (NULL)
			}
		}
		ln.Removed = true
		kind := "removable"
		if tok.Mods.Bindless {
			kind = "bindless"
		}
		reasons[idx] = fmt.Sprintf("%s: %s negative", kind, tok.Name)
	}
	return nil
}

// propagateRemoval is Phase B: iterate in reverse line order, to a
// fixed point, removing lines whose children are all gone and isolated
// parameterless siblings, respecting the protected-anchor exemption.
func propagateRemoval(lines []*Line, reasons map[int]string) {
	changed := true
	for changed {
		changed = false
		for idx := len(lines) - 1; idx >= 0; idx-- {
			ln := lines[idx]
			if ln.Indent == -1 || ln.Removed {
				continue
			}

			if len(ln.Children) == 0 {
				if ln.Parent != -1 && len(paramtoken.Scan(ln.Content)) == 0 {
					siblings := lines[ln.Parent].Children
					if allOtherSiblingsRemoved(lines, siblings, idx) {
						ln.Removed = true
						changed = true
						reasons[idx] = "propagated: isolated from surviving siblings"
					}
				}
				continue
			}

			if lexer.IsProtectedAnchor(ln.Content) {
				continue
			}

			allChildrenRemoved := true
			for _, c := range ln.Children {
				if !lines[c].Removed {
					allChildrenRemoved = false
					break
				}
			}
			if allChildrenRemoved {
				ln.Removed = true
				changed = true
				reasons[idx] = "propagated: all children removed"
			}
		}
	}
}

func allOtherSiblingsRemoved(lines []*Line, siblings []int, self int) bool {
	hasOther := false
	for _, s := range siblings {
		if s == self {
			continue
		}
		hasOther = true
		if !lines[s].Removed {
			return false
		}
	}
	return hasOther
}
