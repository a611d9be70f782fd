package template

import (
	"testing"

	"github.com/Chahine-tech/sqltwoway/pkg/value"
)

func TestEvalExpr(t *testing.T) {
	params := value.FromAnyMap(map[string]any{
		"yes":   true,
		"no":    false,
		"zero":  0,
		"empty": "",
		"list":  []any{},
	})

	tests := []struct {
		expr string
		want bool
	}{
		{"yes", true},
		{"no", false},
		{"missing", false},
		{"zero", true},  // numeric zero is not negative
		{"empty", true}, // empty string is not negative
		{"list", false}, // empty sequence is negative
		{"NOT no", true},
		{"not yes", false},
		{"yes AND no", false},
		{"yes OR no", true},
		{"no or no", false},
		{"NOT no AND yes", true},
		{"NOT (yes AND no)", true},
		{"(yes OR no) AND zero", true},
		{"yes and not no", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := evalExpr(tt.expr, params)
			if err != nil {
				t.Fatalf("evalExpr(%q) failed: %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("evalExpr(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvalExprErrors(t *testing.T) {
	for _, expr := range []string{"", "a AND", "(a", "a b"} {
		if _, err := evalExpr(expr, nil); err == nil {
			t.Errorf("evalExpr(%q) succeeded, want error", expr)
		}
	}
}

func TestClassifyDirective(t *testing.T) {
	tests := []struct {
		content  string
		wantKind directiveKind
		wantCond string
	}{
		{"-- %IF a AND b", dirIf, "a AND b"},
		{"--%if lower", dirIf, "lower"},
		{"-- %ELSEIF c", dirElseif, "c"},
		{"-- %ELSE", dirElse, ""},
		{"-- %END", dirEnd, ""},
		{"-- regular comment", dirNone, ""},
		{"SELECT 1", dirNone, ""},
	}
	for _, tt := range tests {
		kind, cond := classifyDirective(tt.content)
		if kind != tt.wantKind || cond != tt.wantCond {
			t.Errorf("classifyDirective(%q) = (%v, %q), want (%v, %q)",
				tt.content, kind, cond, tt.wantKind, tt.wantCond)
		}
	}
}
