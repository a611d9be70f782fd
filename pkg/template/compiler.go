package template

import (
	"fmt"

	"github.com/Chahine-tech/sqltwoway/pkg/diag"
	"github.com/Chahine-tech/sqltwoway/pkg/dialect"
	"github.com/Chahine-tech/sqltwoway/pkg/paramtoken"
	"github.com/Chahine-tech/sqltwoway/pkg/sqlerr"
	"github.com/Chahine-tech/sqltwoway/pkg/value"
)

// Compiler compiles a two-way SQL template source into an executable
// statement plus its bound parameters, for a fixed base directory (used to
// resolve %include paths) and an optional default dialect.
type Compiler struct {
	baseDir string
	dlct    *dialect.Dialect
	style   *dialect.PlaceholderStyle
}

// Option configures a Compiler at construction time.
type Option func(*Compiler)

// WithBaseDir sets the directory %include paths are resolved against.
func WithBaseDir(dir string) Option {
	return func(c *Compiler) { c.baseDir = dir }
}

// WithDialect fixes the target dialect, which drives both the IN-clause
// chunking limit and LIKE-escaping policy, as well as the default
// placeholder style when WithPlaceholderStyle isn't also given.
func WithDialect(d dialect.Dialect) Option {
	return func(c *Compiler) { c.dlct = &d }
}

// WithPlaceholderStyle overrides the placeholder style independently of the
// dialect (e.g. a Sqlite template executed through a driver that wants
// named placeholders). Together with a dialect, only '?' or the dialect's
// own style is accepted; any other style is a conflict.
func WithPlaceholderStyle(s dialect.PlaceholderStyle) Option {
	return func(c *Compiler) { c.style = &s }
}

// New builds a Compiler with the given options. Combining a dialect with an
// explicit placeholder style that is neither the plain '?' default nor the
// dialect's own style is rejected here rather than at compile time: the
// dialect already implies its style.
func New(opts ...Option) (*Compiler, error) {
	c := &Compiler{}
	for _, o := range opts {
		o(c)
	}
	if c.dlct != nil && c.style != nil && *c.style != dialect.Question && *c.style != c.dlct.PlaceholderStyle {
		return nil, sqlerr.New(sqlerr.Configuration,
			fmt.Sprintf("placeholder style %q conflicts with dialect %q", c.style.String(), c.dlct.ID))
	}
	return c, nil
}

// CompileResult is the output of a successful Compile call.
type CompileResult struct {
	SQL        string
	Positional []value.Value
	Named      map[string]value.Value
}

func (c *Compiler) placeholderStyle() dialect.PlaceholderStyle {
	if c.style != nil {
		return *c.style
	}
	if c.dlct != nil {
		return c.dlct.PlaceholderStyle
	}
	return dialect.Question
}

// Compile runs the full pipeline over source: include expansion, logical
// line splitting and forest construction, block directive resolution, the
// two-phase removal engine, per-line rebuild (inline conditionals, helper
// evaluation, placeholder emission, IN-clause chunking), and final SQL
// cleanup.
func (c *Compiler) Compile(source string, params map[string]value.Value) (*CompileResult, error) {
	res, _, err := c.compile(source, params, false)
	return res, err
}

// CompileWithDiagnostics runs the same pipeline as Compile but also returns
// the diagnostics tree: which lines survived, which were removed, and
// why. Building the tree never alters the compiled result.
func (c *Compiler) CompileWithDiagnostics(source string, params map[string]value.Value) (*CompileResult, *diag.CompileDiagnostics, error) {
	return c.compile(source, params, true)
}

func (c *Compiler) compile(source string, params map[string]value.Value, withDiag bool) (*CompileResult, *diag.CompileDiagnostics, error) {
	if params == nil {
		params = map[string]value.Value{}
	}

	expanded, err := expandIncludes(source, c.baseDir)
	if err != nil {
		return nil, nil, err
	}

	lines := splitLogicalLines(expanded)
	resolved, err := resolveDirectives(lines, params)
	if err != nil {
		return nil, nil, err
	}
	buildForest(resolved)

	reasons, err := evaluateParams(resolved, params)
	if err != nil {
		return nil, nil, err
	}
	propagateRemoval(resolved, reasons)

	sql, positional, named, err := rebuildSQL(resolved, params, c.placeholderStyle(), c.dlct)
	if err != nil {
		return nil, nil, err
	}
	sql = cleanSQL(sql)

	// For positional styles the named mapping is the caller's own map; only
	// the named style builds a mapping restricted to the emitted references.
	if c.placeholderStyle() != dialect.Named {
		named = params
	}
	result := &CompileResult{SQL: sql, Positional: positional, Named: named}

	var diagnostics *diag.CompileDiagnostics
	if withDiag {
		diagnostics = buildDiagnostics(resolved, reasons)
	}
	return result, diagnostics, nil
}

// buildDiagnostics turns the resolved-and-removed line forest into the
// public diag.DiagNode tree, a straight structural mirror keyed by the same
// Parent/Children indices the compiler used internally.
func buildDiagnostics(lines []*Line, reasons map[int]string) *diag.CompileDiagnostics {
	nodes := make([]*diag.DiagNode, len(lines))
	var warnings []string
	for i, ln := range lines {
		nodes[i] = &diag.DiagNode{
			LineNumber: ln.Number,
			Content:    ln.Content,
			Removed:    ln.Removed,
			Reason:     reasons[i],
		}
		if !ln.Removed {
			for _, tok := range paramtoken.Scan(ln.Content) {
				if tok.Role == paramtoken.Helper && (tok.HelperName == "STR" || tok.HelperName == "SQL") {
					warnings = append(warnings, fmt.Sprintf("line %d: %%%s interpolates %q without placeholder binding", ln.Number, tok.HelperName, tok.Name))
				}
			}
		}
	}
	var roots []*diag.DiagNode
	for i, ln := range lines {
		if ln.Parent == -1 {
			if ln.Indent == -1 {
				continue
			}
			roots = append(roots, nodes[i])
		} else {
			nodes[ln.Parent].Children = append(nodes[ln.Parent].Children, nodes[i])
		}
	}
	return &diag.CompileDiagnostics{Root: roots, Warnings: warnings}
}
