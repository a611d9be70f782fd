package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/google/renameio/v2"
	"github.com/google/shlex"
	"github.com/mattn/go-runewidth"

	"github.com/Chahine-tech/sqltwoway/internal/config"
	"github.com/Chahine-tech/sqltwoway/pkg/dialect"
	"github.com/Chahine-tech/sqltwoway/pkg/sqlerr"
	"github.com/Chahine-tech/sqltwoway/pkg/template"
	"github.com/Chahine-tech/sqltwoway/pkg/value"
	"github.com/Chahine-tech/sqltwoway/pkg/watch"
)

const banner = `
 ███████╗ ██████╗ ██╗  ████████╗██╗    ██╗ ██████╗
 ██╔════╝██╔═══██╗██║  ╚══██╔══╝██║    ██║██╔═══██╗
 ███████╗██║   ██║██║     ██║   ██║ █╗ ██║██║   ██║
 ╚════██║██║▄▄ ██║██║     ██║   ██║███╗██║██║   ██║
 ███████║╚██████╔╝███████╗██║   ╚███╔███╔╝╚██████╔╝
 ╚══════╝ ╚══▀▀═╝ ╚══════╝╚═╝    ╚══╝╚══╝  ╚═════╝

 Welcome to SQLTWOWAY — the two-way SQL template compiler! 🚀
 Supported: SQLite • PostgreSQL • MySQL • Oracle
`

func main() {
	var (
		templateFile = flag.String("template", "", "Template file to compile")
		paramsJSON   = flag.String("params", "", "Parameter map as inline JSON")
		paramsFile   = flag.String("params-file", "", "Parameter map as a JSON file")
		dialectFlag  = flag.String("dialect", "", "SQL dialect (sqlite, postgresql, mysql, oracle)")
		baseDir      = flag.String("base-dir", "", "Base directory for %include resolution")
		outputFormat = flag.String("output", "json", "Output format (json, table, sql)")
		outFile      = flag.String("out", "", "Write the compiled SQL to a file instead of stdout")
		verbose      = flag.Bool("verbose", false, "Verbose mode")
		configFile   = flag.String("config", "", "Configuration file path")
		watchMode    = flag.Bool("watch", false, "Recompile whenever the template changes on disk")
		showHelp     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *showHelp {
		fmt.Print(banner)
		showUsage()
		return
	}

	cfg := loadConfiguration(*configFile)

	if *templateFile == "" {
		showUsage()
		os.Exit(2)
	}
	if *dialectFlag == "" {
		*dialectFlag = cfg.DefaultDialect
	}
	if *baseDir == "" {
		if cfg.BaseDir != "" {
			*baseDir = cfg.BaseDir
		} else {
			*baseDir = filepath.Dir(*templateFile)
		}
	}

	params, err := collectParams(*paramsJSON, *paramsFile, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading parameters: %v\n", err)
		os.Exit(2)
	}

	compiler, err := buildCompiler(*dialectFlag, *baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", formatError(err, cfg))
		os.Exit(2)
	}

	if *verbose {
		fmt.Print(banner)
		fmt.Printf("Template: %s\n", *templateFile)
		fmt.Printf("Dialect:  %s\n", orDefault(*dialectFlag, "(none)"))
		fmt.Printf("Base dir: %s\n", *baseDir)
		fmt.Printf("Params:   %d\n", len(params))
		fmt.Println()
	}

	if *watchMode {
		if err := watchAndRecompile(compiler, *templateFile, *baseDir, params, *outputFormat, *outFile, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", formatError(err, cfg))
			os.Exit(1)
		}
		return
	}

	if err := compileOnce(compiler, *templateFile, params, *outputFormat, *outFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", formatError(err, cfg))
		os.Exit(1)
	}
}

func loadConfiguration(path string) *config.Config {
	if path == "" {
		// Fall back to the user config dir; absence is not an error.
		def, err := xdg.ConfigFile("sqltwoway/config.yaml")
		if err != nil {
			return config.DefaultConfig()
		}
		path = def
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		if !os.IsNotExist(errors.Unwrap(err)) {
			fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		}
		return config.DefaultConfig()
	}
	return cfg
}

func buildCompiler(dialectName, baseDir string) (*template.Compiler, error) {
	opts := []template.Option{template.WithBaseDir(baseDir)}
	if dialectName != "" {
		d, ok := dialect.Pick(dialectName)
		if !ok {
			return nil, sqlerr.New(sqlerr.Configuration, "unknown dialect "+dialectName)
		}
		opts = append(opts, template.WithDialect(d))
	}
	return template.New(opts...)
}

// collectParams merges the three parameter sources in increasing precedence:
// -params-file, -params, then trailing key=value overrides.
func collectParams(inline, file string, overrides []string) (map[string]value.Value, error) {
	merged := map[string]any{}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read params file: %w", err)
		}
		if err := json.Unmarshal(data, &merged); err != nil {
			return nil, fmt.Errorf("failed to parse params file: %w", err)
		}
	}

	if inline != "" {
		var m map[string]any
		if err := json.Unmarshal([]byte(inline), &m); err != nil {
			return nil, fmt.Errorf("failed to parse -params JSON: %w", err)
		}
		for k, v := range m {
			merged[k] = v
		}
	}

	if len(overrides) > 0 {
		tokens, err := shlex.Split(strings.Join(overrides, " "))
		if err != nil {
			return nil, fmt.Errorf("failed to tokenize overrides: %w", err)
		}
		for _, tok := range tokens {
			key, raw, ok := strings.Cut(tok, "=")
			if !ok {
				return nil, fmt.Errorf("override %q is not key=value", tok)
			}
			merged[key] = parseOverrideValue(raw)
		}
	}

	return value.FromAnyMap(merged), nil
}

// parseOverrideValue accepts JSON for structured values (lists, numbers,
// booleans, null) and falls back to the raw string.
func parseOverrideValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

func compileOnce(c *template.Compiler, templateFile string, params map[string]value.Value, format, outFile string) error {
	data, err := os.ReadFile(templateFile)
	if err != nil {
		return sqlerr.Wrap(sqlerr.Loader, "failed to read template "+templateFile, err)
	}

	result, err := c.Compile(string(data), params)
	if err != nil {
		return err
	}

	if outFile != "" {
		if err := renameio.WriteFile(outFile, []byte(result.SQL+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", outFile, err)
		}
		fmt.Printf("Wrote %s\n", outFile)
		return nil
	}

	switch format {
	case "table":
		outputTable(result)
	case "sql":
		fmt.Println(result.SQL)
	default:
		return outputJSON(result)
	}
	return nil
}

func watchAndRecompile(c *template.Compiler, templateFile, baseDir string, params map[string]value.Value, format, outFile string, cfg *config.Config) error {
	if err := compileOnce(c, templateFile, params, format, outFile); err != nil {
		return err
	}

	w := watch.NewTemplateWatcher(baseDir)
	changed := make(chan string, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx, changed); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Printf("Watching %s for template changes (Ctrl+C to stop)...\n", baseDir)
	for path := range changed {
		fmt.Printf("--- %s changed, recompiling\n", path)
		if err := compileOnce(c, templateFile, params, format, outFile); err != nil {
			// Keep watching; a broken intermediate save is normal while editing.
			fmt.Fprintf(os.Stderr, "Error: %v\n", formatError(err, cfg))
		}
	}
	return nil
}

type jsonResult struct {
	SQL        string         `json:"sql"`
	Positional []any          `json:"positional"`
	Named      map[string]any `json:"named"`
}

func outputJSON(result *template.CompileResult) error {
	out := jsonResult{
		SQL:        result.SQL,
		Positional: make([]any, len(result.Positional)),
		Named:      make(map[string]any, len(result.Named)),
	}
	for i, v := range result.Positional {
		out.Positional[i] = v.Any()
	}
	for k, v := range result.Named {
		out.Named[k] = v.Any()
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// outputTable prints the SQL followed by an aligned table of the bound
// parameters. Column widths use display cells rather than byte or rune
// counts so wide (e.g. Japanese) values still line up.
func outputTable(result *template.CompileResult) {
	fmt.Println(result.SQL)
	fmt.Println()

	type row struct{ key, val string }
	var rows []row
	for i, v := range result.Positional {
		rows = append(rows, row{fmt.Sprintf("$%d", i+1), fmt.Sprintf("%v", v.Any())})
	}
	if len(result.Positional) == 0 {
		for k, v := range result.Named {
			rows = append(rows, row{":" + k, fmt.Sprintf("%v", v.Any())})
		}
	}
	if len(rows) == 0 {
		fmt.Println("(no bound parameters)")
		return
	}

	keyWidth, valWidth := runewidth.StringWidth("PARAM"), runewidth.StringWidth("VALUE")
	for _, r := range rows {
		if w := runewidth.StringWidth(r.key); w > keyWidth {
			keyWidth = w
		}
		if w := runewidth.StringWidth(r.val); w > valWidth {
			valWidth = w
		}
	}

	line := "+" + strings.Repeat("-", keyWidth+2) + "+" + strings.Repeat("-", valWidth+2) + "+"
	fmt.Println(line)
	fmt.Printf("| %s | %s |\n", runewidth.FillRight("PARAM", keyWidth), runewidth.FillRight("VALUE", valWidth))
	fmt.Println(line)
	for _, r := range rows {
		fmt.Printf("| %s | %s |\n", runewidth.FillRight(r.key, keyWidth), runewidth.FillRight(r.val, valWidth))
	}
	fmt.Println(line)
}

// formatError applies the configured message language and fragment policy to
// a compile error before it reaches the user.
func formatError(err error, cfg *config.Config) error {
	var perr *sqlerr.SqlParseError
	if errors.As(err, &perr) {
		perr.WithLanguage(cfg.Language)
		perr.WithFragment(perr.Fragment(), cfg.IncludeSQLFragment && perr.Fragment() != "")
	}
	return err
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func showUsage() {
	fmt.Println("sqltwoway - Two-Way SQL Template Compiler")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sqltwoway -template query.sql                      Compile with an empty parameter map")
	fmt.Println("  sqltwoway -template query.sql -params '{...}'      Compile with inline JSON parameters")
	fmt.Println("  sqltwoway -template query.sql name=Alice ids=[1,2] Compile with key=value overrides")
	fmt.Println("  sqltwoway -template query.sql -watch               Recompile on every template change")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -params JSON      Inline JSON parameter map")
	fmt.Println("  -params-file FILE JSON parameter map file")
	fmt.Println("  -dialect DIALECT  SQL dialect: sqlite, postgresql, mysql, oracle")
	fmt.Println("  -base-dir DIR     Base directory for %include resolution (default: template's directory)")
	fmt.Println("  -output FORMAT    Output format: json, table, sql (default: json)")
	fmt.Println("  -out FILE         Write compiled SQL to FILE (atomic replace)")
	fmt.Println("  -config FILE      Configuration file path (default: $XDG_CONFIG_HOME/sqltwoway/config.yaml)")
	fmt.Println("  -watch            Recompile whenever a template under -base-dir changes")
	fmt.Println("  -verbose          Enable verbose output")
	fmt.Println("  -help             Show this help")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println(`  sqltwoway -template users.sql -params '{"dept_id": 10, "name": null}' -output sql`)
	fmt.Println(`  sqltwoway -template users.sql -dialect oracle -params-file params.json -output table`)
	fmt.Println(`  sqltwoway -template report.sql -watch -out report_compiled.sql status="in progress"`)
}
