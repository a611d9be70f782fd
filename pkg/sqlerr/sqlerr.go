// Package sqlerr defines the typed failure surface: a fixed taxonomy
// of error kinds, each rendered from a bilingual (en/ja) message table, with
// optional inclusion of the offending SQL fragment.
package sqlerr

import "fmt"

// Kind is one of the semantic error categories.
type Kind int

const (
	Configuration Kind = iota
	RequiredMissing
	UnresolvedColumn
	DirectiveMisuse
	IncludeFailure
	Mapping
	Loader
	Facade
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case RequiredMissing:
		return "required_missing"
	case UnresolvedColumn:
		return "unresolved_column"
	case DirectiveMisuse:
		return "directive_misuse"
	case IncludeFailure:
		return "include_failure"
	case Mapping:
		return "mapping"
	case Loader:
		return "loader"
	case Facade:
		return "facade"
	default:
		return "unknown"
	}
}

// messages holds the en/ja templates for each kind, keyed by kind then
// language. %s verb order matches the fields filled in by Error().
var messages = map[Kind]map[string]string{
	Configuration: {
		"en": "configuration error: %s",
		"ja": "設定エラー: %s",
	},
	RequiredMissing: {
		"en": "required parameter %q is missing or negative",
		"ja": "必須パラメータ %q が未指定または無効です",
	},
	UnresolvedColumn: {
		"en": "could not resolve column expression for IN-clause chunking: %s",
		"ja": "IN句の分割対象カラムを特定できません: %s",
	},
	DirectiveMisuse: {
		"en": "directive misuse: %s",
		"ja": "ディレクティブの誤用: %s",
	},
	IncludeFailure: {
		"en": "include failed: %s",
		"ja": "インクルードに失敗しました: %s",
	},
	Mapping: {
		"en": "row mapping failed: %s",
		"ja": "行のマッピングに失敗しました: %s",
	},
	Loader: {
		"en": "template load failed: %s",
		"ja": "テンプレートの読み込みに失敗しました: %s",
	},
	Facade: {
		"en": "database operation failed: %s",
		"ja": "データベース操作に失敗しました: %s",
	},
}

// SqlParseError is the concrete error type returned by every package in
// this module. Construct with New and optionally chain WithLine/WithParam.
type SqlParseError struct {
	kind     Kind
	detail   string
	line     int // 0 means "no line context"
	param    string
	fragment string
	lang     string // "en" or "ja"; defaults to "en"
	includeFragment bool
	err      error
}

// New builds a SqlParseError of the given kind with a detail message used
// to fill the %s verb in that kind's message table.
func New(kind Kind, detail string) *SqlParseError {
	return &SqlParseError{kind: kind, detail: detail, lang: "en"}
}

// Wrap builds a SqlParseError that wraps an underlying error (e.g. an I/O
// failure from the loader).
func Wrap(kind Kind, detail string, err error) *SqlParseError {
	return &SqlParseError{kind: kind, detail: detail, lang: "en", err: err}
}

func (e *SqlParseError) WithLine(line int) *SqlParseError {
	e.line = line
	return e
}

func (e *SqlParseError) WithParam(name string) *SqlParseError {
	e.param = name
	return e
}

func (e *SqlParseError) WithFragment(fragment string, include bool) *SqlParseError {
	e.fragment = fragment
	e.includeFragment = include
	return e
}

func (e *SqlParseError) WithLanguage(lang string) *SqlParseError {
	if lang == "ja" {
		e.lang = "ja"
	} else {
		e.lang = "en"
	}
	return e
}

func (e *SqlParseError) Kind() Kind { return e.kind }

// Fragment returns the offending SQL fragment attached to the error, empty
// when none was captured. Whether Error() echoes it is controlled separately
// by WithFragment's include flag, so a caller holding the process
// configuration can re-apply its own policy at formatting time.
func (e *SqlParseError) Fragment() string { return e.fragment }

func (e *SqlParseError) Unwrap() error { return e.err }

func (e *SqlParseError) Error() string {
	tbl := messages[e.kind]
	tmpl, ok := tbl[e.lang]
	if !ok {
		tmpl = tbl["en"]
	}
	msg := fmt.Sprintf(tmpl, e.detail)
	if e.param != "" {
		msg = fmt.Sprintf("%s (param=%s)", msg, e.param)
	}
	if e.line > 0 {
		msg = fmt.Sprintf("%s (line %d)", msg, e.line)
	}
	if e.includeFragment && e.fragment != "" {
		msg = fmt.Sprintf("%s: %q", msg, e.fragment)
	}
	if e.err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.err)
	}
	return msg
}
