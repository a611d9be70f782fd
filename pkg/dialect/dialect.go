// Package dialect enumerates the supported SQL flavours and the handful of
// attributes the compiler needs from each: placeholder style, IN-clause
// chunking limit, and LIKE-escaping policy.
package dialect

import "strings"

// PlaceholderStyle selects how a bound parameter site is rendered.
type PlaceholderStyle int

const (
	// Question renders '?' at every site (Sqlite).
	Question PlaceholderStyle = iota
	// Percent renders '%s' at every site (PostgreSQL, MySQL).
	Percent
	// Named renders ':name' at every site (Oracle).
	Named
)

func (s PlaceholderStyle) String() string {
	switch s {
	case Question:
		return "?"
	case Percent:
		return "%s"
	case Named:
		return ":name"
	default:
		return "?"
	}
}

// ID is the dialect id used by the file loader's <name>.<id>.<ext> naming
// convention.
type ID string

const (
	SqliteID     ID = "sqlite"
	PostgreSQLID ID = "postgresql"
	MySQLID      ID = "mysql"
	OracleID     ID = "oracle"
)

// Dialect is a value-like description of one SQL flavour's quirks.
type Dialect struct {
	ID                ID
	PlaceholderStyle  PlaceholderStyle
	InClauseLimit     int // 0 means unlimited
	LikeEscapeChar    string
	LikeEscapeChars   string // set of characters requiring LIKE escaping
	BackslashEscapes  bool   // whether backslash escapes inside string literals
}

// Unlimited is the sentinel InClauseLimit meaning "no chunking ever occurs".
const Unlimited = 0

var (
	Sqlite = Dialect{
		ID:               SqliteID,
		PlaceholderStyle: Question,
		InClauseLimit:    Unlimited,
		LikeEscapeChar:   "#",
		LikeEscapeChars:  "#%_",
		BackslashEscapes: false,
	}

	PostgreSQL = Dialect{
		ID:               PostgreSQLID,
		PlaceholderStyle: Percent,
		InClauseLimit:    Unlimited,
		LikeEscapeChar:   "#",
		LikeEscapeChars:  "#%_",
		BackslashEscapes: true,
	}

	MySQL = Dialect{
		ID:               MySQLID,
		PlaceholderStyle: Percent,
		InClauseLimit:    Unlimited,
		LikeEscapeChar:   "#",
		LikeEscapeChars:  "#%_",
		BackslashEscapes: true,
	}

	Oracle = Dialect{
		ID:               OracleID,
		PlaceholderStyle: Named,
		InClauseLimit:    1000,
		LikeEscapeChar:   "#",
		LikeEscapeChars:  "#%_",
		BackslashEscapes: false,
	}
)

// Pick looks up a dialect by its case-insensitive name or id.
func Pick(name string) (Dialect, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3":
		return Sqlite, true
	case "postgres", "postgresql", "pgx", "pq":
		return PostgreSQL, true
	case "mysql":
		return MySQL, true
	case "oracle", "godror":
		return Oracle, true
	default:
		return Dialect{}, false
	}
}

// FromDriverName maps a database/sql driver name (as registered with
// sql.Open) to its dialect. Returns false for an unrecognised driver.
func FromDriverName(driverName string) (Dialect, bool) {
	switch strings.ToLower(driverName) {
	case "sqlite3":
		return Sqlite, true
	case "postgres", "pgx":
		return PostgreSQL, true
	case "mysql":
		return MySQL, true
	case "godror":
		return Oracle, true
	default:
		return Dialect{}, false
	}
}

// EscapeChar returns the escape character to use for LIKE escaping: the
// explicit override if non-empty, else the dialect's default.
func (d Dialect) EscapeChar(override string) string {
	if override != "" {
		return override
	}
	return d.LikeEscapeChar
}
