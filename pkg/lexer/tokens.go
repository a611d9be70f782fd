// Package lexer recognizes the small set of SQL keywords the template
// compiler needs to be aware of: statement-leading anchors protected from
// removal propagation, clause-leading keywords the cleaner must not leave
// dangling, and the boolean keywords of the conditional expression grammar.
// It is deliberately not a general SQL lexer; the compiler never builds a
// statement AST.
package lexer

import "strings"

// TokenType enumerates the keyword classes this package recognizes.
type TokenType int

const (
	IDENT TokenType = iota

	// Protected-anchor keywords: a line starting with one of these is
	// exempt from parent-removal propagation.
	SELECT
	INSERT
	UPDATE
	DELETE

	// Dangling-clause keywords: WHERE/HAVING immediately
	// followed by one of these (or end of statement) is removed.
	WHERE
	HAVING
	ORDER
	GROUP
	LIMIT
	UNION
	EXCEPT
	INTERSECT
	FETCH
	OFFSET
	FOR

	// Set-operator keyword, combined with UNION.
	ALL

	// Boolean expression grammar keywords.
	AND
	OR
	NOT
)

var keywords = map[string]TokenType{
	"SELECT":    SELECT,
	"INSERT":    INSERT,
	"UPDATE":    UPDATE,
	"DELETE":    DELETE,
	"WHERE":     WHERE,
	"HAVING":    HAVING,
	"ORDER":     ORDER,
	"GROUP":     GROUP,
	"LIMIT":     LIMIT,
	"UNION":     UNION,
	"EXCEPT":    EXCEPT,
	"INTERSECT": INTERSECT,
	"FETCH":     FETCH,
	"OFFSET":    OFFSET,
	"FOR":       FOR,
	"ALL":       ALL,
	"AND":       AND,
	"OR":        OR,
	"NOT":       NOT,
}

var tokenNames = map[TokenType]string{
	IDENT:     "IDENT",
	SELECT:    "SELECT",
	INSERT:    "INSERT",
	UPDATE:    "UPDATE",
	DELETE:    "DELETE",
	WHERE:     "WHERE",
	HAVING:    "HAVING",
	ORDER:     "ORDER",
	GROUP:     "GROUP",
	LIMIT:     "LIMIT",
	UNION:     "UNION",
	EXCEPT:    "EXCEPT",
	INTERSECT: "INTERSECT",
	FETCH:     "FETCH",
	OFFSET:    "OFFSET",
	FOR:       "FOR",
	ALL:       "ALL",
	AND:       "AND",
	OR:        "OR",
	NOT:       "NOT",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "IDENT"
}

// LookupIdent classifies a word as a recognized keyword or a plain IDENT,
// case-insensitively.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[strings.ToUpper(ident)]; ok {
		return tok
	}
	return IDENT
}

// LeadingKeyword returns the TokenType of the first word of a stripped
// line, or IDENT if the line doesn't start with a recognized keyword.
func LeadingKeyword(content string) TokenType {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return IDENT
	}
	end := strings.IndexFunc(trimmed, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '('
	})
	word := trimmed
	if end >= 0 {
		word = trimmed[:end]
	}
	return LookupIdent(word)
}

// IsProtectedAnchor reports whether content's leading keyword is one of
// SELECT/INSERT/UPDATE/DELETE.
func IsProtectedAnchor(content string) bool {
	switch LeadingKeyword(content) {
	case SELECT, INSERT, UPDATE, DELETE:
		return true
	default:
		return false
	}
}

// ClauseKeywords lists the keywords that terminate a dangling WHERE/HAVING.
var ClauseKeywords = []TokenType{ORDER, GROUP, LIMIT, UNION, EXCEPT, INTERSECT, FETCH, OFFSET, FOR}

// IsClauseKeyword reports whether content's leading keyword is one of
// ClauseKeywords.
func IsClauseKeyword(content string) bool {
	kw := LeadingKeyword(content)
	for _, c := range ClauseKeywords {
		if kw == c {
			return true
		}
	}
	return false
}
