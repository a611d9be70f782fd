package dialect

import "testing"

func TestDialectAttributes(t *testing.T) {
	if Sqlite.PlaceholderStyle != Question || Sqlite.InClauseLimit != Unlimited {
		t.Errorf("Sqlite = %+v", Sqlite)
	}
	if PostgreSQL.PlaceholderStyle != Percent || !PostgreSQL.BackslashEscapes {
		t.Errorf("PostgreSQL = %+v", PostgreSQL)
	}
	if MySQL.PlaceholderStyle != Percent || !MySQL.BackslashEscapes {
		t.Errorf("MySQL = %+v", MySQL)
	}
	if Oracle.PlaceholderStyle != Named || Oracle.InClauseLimit != 1000 {
		t.Errorf("Oracle = %+v", Oracle)
	}
	for _, d := range []Dialect{Sqlite, PostgreSQL, MySQL, Oracle} {
		if d.LikeEscapeChar != "#" || d.LikeEscapeChars != "#%_" {
			t.Errorf("%s LIKE escape policy = %q/%q", d.ID, d.LikeEscapeChar, d.LikeEscapeChars)
		}
	}
}

func TestPlaceholderStyleString(t *testing.T) {
	tests := []struct {
		s    PlaceholderStyle
		want string
	}{
		{Question, "?"},
		{Percent, "%s"},
		{Named, ":name"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestPick(t *testing.T) {
	tests := []struct {
		name   string
		want   ID
		wantOK bool
	}{
		{"sqlite", SqliteID, true},
		{"SQLite3", SqliteID, true},
		{"postgres", PostgreSQLID, true},
		{"PostgreSQL", PostgreSQLID, true},
		{"mysql", MySQLID, true},
		{"oracle", OracleID, true},
		{" oracle ", OracleID, true},
		{"mssql", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		d, ok := Pick(tt.name)
		if ok != tt.wantOK || (ok && d.ID != tt.want) {
			t.Errorf("Pick(%q) = (%v, %v), want (%v, %v)", tt.name, d.ID, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFromDriverName(t *testing.T) {
	tests := []struct {
		driver string
		want   ID
		wantOK bool
	}{
		{"sqlite3", SqliteID, true},
		{"postgres", PostgreSQLID, true},
		{"pgx", PostgreSQLID, true},
		{"mysql", MySQLID, true},
		{"godror", OracleID, true},
		{"unknown", "", false},
	}
	for _, tt := range tests {
		d, ok := FromDriverName(tt.driver)
		if ok != tt.wantOK || (ok && d.ID != tt.want) {
			t.Errorf("FromDriverName(%q) = (%v, %v), want (%v, %v)", tt.driver, d.ID, ok, tt.want, tt.wantOK)
		}
	}
}

func TestEscapeChar(t *testing.T) {
	if got := Sqlite.EscapeChar(""); got != "#" {
		t.Errorf("default escape char = %q, want #", got)
	}
	if got := Sqlite.EscapeChar("\\"); got != "\\" {
		t.Errorf("override escape char = %q", got)
	}
}
