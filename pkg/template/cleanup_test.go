package template

import "testing"

func TestCleanSQL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"trailing AND",
			"SELECT * FROM t\nWHERE\n    a = 1 AND",
			"SELECT * FROM t\nWHERE\n    a = 1",
		},
		{
			"trailing OR before a whitespace-only last line",
			"SELECT * FROM t\nWHERE\n    a = 1 OR\n    ",
			"SELECT * FROM t\nWHERE\n    a = 1\n    ",
		},
		{
			"leading AND after WHERE",
			"SELECT * FROM t\nWHERE\n    AND a = 1",
			"SELECT * FROM t\nWHERE\n    a = 1",
		},
		{
			"leading OR after HAVING",
			"SELECT x, count(*) FROM t GROUP BY x\nHAVING\n    OR count(*) > 1",
			"SELECT x, count(*) FROM t GROUP BY x\nHAVING\n    count(*) > 1",
		},
		{
			"dangling WHERE at end",
			"SELECT * FROM t\nWHERE",
			"SELECT * FROM t",
		},
		{
			"dangling WHERE before ORDER",
			"SELECT * FROM t\nWHERE\nORDER BY id",
			"SELECT * FROM t\nORDER BY id",
		},
		{
			"WHERE before a predicate is kept",
			"SELECT * FROM t\nWHERE\n    a = 1",
			"SELECT * FROM t\nWHERE\n    a = 1",
		},
		{
			"orphan closing paren line",
			"SELECT * FROM t\n)",
			"SELECT * FROM t",
		},
		{
			"matched closing paren line survives",
			"WITH x AS (\n    SELECT 1\n)\nSELECT * FROM x",
			"WITH x AS (\n    SELECT 1\n)\nSELECT * FROM x",
		},
		{
			"trailing comma before closing paren",
			"INSERT INTO t (\n    a,\n    b,\n) VALUES (1, 2)",
			"INSERT INTO t (\n    a,\n    b\n) VALUES (1, 2)",
		},
		{
			"leading set operator",
			"UNION ALL\nSELECT * FROM b",
			"SELECT * FROM b",
		},
		{
			"trailing set operator",
			"SELECT * FROM a\nEXCEPT",
			"SELECT * FROM a",
		},
		{
			"set operator between statements survives",
			"SELECT * FROM a\nINTERSECT\nSELECT * FROM b",
			"SELECT * FROM a\nINTERSECT\nSELECT * FROM b",
		},
		{
			"consecutive set operators collapse to the first",
			"SELECT * FROM a\nUNION\nUNION ALL\nSELECT * FROM b",
			"SELECT * FROM a\nUNION\nSELECT * FROM b",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanSQL(tt.in); got != tt.want {
				t.Errorf("cleanSQL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanSQLIdempotent(t *testing.T) {
	inputs := []string{
		"SELECT * FROM t\nWHERE\n    a = 1 AND\nORDER BY id",
		"SELECT * FROM a\nUNION\nUNION ALL\nSELECT * FROM b",
		"SELECT * FROM t\n)",
	}
	for _, in := range inputs {
		once := cleanSQL(in)
		if twice := cleanSQL(once); twice != once {
			t.Errorf("not idempotent for %q:\nonce:  %q\ntwice: %q", in, once, twice)
		}
	}
}
