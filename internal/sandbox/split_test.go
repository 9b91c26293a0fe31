package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{"empty", "", nil},
		{"whitespace only", "  \n\t ", nil},
		{"single without terminator", "SELECT 1", []string{"SELECT 1"}},
		{"single with terminator", "SELECT 1;", []string{"SELECT 1"}},
		{"two statements", "SELECT 1; SELECT 2;", []string{"SELECT 1", "SELECT 2"}},
		{"semicolon in string", "SELECT 'a;b'; SELECT 2", []string{"SELECT 'a;b'", "SELECT 2"}},
		{"escaped quote", "SELECT 'it''s; fine'", []string{"SELECT 'it''s; fine'"}},
		{"quoted identifier", `SELECT "a;b" FROM t`, []string{`SELECT "a;b" FROM t`}},
		{"backtick identifier", "SELECT `a;b` FROM t", []string{"SELECT `a;b` FROM t"}},
		{"bracket identifier", "SELECT [a;b] FROM t", []string{"SELECT [a;b] FROM t"}},
		{"line comment", "SELECT 1 -- no; split\n; SELECT 2", []string{"SELECT 1 -- no; split", "SELECT 2"}},
		{"block comment", "SELECT /* ; */ 1", []string{"SELECT /* ; */ 1"}},
		{"comment only dropped", "-- just a note;\n", nil},
		{"trailing comment dropped", "SELECT 1; /* done */", []string{"SELECT 1"}},
		{"empty statements dropped", ";;SELECT 1;;", []string{"SELECT 1"}},
		{"unterminated string", "SELECT 'abc", []string{"SELECT 'abc"}},
		{
			"trigger body",
			"CREATE TRIGGER t AFTER INSERT ON users BEGIN INSERT INTO log VALUES (new.name); END; SELECT 1",
			[]string{"CREATE TRIGGER t AFTER INSERT ON users BEGIN INSERT INTO log VALUES (new.name); END", "SELECT 1"},
		},
		{
			"trigger body with case",
			"create temp trigger t after update on users begin update log set v = case when new.id > 1 then 'a' else 'b' end; delete from log; end;select 2",
			[]string{"create temp trigger t after update on users begin update log set v = case when new.id > 1 then 'a' else 'b' end; delete from log; end", "select 2"},
		},
		{"transaction begin", "BEGIN; SELECT 1; COMMIT;", []string{"BEGIN", "SELECT 1", "COMMIT"}},
		{"case outside trigger", "SELECT CASE WHEN 1 THEN 2 END; SELECT 3", []string{"SELECT CASE WHEN 1 THEN 2 END", "SELECT 3"}},
		{"dollar quoted", "SELECT $$a;b$$; SELECT 2", []string{"SELECT $$a;b$$", "SELECT 2"}},
		{"tagged dollar quoted", "SELECT $fn$a;$$;b$fn$", []string{"SELECT $fn$a;$$;b$fn$"}},
		{"positional parameter", "SELECT $1; SELECT 2", []string{"SELECT $1", "SELECT 2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitStatements(tt.script))
		})
	}
}
