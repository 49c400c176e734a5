package repository

import (
	"strings"
	"testing"
)

func TestSQLDateExprDefaultsToSqlite(t *testing.T) {
	expr := sqlDateExpr(nil, "created_at")
	if !strings.Contains(expr, "strftime") {
		t.Fatalf("nil db should use sqlite expression, got: %s", expr)
	}
	if !strings.Contains(expr, "created_at") {
		t.Fatalf("expression should reference the column, got: %s", expr)
	}
}

func TestDBDialectNameNil(t *testing.T) {
	if got := dbDialectName(nil); got != "sqlite" {
		t.Fatalf("nil db dialect want sqlite got %s", got)
	}
}
