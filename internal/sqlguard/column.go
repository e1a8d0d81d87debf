package sqlguard

import (
	"regexp"

	"github.com/xwb1989/sqlparser"
)

// columnName normalizes a column reference to its lowercased bare name.
// Generated SQL reaches us with bare (`tenantId`), table-qualified
// (`orders.tenantId`) and alias-qualified (`o.tenantId`) references; the
// qualifier never matters for the tenant check, only the column itself.
// Unrecognized expression shapes return ok=false rather than panicking:
// the caller treats them as non-matching.
func columnName(expr sqlparser.Expr) (string, bool) {
	switch e := expr.(type) {
	case *sqlparser.ColName:
		return e.Name.Lowered(), true
	default:
		return "", false
	}
}

// literalValue extracts a string or integer literal as its string form.
func literalValue(expr sqlparser.Expr) (string, bool) {
	v, ok := expr.(*sqlparser.SQLVal)
	if !ok {
		return "", false
	}
	switch v.Type {
	case sqlparser.StrVal, sqlparser.IntVal:
		return string(v.Val), true
	default:
		return "", false
	}
}

// ansiQuotedIdent matches a double-quoted identifier, e.g. "Order".
var ansiQuotedIdent = regexp.MustCompile(`"([A-Za-z_][A-Za-z0-9_]*)"`)

// normalizeIdentQuoting rewrites ANSI double-quoted identifiers to backtick
// quoting. The generator emits ANSI-style `"Order".venue_id` references while
// the parser speaks the backtick dialect, where a double-quoted token is a
// string literal. Only plain identifier-shaped tokens are rewritten, so
// single-quoted SQL string literals are untouched.
func normalizeIdentQuoting(sql string) string {
	return ansiQuotedIdent.ReplaceAllString(sql, "`$1`")
}
