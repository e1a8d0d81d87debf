// Package sqlguard proves that generated SQL is scoped to exactly one
// tenant before it is allowed anywhere near the data store. It is a
// security boundary: any doubt rejects.
package sqlguard

import (
	"strings"

	"github.com/xwb1989/sqlparser"
	"go.uber.org/zap"

	"github.com/sells-group/insights-cli/internal/model"
)

// Stable rejection messages. Callers and tests match on these.
const (
	ErrMsgEmptyStatement     = "empty SQL statement"
	ErrMsgMultipleStatements = "multiple SQL statements are not allowed"
	ErrMsgUnparseable        = "SQL statement could not be parsed"
	ErrMsgNotSelect          = "only single SELECT statements are allowed"
	ErrMsgNoTenantFilter     = "no tenant filter found in WHERE clause"
	ErrMsgWrongTenantValue   = "tenant filter present but value does not match required tenant"
)

// tenantColumns are the column names (lowercased) accepted as the tenant
// scoping column. The store schema uses venue_id; generated SQL has been
// observed emitting every casing and both vocabularies.
var tenantColumns = map[string]bool{
	"tenantid":  true,
	"tenant_id": true,
	"venueid":   true,
	"venue_id":  true,
}

// Validate parses sql and proves the tenant-isolation invariant: the
// top-level AND-chain of the WHERE clause must contain an equality between a
// tenant column and the literal requiredTenantID. Predicates inside OR
// branches never satisfy the invariant, so `WHERE venue_id = 'v1' OR 1=1`
// rejects. The function never panics on odd statement shapes; anything it
// does not recognize is treated as non-matching.
func Validate(sql, requiredTenantID string) model.ValidationOutcome {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return reject(sql, requiredTenantID, ErrMsgEmptyStatement)
	}

	pieces, err := sqlparser.SplitStatementToPieces(sql)
	if err != nil {
		return reject(sql, requiredTenantID, ErrMsgUnparseable)
	}
	if countNonEmpty(pieces) > 1 {
		return reject(sql, requiredTenantID, ErrMsgMultipleStatements)
	}

	stmt, err := sqlparser.Parse(normalizeIdentQuoting(sql))
	if err != nil {
		return reject(sql, requiredTenantID, ErrMsgUnparseable)
	}

	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		// UNION, INSERT, UPDATE, DDL and everything else is out. The
		// executor is read-only, but the boundary is enforced here first.
		return reject(sql, requiredTenantID, ErrMsgNotSelect)
	}

	if sel.Where == nil {
		return reject(sql, requiredTenantID, ErrMsgNoTenantFilter)
	}

	found := false
	value := ""
	for _, conjunct := range flattenConjuncts(sel.Where.Expr, nil) {
		col, lit, ok := tenantEquality(conjunct)
		if !ok {
			continue
		}
		if !tenantColumns[col] {
			continue
		}
		found = true
		value = lit
		if lit != requiredTenantID {
			// A tenant predicate for the wrong tenant is an immediate
			// rejection even if another conjunct carries the right one.
			out := reject(sql, requiredTenantID, ErrMsgWrongTenantValue)
			out.HasTenantFilter = true
			out.TenantFilterValue = lit
			return out
		}
	}

	if !found {
		return reject(sql, requiredTenantID, ErrMsgNoTenantFilter)
	}

	return model.ValidationOutcome{
		Valid:             true,
		HasTenantFilter:   true,
		TenantFilterValue: value,
	}
}

// flattenConjuncts collects the top-level AND-chain of expr. AND nodes and
// parentheses are flattened; OR nodes are deliberately left opaque so that a
// tenant equality buried inside an OR branch cannot satisfy the invariant.
func flattenConjuncts(expr sqlparser.Expr, out []sqlparser.Expr) []sqlparser.Expr {
	switch e := expr.(type) {
	case *sqlparser.AndExpr:
		out = flattenConjuncts(e.Left, out)
		out = flattenConjuncts(e.Right, out)
	case *sqlparser.ParenExpr:
		out = flattenConjuncts(e.Expr, out)
	default:
		out = append(out, expr)
	}
	return out
}

// tenantEquality extracts (column, literal) from an equality comparison,
// accepting the literal on either side. Returns ok=false for anything that
// is not a plain `column = literal` comparison.
func tenantEquality(expr sqlparser.Expr) (col, lit string, ok bool) {
	cmp, isCmp := expr.(*sqlparser.ComparisonExpr)
	if !isCmp || cmp.Operator != sqlparser.EqualStr {
		return "", "", false
	}

	if col, ok = columnName(cmp.Left); ok {
		if lit, ok = literalValue(cmp.Right); ok {
			return col, lit, true
		}
	}
	if col, ok = columnName(cmp.Right); ok {
		if lit, ok = literalValue(cmp.Left); ok {
			return col, lit, true
		}
	}
	return "", "", false
}

func countNonEmpty(pieces []string) int {
	n := 0
	for _, p := range pieces {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

func reject(sql, tenantID, msg string) model.ValidationOutcome {
	zap.L().Warn("sqlguard: rejected statement",
		zap.String("tenant_id", tenantID),
		zap.String("reason", msg),
		zap.String("sql", sql),
	)
	return model.ValidationOutcome{
		Valid:  false,
		Errors: []string{msg},
	}
}
