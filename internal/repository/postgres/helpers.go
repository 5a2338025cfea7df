package postgres

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/samber/lo"
)

// rebind rewrites ? placeholders into positional $n parameters
func rebind(query string) string {
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString(fmt.Sprintf("$%d", n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// isUniqueViolation reports whether the error is a postgres unique
// constraint violation
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

// sortableColumns whitelists columns accepted in ORDER BY clauses. Sorting
// by anything else silently falls back to created_at.
var sortableColumns = []string{
	"created_at", "updated_at", "issue_date", "due_date", "next_run_date",
	"payment_date", "total", "amount_due", "invoice_number", "estimate_number",
	"name",
}

func sanitizeSortColumn(column string) string {
	if lo.Contains(sortableColumns, column) {
		return column
	}
	return "created_at"
}

func sanitizeSortOrder(order string) string {
	if strings.EqualFold(order, "asc") {
		return "ASC"
	}
	return "DESC"
}
