package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Features lists the optional employee columns present in the database.
// Resolved once at startup; queries are built from it.
type Features struct {
	EmployeeCapRate         bool // employees.garnish_cap_rate
	EmployeeDisplayCurrency bool // employees.display_currency
	EmployeeOverride        bool // employees.override_* columns
}

func detectFeatures(ctx context.Context, db *sql.DB) (Features, error) {
	cols, err := tableColumns(ctx, db, "employees")
	if err != nil {
		return Features{}, err
	}
	return Features{
		EmployeeCapRate:         cols["garnish_cap_rate"],
		EmployeeDisplayCurrency: cols["display_currency"],
		EmployeeOverride: cols["override_salary_type"] &&
			cols["override_amount"] &&
			cols["override_currency"],
	}, nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}

// buildCompensationQuery selects the employee's position and override
// salary. Missing optional columns are replaced by NULL so the scan shape
// never changes.
func buildCompensationQuery(f Features) string {
	optional := func(present bool, column string) string {
		if present {
			return "e." + column
		}
		return "NULL"
	}
	return fmt.Sprintf(`
		SELECT e.id,
			p.salary_type, p.salary_amount, p.currency,
			%s, %s, %s,
			%s, %s
		FROM employees e
		LEFT JOIN positions p ON p.id = e.position_id
		WHERE e.id = ?
	`,
		optional(f.EmployeeOverride, "override_salary_type"),
		optional(f.EmployeeOverride, "override_amount"),
		optional(f.EmployeeOverride, "override_currency"),
		optional(f.EmployeeCapRate, "garnish_cap_rate"),
		optional(f.EmployeeDisplayCurrency, "display_currency"),
	)
}
