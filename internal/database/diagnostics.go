package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// DiagnosticTables is the fixed table list inspected at startup.
var DiagnosticTables = []string{
	"users",
	"airtime_balances",
	"main_categories",
	"sub_categories",
	"periods",
	"quantity_prices",
	"purchased_bundles",
}

// TableReport is the outcome of inspecting one table.
type TableReport struct {
	Table string
	Rows  int64
	Err   error
}

// Diagnose counts the rows of each diagnostic table and resolves the given
// phones. Failures are logged per table or phone and never abort the run.
func (db *DB) Diagnose(ctx context.Context, logger *slog.Logger, phones ...string) []TableReport {
	reports := make([]TableReport, 0, len(DiagnosticTables))
	for _, table := range DiagnosticTables {
		report := TableReport{Table: table}
		// table names come from the fixed list above, never from input
		err := db.queryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&report.Rows)
		if err != nil {
			report.Err = err
			logger.Warn("diagnostics: table check failed", "table", table, "error", err)
		} else {
			logger.Info("diagnostics: table ok", "table", table, "rows", report.Rows)
		}
		reports = append(reports, report)
	}

	seen := make(map[string]bool)
	sorted := append([]string(nil), phones...)
	sort.Strings(sorted)
	for _, phone := range sorted {
		if phone == "" || seen[phone] {
			continue
		}
		seen[phone] = true

		user, err := db.GetUser(ctx, phone)
		switch {
		case errors.Is(err, ErrNotFound):
			logger.Warn("diagnostics: phone not registered", "phone", phone)
		case err != nil:
			logger.Warn("diagnostics: phone lookup failed", "phone", phone, "error", err)
		default:
			logger.Info("diagnostics: phone resolved", "phone", user.Phone, "name", user.Name)
		}
	}

	return reports
}
