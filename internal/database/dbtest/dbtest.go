// Package dbtest provides SQLite-backed fixtures for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"telecom-bundle-chat/internal/database"
)

// Fixture phones.
const (
	PhoneAmina = "0700000001" // no airtime row, no bundles
	PhoneBrian = "0700000002" // airtime 125.50, two bundles
)

// NewDB returns a migrated SQLite database that is removed when the test ends.
func NewDB(t *testing.T) *database.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "chat_"+uuid.NewString()+".db")
	db, err := database.NewDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// NewSeededDB returns a migrated database loaded with the standard catalog.
func NewSeededDB(t *testing.T) *database.DB {
	t.Helper()

	db := NewDB(t)
	Seed(t, db)
	return db
}

// Seed loads two users, three main categories (SMS has no sub categories)
// and a handful of offers and purchases.
func Seed(t *testing.T, db *database.DB) {
	t.Helper()

	statements := []struct {
		query string
		args  []interface{}
	}{
		{`INSERT INTO users (phone_number, name) VALUES (?, ?)`, []interface{}{PhoneAmina, "Amina"}},
		{`INSERT INTO users (phone_number, name) VALUES (?, ?)`, []interface{}{PhoneBrian, "Brian"}},
		{`INSERT INTO airtime_balances (phone_number, balance) VALUES (?, ?)`, []interface{}{PhoneBrian, "125.50"}},

		{`INSERT INTO main_categories (id, name) VALUES (?, ?)`, []interface{}{1, "Data"}},
		{`INSERT INTO main_categories (id, name) VALUES (?, ?)`, []interface{}{2, "Voice"}},
		{`INSERT INTO main_categories (id, name) VALUES (?, ?)`, []interface{}{3, "SMS"}},

		{`INSERT INTO sub_categories (id, main_category_id, name) VALUES (?, ?, ?)`, []interface{}{1, 1, "Daily Data"}},
		{`INSERT INTO sub_categories (id, main_category_id, name) VALUES (?, ?, ?)`, []interface{}{2, 1, "Weekly Data"}},
		{`INSERT INTO sub_categories (id, main_category_id, name) VALUES (?, ?, ?)`, []interface{}{3, 2, "Local Minutes"}},

		{`INSERT INTO periods (id, sub_category_id, label) VALUES (?, ?, ?)`, []interface{}{1, 1, "Daily"}},
		{`INSERT INTO periods (id, sub_category_id, label) VALUES (?, ?, ?)`, []interface{}{2, 2, "Weekly"}},
		{`INSERT INTO periods (id, sub_category_id, label) VALUES (?, ?, ?)`, []interface{}{3, 3, "Monthly"}},

		{`INSERT INTO quantity_prices (id, period_id, quantity, price) VALUES (?, ?, ?, ?)`, []interface{}{1, 1, 1000, "99.50"}},
		{`INSERT INTO quantity_prices (id, period_id, quantity, price) VALUES (?, ?, ?, ?)`, []interface{}{2, 1, 500, "50.00"}},
		{`INSERT INTO quantity_prices (id, period_id, quantity, price) VALUES (?, ?, ?, ?)`, []interface{}{3, 2, 5000, "250.00"}},
		{`INSERT INTO quantity_prices (id, period_id, quantity, price) VALUES (?, ?, ?, ?)`, []interface{}{4, 3, 300, "150.00"}},

		{`INSERT INTO purchased_bundles (id, phone_number, quantity_price_id, remaining_quantity, purchased_at) VALUES (?, ?, ?, ?, ?)`,
			[]interface{}{1, PhoneBrian, 2, 200, time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC)}},
		{`INSERT INTO purchased_bundles (id, phone_number, quantity_price_id, remaining_quantity, purchased_at) VALUES (?, ?, ?, ?, ?)`,
			[]interface{}{2, PhoneBrian, 3, 4000, time.Date(2026, 2, 10, 18, 0, 0, 0, time.UTC)}},
	}

	ctx := context.Background()
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			t.Fatalf("Failed to seed %q: %v", stmt.query, err)
		}
	}
}
