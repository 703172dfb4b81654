package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"telecom-bundle-chat/internal/models"
)

// periodAdjectives maps canonical periods to the adjective form labels may use.
var periodAdjectives = map[string]string{
	"day":   "daily",
	"week":  "weekly",
	"month": "monthly",
}

// GetUser returns the user registered under phone, or ErrNotFound.
func (db *DB) GetUser(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	err := db.queryRowContext(ctx,
		`SELECT phone_number, name FROM users WHERE phone_number = ?`, phone,
	).Scan(&user.Phone, &user.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// GetAirtimeBalance returns the airtime balance for phone. A user without a
// balance row has a zero balance; an unknown phone yields ErrNotFound.
func (db *DB) GetAirtimeBalance(ctx context.Context, phone string) (decimal.Decimal, error) {
	var balance decimal.NullDecimal
	err := db.queryRowContext(ctx,
		`SELECT ab.balance
		FROM users u
		LEFT JOIN airtime_balances ab ON ab.phone_number = u.phone_number
		WHERE u.phone_number = ?`, phone,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query airtime balance: %w", err)
	}
	if !balance.Valid {
		return decimal.Zero, nil
	}
	return balance.Decimal, nil
}

// ListPurchasedBundles returns the bundles bought by phone, most recent first.
func (db *DB) ListPurchasedBundles(ctx context.Context, phone string) ([]models.PurchasedBundle, error) {
	rows, err := db.queryContext(ctx,
		`SELECT mc.name, sc.name, p.label, pb.remaining_quantity, pb.purchased_at
		FROM purchased_bundles pb
		JOIN quantity_prices qp ON qp.id = pb.quantity_price_id
		JOIN periods p ON p.id = qp.period_id
		JOIN sub_categories sc ON sc.id = p.sub_category_id
		JOIN main_categories mc ON mc.id = sc.main_category_id
		WHERE pb.phone_number = ?
		ORDER BY pb.purchased_at DESC, pb.id DESC`, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchased bundles: %w", err)
	}
	defer rows.Close()

	var bundles []models.PurchasedBundle
	for rows.Next() {
		var b models.PurchasedBundle
		if err := rows.Scan(&b.MainCategory, &b.SubCategory, &b.Period, &b.RemainingQuantity, &b.PurchasedAt); err != nil {
			return nil, fmt.Errorf("failed to scan purchased bundle: %w", err)
		}
		bundles = append(bundles, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchased bundles: %w", err)
	}
	return bundles, nil
}

// ListMainCategories returns all main category names in catalog order.
func (db *DB) ListMainCategories(ctx context.Context) ([]string, error) {
	return db.queryNames(ctx, `SELECT name FROM main_categories ORDER BY id`)
}

// ListSubcategories returns sub category names in catalog order, restricted
// to one main category when main is not empty.
func (db *DB) ListSubcategories(ctx context.Context, main string) ([]string, error) {
	if main == "" {
		return db.queryNames(ctx, `SELECT name FROM sub_categories ORDER BY id`)
	}
	return db.queryNames(ctx,
		`SELECT sc.name
		FROM sub_categories sc
		JOIN main_categories mc ON mc.id = sc.main_category_id
		WHERE lower(mc.name) = lower(?)
		ORDER BY sc.id`, main)
}

// FindOffers returns the offers matching every non-empty filter field,
// sorted by main category, sub category, period label and price.
func (db *DB) FindOffers(ctx context.Context, filter models.OfferFilter) ([]models.Offer, error) {
	query := `SELECT mc.name, sc.name, p.label, qp.quantity, qp.price
		FROM quantity_prices qp
		JOIN periods p ON p.id = qp.period_id
		JOIN sub_categories sc ON sc.id = p.sub_category_id
		JOIN main_categories mc ON mc.id = sc.main_category_id`

	var conds []string
	var args []interface{}
	if filter.MainCategory != "" {
		conds = append(conds, "lower(mc.name) = lower(?)")
		args = append(args, filter.MainCategory)
	}
	if filter.SubCategory != "" {
		conds = append(conds, "lower(sc.name) = lower(?)")
		args = append(args, filter.SubCategory)
	}
	if filter.Period != "" {
		period := strings.ToLower(filter.Period)
		if adjective, ok := periodAdjectives[period]; ok {
			conds = append(conds, "(lower(p.label) LIKE ? OR lower(p.label) LIKE ?)")
			args = append(args, "%"+period+"%", "%"+adjective+"%")
		} else {
			conds = append(conds, "lower(p.label) LIKE ?")
			args = append(args, "%"+period+"%")
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY mc.name, sc.name, p.label, qp.price"

	rows, err := db.queryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query offers: %w", err)
	}
	defer rows.Close()

	var offers []models.Offer
	for rows.Next() {
		var o models.Offer
		if err := rows.Scan(&o.MainCategory, &o.SubCategory, &o.Period, &o.Quantity, &o.Price); err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating offers: %w", err)
	}
	return offers, nil
}

func (db *DB) queryNames(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := db.queryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating names: %w", err)
	}
	return names, nil
}
