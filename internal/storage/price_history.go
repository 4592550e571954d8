package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/cesta/internal/model"
)

// LoadPriceHistory returns every stored series keyed by product id, each
// ordered oldest first.
func (s *SQLiteStorage) LoadPriceHistory(ctx context.Context) (map[string][]model.PricePoint, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, date, price
		FROM price_history
		ORDER BY product_id, date
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	history := make(map[string][]model.PricePoint)
	for rows.Next() {
		var productID string
		var point model.PricePoint
		if err := rows.Scan(&productID, &point.Date, &point.Price); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		history[productID] = append(history[productID], point)
	}

	return history, rows.Err()
}

// AppendPricePoints records the prices observed on date and trims each
// series to its most recent maxPoints points, all in one transaction.
func (s *SQLiteStorage) AppendPricePoints(ctx context.Context, date string, prices map[string]float64, maxPoints int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePriceSnapshot(date, prices, maxPoints); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO price_history (product_id, date, price)
			VALUES (?, ?, ?)
			ON CONFLICT(product_id, date) DO NOTHING
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare price insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for productID, price := range prices {
			if _, err := stmt.ExecContext(ctx, productID, date, price); err != nil {
				return fmt.Errorf("failed to insert price for %s: %w", productID, err)
			}
		}

		return trimPriceHistoryTx(ctx, tx, maxPoints)
	})
}

func trimPriceHistoryTx(ctx context.Context, q queryable, maxPoints int) error {
	_, err := q.ExecContext(ctx, `
		DELETE FROM price_history
		WHERE rowid IN (
			SELECT rowid FROM (
				SELECT rowid,
					ROW_NUMBER() OVER (PARTITION BY product_id ORDER BY date DESC) AS rn
				FROM price_history
			)
			WHERE rn > ?
		)
	`, maxPoints)
	if err != nil {
		return fmt.Errorf("failed to trim price history: %w", err)
	}
	return nil
}
