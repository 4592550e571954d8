package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/cesta/internal/common"
	"github.com/Veraticus/cesta/internal/model"
)

// GetAssociations retrieves every stored association ordered by key.
func (s *SQLiteStorage) GetAssociations(ctx context.Context) ([]model.Association, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getAssociationsTx(ctx, s.db)
}

func (s *SQLiteStorage) getAssociationsTx(ctx context.Context, q queryable) ([]model.Association, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT key, product_id, original_product_name, saved_at, source
		FROM associations
		ORDER BY key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query associations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var associations []model.Association
	for rows.Next() {
		var a model.Association
		var source string
		if err := rows.Scan(&a.Key, &a.ProductID, &a.OriginalProductName, &a.SavedAt, &source); err != nil {
			return nil, fmt.Errorf("failed to scan association: %w", err)
		}
		a.Source = model.AssociationSource(source)
		associations = append(associations, a)
	}

	return associations, rows.Err()
}

// SaveAssociation inserts or overwrites the association for its key.
func (s *SQLiteStorage) SaveAssociation(ctx context.Context, association *model.Association) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAssociation(association); err != nil {
		return err
	}

	if association.SavedAt.IsZero() {
		association.SavedAt = time.Now()
	}
	if association.Source == "" {
		association.Source = model.SourceUser
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO associations (key, product_id, original_product_name, saved_at, source)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			product_id = excluded.product_id,
			original_product_name = excluded.original_product_name,
			saved_at = excluded.saved_at,
			source = excluded.source
	`, association.Key, association.ProductID, association.OriginalProductName,
		association.SavedAt.UTC(), string(association.Source))
	if err != nil {
		return fmt.Errorf("failed to save association: %w", err)
	}

	return nil
}

// DeleteAssociation removes the association stored under key.
func (s *SQLiteStorage) DeleteAssociation(ctx context.Context, key string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(key, "key"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM associations WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete association: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return common.ErrNotFound
	}

	return nil
}
