// Package storage provides the SQLite persistence layer for associations and
// price history.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/cesta/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidAssociation = errors.New("invalid association")
	ErrInvalidPricePoint  = errors.New("invalid price point")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateAssociation(a *model.Association) error {
	if a == nil {
		return fmt.Errorf("%w: association", ErrNilParameter)
	}
	if strings.TrimSpace(a.Key) == "" {
		return fmt.Errorf("%w: missing key", ErrInvalidAssociation)
	}
	if strings.TrimSpace(a.ProductID) == "" {
		return fmt.Errorf("%w: missing product id", ErrInvalidAssociation)
	}
	switch a.Source {
	case model.SourceUser, model.SourceSystem, "":
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidAssociation, a.Source)
	}
	return nil
}

func validatePriceSnapshot(date string, prices map[string]float64, maxPoints int) error {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return fmt.Errorf("%w: date %q: %w", ErrInvalidPricePoint, date, err)
	}
	if maxPoints <= 0 {
		return fmt.Errorf("%w: maxPoints must be positive", ErrInvalidPricePoint)
	}
	for id, price := range prices {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: empty product id", ErrInvalidPricePoint)
		}
		if price <= 0 {
			return fmt.Errorf("%w: product %s has price %v", ErrInvalidPricePoint, id, price)
		}
	}
	return nil
}
