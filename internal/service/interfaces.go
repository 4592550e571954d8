// Package service defines the interfaces shared between the stores and the
// persistence layer.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/cesta/internal/model"
)

// AssociationRepository persists learned ticket-item associations.
type AssociationRepository interface {
	GetAssociations(ctx context.Context) ([]model.Association, error)
	SaveAssociation(ctx context.Context, association *model.Association) error
	DeleteAssociation(ctx context.Context, key string) error
}

// PriceHistoryRepository persists daily price series.
type PriceHistoryRepository interface {
	LoadPriceHistory(ctx context.Context) (map[string][]model.PricePoint, error)
	// AppendPricePoints records one point per product for date, keeping any
	// point already stored for that day, then trims every series to its
	// most recent maxPoints points.
	AppendPricePoints(ctx context.Context, date string, prices map[string]float64, maxPoints int) error
}

// Storage is the full persistence contract.
type Storage interface {
	AssociationRepository
	PriceHistoryRepository

	Migrate(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
