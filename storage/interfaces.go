package storage

import (
	"context"

	"appliance-pipeline/models"
)

// CategoryStore is the interface any database backend must satisfy. One table
// holds one appliance category.
type CategoryStore interface {
	Tables(ctx context.Context) ([]string, error)
	Read(ctx context.Context, name string) (*models.Table, error)
	// Replace drops any existing table of that name and writes t in its place.
	Replace(ctx context.Context, name string, t *models.Table) error
	Close() error
}
