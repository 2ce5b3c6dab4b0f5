// Package shares is the metadata-store adapter for Share records.
package shares

import (
	"context"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/server/models"
)

// Repository is the share-record surface consumed by the service layer.
// Implementations map a missing row to common.ErrorNotFound and a code
// uniqueness violation to common.ErrorCodeTaken.
type Repository interface {
	Create(ctx context.Context, share *models.Share) error
	GetByID(ctx context.Context, id string) (*models.Share, error)
	GetByCode(ctx context.Context, code string) (*models.Share, error)

	// ExistingCodes returns which of the candidate codes are already
	// present, live or not. One batched query backs the whole allocation
	// pool check.
	ExistingCodes(ctx context.Context, codes []string) (map[string]struct{}, error)

	// ForceExpire sets the share's due date to the epoch so the next sweep
	// reclaims it. Used for burn-after-reading on first read.
	ForceExpire(ctx context.Context, id string) error

	// DeleteDue deletes every record with due_at <= now in one statement
	// and returns the deleted records' object ids.
	DeleteDue(ctx context.Context, now time.Time) ([]string, error)

	// DeleteByIDs deletes the given records and returns their object ids.
	DeleteByIDs(ctx context.Context, ids []string) ([]string, error)

	List(ctx context.Context, p ListParams) ([]*models.Share, error)
	Count(ctx context.Context) (int64, error)
}

// ListParams controls admin listing pagination and ordering.
type ListParams struct {
	Limit   int
	Offset  int
	OrderBy string // column name; empty means created_at
	Desc    bool
}
