package ledger

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-superchat-bridge/internal/domain"
	"github.com/tbourn/go-superchat-bridge/internal/repo"
)

// Store is the durable, append-only side of the ledger.
type Store interface {
	// Append writes rec and fills rec.Seq. A payment that is already stored
	// must return an error matching ErrDuplicateKey.
	Append(ctx context.Context, rec *domain.Superchat) error
	// LoadAll returns every stored record in append order.
	LoadAll(ctx context.Context) ([]domain.Superchat, error)
}

// GormStore keeps the ledger in the superchats table.
type GormStore struct {
	DB *gorm.DB
}

// Append implements Store.
func (s GormStore) Append(ctx context.Context, rec *domain.Superchat) error {
	err := repo.AppendSuperchat(ctx, s.DB, rec)
	if errors.Is(err, repo.ErrDuplicate) {
		return ErrDuplicateKey
	}
	return err
}

// LoadAll implements Store.
func (s GormStore) LoadAll(ctx context.Context) ([]domain.Superchat, error) {
	return repo.ListSuperchats(ctx, s.DB)
}
