package parties

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tradeledger/backend/pkg/db/models"
	"github.com/tradeledger/backend/pkg/pagination"
)

// Repository handles party persistence.
type Repository interface {
	Create(ctx context.Context, party *models.Party) (*models.Party, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Party, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Party, error)
	Save(ctx context.Context, party *models.Party) error
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	Search(ctx context.Context, filters SearchFilters, limit int) ([]models.Party, error)
	FindByBalanceRange(ctx context.Context, min, max decimal.Decimal) ([]models.Party, error)
	List(ctx context.Context, params pagination.Params) ([]models.Party, error)
	WithTx(tx *gorm.DB) Repository
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a party repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, party *models.Party) (*models.Party, error) {
	if party == nil {
		return nil, fmt.Errorf("party is required")
	}
	if party.ID == uuid.Nil {
		party.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(party).Error; err != nil {
		return nil, err
	}
	return party, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Party, error) {
	var party models.Party
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&party).Error; err != nil {
		return nil, err
	}
	return &party, nil
}

// FindByIDForUpdate loads the party under an exclusive row lock. The lock
// lasts until the surrounding transaction commits or rolls back; outside a
// transaction it degrades to a plain read.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Party, error) {
	q := r.db.WithContext(ctx)
	// SQLite serializes writers at the connection level and rejects
	// FOR UPDATE syntax, so row locks only apply on postgres.
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var party models.Party
	if err := q.Where("id = ?", id).First(&party).Error; err != nil {
		return nil, err
	}
	return &party, nil
}

func (r *repository) Save(ctx context.Context, party *models.Party) error {
	if party == nil {
		return fmt.Errorf("party is required")
	}
	return r.db.WithContext(ctx).Save(party).Error
}

func (r *repository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Party{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SearchFilters holds optional substring filters, AND-combined when supplied.
type SearchFilters struct {
	Name    *string
	Email   *string
	Address *string
}

func (r *repository) Search(ctx context.Context, filters SearchFilters, limit int) ([]models.Party, error) {
	q := r.db.WithContext(ctx)
	if filters.Name != nil {
		q = q.Where("LOWER(name) LIKE ?", likePattern(*filters.Name))
	}
	if filters.Email != nil {
		q = q.Where("LOWER(email) LIKE ?", likePattern(*filters.Email))
	}
	if filters.Address != nil {
		q = q.Where("LOWER(address) LIKE ?", likePattern(*filters.Address))
	}

	var out []models.Party
	err := q.Order("name ASC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func likePattern(fragment string) string {
	return "%" + strings.ToLower(fragment) + "%"
}

func (r *repository) FindByBalanceRange(ctx context.Context, min, max decimal.Decimal) ([]models.Party, error) {
	var out []models.Party
	err := r.db.WithContext(ctx).
		Where("balance >= ? AND balance <= ?", min, max).
		Order("balance ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params) ([]models.Party, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var out []models.Party
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
