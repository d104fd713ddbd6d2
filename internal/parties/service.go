package parties

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradeledger/backend/pkg/db"
	"github.com/tradeledger/backend/pkg/db/models"
	pkgerrors "github.com/tradeledger/backend/pkg/errors"
	"github.com/tradeledger/backend/pkg/pagination"
)

// MinSearchFragmentLen is the shortest name fragment the search accepts.
const MinSearchFragmentLen = 3

const searchResultLimit = 50

// defaultBalanceBound bounds balance-range queries when a side is omitted.
var defaultBalanceBound = decimal.NewFromInt(1_000_000)

// Service exposes party operations.
type Service interface {
	Create(ctx context.Context, input CreatePartyInput) (*PartyDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdatePartyInput) (*PartyDTO, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*PartyDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*PartyDTO, error)
	GetBalance(ctx context.Context, id uuid.UUID) (*BalanceDTO, error)
	Search(ctx context.Context, filters SearchFilters) ([]PartyDTO, error)
	FindByBalanceRange(ctx context.Context, min, max *decimal.Decimal) ([]PartyDTO, error)
	List(ctx context.Context, params pagination.Params) ([]PartyDTO, string, error)
}

type service struct {
	repo Repository
}

// NewService builds a party service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("party repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreatePartyInput) (*PartyDTO, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid email is required")
	}

	party := &models.Party{
		Name:    name,
		Email:   strings.ToLower(email),
		Address: strings.TrimSpace(input.Address),
		Balance: decimal.Zero,
		Active:  true,
	}

	created, err := s.repo.Create(ctx, party)
	if err != nil {
		if db.IsUniqueViolation(err, models.UniquePartyEmail) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a party with this email already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create party")
	}
	return FromModel(created), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdatePartyInput) (*PartyDTO, error) {
	party, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "party name cannot be empty")
		}
		party.Name = name
	}
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email == "" || !strings.Contains(email, "@") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid email is required")
		}
		party.Email = strings.ToLower(email)
	}
	if input.Address != nil {
		party.Address = strings.TrimSpace(*input.Address)
	}
	if input.Active != nil && *input.Active != party.Active {
		party.Active = *input.Active
		if party.Active {
			party.DeactivatedAt = nil
		} else {
			now := time.Now().UTC()
			party.DeactivatedAt = &now
		}
	}

	if err := s.repo.Save(ctx, party); err != nil {
		if db.IsUniqueViolation(err, models.UniquePartyEmail) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a party with this email already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update party")
	}
	return FromModel(party), nil
}

// Deactivate marks the party inactive. Deactivating an already inactive party
// refreshes the deactivation timestamp rather than failing.
func (s *service) Deactivate(ctx context.Context, id uuid.UUID) (*PartyDTO, error) {
	party, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	party.Active = false
	party.DeactivatedAt = &now

	if err := s.repo.Save(ctx, party); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate party")
	}
	return FromModel(party), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*PartyDTO, error) {
	party, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(party), nil
}

func (s *service) GetBalance(ctx context.Context, id uuid.UUID) (*BalanceDTO, error) {
	party, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &BalanceDTO{PartyID: party.ID, Balance: party.Balance}, nil
}

// Search matches parties by case-insensitive substring on each supplied
// filter, AND-combined. Every supplied filter must carry at least
// MinSearchFragmentLen characters.
func (s *service) Search(ctx context.Context, filters SearchFilters) ([]PartyDTO, error) {
	normalized, err := normalizeFilters(filters)
	if err != nil {
		return nil, err
	}

	found, err := s.repo.Search(ctx, normalized, searchResultLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search parties")
	}
	return FromModels(found), nil
}

func normalizeFilters(filters SearchFilters) (SearchFilters, error) {
	out := SearchFilters{}
	for _, f := range []struct {
		label string
		src   *string
		dst   **string
	}{
		{"name", filters.Name, &out.Name},
		{"email", filters.Email, &out.Email},
		{"address", filters.Address, &out.Address},
	} {
		if f.src == nil {
			continue
		}
		trimmed := strings.TrimSpace(*f.src)
		if len(trimmed) < MinSearchFragmentLen {
			return SearchFilters{}, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("%s filter must be at least %d characters", f.label, MinSearchFragmentLen))
		}
		*f.dst = &trimmed
	}
	return out, nil
}

func (s *service) FindByBalanceRange(ctx context.Context, min, max *decimal.Decimal) ([]PartyDTO, error) {
	lo := defaultBalanceBound.Neg()
	hi := defaultBalanceBound
	if min != nil {
		lo = *min
	}
	if max != nil {
		hi = *max
	}
	if lo.GreaterThan(hi) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min balance cannot exceed max balance")
	}

	found, err := s.repo.FindByBalanceRange(ctx, lo, hi)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query balance range")
	}
	return FromModels(found), nil
}

func (s *service) List(ctx context.Context, params pagination.Params) ([]PartyDTO, string, error) {
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list parties")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return FromModels(rows), next, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Party, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id is required")
	}
	party, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "party not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load party")
	}
	return party, nil
}
