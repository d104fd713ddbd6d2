package orders

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradeledger/backend/internal/settlement"
	"github.com/tradeledger/backend/pkg/config"
	pkgerrors "github.com/tradeledger/backend/pkg/errors"
	"github.com/tradeledger/backend/pkg/logger"
	"github.com/tradeledger/backend/pkg/pagination"
)

type partyRepository interface {
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service accepts settlement requests, throttles them, and exposes reads over
// committed orders.
type Service interface {
	Submit(ctx context.Context, input SubmitOrderInput) (*OrderDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, params pagination.Params) ([]OrderDTO, string, error)
	ListByParty(ctx context.Context, partyID uuid.UUID) ([]OrderDTO, error)
}

type service struct {
	repo     Repository
	parties  partyRepository
	engine   settlement.Engine
	delayMin time.Duration
	delayMax time.Duration
	logg     *logger.Logger
}

// NewService builds the order intake service.
func NewService(
	repo Repository,
	partyRepo partyRepository,
	engine settlement.Engine,
	cfg config.SettlementConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if partyRepo == nil {
		return nil, fmt.Errorf("party repository required")
	}
	if engine == nil {
		return nil, fmt.Errorf("settlement engine required")
	}
	return &service{
		repo:     repo,
		parties:  partyRepo,
		engine:   engine,
		delayMin: cfg.DelayMin,
		delayMax: cfg.DelayMax,
		logg:     logg,
	}, nil
}

// Submit validates the proposal, stamps its start time, waits a randomized
// interval outside any lock, and hands off to the settlement engine. A request
// cancelled during the wait never reaches the engine.
func (s *service) Submit(ctx context.Context, input SubmitOrderInput) (*OrderDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order name is required")
	}
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}
	if input.ConsumerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "consumer id is required")
	}
	if input.SupplierID == input.ConsumerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier and consumer must be distinct parties")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}

	startTime := time.Now().UTC()

	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	order, err := s.engine.Settle(ctx, settlement.Proposal{
		Name:       name,
		SupplierID: input.SupplierID,
		ConsumerID: input.ConsumerID,
		Price:      input.Price,
		StartTime:  startTime,
	})
	if err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

// wait sleeps for a uniformly random interval between the configured bounds.
// The wait happens before any database work so no lock is ever held across it.
func (s *service) wait(ctx context.Context) error {
	delay := s.delayMin
	if span := s.delayMax - s.delayMin; span > 0 {
		// package-level source: safe for concurrent submissions
		delay += time.Duration(rand.Int63n(int64(span) + 1))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return pkgerrors.Wrap(pkgerrors.CodeCancelled, ctx.Err(), "request cancelled before settlement")
	case <-timer.C:
		return nil
	}
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return FromModel(order), nil
}

func (s *service) List(ctx context.Context, params pagination.Params) ([]OrderDTO, string, error) {
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
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

// ListByParty returns every order the party participated in, either side.
func (s *service) ListByParty(ctx context.Context, partyID uuid.UUID) ([]OrderDTO, error) {
	if partyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id is required")
	}

	exists, err := s.parties.ExistsByID(ctx, partyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check party")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "party not found")
	}

	rows, err := s.repo.ListByParty(ctx, partyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list party orders")
	}
	return FromModels(rows), nil
}
