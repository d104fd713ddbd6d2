package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tradeledger/backend/internal/settlement"
	"github.com/tradeledger/backend/pkg/config"
	"github.com/tradeledger/backend/pkg/db/models"
	pkgerrors "github.com/tradeledger/backend/pkg/errors"
	"github.com/tradeledger/backend/pkg/pagination"
)

type fakeOrderRepository struct {
	findFn        func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	listFn        func(ctx context.Context, params pagination.Params) ([]models.Order, error)
	listByPartyFn func(ctx context.Context, partyID uuid.UUID) ([]models.Order, error)
}

func (f *fakeOrderRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeOrderRepository) CreateWithTx(tx *gorm.DB, order *models.Order) error { return nil }

func (f *fakeOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if f.findFn != nil {
		return f.findFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrderRepository) List(ctx context.Context, params pagination.Params) ([]models.Order, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, nil
}

func (f *fakeOrderRepository) ListByParty(ctx context.Context, partyID uuid.UUID) ([]models.Order, error) {
	if f.listByPartyFn != nil {
		return f.listByPartyFn(ctx, partyID)
	}
	return nil, nil
}

type fakePartyChecker struct {
	exists bool
}

func (f *fakePartyChecker) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	return f.exists, nil
}

type fakeEngine struct {
	calls    int
	settleFn func(ctx context.Context, proposal settlement.Proposal) (*models.Order, error)
}

func (f *fakeEngine) Settle(ctx context.Context, proposal settlement.Proposal) (*models.Order, error) {
	f.calls++
	if f.settleFn != nil {
		return f.settleFn(ctx, proposal)
	}
	return &models.Order{ID: uuid.New()}, nil
}

func fastSettlementConfig() config.SettlementConfig {
	return config.SettlementConfig{
		Floor:       decimal.NewFromInt(-1000),
		DelayMin:    time.Millisecond,
		DelayMax:    2 * time.Millisecond,
		HoldTimeout: time.Second,
	}
}

func newTestService(t *testing.T, repo Repository, checker partyRepository, engine settlement.Engine) Service {
	t.Helper()
	svc, err := NewService(repo, checker, engine, fastSettlementConfig(), nil)
	require.NoError(t, err)
	return svc
}

func TestSubmitRejectsMalformedInput(t *testing.T) {
	engine := &fakeEngine{}
	svc := newTestService(t, &fakeOrderRepository{}, &fakePartyChecker{exists: true}, engine)

	supplier := uuid.New()
	consumer := uuid.New()
	price := decimal.NewFromInt(10)

	cases := []struct {
		name  string
		input SubmitOrderInput
	}{
		{"blank name", SubmitOrderInput{Name: "  ", SupplierID: supplier, ConsumerID: consumer, Price: price}},
		{"missing supplier", SubmitOrderInput{Name: "o", ConsumerID: consumer, Price: price}},
		{"missing consumer", SubmitOrderInput{Name: "o", SupplierID: supplier, Price: price}},
		{"same party twice", SubmitOrderInput{Name: "o", SupplierID: supplier, ConsumerID: supplier, Price: price}},
		{"zero price", SubmitOrderInput{Name: "o", SupplierID: supplier, ConsumerID: consumer, Price: decimal.Zero}},
		{"negative price", SubmitOrderInput{Name: "o", SupplierID: supplier, ConsumerID: consumer, Price: decimal.NewFromInt(-5)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tc.input)
			assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
		})
	}

	// structural failures happen before any side effect
	assert.Zero(t, engine.calls)
}

func TestSubmitCancelledDuringWait(t *testing.T) {
	engine := &fakeEngine{}
	svc := newTestService(t, &fakeOrderRepository{}, &fakePartyChecker{exists: true}, engine)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Submit(ctx, SubmitOrderInput{
		Name:       "late-cancel",
		SupplierID: uuid.New(),
		ConsumerID: uuid.New(),
		Price:      decimal.NewFromInt(10),
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeCancelled))
	assert.Zero(t, engine.calls, "engine must not run for a cancelled request")
}

func TestSubmitDelegatesToEngine(t *testing.T) {
	var got settlement.Proposal
	committed := &models.Order{
		ID:        uuid.New(),
		Name:      "steel-batch-7",
		Price:     decimal.NewFromInt(25),
		StartTime: time.Now().UTC(),
		EndTime:   time.Now().UTC(),
	}
	engine := &fakeEngine{
		settleFn: func(ctx context.Context, proposal settlement.Proposal) (*models.Order, error) {
			got = proposal
			return committed, nil
		},
	}
	svc := newTestService(t, &fakeOrderRepository{}, &fakePartyChecker{exists: true}, engine)

	supplier := uuid.New()
	consumer := uuid.New()
	before := time.Now().UTC()

	dto, err := svc.Submit(context.Background(), SubmitOrderInput{
		Name:       "  steel-batch-7  ",
		SupplierID: supplier,
		ConsumerID: consumer,
		Price:      decimal.NewFromInt(25),
	})
	require.NoError(t, err)

	assert.Equal(t, "steel-batch-7", got.Name)
	assert.Equal(t, supplier, got.SupplierID)
	assert.Equal(t, consumer, got.ConsumerID)
	assert.False(t, got.StartTime.Before(before), "start time stamped before the wait")
	assert.Equal(t, committed.ID, dto.ID)
}

func TestSubmitPropagatesEngineFailure(t *testing.T) {
	engine := &fakeEngine{
		settleFn: func(ctx context.Context, proposal settlement.Proposal) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "duplicate")
		},
	}
	svc := newTestService(t, &fakeOrderRepository{}, &fakePartyChecker{exists: true}, engine)

	_, err := svc.Submit(context.Background(), SubmitOrderInput{
		Name:       "dup",
		SupplierID: uuid.New(),
		ConsumerID: uuid.New(),
		Price:      decimal.NewFromInt(1),
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestGetByIDNotFound(t *testing.T) {
	svc := newTestService(t, &fakeOrderRepository{}, &fakePartyChecker{exists: true}, &fakeEngine{})

	_, err := svc.GetByID(context.Background(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestListByPartyUnknownParty(t *testing.T) {
	svc := newTestService(t, &fakeOrderRepository{}, &fakePartyChecker{exists: false}, &fakeEngine{})

	_, err := svc.ListByParty(context.Background(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestListTrimsBufferAndEncodesCursor(t *testing.T) {
	now := time.Now().UTC()
	rows := []models.Order{
		{ID: uuid.New(), Name: "a", CreatedAt: now},
		{ID: uuid.New(), Name: "b", CreatedAt: now.Add(-time.Minute)},
		{ID: uuid.New(), Name: "c", CreatedAt: now.Add(-2 * time.Minute)},
	}
	repo := &fakeOrderRepository{
		listFn: func(ctx context.Context, params pagination.Params) ([]models.Order, error) {
			return rows, nil
		},
	}
	svc := newTestService(t, repo, &fakePartyChecker{exists: true}, &fakeEngine{})

	page, next, err := svc.List(context.Background(), pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
	require.NotEmpty(t, next)

	cursor, err := pagination.ParseCursor(next)
	require.NoError(t, err)
	assert.Equal(t, rows[1].ID, cursor.ID)
}
