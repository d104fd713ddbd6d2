package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradeledger/backend/internal/parties"
	"github.com/tradeledger/backend/pkg/config"
	"github.com/tradeledger/backend/pkg/db"
	"github.com/tradeledger/backend/pkg/db/models"
	pkgerrors "github.com/tradeledger/backend/pkg/errors"
	"github.com/tradeledger/backend/pkg/logger"
	"github.com/tradeledger/backend/pkg/metrics"
)

// OrderCreator inserts the committed order row inside the engine's
// transaction.
type OrderCreator interface {
	CreateWithTx(tx *gorm.DB, order *models.Order) error
}

// Proposal is the input to one settlement attempt. StartTime is stamped by the
// intake layer before any delay.
type Proposal struct {
	Name       string
	SupplierID uuid.UUID
	ConsumerID uuid.UUID
	Price      decimal.Decimal
	StartTime  time.Time
}

// Engine commits one proposed order and both balance updates as a single
// atomic unit of work, or fails without any mutation.
type Engine interface {
	Settle(ctx context.Context, proposal Proposal) (*models.Order, error)
}

type engine struct {
	client      *db.Client
	parties     parties.Repository
	orders      OrderCreator
	floor       decimal.Decimal
	holdTimeout time.Duration
	logg        *logger.Logger
	metrics     *metrics.SettlementMetrics
}

// NewEngine wires a settlement engine against the shared DB client.
func NewEngine(
	client *db.Client,
	partyRepo parties.Repository,
	orderRepo OrderCreator,
	cfg config.SettlementConfig,
	logg *logger.Logger,
	m *metrics.SettlementMetrics,
) (Engine, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if partyRepo == nil {
		return nil, fmt.Errorf("party repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order creator required")
	}
	return &engine{
		client:      client,
		parties:     partyRepo,
		orders:      orderRepo,
		floor:       cfg.Floor,
		holdTimeout: cfg.HoldTimeout,
		logg:        logg,
		metrics:     m,
	}, nil
}

// Settle runs the settlement algorithm:
//
//  1. lock the supplier row, then the consumer row, always in that role order,
//     reading fresh state under the lock;
//  2. verify both parties exist and are active;
//  3. compute supplierAfter = balance+price and consumerAfter = balance-price
//     and check both against the floor, supplier first;
//  4. insert the order (the DB unique constraint arbitrates duplicates);
//  5. persist both balances and commit.
//
// Any failure rolls the whole unit back. Serialization aborts surface as a
// retryable TransientFailure but the engine never retries on its own.
func (e *engine) Settle(ctx context.Context, proposal Proposal) (*models.Order, error) {
	started := time.Now()

	var order *models.Order
	err := e.client.WithSerializableTx(ctx, func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" && e.holdTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", e.holdTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}

		repo := e.parties.WithTx(tx)

		supplier, err := e.lockParty(ctx, repo, proposal.SupplierID, "supplier")
		if err != nil {
			return err
		}
		consumer, err := e.lockParty(ctx, repo, proposal.ConsumerID, "consumer")
		if err != nil {
			return err
		}

		if !supplier.Active {
			return pkgerrors.New(pkgerrors.CodePrecondition, "supplier party is inactive")
		}
		if !consumer.Active {
			return pkgerrors.New(pkgerrors.CodePrecondition, "consumer party is inactive")
		}

		supplierAfter := supplier.Balance.Add(proposal.Price)
		consumerAfter := consumer.Balance.Sub(proposal.Price)

		if supplierAfter.LessThan(e.floor) {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "supplier balance would fall below the floor").
				WithDetails(map[string]string{"party_id": supplier.ID.String(), "balance_after": supplierAfter.String()})
		}
		if consumerAfter.LessThan(e.floor) {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "consumer balance would fall below the floor").
				WithDetails(map[string]string{"party_id": consumer.ID.String(), "balance_after": consumerAfter.String()})
		}

		order = &models.Order{
			Name:       proposal.Name,
			SupplierID: supplier.ID,
			ConsumerID: consumer.ID,
			Price:      proposal.Price,
			StartTime:  proposal.StartTime,
			EndTime:    time.Now().UTC(),
		}
		if err := e.orders.CreateWithTx(tx, order); err != nil {
			if db.IsUniqueViolation(err, models.UniqueOrderBusinessKey) {
				return pkgerrors.New(pkgerrors.CodeConflict, "an order with this name already exists between these parties")
			}
			return err
		}

		supplier.Balance = supplierAfter
		consumer.Balance = consumerAfter
		if err := repo.Save(ctx, supplier); err != nil {
			return err
		}
		if err := repo.Save(ctx, consumer); err != nil {
			return err
		}
		return nil
	})

	if err != nil {
		classified := e.classify(err)
		e.metrics.IncFailure(string(classified.Code()))
		e.metrics.ObserveDuration("failure", time.Since(started))
		return nil, classified
	}

	if e.logg != nil {
		e.logg.Info(e.logg.WithOrderID(ctx, order.ID.String()), "order settled")
	}
	e.metrics.IncSuccess()
	e.metrics.ObserveDuration("success", time.Since(started))
	return order, nil
}

func (e *engine) lockParty(ctx context.Context, repo parties.Repository, id uuid.UUID, role string) (*models.Party, error) {
	party, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, role+" party not found")
		}
		return nil, err
	}
	return party, nil
}

// classify maps storage-level failures onto the error taxonomy. Typed errors
// raised inside the unit of work pass through unchanged.
func (e *engine) classify(err error) *pkgerrors.Error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeCancelled, err, "settlement cancelled")
	}
	if db.IsUniqueViolation(err, models.UniqueOrderBusinessKey) {
		return pkgerrors.New(pkgerrors.CodeConflict, "an order with this name already exists between these parties")
	}
	if db.IsSerializationFailure(err) {
		return pkgerrors.Wrap(pkgerrors.CodeTransient, err, "settlement aborted by concurrent activity")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settlement storage failure")
}
