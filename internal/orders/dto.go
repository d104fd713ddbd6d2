package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeledger/backend/pkg/db/models"
)

// OrderDTO exposes a committed order in API responses.
type OrderDTO struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	SupplierID uuid.UUID       `json:"supplier_id"`
	ConsumerID uuid.UUID       `json:"consumer_id"`
	Price      decimal.Decimal `json:"price"`
	StartTime  time.Time       `json:"start_time"`
	EndTime    time.Time       `json:"end_time"`
	CreatedAt  time.Time       `json:"created_at"`
}

// SubmitOrderInput is the raw intake payload for a settlement request.
type SubmitOrderInput struct {
	Name       string          `json:"name" validate:"required,min=1,max=255"`
	SupplierID uuid.UUID       `json:"supplier_id" validate:"required"`
	ConsumerID uuid.UUID       `json:"consumer_id" validate:"required"`
	Price      decimal.Decimal `json:"price" validate:"required"`
}

// FromModel maps the persisted order into a DTO.
func FromModel(m *models.Order) *OrderDTO {
	if m == nil {
		return nil
	}
	return &OrderDTO{
		ID:         m.ID,
		Name:       m.Name,
		SupplierID: m.SupplierID,
		ConsumerID: m.ConsumerID,
		Price:      m.Price,
		StartTime:  m.StartTime,
		EndTime:    m.EndTime,
		CreatedAt:  m.CreatedAt,
	}
}

// FromModels maps a slice of orders into DTOs.
func FromModels(ms []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(ms))
	for i := range ms {
		out = append(out, *FromModel(&ms[i]))
	}
	return out
}
