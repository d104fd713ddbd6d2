package parties

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeledger/backend/pkg/db/models"
)

// PartyDTO exposes safe party data in API responses.
type PartyDTO struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Address       string          `json:"address"`
	Balance       decimal.Decimal `json:"balance"`
	Active        bool            `json:"active"`
	DeactivatedAt *time.Time      `json:"deactivated_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CreatePartyInput holds creation-time data for a new party.
type CreatePartyInput struct {
	Name    string `json:"name" validate:"required,min=1,max=255"`
	Email   string `json:"email" validate:"required,email"`
	Address string `json:"address" validate:"max=512"`
}

// UpdatePartyInput captures the allowed party fields for mutation.
type UpdatePartyInput struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Address *string `json:"address" validate:"omitempty,max=512"`
	Active  *bool   `json:"active"`
}

// BalanceDTO reports a party's current balance.
type BalanceDTO struct {
	PartyID uuid.UUID       `json:"party_id"`
	Balance decimal.Decimal `json:"balance"`
}

// FromModel maps the persisted party into a DTO.
func FromModel(m *models.Party) *PartyDTO {
	if m == nil {
		return nil
	}
	return &PartyDTO{
		ID:            m.ID,
		Name:          m.Name,
		Email:         m.Email,
		Address:       m.Address,
		Balance:       m.Balance,
		Active:        m.Active,
		DeactivatedAt: m.DeactivatedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// FromModels maps a slice of parties into DTOs.
func FromModels(ms []models.Party) []PartyDTO {
	out := make([]PartyDTO, 0, len(ms))
	for i := range ms {
		out = append(out, *FromModel(&ms[i]))
	}
	return out
}
