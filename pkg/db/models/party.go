package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UniquePartyEmail names the unique constraint on party emails.
const UniquePartyEmail = "uq_parties_email"

// Party is one side of a settlement. Parties are deactivated, never deleted,
// and their balance is only mutated by the settlement engine while the row is
// held exclusively.
type Party struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string          `gorm:"column:name;not null"`
	Email         string          `gorm:"column:email;not null;uniqueIndex:uq_parties_email"`
	Address       string          `gorm:"column:address"`
	Balance       decimal.Decimal `gorm:"column:balance;type:numeric(19,2);not null"`
	Active        bool            `gorm:"column:active;not null;default:true"`
	DeactivatedAt *time.Time      `gorm:"column:deactivated_at"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Party) TableName() string {
	return "parties"
}
