package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UniqueOrderBusinessKey is the constraint guarding duplicate submissions of
// the same (name, supplier, consumer) triple.
const UniqueOrderBusinessKey = "uq_orders_business_key"

// Order is a committed settlement between two parties. Rows are written once
// by the settlement engine and never updated.
type Order struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string          `gorm:"column:name;not null;uniqueIndex:uq_orders_business_key"`
	SupplierID uuid.UUID       `gorm:"column:supplier_id;type:uuid;not null;uniqueIndex:uq_orders_business_key"`
	ConsumerID uuid.UUID       `gorm:"column:consumer_id;type:uuid;not null;uniqueIndex:uq_orders_business_key"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(19,2);not null"`
	StartTime  time.Time       `gorm:"column:start_time;not null"`
	EndTime    time.Time       `gorm:"column:end_time;not null"`
	Supplier   *Party          `gorm:"foreignKey:SupplierID"`
	Consumer   *Party          `gorm:"foreignKey:ConsumerID"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Order) TableName() string {
	return "orders"
}
