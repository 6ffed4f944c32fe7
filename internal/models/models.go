package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CheckoutStatusPlaced         = "placed"
	CheckoutStatusFailed         = "failed"
	CheckoutStatusSessionExpired = "session_expired"
)

// CheckoutAttempt records one handoff of a cart to the order API.
// The cart itself is never stored.
type CheckoutAttempt struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey"   json:"id"`
	BuyerID       string         `gorm:"index;not null"         json:"buyer_id"`
	StockistID    string         `gorm:"not null"               json:"stockist_id"`
	PaymentMethod string         `gorm:"not null"               json:"payment_method"`
	Status        string         `gorm:"index;not null"         json:"status"`
	Message       string         `json:"message"`
	OrderID       string         `json:"order_id,omitempty"`
	ItemCount     int            `gorm:"not null"               json:"item_count"`
	Subtotal      int64          `gorm:"not null"               json:"subtotal"`
	PV            int64          `gorm:"not null"               json:"pv"`
	Lines         []CheckoutLine `gorm:"foreignKey:AttemptID"   json:"lines"`
	CreatedAt     time.Time      `gorm:"index"                  json:"created_at"`
}

type CheckoutLine struct {
	ID        uint      `gorm:"primaryKey"                  json:"-"`
	AttemptID uuid.UUID `gorm:"type:uuid;index;not null"    json:"-"`
	ProductID string    `gorm:"not null"                    json:"product_id"`
	Name      string    `json:"name"`
	UnitPrice int64     `gorm:"not null"                    json:"unit_price"`
	Quantity  int       `gorm:"not null;check:quantity>0"   json:"quantity"`
}

func (a *CheckoutAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (CheckoutAttempt) TableName() string {
	return "checkout_attempts"
}

func (CheckoutLine) TableName() string {
	return "checkout_lines"
}
