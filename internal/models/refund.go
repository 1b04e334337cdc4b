package models

import "time"

type RefundStatus string

const (
	RefundStatusCreated  RefundStatus = "refund_created"
	RefundStatusComplete RefundStatus = "refund_complete"
	RefundStatusFailed   RefundStatus = "refund_failed"
)

// La clé primaire est l'identifiant Stripe du remboursement (re_...),
// ce qui rend la création idempotente sous livraison at-least-once.
type Refund struct {
	RefundID      string       `json:"refund_id" gorm:"primaryKey"`
	OrderID       string       `json:"order_id" gorm:"type:uuid;index;not null"`
	Amount        float64      `json:"amount"`
	Status        RefundStatus `json:"status" gorm:"not null"`
	FailureReason *string      `json:"failure_reason,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
