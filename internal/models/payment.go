package models

import "time"

type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "unpaid"
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusFailed        PaymentStatus = "failed"
	PaymentStatusRefunded      PaymentStatus = "refunded"
	PaymentStatusRefundCreated PaymentStatus = "refund_created"
)

// Un paiement par commande (1:1). TransactionID reste nul tant que Stripe
// n'a pas révélé le payment intent.
type Payment struct {
	OrderID       string        `json:"order_id" gorm:"type:uuid;primaryKey"`
	TransactionID *string       `json:"transaction_id,omitempty" gorm:"index"`
	Status        PaymentStatus `json:"status" gorm:"not null;default:unpaid"`
	Amount        float64       `json:"amount" gorm:"not null"`
	Method        string        `json:"method" gorm:"default:card"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
