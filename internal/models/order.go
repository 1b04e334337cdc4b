package models

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusComplete  OrderStatus = "complete"
	OrderStatusExpired   OrderStatus = "expired"
	OrderStatusCanceled  OrderStatus = "canceled"
	OrderStatusRefunded  OrderStatus = "refunded"
	OrderStatusDelivered OrderStatus = "delivered"
)

type Order struct {
	ID         string      `json:"id" gorm:"type:uuid;primaryKey"`
	UserID     *string     `json:"user_id,omitempty" gorm:"type:uuid;index"`
	GuestEmail *string     `json:"guest_email,omitempty"`
	GuestName  *string     `json:"guest_name,omitempty"`
	Status     OrderStatus `json:"status" gorm:"not null;default:pending"`
	TotalPrice float64     `json:"total_price" gorm:"not null"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Items      []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment    *Payment    `json:"payment,omitempty" gorm:"foreignKey:OrderID"`
	Shipping   *Shipping   `json:"shipping,omitempty" gorm:"foreignKey:OrderID"`
}

// Snapshot du livre au moment de la commande, découplé du prix courant.
type OrderItem struct {
	ID        string  `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID   string  `json:"order_id" gorm:"type:uuid;index;not null"`
	BookID    string  `json:"book_id" gorm:"type:uuid;not null"`
	Title     string  `json:"title"`
	UnitPrice float64 `json:"unit_price" gorm:"not null"`
	Quantity  int     `json:"quantity" gorm:"not null"`
}
