package models

import "time"

// Créée au plus une fois par commande, quand l'événement de paiement
// complété fournit l'adresse physique.
type Shipping struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID    string    `json:"order_id" gorm:"type:uuid;uniqueIndex;not null"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Line1      string    `json:"line1"`
	Line2      *string   `json:"line2,omitempty"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	TrackingID *string   `json:"tracking_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
