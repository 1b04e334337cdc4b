package models

import "time"

// Un panier appartient soit à un utilisateur (UserID), soit à un invité
// (GuestTokenHash), jamais les deux.
type Cart struct {
	ID             string     `json:"id" gorm:"type:uuid;primaryKey"`
	UserID         *string    `json:"user_id,omitempty" gorm:"type:uuid;index"`
	GuestTokenHash *string    `json:"-" gorm:"column:guest_token_hash"`
	CreatedAt      time.Time  `json:"created_at"`
	Items          []CartItem `json:"items" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

type CartItem struct {
	ID       string `json:"id" gorm:"type:uuid;primaryKey"`
	CartID   string `json:"cart_id" gorm:"type:uuid;uniqueIndex:idx_cart_book;not null"`
	BookID   string `json:"book_id" gorm:"type:uuid;uniqueIndex:idx_cart_book;not null"`
	Quantity int    `json:"quantity" gorm:"not null"`
	Book     *Book  `json:"book,omitempty" gorm:"foreignKey:BookID"`
}
