package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Durée de validité de la session de paiement, appliquée côté Stripe.
const paymentSessionTTL = 30 * time.Minute

type CheckoutResult struct {
	Order      models.Order `json:"order"`
	PaymentURL string       `json:"payment_url"`
	ExpiresAt  time.Time    `json:"expires_at"`
}

type CheckoutService struct {
	db       *gorm.DB
	payments PaymentProvider
}

func NewCheckoutService(db *gorm.DB, payments PaymentProvider) *CheckoutService {
	return &CheckoutService{db: db, payments: payments}
}

// Checkout convertit un panier en commande : validation + décrément du
// stock, création commande/paiement et suppression du panier dans une
// seule transaction, puis création de la session Stripe hors transaction.
// Panier invité et panier utilisateur passent par le même chemin ; seule
// la vérification de propriété diffère.
func (s *CheckoutService) Checkout(ctx context.Context, identity Identity, cartID string) (*CheckoutResult, error) {
	var order models.Order
	var customerEmail string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		cart, err := findOwnedCart(tx, identity, cartID)
		if err != nil {
			return err
		}

		if len(cart.Items) == 0 {
			return models.NewCustomAPIError("Panier vide")
		}

		var total float64
		orderItems := make([]models.OrderItem, 0, len(cart.Items))
		for _, item := range cart.Items {
			if item.Book == nil {
				return fmt.Errorf("livre %s introuvable pour la ligne de panier %s", item.BookID, item.ID)
			}
			if item.Book.Stock < item.Quantity {
				return models.NewCustomAPIError("Stock insuffisant pour le livre " + item.BookID)
			}

			total += item.Book.Price * float64(item.Quantity)
			orderItems = append(orderItems, models.OrderItem{
				ID:        uuid.NewString(),
				BookID:    item.BookID,
				Title:     item.Book.Title,
				UnitPrice: item.Book.Price,
				Quantity:  item.Quantity,
			})
		}

		// Le total est arrondi une seule fois, ici ; il n'est jamais
		// recalculé depuis les lignes ensuite.
		order = models.Order{
			ID:         uuid.NewString(),
			UserID:     cart.UserID,
			Status:     models.OrderStatusPending,
			TotalPrice: round2(total),
			Items:      orderItems,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("création de la commande: %w", err)
		}

		// Décrément gardé : la clause stock >= quantité sérialise deux
		// checkouts concurrents sur la dernière unité au niveau ligne.
		for _, item := range cart.Items {
			res := tx.Model(&models.Book{}).
				Where("id = ? AND stock >= ?", item.BookID, item.Quantity).
				Update("stock", gorm.Expr("stock - ?", item.Quantity))
			if res.Error != nil {
				return fmt.Errorf("décrément du stock du livre %s: %w", item.BookID, res.Error)
			}
			if res.RowsAffected == 0 {
				return models.NewCustomAPIError("Stock insuffisant pour le livre " + item.BookID)
			}
		}

		if err := CreatePayment(tx, &models.Payment{
			OrderID: order.ID,
			Status:  models.PaymentStatusUnpaid,
			Amount:  order.TotalPrice,
		}); err != nil {
			return fmt.Errorf("création du paiement: %w", err)
		}

		if cart.UserID != nil {
			var user models.User
			if err := tx.First(&user, "id = ?", *cart.UserID).Error; err == nil {
				customerEmail = user.Email
			}
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", cart.ID).Delete(&models.Cart{}).Error
	})
	if err != nil {
		if models.IsCustomAPIError(err) {
			return nil, err
		}
		log.Printf("❌ Échec du checkout pour le panier %s: %v", cartID, err)
		return nil, fmt.Errorf("échec du checkout")
	}

	// La session Stripe est créée après le commit. En cas d'échec, la
	// commande et le décrément de stock restent en base : le chemin
	// checkout.session.expired recréditera le stock.
	input := CheckoutSessionInput{
		OrderID:       order.ID,
		CustomerEmail: customerEmail,
		ExpiresAt:     time.Now().Add(paymentSessionTTL),
	}
	for _, item := range order.Items {
		input.Items = append(input.Items, SessionLineItem{
			Name:      item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	session, err := s.payments.CreateCheckoutSession(ctx, input)
	if err != nil {
		log.Printf("❌ Session de paiement impossible pour la commande %s: %v", order.ID, err)
		return nil, &models.PaymentSessionError{OrderID: order.ID, Err: err}
	}

	log.Printf("🛒 Checkout réussi: commande %s (%.2f€, %d article(s))", order.ID, order.TotalPrice, len(order.Items))

	return &CheckoutResult{
		Order:      order,
		PaymentURL: session.URL,
		ExpiresAt:  session.ExpiresAt,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
