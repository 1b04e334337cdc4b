package services

import (
	"fmt"
	"time"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/models"
	"gorm.io/gorm"
)

// Opérations atomiques mono-usage sur commandes/paiements/remboursements.
// Chaque fonction prend le *gorm.DB courant (transaction ou non) : c'est
// l'appelant qui décide de la frontière transactionnelle et du séquencement.

// UpdateOrderStatus écrit le statut sans garde de transition : les gardes
// d'état appartiennent aux handlers d'événements.
func UpdateOrderStatus(db *gorm.DB, orderID string, status models.OrderStatus) error {
	return db.Model(&models.Order{}).Where("id = ?", orderID).Update("status", status).Error
}

// RevertOrderStocks recrédite le stock de chaque ligne de la commande.
// Utilisé uniquement quand une commande expire ou est annulée avant paiement.
func RevertOrderStocks(db *gorm.DB, orderID string) error {
	var items []models.OrderItem
	if err := db.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return fmt.Errorf("lecture des lignes de la commande %s: %w", orderID, err)
	}

	for _, item := range items {
		err := db.Model(&models.Book{}).
			Where("id = ?", item.BookID).
			Update("stock", gorm.Expr("stock + ?", item.Quantity)).Error
		if err != nil {
			return fmt.Errorf("recrédit du stock du livre %s: %w", item.BookID, err)
		}
	}
	return nil
}

func FindPayment(db *gorm.DB, orderID string) (*models.Payment, error) {
	var payment models.Payment
	if err := db.Where("order_id = ?", orderID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func CreatePayment(db *gorm.DB, payment *models.Payment) error {
	if payment.Method == "" {
		payment.Method = "card"
	}
	return db.Create(payment).Error
}

// UpdatePayment tamponne toujours updated_at, même si les autres colonnes
// sont inchangées.
func UpdatePayment(db *gorm.DB, orderID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return db.Model(&models.Payment{}).Where("order_id = ?", orderID).Updates(updates).Error
}

func FindRefund(db *gorm.DB, refundID string) (*models.Refund, error) {
	var r models.Refund
	if err := db.Where("refund_id = ?", refundID).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRefund sème toujours le statut refund_created ; le cycle de vie
// avance ensuite via UpdateRefund.
func CreateRefund(db *gorm.DB, refundID, orderID string, amount float64) error {
	return db.Create(&models.Refund{
		RefundID: refundID,
		OrderID:  orderID,
		Amount:   amount,
		Status:   models.RefundStatusCreated,
	}).Error
}

func UpdateRefund(db *gorm.DB, refundID string, status models.RefundStatus, failureReason *string) error {
	return db.Model(&models.Refund{}).Where("refund_id = ?", refundID).Updates(map[string]interface{}{
		"status":         status,
		"failure_reason": failureReason,
		"updated_at":     time.Now(),
	}).Error
}

func DeleteRefund(db *gorm.DB, refundID string) error {
	return db.Where("refund_id = ?", refundID).Delete(&models.Refund{}).Error
}

// CancelOrder annule une commande encore en attente de paiement et
// recrédite son stock. Une commande déjà payée passe par le chemin de
// remboursement, pas par celui-ci.
func CancelOrder(db *gorm.DB, orderID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			return models.NewCustomAPIError("Commande introuvable")
		}
		if order.Status != models.OrderStatusPending {
			return models.NewCustomAPIError("Seule une commande en attente peut être annulée")
		}

		if err := RevertOrderStocks(tx, orderID); err != nil {
			return err
		}
		return UpdateOrderStatus(tx, orderID, models.OrderStatusCanceled)
	})
}

// AssignGuestToOrder rattache une commande sans propriétaire à l'e-mail
// (et au nom éventuel) révélés par le paiement complété d'un invité.
func AssignGuestToOrder(db *gorm.DB, orderID, email string, name *string) error {
	return db.Model(&models.Order{}).Where("id = ?", orderID).Updates(map[string]interface{}{
		"guest_email": email,
		"guest_name":  name,
	}).Error
}
