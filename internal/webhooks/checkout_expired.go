package webhooks

import (
	"errors"
	"fmt"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/models"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/services"
	"gorm.io/gorm"
)

// CheckoutExpiredHandler recrédite le stock d'une commande jamais payée
// et la passe en expirée. La garde « en attente uniquement » protège le
// stock d'un double crédit si le provider redélivre l'événement.
type CheckoutExpiredHandler struct{}

func (h *CheckoutExpiredHandler) Handle(c *HandlerContext) (Result, error) {
	if c.Order.Status != models.OrderStatusPending {
		return failSoft(fmt.Sprintf("commande %s au statut %s, expiration déjà traitée", c.Order.ID, c.Order.Status)), nil
	}

	if err := services.RevertOrderStocks(c.Tx, c.Order.ID); err != nil {
		return Result{}, err
	}

	if err := services.UpdateOrderStatus(c.Tx, c.Order.ID, models.OrderStatusExpired); err != nil {
		return Result{}, err
	}
	c.OrderStatusChanged(models.OrderStatusExpired)

	_, err := services.FindPayment(c.Tx, c.Order.ID)
	switch {
	case err == nil:
		if err := services.UpdatePayment(c.Tx, c.Order.ID, map[string]interface{}{
			"status": models.PaymentStatusUnpaid,
		}); err != nil {
			return Result{}, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := services.CreatePayment(c.Tx, &models.Payment{
			OrderID: c.Order.ID,
			Status:  models.PaymentStatusUnpaid,
			Amount:  c.Order.TotalPrice,
		}); err != nil {
			return Result{}, err
		}
	default:
		return Result{}, err
	}

	if email, username := orderRecipient(c.Tx, c.Order); email != "" {
		c.Notify(services.Notification{
			Template: services.TemplateOrderStatus,
			Payload: map[string]string{
				"email":    email,
				"username": username,
				"orderId":  c.Order.ID,
				"status":   string(models.OrderStatusExpired),
			},
		})
	}

	return Result{Success: true}, nil
}

// orderRecipient retrouve le destinataire d'une notification : le compte
// propriétaire, ou l'identité invitée capturée au paiement.
func orderRecipient(tx *gorm.DB, order *models.Order) (email, username string) {
	if order.UserID != nil {
		var user models.User
		if err := tx.First(&user, "id = ?", *order.UserID).Error; err == nil {
			return user.Email, user.Name
		}
		return "", ""
	}
	if order.GuestEmail != nil {
		email = *order.GuestEmail
	}
	if order.GuestName != nil {
		username = *order.GuestName
	}
	return email, username
}
