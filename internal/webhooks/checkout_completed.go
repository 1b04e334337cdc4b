package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/models"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/services"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v83"
	"gorm.io/gorm"
)

// CheckoutCompletedHandler applique la réussite d'un checkout : paiement
// payé, commande complète, création de l'expédition, rattachement de
// l'e-mail invité. La garde « commande en attente uniquement » rend le
// handler idempotent face à une double livraison de l'événement.
type CheckoutCompletedHandler struct {
	Payments services.PaymentProvider
}

func (h *CheckoutCompletedHandler) Handle(c *HandlerContext) (Result, error) {
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(c.Event.Data.Raw, &cs); err != nil {
		return failSoft("session de checkout illisible"), nil
	}

	// Chaque pièce manquante a son propre message : un opérateur doit
	// pouvoir distinguer un provider mal configuré d'un événement
	// légitimement partiel.
	if cs.PaymentIntent == nil || cs.PaymentIntent.ID == "" {
		return failSoft("identifiant de transaction absent de la session"), nil
	}
	transactionID := cs.PaymentIntent.ID

	if cs.CustomerDetails == nil {
		return failSoft("détails client absents de la session"), nil
	}

	shipping := collectedShipping(&cs)
	if shipping == nil || shipping.Address == nil {
		return failSoft("adresse de livraison absente de la session"), nil
	}

	// Paiement tardif sur commande annulée : on rembourse au lieu
	// d'expédier. Le cycle de vie du remboursement arrive ensuite par
	// les événements refund.*.
	if c.Order.Status == models.OrderStatusCanceled {
		return h.refundLatePayment(c, transactionID, cs.AmountTotal)
	}

	if c.Order.Status != models.OrderStatusPending {
		return failSoft(fmt.Sprintf("commande %s au statut %s, complétion ignorée", c.Order.ID, c.Order.Status)), nil
	}

	if r, err := h.upsertPaidPayment(c, transactionID, cs.AmountTotal); r != nil || err != nil {
		if r != nil {
			return *r, nil
		}
		return Result{}, err
	}

	if err := services.UpdateOrderStatus(c.Tx, c.Order.ID, models.OrderStatusComplete); err != nil {
		return Result{}, err
	}
	c.OrderStatusChanged(models.OrderStatusComplete)

	if err := h.createShipping(c, &cs, shipping); err != nil {
		return Result{}, err
	}

	email, username := h.resolveRecipient(c, &cs)

	if email != "" {
		c.Notify(services.Notification{
			Template: services.TemplateOrderStatus,
			Payload: map[string]string{
				"email":    email,
				"username": username,
				"orderId":  c.Order.ID,
				"status":   string(models.OrderStatusComplete),
			},
		})
	}

	return Result{Success: true}, nil
}

func (h *CheckoutCompletedHandler) refundLatePayment(c *HandlerContext, transactionID string, amountTotal int64) (Result, error) {
	if r, err := h.upsertPaidPayment(c, transactionID, amountTotal); r != nil || err != nil {
		if r != nil {
			return *r, nil
		}
		return Result{}, err
	}

	if _, err := h.Payments.CreateRefund(context.Background(), transactionID, map[string]string{
		"order_id": c.Order.ID,
	}); err != nil {
		return Result{}, fmt.Errorf("remboursement du paiement tardif de la commande %s: %w", c.Order.ID, err)
	}

	return Result{Success: true, Log: "paiement tardif sur commande annulée, remboursement déclenché"}, nil
}

func (h *CheckoutCompletedHandler) upsertPaidPayment(c *HandlerContext, transactionID string, amountTotal int64) (*Result, error) {
	payment, err := services.FindPayment(c.Tx, c.Order.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if payment != nil {
		if r := requireTransactionMatch(payment, transactionID); r != nil {
			return r, nil
		}
		return nil, services.UpdatePayment(c.Tx, c.Order.ID, map[string]interface{}{
			"transaction_id": transactionID,
			"status":         models.PaymentStatusPaid,
			"amount":         float64(amountTotal) / 100,
		})
	}

	return nil, services.CreatePayment(c.Tx, &models.Payment{
		OrderID:       c.Order.ID,
		TransactionID: &transactionID,
		Status:        models.PaymentStatusPaid,
		Amount:        float64(amountTotal) / 100,
	})
}

func (h *CheckoutCompletedHandler) createShipping(c *HandlerContext, cs *stripe.CheckoutSession, details *stripe.CheckoutSessionCollectedInformationShippingDetails) error {
	addr := details.Address

	// line2 optionnelle : vide devient null, pas chaîne vide.
	var line2 *string
	if trimmed := strings.TrimSpace(addr.Line2); trimmed != "" {
		line2 = &trimmed
	}

	name := details.Name
	if name == "" {
		name = cs.CustomerDetails.Name
	}

	return c.Tx.Create(&models.Shipping{
		ID:         uuid.NewString(),
		OrderID:    c.Order.ID,
		Name:       name,
		Email:      cs.CustomerDetails.Email,
		Phone:      cs.CustomerDetails.Phone,
		Line1:      addr.Line1,
		Line2:      line2,
		City:       addr.City,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
	}).Error
}

// resolveRecipient détermine e-mail et nom pour la notification et, pour
// une commande invitée, rattache l'e-mail révélé par le paiement.
func (h *CheckoutCompletedHandler) resolveRecipient(c *HandlerContext, cs *stripe.CheckoutSession) (email, username string) {
	if c.Order.UserID != nil {
		var user models.User
		if err := c.Tx.First(&user, "id = ?", *c.Order.UserID).Error; err == nil {
			return user.Email, user.Name
		}
		return "", ""
	}

	// Commande invitée : l'événement est la seule source d'identité.
	email = strings.TrimSpace(cs.CustomerDetails.Email)
	username = strings.TrimSpace(cs.CustomerDetails.Name)

	if email == "" {
		log.Printf("ℹ️ Commande invitée %s sans e-mail client, rattachement ignoré", c.Order.ID)
		return "", username
	}

	var namePtr *string
	if username != "" {
		namePtr = &username
	}
	if err := services.AssignGuestToOrder(c.Tx, c.Order.ID, email, namePtr); err != nil {
		log.Printf("⚠️ Rattachement invité de la commande %s impossible: %v", c.Order.ID, err)
	}
	return email, username
}

func collectedShipping(cs *stripe.CheckoutSession) *stripe.CheckoutSessionCollectedInformationShippingDetails {
	if cs.CollectedInformation == nil {
		return nil
	}
	return cs.CollectedInformation.ShippingDetails
}
