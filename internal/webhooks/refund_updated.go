package webhooks

import (
	"encoding/json"
	"fmt"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/models"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/services"
	"github.com/stripe/stripe-go/v83"
)

// Les états terminaux d'un remboursement Stripe arrivent par
// refund.updated (statut « succeeded » ou « failed » embarqué) ; un
// refund.failed distinct existe aussi. Les deux chemins partagent les
// mêmes préconditions (requireEventRefund / requireOrderPayment).

// RefundUpdatedHandler route vers la finalisation ou l'échec selon le
// statut porté par l'événement.
type RefundUpdatedHandler struct{}

func (h *RefundUpdatedHandler) Handle(c *HandlerContext) (Result, error) {
	refund, r, err := parseAndValidateRefund(c)
	if r != nil || err != nil {
		if r != nil {
			return *r, nil
		}
		return Result{}, err
	}

	switch refund.Status {
	case stripe.RefundStatusFailed:
		return applyRefundFailed(c, refund)
	case stripe.RefundStatusSucceeded:
		return applyRefundComplete(c, refund)
	default:
		// Statut intermédiaire (pending...) : informatif, pas actionnable.
		return failSoft(fmt.Sprintf("statut de remboursement %s non actionnable pour %s", refund.Status, refund.ID)), nil
	}
}

// RefundFailedHandler traite l'événement refund.failed dédié.
type RefundFailedHandler struct{}

func (h *RefundFailedHandler) Handle(c *HandlerContext) (Result, error) {
	refund, r, err := parseAndValidateRefund(c)
	if r != nil || err != nil {
		if r != nil {
			return *r, nil
		}
		return Result{}, err
	}
	return applyRefundFailed(c, refund)
}

// parseAndValidateRefund décode l'événement puis déroule les
// préconditions communes : paiement présent, transaction concordante,
// remboursement existant, non terminal, rattaché à la bonne commande.
func parseAndValidateRefund(c *HandlerContext) (*stripe.Refund, *Result, error) {
	var refund stripe.Refund
	if err := json.Unmarshal(c.Event.Data.Raw, &refund); err != nil {
		r := failSoft("remboursement illisible")
		return nil, &r, nil
	}
	if refund.ID == "" {
		r := failSoft("identifiant de remboursement absent de l'événement")
		return nil, &r, nil
	}
	if refund.PaymentIntent == nil || refund.PaymentIntent.ID == "" {
		r := failSoft("payment intent absent de l'événement de remboursement")
		return nil, &r, nil
	}

	payment, r, err := requireOrderPayment(c.Tx, c.Order)
	if r != nil || err != nil {
		return nil, r, err
	}
	if r := requireTransactionMatch(payment, refund.PaymentIntent.ID); r != nil {
		return nil, r, nil
	}

	if _, r, err := requireEventRefund(c.Tx, c.Order, refund.ID); r != nil || err != nil {
		return nil, r, err
	}

	return &refund, nil, nil
}

func applyRefundComplete(c *HandlerContext, refund *stripe.Refund) (Result, error) {
	if err := services.UpdateRefund(c.Tx, refund.ID, models.RefundStatusComplete, nil); err != nil {
		return Result{}, err
	}
	if err := services.UpdatePayment(c.Tx, c.Order.ID, map[string]interface{}{
		"status": models.PaymentStatusRefunded,
	}); err != nil {
		return Result{}, err
	}
	if err := services.UpdateOrderStatus(c.Tx, c.Order.ID, models.OrderStatusRefunded); err != nil {
		return Result{}, err
	}
	c.OrderStatusChanged(models.OrderStatusRefunded)

	if email, username := orderRecipient(c.Tx, c.Order); email != "" {
		c.Notify(services.Notification{
			Template: services.TemplateRefundStatus,
			Payload: map[string]string{
				"email":    email,
				"username": username,
				"orderId":  c.Order.ID,
			},
		})
	}

	return Result{Success: true}, nil
}

func applyRefundFailed(c *HandlerContext, refund *stripe.Refund) (Result, error) {
	var reason *string
	if refund.FailureReason != "" {
		r := string(refund.FailureReason)
		reason = &r
	}

	if err := services.UpdateRefund(c.Tx, refund.ID, models.RefundStatusFailed, reason); err != nil {
		return Result{}, err
	}

	if email, username := orderRecipient(c.Tx, c.Order); email != "" {
		c.Notify(services.Notification{
			Template: services.TemplateRefundStatus,
			Payload: map[string]string{
				"email":    email,
				"username": username,
				"orderId":  c.Order.ID,
			},
		})
	}

	return Result{Success: true}, nil
}
