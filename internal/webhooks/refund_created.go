package webhooks

import (
	"encoding/json"
	"errors"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/models"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/services"
	"github.com/stripe/stripe-go/v83"
	"gorm.io/gorm"
)

// RefundCreatedHandler enregistre un nouveau remboursement. La clé
// primaire étant l'identifiant Stripe, un doublon at-least-once devient
// un échec doux « existe déjà » plutôt qu'une seconde ligne.
type RefundCreatedHandler struct{}

func (h *RefundCreatedHandler) Handle(c *HandlerContext) (Result, error) {
	var refund stripe.Refund
	if err := json.Unmarshal(c.Event.Data.Raw, &refund); err != nil {
		return failSoft("remboursement illisible"), nil
	}
	if refund.ID == "" {
		return failSoft("identifiant de remboursement absent de l'événement"), nil
	}
	if refund.PaymentIntent == nil || refund.PaymentIntent.ID == "" {
		return failSoft("payment intent absent de l'événement de remboursement"), nil
	}

	payment, r, err := requireOrderPayment(c.Tx, c.Order)
	if r != nil || err != nil {
		if r != nil {
			return *r, nil
		}
		return Result{}, err
	}
	if r := requireTransactionMatch(payment, refund.PaymentIntent.ID); r != nil {
		return *r, nil
	}

	_, err = services.FindRefund(c.Tx, refund.ID)
	switch {
	case err == nil:
		return failSoft("le remboursement " + refund.ID + " existe déjà, aucun nouveau créé"), nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		// attendu : première livraison de l'événement
	default:
		return Result{}, err
	}

	if err := services.CreateRefund(c.Tx, refund.ID, c.Order.ID, float64(refund.Amount)/100); err != nil {
		return Result{}, err
	}

	if err := services.UpdatePayment(c.Tx, c.Order.ID, map[string]interface{}{
		"status": models.PaymentStatusRefundCreated,
	}); err != nil {
		return Result{}, err
	}

	return Result{Success: true}, nil
}
