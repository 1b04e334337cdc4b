package webhooks

import (
	"encoding/json"
	"errors"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/models"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/services"
	"github.com/stripe/stripe-go/v83"
	"gorm.io/gorm"
)

// PaymentFailedHandler enregistre l'échec d'une tentative de paiement.
// Le statut de la commande ne bouge pas : un échec n'expire ni n'annule,
// le client peut retenter.
type PaymentFailedHandler struct{}

func (h *PaymentFailedHandler) Handle(c *HandlerContext) (Result, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(c.Event.Data.Raw, &pi); err != nil {
		return failSoft("payment intent illisible"), nil
	}
	if pi.ID == "" {
		return failSoft("identifiant de transaction absent de l'événement"), nil
	}

	payment, err := services.FindPayment(c.Tx, c.Order.ID)
	switch {
	case err == nil:
		if r := requireTransactionMatch(payment, pi.ID); r != nil {
			return *r, nil
		}
		return Result{Success: true}, services.UpdatePayment(c.Tx, c.Order.ID, map[string]interface{}{
			"transaction_id": pi.ID,
			"status":         models.PaymentStatusFailed,
		})
	case errors.Is(err, gorm.ErrRecordNotFound):
		txID := pi.ID
		return Result{Success: true}, services.CreatePayment(c.Tx, &models.Payment{
			OrderID:       c.Order.ID,
			TransactionID: &txID,
			Status:        models.PaymentStatusFailed,
			Amount:        float64(pi.Amount) / 100,
		})
	default:
		return Result{}, err
	}
}
