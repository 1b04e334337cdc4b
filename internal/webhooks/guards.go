package webhooks

import (
	"errors"
	"fmt"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/models"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/services"
	"gorm.io/gorm"
)

// Gardes partagées par les handlers de paiement et de remboursement.
// Chacune retourne un Result d'échec doux (non nil) quand la
// précondition n'est pas remplie.

// requireOrderPayment : un remboursement ne peut pas exister pour une
// commande jamais payée.
func requireOrderPayment(tx *gorm.DB, order *models.Order) (*models.Payment, *Result, error) {
	payment, err := services.FindPayment(tx, order.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r := failSoft("aucun paiement associé à la commande " + order.ID)
			return nil, &r, nil
		}
		return nil, nil, err
	}
	return payment, nil, nil
}

// requireTransactionMatch rejette tout événement référençant une autre
// transaction que celle déjà attachée à la commande : garde contre deux
// tentatives de paiement concurrentes qui se croisent.
func requireTransactionMatch(payment *models.Payment, transactionID string) *Result {
	if payment.TransactionID != nil && *payment.TransactionID != transactionID {
		r := failSoft(fmt.Sprintf("transaction %s inattendue pour la commande %s (attendu %s)",
			transactionID, payment.OrderID, *payment.TransactionID))
		return &r
	}
	return nil
}

// requireEventRefund applique la validation commune des mises à jour de
// remboursement : le remboursement doit exister, appartenir à la
// commande traitée, et ne pas être déjà terminé (l'état complet est
// terminal et irréversible).
func requireEventRefund(tx *gorm.DB, order *models.Order, refundID string) (*models.Refund, *Result, error) {
	refund, err := services.FindRefund(tx, refundID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Mise à jour arrivée avant la création : on lâche, le
			// provider redélivrera après que le create soit passé.
			r := failSoft("le remboursement " + refundID + " n'existe pas")
			return nil, &r, nil
		}
		return nil, nil, err
	}

	if refund.OrderID != order.ID {
		r := failSoft(fmt.Sprintf("le remboursement %s appartient à la commande %s, pas à %s",
			refundID, refund.OrderID, order.ID))
		return nil, &r, nil
	}

	if refund.Status == models.RefundStatusComplete {
		r := failSoft("le remboursement " + refundID + " est déjà terminé, mise à jour impossible")
		return nil, &r, nil
	}

	return refund, nil, nil
}
