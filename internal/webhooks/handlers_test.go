package webhooks_test

import (
	"testing"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/models"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/services"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/webhooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setTransaction(t *testing.T, db *gorm.DB, orderID, transactionID string) {
	t.Helper()
	require.NoError(t, db.Model(&models.Payment{}).Where("order_id = ?", orderID).
		Update("transaction_id", transactionID).Error)
}

func reloadOrder(t *testing.T, db *gorm.DB, orderID string) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, db.First(&order, "id = ?", orderID).Error)
	return order
}

func reloadPayment(t *testing.T, db *gorm.DB, orderID string) models.Payment {
	t.Helper()
	var payment models.Payment
	require.NoError(t, db.First(&payment, "order_id = ?", orderID).Error)
	return payment
}

func shippingCount(t *testing.T, db *gorm.DB, orderID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Shipping{}).Where("order_id = ?", orderID).Count(&count).Error)
	return count
}

func TestCheckoutCompleted(t *testing.T) {
	db := newTestDB(t)
	user := seedOrderUser(t, db)
	order, _ := seedPendingOrder(t, db, &user.ID)
	notifier := &recordingNotifier{}
	p := webhooks.NewProcessor(db, notifier, &fakePayments{})

	result, err := p.Process(makeEvent(t, "checkout.session.completed", completedSessionObject(order.ID)))
	require.NoError(t, err)
	assert.True(t, result.Success)

	assert.Equal(t, models.OrderStatusComplete, reloadOrder(t, db, order.ID).Status)

	payment := reloadPayment(t, db, order.ID)
	assert.Equal(t, models.PaymentStatusPaid, payment.Status)
	require.NotNil(t, payment.TransactionID)
	assert.Equal(t, "pi_A", *payment.TransactionID)
	assert.Equal(t, 30.00, payment.Amount)

	var shipping models.Shipping
	require.NoError(t, db.First(&shipping, "order_id = ?", order.ID).Error)
	assert.Equal(t, "Camille Client", shipping.Name)
	assert.Equal(t, "12 rue des Libraires", shipping.Line1)
	assert.Nil(t, shipping.Line2) // line2 vide → null
	assert.Equal(t, "BE", shipping.Country)

	// Notification au compte propriétaire, pas à l'e-mail Stripe.
	require.Len(t, notifier.notes, 1)
	assert.Equal(t, services.TemplateOrderStatus, notifier.notes[0].Template)
	assert.Equal(t, "client@example.com", notifier.notes[0].Payload["email"])
	assert.Equal(t, string(models.OrderStatusComplete), notifier.notes[0].Payload["status"])
}

func TestCheckoutCompletedIdempotent(t *testing.T) {
	db := newTestDB(t)
	user := seedOrderUser(t, db)
	order, _ := seedPendingOrder(t, db, &user.ID)
	p := webhooks.NewProcessor(db, &recordingNotifier{}, &fakePayments{})

	event := makeEvent(t, "checkout.session.completed", completedSessionObject(order.ID))
	first, err := p.Process(event)
	require.NoError(t, err)
	require.True(t, first.Success)

	// Redélivraison at-least-once : échec doux, aucun second effet.
	second, err := p.Process(event)
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.Contains(t, second.Log, string(models.OrderStatusComplete))

	assert.EqualValues(t, 1, shippingCount(t, db, order.ID))
	assert.Equal(t, models.OrderStatusComplete, reloadOrder(t, db, order.ID).Status)
}

func TestCheckoutCompletedTransactionMismatch(t *testing.T) {
	db := newTestDB(t)
	order, _ := seedPendingOrder(t, db, nil)
	setTransaction(t, db, order.ID, "pi_B")
	p := webhooks.NewProcessor(db, &recordingNotifier{}, &fakePayments{})

	result, err := p.Process(makeEvent(t, "checkout.session.completed", completedSessionObject(order.ID)))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Log, "pi_A")

	// Aucune écriture : la commande attend toujours sa vraie transaction.
	assert.Equal(t, models.OrderStatusPending, reloadOrder(t, db, order.ID).Status)
	payment := reloadPayment(t, db, order.ID)
	assert.Equal(t, models.PaymentStatusUnpaid, payment.Status)
	assert.Equal(t, "pi_B", *payment.TransactionID)
	assert.EqualValues(t, 0, shippingCount(t, db, order.ID))
}

func TestCheckoutCompletedMissingShipping(t *testing.T) {
	db := newTestDB(t)
	order, _ := seedPendingOrder(t, db, nil)
	p := webhooks.NewProcessor(db, &recordingNotifier{}, &fakePayments{})

	obj := completedSessionObject(order.ID)
	delete(obj, "collected_information")

	result, err := p.Process(makeEvent(t, "checkout.session.completed", obj))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Log, "adresse de livraison")
	assert.Equal(t, models.OrderStatusPending, reloadOrder(t, db, order.ID).Status)
}

func TestCheckoutCompletedGuestAssignsEmail(t *testing.T) {
	db := newTestDB(t)
	order, _ := seedPendingOrder(t, db, nil)
	notifier := &recordingNotifier{}
	p := webhooks.NewProcessor(db, notifier, &fakePayments{})

	result, err := p.Process(makeEvent(t, "checkout.session.completed", completedSessionObject(order.ID)))
	require.NoError(t, err)
	require.True(t, result.Success)

	reloaded := reloadOrder(t, db, order.ID)
	require.NotNil(t, reloaded.GuestEmail)
	assert.Equal(t, "client@example.com", *reloaded.GuestEmail)
	require.NotNil(t, reloaded.GuestName)
	assert.Equal(t, "Camille Client", *reloaded.GuestName)

	require.Len(t, notifier.notes, 1)
	assert.Equal(t, "client@example.com", notifier.notes[0].Payload["email"])
}

func TestCheckoutCompletedLatePaymentOnCanceledOrder(t *testing.T) {
	db := newTestDB(t)
	order, _ := seedPendingOrder(t, db, nil)
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("status", models.OrderStatusCanceled).Error)
	payments := &fakePayments{}
	p := webhooks.NewProcessor(db, &recordingNotifier{}, payments)

	result, err := p.Process(makeEvent(t, "checkout.session.completed", completedSessionObject(order.ID)))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Log, "remboursement")

	// Paiement enregistré puis remboursement déclenché, pas d'expédition.
	payment := reloadPayment(t, db, order.ID)
	assert.Equal(t, models.PaymentStatusPaid, payment.Status)
	require.Len(t, payments.refunds, 1)
	assert.Equal(t, "pi_A", payments.refunds[0])
	assert.Equal(t, models.OrderStatusCanceled, reloadOrder(t, db, order.ID).Status)
	assert.EqualValues(t, 0, shippingCount(t, db, order.ID))
}

func TestCheckoutExpiredRevertsStock(t *testing.T) {
	db := newTestDB(t)
	user := seedOrderUser(t, db)
	order, book := seedPendingOrder(t, db, &user.ID)
	notifier := &recordingNotifier{}
	p := webhooks.NewProcessor(db, notifier, &fakePayments{})

	result, err := p.Process(makeEvent(t, "checkout.session.expired", map[string]interface{}{
		"id":       "cs_1",
		"metadata": map[string]string{"order_id": order.ID},
	}))
	require.NoError(t, err)
	assert.True(t, result.Success)

	assert.Equal(t, models.OrderStatusExpired, reloadOrder(t, db, order.ID).Status)
	assert.Equal(t, models.PaymentStatusUnpaid, reloadPayment(t, db, order.ID).Status)

	// Les 2 exemplaires réservés reviennent en stock.
	var reloaded models.Book
	require.NoError(t, db.First(&reloaded, "id = ?", book.ID).Error)
	assert.Equal(t, 10, reloaded.Stock)

	require.Len(t, notifier.notes, 1)
	assert.Equal(t, string(models.OrderStatusExpired), notifier.notes[0].Payload["status"])
}

func TestCheckoutExpiredIdempotent(t *testing.T) {
	db := newTestDB(t)
	order, book := seedPendingOrder(t, db, nil)
	p := webhooks.NewProcessor(db, &recordingNotifier{}, &fakePayments{})

	event := makeEvent(t, "checkout.session.expired", map[string]interface{}{
		"id":       "cs_1",
		"metadata": map[string]string{"order_id": order.ID},
	})
	first, err := p.Process(event)
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := p.Process(event)
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.Contains(t, second.Log, "déjà traitée")

	// Surtout pas de double crédit du stock.
	var reloaded models.Book
	require.NoError(t, db.First(&reloaded, "id = ?", book.ID).Error)
	assert.Equal(t, 10, reloaded.Stock)
}

func TestPaymentFailedUpdatesPayment(t *testing.T) {
	db := newTestDB(t)
	order, _ := seedPendingOrder(t, db, nil)
	p := webhooks.NewProcessor(db, &recordingNotifier{}, &fakePayments{})

	result, err := p.Process(makeEvent(t, "payment_intent.payment_failed", map[string]interface{}{
		"id":       "pi_A",
		"object":   "payment_intent",
		"amount":   3000,
		"metadata": map[string]string{"order_id": order.ID},
	}))
	require.NoError(t, err)
	assert.True(t, result.Success)

	payment := reloadPayment(t, db, order.ID)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)
	require.NotNil(t, payment.TransactionID)
	assert.Equal(t, "pi_A", *payment.TransactionID)

	// Un échec de tentative n'expire ni n'annule : le client peut retenter.
	assert.Equal(t, models.OrderStatusPending, reloadOrder(t, db, order.ID).Status)
}

func TestPaymentFailedTransactionMismatch(t *testing.T) {
	db := newTestDB(t)
	order, _ := seedPendingOrder(t, db, nil)
	setTransaction(t, db, order.ID, "pi_B")
	p := webhooks.NewProcessor(db, &recordingNotifier{}, &fakePayments{})

	result, err := p.Process(makeEvent(t, "payment_intent.payment_failed", map[string]interface{}{
		"id":       "pi_A",
		"object":   "payment_intent",
		"metadata": map[string]string{"order_id": order.ID},
	}))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.PaymentStatusUnpaid, reloadPayment(t, db, order.ID).Status)
}

func TestRefundCreated(t *testing.T) {
	db := newTestDB(t)
	order, _ := seedPendingOrder(t, db, nil)
	setTransaction(t, db, order.ID, "pi_A")
	p := webhooks.NewProcessor(db, &recordingNotifier{}, &fakePayments{})

	result, err := p.Process(makeEvent(t, "refund.created", refundObject(order.ID, "re_1", "", "")))
	require.NoError(t, err)
	assert.True(t, result.Success)

	var refund models.Refund
	require.NoError(t, db.First(&refund, "refund_id = ?", "re_1").Error)
	assert.Equal(t, order.ID, refund.OrderID)
	assert.Equal(t, models.RefundStatusCreated, refund.Status)
	assert.Equal(t, 30.00, refund.Amount)
	assert.Equal(t, models.PaymentStatusRefundCreated, reloadPayment(t, db, order.ID).Status)

	// Redélivraison : la clé primaire Stripe empêche une seconde ligne.
	second, err := p.Process(makeEvent(t, "refund.created", refundObject(order.ID, "re_1", "", "")))
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.Contains(t, second.Log, "existe déjà")

	var count int64
	db.Model(&models.Refund{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestRefundCreatedWithoutPayment(t *testing.T) {
	db := newTestDB(t)
	order, _ := seedPendingOrder(t, db, nil)
	require.NoError(t, db.Where("order_id = ?", order.ID).Delete(&models.Payment{}).Error)
	p := webhooks.NewProcessor(db, &recordingNotifier{}, &fakePayments{})

	result, err := p.Process(makeEvent(t, "refund.created", refundObject(order.ID, "re_1", "", "")))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Log, "aucun paiement")
}

func TestRefundUpdatedSucceeded(t *testing.T) {
	db := newTestDB(t)
	user := seedOrderUser(t, db)
	order, _ := seedPendingOrder(t, db, &user.ID)
	setTransaction(t, db, order.ID, "pi_A")
	notifier := &recordingNotifier{}
	p := webhooks.NewProcessor(db, notifier, &fakePayments{})

	_, err := p.Process(makeEvent(t, "refund.created", refundObject(order.ID, "re_1", "", "")))
	require.NoError(t, err)

	result, err := p.Process(makeEvent(t, "refund.updated", refundObject(order.ID, "re_1", "succeeded", "")))
	require.NoError(t, err)
	assert.True(t, result.Success)

	var refund models.Refund
	require.NoError(t, db.First(&refund, "refund_id = ?", "re_1").Error)
	assert.Equal(t, models.RefundStatusComplete, refund.Status)
	assert.Equal(t, models.PaymentStatusRefunded, reloadPayment(t, db, order.ID).Status)
	assert.Equal(t, models.OrderStatusRefunded, reloadOrder(t, db, order.ID).Status)

	require.Len(t, notifier.notes, 1)
	assert.Equal(t, services.TemplateRefundStatus, notifier.notes[0].Template)
	assert.Equal(t, "client@example.com", notifier.notes[0].Payload["email"])
}

func TestRefundCompleteIsTerminal(t *testing.T) {
	db := newTestDB(t)
	order, _ := seedPendingOrder(t, db, nil)
	setTransaction(t, db, order.ID, "pi_A")
	p := webhooks.NewProcessor(db, &recordingNotifier{}, &fakePayments{})

	_, err := p.Process(makeEvent(t, "refund.created", refundObject(order.ID, "re_1", "", "")))
	require.NoError(t, err)
	_, err = p.Process(makeEvent(t, "refund.updated", refundObject(order.ID, "re_1", "succeeded", "")))
	require.NoError(t, err)

	// Un « failed » tardif ne peut pas dégrader un remboursement terminé.
	result, err := p.Process(makeEvent(t, "refund.failed", refundObject(order.ID, "re_1", "failed", "expired_or_canceled_card")))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Log, "déjà terminé")

	var refund models.Refund
	require.NoError(t, db.First(&refund, "refund_id = ?", "re_1").Error)
	assert.Equal(t, models.RefundStatusComplete, refund.Status)
	assert.Nil(t, refund.FailureReason)
}

func TestRefundUpdateBeforeCreate(t *testing.T) {
	db := newTestDB(t)
	order, _ := seedPendingOrder(t, db, nil)
	setTransaction(t, db, order.ID, "pi_A")
	p := webhooks.NewProcessor(db, &recordingNotifier{}, &fakePayments{})

	result, err := p.Process(makeEvent(t, "refund.updated", refundObject(order.ID, "re_1", "succeeded", "")))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Log, "n'existe pas")
	assert.Equal(t, models.OrderStatusPending, reloadOrder(t, db, order.ID).Status)
}

func TestRefundUpdatedForAnotherOrder(t *testing.T) {
	db := newTestDB(t)
	orderA, _ := seedPendingOrder(t, db, nil)
	orderB, _ := seedPendingOrder(t, db, nil)
	setTransaction(t, db, orderA.ID, "pi_A")
	setTransaction(t, db, orderB.ID, "pi_A")
	p := webhooks.NewProcessor(db, &recordingNotifier{}, &fakePayments{})

	_, err := p.Process(makeEvent(t, "refund.created", refundObject(orderA.ID, "re_1", "", "")))
	require.NoError(t, err)

	// Même identifiant de remboursement, mauvaise commande.
	result, err := p.Process(makeEvent(t, "refund.updated", refundObject(orderB.ID, "re_1", "succeeded", "")))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Log, orderA.ID)
}

func TestRefundFailedRecordsReason(t *testing.T) {
	db := newTestDB(t)
	user := seedOrderUser(t, db)
	order, _ := seedPendingOrder(t, db, &user.ID)
	setTransaction(t, db, order.ID, "pi_A")
	notifier := &recordingNotifier{}
	p := webhooks.NewProcessor(db, notifier, &fakePayments{})

	_, err := p.Process(makeEvent(t, "refund.created", refundObject(order.ID, "re_1", "", "")))
	require.NoError(t, err)
	notifier.notes = nil

	result, err := p.Process(makeEvent(t, "refund.failed", refundObject(order.ID, "re_1", "failed", "expired_or_canceled_card")))
	require.NoError(t, err)
	assert.True(t, result.Success)

	var refund models.Refund
	require.NoError(t, db.First(&refund, "refund_id = ?", "re_1").Error)
	assert.Equal(t, models.RefundStatusFailed, refund.Status)
	require.NotNil(t, refund.FailureReason)
	assert.Equal(t, "expired_or_canceled_card", *refund.FailureReason)

	// Le paiement reste marqué remboursement en cours ; un nouvel essai
	// côté Stripe produira un nouveau refund.created.
	assert.Equal(t, models.PaymentStatusRefundCreated, reloadPayment(t, db, order.ID).Status)
	require.Len(t, notifier.notes, 1)
	assert.Equal(t, services.TemplateRefundStatus, notifier.notes[0].Template)
}

func TestRefundUpdatedPendingNotActionable(t *testing.T) {
	db := newTestDB(t)
	order, _ := seedPendingOrder(t, db, nil)
	setTransaction(t, db, order.ID, "pi_A")
	p := webhooks.NewProcessor(db, &recordingNotifier{}, &fakePayments{})

	_, err := p.Process(makeEvent(t, "refund.created", refundObject(order.ID, "re_1", "", "")))
	require.NoError(t, err)

	result, err := p.Process(makeEvent(t, "refund.updated", refundObject(order.ID, "re_1", "pending", "")))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Log, "non actionnable")

	var refund models.Refund
	require.NoError(t, db.First(&refund, "refund_id = ?", "re_1").Error)
	assert.Equal(t, models.RefundStatusCreated, refund.Status)
}
