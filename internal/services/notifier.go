package services

import "fmt"

// Clés de templates acceptées par le worker de notifications.
const (
	TemplateOrderStatus   = "order-status-change"
	TemplateRefundStatus  = "refund-status-change"
	TemplatePasswordReset = "password-reset"
)

type Notification struct {
	Template string            `json:"template"`
	Payload  map[string]string `json:"payload"`
}

// Notifier met en file les notifications sortantes. L'envoi est
// best-effort après commit : un échec de mise en file ne doit jamais
// annuler la transition d'état qui l'a déclenché.
type Notifier interface {
	Enqueue(n Notification) error
}

// NotificationError nomme la commande et le destinataire concernés sans
// exposer l'erreur bas niveau au client.
type NotificationError struct {
	OrderID string
	Email   string
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("échec mise en file de la notification (commande %s, destinataire %s)", e.OrderID, e.Email)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}
