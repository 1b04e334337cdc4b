package webhooks

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/models"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/services"
	"github.com/stripe/stripe-go/v83"
	"gorm.io/gorm"
)

// Result est l'issue métier d'un handler. Success=false est un « échec
// doux » : condition normale sous livraison at-least-once (doublon,
// statut périmé, mauvaise transaction) qui ne doit PAS déclencher de
// retry de la file. Seules les erreurs Go remontées sont retentées.
type Result struct {
	Success bool   `json:"success"`
	Log     string `json:"log,omitempty"`
}

func failSoft(msg string) Result {
	return Result{Success: false, Log: msg}
}

// HandlerContext est passé à chaque handler : la transaction courante,
// l'événement brut et la commande cible. Les notifications et les
// changements de statut y sont accumulés puis émis après commit.
type HandlerContext struct {
	Tx    *gorm.DB
	Event stripe.Event
	Order *models.Order

	notifications []services.Notification
	statusChanged *models.OrderStatus
}

// Notify programme une notification, émise seulement si la transaction
// est validée.
func (c *HandlerContext) Notify(n services.Notification) {
	c.notifications = append(c.notifications, n)
}

func (c *HandlerContext) OrderStatusChanged(status models.OrderStatus) {
	c.statusChanged = &status
}

type Handler interface {
	Handle(c *HandlerContext) (Result, error)
}

// OrderObserver est prévenu après commit d'un changement de statut
// (hub websocket de suivi de commande).
type OrderObserver interface {
	OrderStatusChanged(orderID string, status models.OrderStatus)
}

// Processor vérifie, classe et route les événements Stripe vers le
// handler enregistré pour leur type, dans une frontière transactionnelle
// qui charge la commande cible.
type Processor struct {
	db        *gorm.DB
	notifier  services.Notifier
	handlers  map[string]Handler
	observers []OrderObserver
}

func NewProcessor(db *gorm.DB, notifier services.Notifier, payments services.PaymentProvider) *Processor {
	p := &Processor{
		db:       db,
		notifier: notifier,
		handlers: make(map[string]Handler),
	}

	// Registre construit une fois au démarrage : liste statique
	// (type d'événement, handler).
	p.Register("payment_intent.payment_failed", &PaymentFailedHandler{})
	p.Register("checkout.session.completed", &CheckoutCompletedHandler{Payments: payments})
	p.Register("checkout.session.expired", &CheckoutExpiredHandler{})
	p.Register("refund.created", &RefundCreatedHandler{})
	p.Register("refund.updated", &RefundUpdatedHandler{})
	p.Register("refund.failed", &RefundFailedHandler{})

	return p
}

// Register enregistre un handler pour un type d'événement. Un doublon
// est signalé et le dernier enregistrement gagne.
func (p *Processor) Register(eventType string, h Handler) {
	if _, exists := p.handlers[eventType]; exists {
		log.Printf("⚠️ Handler déjà enregistré pour %s, remplacé", eventType)
	}
	p.handlers[eventType] = h
}

func (p *Processor) AddObserver(o OrderObserver) {
	p.observers = append(p.observers, o)
}

// Process traite un événement déjà vérifié côté transport (signature).
// Retourne une erreur uniquement pour les échecs inattendus, que la file
// doit redélivrer ; les mismatchs métier terminent en silence via Result.
func (p *Processor) Process(event stripe.Event) (Result, error) {
	handler, ok := p.handlers[string(event.Type)]
	if !ok {
		// Un webhook porte souvent plus de types que l'intégration n'en
		// consomme : non géré n'est pas une erreur.
		log.Printf("ℹ️ Événement ignoré : %s", event.Type)
		return Result{Success: true, Log: "type d'événement non géré"}, nil
	}

	orderID, err := extractOrderID(event)
	if err != nil || orderID == "" {
		return failSoft("order_id absent des métadonnées de l'événement"), nil
	}

	var result Result
	var hctx *HandlerContext

	txErr := p.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result = failSoft("Commande introuvable")
				return nil
			}
			return err
		}

		hctx = &HandlerContext{Tx: tx, Event: event, Order: &order}
		result, err = handler.Handle(hctx)
		return err
	})
	if txErr != nil {
		log.Printf("❌ Erreur traitement de l'événement %s (%s): %v", event.ID, event.Type, txErr)
		return Result{}, fmt.Errorf("échec du traitement de l'événement %s", event.Type)
	}

	if !result.Success && result.Log != "" {
		log.Printf("ℹ️ Événement %s non appliqué: %s", event.Type, result.Log)
	}

	// Effets de bord post-commit, best-effort.
	if hctx != nil {
		p.flushNotifications(hctx)
		if hctx.statusChanged != nil {
			for _, o := range p.observers {
				o.OrderStatusChanged(hctx.Order.ID, *hctx.statusChanged)
			}
		}
	}

	return result, nil
}

func (p *Processor) flushNotifications(hctx *HandlerContext) {
	if p.notifier == nil {
		return
	}
	for _, n := range hctx.notifications {
		if err := p.notifier.Enqueue(n); err != nil {
			notifErr := &services.NotificationError{
				OrderID: hctx.Order.ID,
				Email:   n.Payload["email"],
				Err:     err,
			}
			log.Printf("⚠️ %v", notifErr)
		}
	}
}

// extractOrderID lit order_id dans les métadonnées de l'objet de
// l'événement ; tous les objets visés (payment intent, session de
// checkout, remboursement) portent une map metadata.
func extractOrderID(event stripe.Event) (string, error) {
	var payload struct {
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return "", err
	}
	return payload.Metadata["order_id"], nil
}
