package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/services"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/utils"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/webhooks"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v83"
)

const (
	WebhooksQueue      = "webhooks"
	NotificationsQueue = "notifications"
)

// RedisNotifier implémente services.Notifier en poussant les
// notifications dans la file Redis dédiée.
type RedisNotifier struct {
	queue *Queue
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{queue: New(client, NotificationsQueue)}
}

func (n *RedisNotifier) Enqueue(notification services.Notification) error {
	return n.queue.Enqueue(notification)
}

// StartWebhookWorker consomme les événements Stripe mis en file par le
// endpoint webhook. Une erreur du processor est retentée par la file ;
// un Result d'échec doux termine le job en silence.
func StartWebhookWorker(ctx context.Context, client *redis.Client, processor *webhooks.Processor) {
	q := New(client, WebhooksQueue)
	go q.Consume(ctx, func(payload json.RawMessage) error {
		var event stripe.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Printf("⚠️ Événement webhook illisible, abandonné: %v", err)
			return nil
		}
		_, err := processor.Process(event)
		return err
	})
}

// StartNotificationWorker rend et envoie les e-mails de notification.
func StartNotificationWorker(ctx context.Context, client *redis.Client) {
	q := New(client, NotificationsQueue)
	go q.Consume(ctx, func(payload json.RawMessage) error {
		var n services.Notification
		if err := json.Unmarshal(payload, &n); err != nil {
			log.Printf("⚠️ Notification illisible, abandonnée: %v", err)
			return nil
		}
		return sendNotification(n)
	})
}

func sendNotification(n services.Notification) error {
	email := n.Payload["email"]
	if email == "" {
		log.Printf("⚠️ Notification %s sans destinataire, abandonnée", n.Template)
		return nil
	}

	username := n.Payload["username"]
	if username == "" {
		username = "client"
	}

	var subject, html string
	switch n.Template {
	case services.TemplateOrderStatus:
		subject, html = utils.OrderStatusEmail(username, n.Payload["orderId"], n.Payload["status"], n.Payload["trackingId"])
	case services.TemplateRefundStatus:
		subject, html = utils.RefundStatusEmail(username, n.Payload["orderId"])
	case services.TemplatePasswordReset:
		subject, html = utils.PasswordResetEmail(username, n.Payload["link"])
	default:
		log.Printf("⚠️ Template de notification inconnu: %s", n.Template)
		return nil
	}

	if err := utils.SendEmail(email, subject, html); err != nil {
		return fmt.Errorf("envoi de la notification %s à %s: %w", n.Template, email, err)
	}

	log.Printf("📧 Notification %s envoyée à %s", n.Template, email)
	return nil
}
