package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/queue"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"
)

//
// 📥 POST /api/payment/webhook/stripe
//
// Vérifie la signature puis met l'événement en file : on répond 200 dès
// que le job est accepté, les échecs de traitement sont retentés par la
// file interne, pas par une redélivrance HTTP de Stripe.
func StripeWebhookHandler(webhookQueue *queue.Queue) gin.HandlerFunc {
	return func(c *gin.Context) {
		const MaxBodyBytes = int64(65536)
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

		payload, err := c.GetRawData()
		if err != nil {
			log.Println("❌ Lecture payload échouée:", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Échec lecture body"})
			return
		}

		secret := os.Getenv("STRIPE_WEBHOOK_SECRET")
		var event stripe.Event

		if secret == "" {
			log.Println("⚠️ Pas de STRIPE_WEBHOOK_SECRET : mode test")
			if err := json.Unmarshal(payload, &event); err != nil {
				log.Println("❌ JSON invalide:", err)
				c.JSON(http.StatusBadRequest, gin.H{"error": "JSON invalide"})
				return
			}
		} else {
			event, err = webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), secret)
			if err != nil {
				log.Println("❌ Signature Stripe invalide:", err)
				c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
				return
			}
		}

		log.Printf("📥 Événement Stripe reçu : %s", event.Type)

		if err := webhookQueue.Enqueue(event); err != nil {
			// 500 pour que Stripe redélivre : l'événement n'est pas encore
			// pris en charge en interne.
			log.Printf("❌ Mise en file de l'événement %s impossible: %v", event.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Événement non pris en charge"})
			return
		}

		c.Status(http.StatusOK)
	}
}
