package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/config"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/database"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/handlers"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/models"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/queue"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/routes"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/services"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/webhooks"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
)

func main() {
	config.Load()

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	if stripe.Key == "" {
		log.Fatal("❌ Impossible d'initialiser Stripe : clé manquante")
	}
	log.Println("✅ Stripe initialisé")

	database.ConnectDatabases()

	ctx := context.Background()

	// Services
	payments := services.NewStripeProvider()
	carts := services.NewCartService(database.DB)
	checkout := services.NewCheckoutService(database.DB, payments)
	notifier := queue.NewRedisNotifier(database.Redis)

	// Routeur d'événements webhook + hub de suivi
	processor := webhooks.NewProcessor(database.DB, notifier, payments)
	hub := handlers.NewOrderStatusHub()
	processor.AddObserver(hub)

	// Workers de files
	queue.StartWebhookWorker(ctx, database.Redis, processor)
	queue.StartNotificationWorker(ctx, database.Redis)

	// Balayage horaire des paniers invités abandonnés
	go sweepGuestCarts(carts)

	// Indexation du catalogue pour la recherche
	go indexCatalog()

	r := gin.Default()
	r.Use(cors.Default())
	routes.RegisterRoutes(r, routes.Deps{
		DB:           database.DB,
		Carts:        carts,
		Checkout:     checkout,
		WebhookQueue: queue.New(database.Redis, queue.WebhooksQueue),
		Hub:          hub,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Println("🚀 Serveur librairie lancé sur le port", port)
	r.Run(":" + port)
}

func sweepGuestCarts(carts *services.CartService) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if _, err := carts.SweepGuestCarts(24 * time.Hour); err != nil {
			log.Printf("⚠️ Balayage des paniers invités échoué: %v", err)
		}
	}
}

func indexCatalog() {
	if database.ElasticClient == nil {
		return
	}

	var books []models.Book
	if err := database.DB.Find(&books).Error; err != nil {
		log.Printf("⚠️ Lecture du catalogue pour indexation échouée: %v", err)
		return
	}
	for _, book := range books {
		services.IndexBook(book)
	}
	log.Printf("🔍 %d livre(s) indexé(s) pour la recherche", len(books))
}
