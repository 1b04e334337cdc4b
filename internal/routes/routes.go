package routes

import (
	"github.com/dev-murchi/bookstore-backend-sub000/internal/handlers"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/middleware"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/queue"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Deps struct {
	DB           *gorm.DB
	Carts        *services.CartService
	Checkout     *services.CheckoutService
	WebhookQueue *queue.Queue
	Hub          *handlers.OrderStatusHub
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	api := r.Group("/api")

	// Catalogue
	api.GET("/books", handlers.ListBooksHandler(deps.DB))
	api.GET("/books/search", handlers.SearchBooksHandler())

	// Panier : mêmes routes pour invité (X-Guest-Token) et connecté
	cart := api.Group("/cart", middleware.OptionalAuth())
	cart.POST("", handlers.CreateCartHandler(deps.Carts))
	cart.GET("/:cartId", handlers.GetCartHandler(deps.Carts))
	cart.POST("/:cartId/items", handlers.AddCartItemHandler(deps.Carts))
	cart.POST("/claim", middleware.AuthRequired(), handlers.ClaimCartHandler(deps.Carts))
	cart.POST("/merge", middleware.AuthRequired(), handlers.MergeCartHandler(deps.Carts))

	// Checkout
	api.POST("/checkout", middleware.OptionalAuth(), handlers.CheckoutHandler(deps.Checkout))

	// Webhook Stripe
	api.POST("/payment/webhook/stripe", handlers.StripeWebhookHandler(deps.WebhookQueue))

	// Commandes
	orders := api.Group("/orders", middleware.AuthRequired())
	orders.GET("", handlers.GetUserOrdersHandler(deps.DB))
	orders.GET("/:orderId", handlers.GetOrderHandler(deps.DB))
	orders.POST("/:orderId/cancel", handlers.CancelOrderHandler(deps.DB))
	orders.GET("/:orderId/ws", handlers.OrderStatusWSHandler(deps.Hub))
}
