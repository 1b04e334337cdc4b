package handlers

import (
	"errors"
	"net/http"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/models"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

//
// 🔵 GET /api/orders — commandes de l'utilisateur connecté
//
func GetUserOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var orders []models.Order
		err := db.
			Where("user_id = ?", c.GetString("user_id")).
			Preload("Items").
			Preload("Payment").
			Preload("Shipping").
			Order("created_at DESC").
			Find(&orders).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture des commandes"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
	}
}

//
// 🔵 GET /api/orders/:orderId
//
func GetOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var order models.Order
		err := db.
			Preload("Items").
			Preload("Payment").
			Preload("Shipping").
			First(&order, "id = ?", c.Param("orderId")).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture de la commande"})
			return
		}

		userID := c.GetString("user_id")
		if order.UserID == nil || *order.UserID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Cette commande ne vous appartient pas"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"order": order})
	}
}

//
// 🟠 POST /api/orders/:orderId/cancel (avant paiement uniquement)
//
func CancelOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("orderId")

		var order models.Order
		if err := db.First(&order, "id = ?", orderID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
			return
		}
		userID := c.GetString("user_id")
		if order.UserID == nil || *order.UserID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Cette commande ne vous appartient pas"})
			return
		}

		if err := services.CancelOrder(db, orderID); err != nil {
			if models.IsCustomAPIError(err) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur annulation de la commande"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Commande annulée", "order_id": orderID})
	}
}
