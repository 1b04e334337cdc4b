package handlers

import (
	"errors"
	"net/http"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/models"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/services"
	"github.com/gin-gonic/gin"
)

//
// 💳 POST /api/checkout — invité ou connecté, même chemin
//
func CheckoutHandler(checkout *services.CheckoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			CartID string `json:"cart_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
			return
		}

		result, err := checkout.Checkout(c.Request.Context(), identityFrom(c), input.CartID)
		if err != nil {
			var sessionErr *models.PaymentSessionError
			switch {
			case errors.As(err, &sessionErr):
				// La commande est engagée mais sans session de paiement
				// valide ; le chemin d'expiration recréditera le stock.
				c.JSON(http.StatusBadGateway, gin.H{
					"error":    "Paiement momentanément indisponible, la commande n'a pas été facturée",
					"order_id": sessionErr.OrderID,
				})
			case models.IsCustomAPIError(err):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors du checkout"})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"order":       result.Order,
			"payment_url": result.PaymentURL,
			"expires_at":  result.ExpiresAt,
		})
	}
}
