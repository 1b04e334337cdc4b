package handlers

import (
	"net/http"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/models"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/services"
	"github.com/gin-gonic/gin"
)

// identityFrom construit la preuve de possession du panier : user_id posé
// par le middleware JWT, ou jeton invité transmis en header.
func identityFrom(c *gin.Context) services.Identity {
	return services.Identity{
		UserID:     c.GetString("user_id"),
		GuestToken: c.GetHeader("X-Guest-Token"),
	}
}

func respondCartError(c *gin.Context, err error, fallback string) {
	if models.IsCustomAPIError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}

//
// 🟢 POST /api/cart
//
func CreateCartHandler(carts *services.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		if userID != "" {
			cart, err := carts.GetOrCreateUserCart(userID)
			if err != nil {
				respondCartError(c, err, "Erreur création du panier")
				return
			}
			c.JSON(http.StatusOK, gin.H{"cart": cart})
			return
		}

		// Invité : le jeton n'est remis qu'une seule fois, ici.
		cart, token, err := carts.CreateGuestCart()
		if err != nil {
			respondCartError(c, err, "Erreur création du panier")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"cart": cart, "guest_token": token})
	}
}

//
// 🔵 GET /api/cart/:cartId
//
func GetCartHandler(carts *services.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, err := carts.GetCart(identityFrom(c), c.Param("cartId"))
		if err != nil {
			respondCartError(c, err, "Erreur lecture du panier")
			return
		}
		c.JSON(http.StatusOK, gin.H{"cart": cart})
	}
}

//
// 🟢 POST /api/cart/:cartId/items
//
func AddCartItemHandler(carts *services.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			BookID   string `json:"book_id" binding:"required"`
			Quantity int    `json:"quantity" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
			return
		}

		cart, err := carts.AddItem(identityFrom(c), c.Param("cartId"), input.BookID, input.Quantity)
		if err != nil {
			respondCartError(c, err, "Erreur ajout au panier")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Livre ajouté au panier", "cart": cart})
	}
}

//
// 🟢 POST /api/cart/claim — rattache un panier invité au compte connecté
//
func ClaimCartHandler(carts *services.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			CartID string `json:"cart_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
			return
		}

		if err := carts.Claim(c.GetString("user_id"), input.CartID); err != nil {
			respondCartError(c, err, "Erreur rattachement du panier")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Panier rattaché au compte"})
	}
}

//
// 🟢 POST /api/cart/merge — fusionne un panier invité dans le panier du compte
//
func MergeCartHandler(carts *services.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			SourceCartID string `json:"source_cart_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
			return
		}

		// La possession du panier source se prouve par le jeton invité.
		guestIdentity := services.Identity{GuestToken: c.GetHeader("X-Guest-Token")}
		if _, err := carts.GetCart(guestIdentity, input.SourceCartID); err != nil {
			respondCartError(c, err, "Erreur lecture du panier invité")
			return
		}

		dest, err := carts.GetOrCreateUserCart(c.GetString("user_id"))
		if err != nil {
			respondCartError(c, err, "Erreur lecture du panier")
			return
		}

		if err := carts.MergeCarts(input.SourceCartID, dest.ID); err != nil {
			respondCartError(c, err, "Erreur fusion des paniers")
			return
		}

		merged, err := carts.GetOrCreateUserCart(c.GetString("user_id"))
		if err != nil {
			respondCartError(c, err, "Erreur lecture du panier")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Paniers fusionnés", "cart": merged})
	}
}
