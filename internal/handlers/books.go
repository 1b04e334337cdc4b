package handlers

import (
	"net/http"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/models"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

//
// 🔵 GET /api/books
//
func ListBooksHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var books []models.Book
		if err := db.Order("title ASC").Find(&books).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture du catalogue"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
	}
}

//
// 🔍 GET /api/books/search?q=
//
func SearchBooksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("q")
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre q requis"})
			return
		}

		results, err := services.SearchBooks(query)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Recherche indisponible"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
	}
}
