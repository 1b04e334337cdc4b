package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/models"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Identity porte la preuve de possession d'un panier : soit l'identifiant
// de l'utilisateur connecté, soit le jeton opaque remis à l'invité.
type Identity struct {
	UserID     string
	GuestToken string
}

func (i Identity) IsGuest() bool {
	return i.UserID == ""
}

// findOwnedCart charge le panier et vérifie qu'il appartient bien au
// demandeur. Un panier inexistant et un panier d'autrui produisent la
// même erreur : l'id seul ne suffit jamais.
func findOwnedCart(db *gorm.DB, identity Identity, cartID string) (*models.Cart, error) {
	var cart models.Cart
	err := db.Preload("Items").Preload("Items.Book").First(&cart, "id = ?", cartID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewCustomAPIError("Panier introuvable")
		}
		return nil, fmt.Errorf("lecture du panier %s: %w", cartID, err)
	}

	if identity.IsGuest() {
		if cart.GuestTokenHash == nil {
			return nil, models.NewCustomAPIError("Panier introuvable")
		}
		ok, err := utils.VerifyToken(identity.GuestToken, *cart.GuestTokenHash)
		if err != nil || !ok {
			return nil, models.NewCustomAPIError("Panier introuvable")
		}
		return &cart, nil
	}

	if cart.UserID == nil || *cart.UserID != identity.UserID {
		return nil, models.NewCustomAPIError("Panier introuvable")
	}
	return &cart, nil
}

type CartService struct {
	db *gorm.DB
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

// CreateGuestCart crée un panier invité et retourne le jeton en clair,
// remis une seule fois au client. Seul son hash est stocké.
func (s *CartService) CreateGuestCart() (*models.Cart, string, error) {
	token, err := utils.NewGuestToken()
	if err != nil {
		return nil, "", err
	}
	hash, err := utils.HashToken(token)
	if err != nil {
		return nil, "", err
	}

	cart := models.Cart{
		ID:             uuid.NewString(),
		GuestTokenHash: &hash,
	}
	if err := s.db.Create(&cart).Error; err != nil {
		return nil, "", fmt.Errorf("création du panier invité: %w", err)
	}
	return &cart, token, nil
}

// GetOrCreateUserCart retourne le panier de l'utilisateur, créé au vol
// à la première interaction.
func (s *CartService) GetOrCreateUserCart(userID string) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.Preload("Items").Preload("Items.Book").First(&cart, "user_id = ?", userID).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lecture du panier utilisateur: %w", err)
	}

	cart = models.Cart{ID: uuid.NewString(), UserID: &userID}
	if err := s.db.Create(&cart).Error; err != nil {
		return nil, fmt.Errorf("création du panier utilisateur: %w", err)
	}
	return &cart, nil
}

// GetCart charge un panier après vérification de propriété.
func (s *CartService) GetCart(identity Identity, cartID string) (*models.Cart, error) {
	return findOwnedCart(s.db, identity, cartID)
}

// AddItem ajoute un livre au panier ; si la ligne existe déjà, les
// quantités s'additionnent au lieu de dupliquer la ligne.
func (s *CartService) AddItem(identity Identity, cartID, bookID string, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, models.NewCustomAPIError("Quantité invalide")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		cart, err := findOwnedCart(tx, identity, cartID)
		if err != nil {
			return err
		}

		var book models.Book
		if err := tx.First(&book, "id = ?", bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewCustomAPIError("Livre introuvable")
			}
			return err
		}

		var existing models.CartItem
		err = tx.Where("cart_id = ? AND book_id = ?", cart.ID, bookID).First(&existing).Error
		switch {
		case err == nil:
			return tx.Model(&existing).Update("quantity", existing.Quantity+quantity).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&models.CartItem{
				ID:       uuid.NewString(),
				CartID:   cart.ID,
				BookID:   bookID,
				Quantity: quantity,
			}).Error
		default:
			return err
		}
	})
	if err != nil {
		if models.IsCustomAPIError(err) {
			return nil, err
		}
		log.Printf("❌ Ajout au panier %s impossible: %v", cartID, err)
		return nil, fmt.Errorf("échec ajout au panier")
	}

	return findOwnedCart(s.db, identity, cartID)
}

// MergeCarts verse les lignes du panier source dans le panier destination
// (sommation des quantités livre par livre) puis supprime le source.
// Une seule transaction : un crash au milieu ne peut ni doubler ni
// perdre d'articles.
func (s *CartService) MergeCarts(sourceID, destID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var sourceItems []models.CartItem
		if err := tx.Where("cart_id = ?", sourceID).Find(&sourceItems).Error; err != nil {
			return err
		}

		for _, item := range sourceItems {
			var existing models.CartItem
			err := tx.Where("cart_id = ? AND book_id = ?", destID, item.BookID).First(&existing).Error
			switch {
			case err == nil:
				if err := tx.Model(&existing).Update("quantity", existing.Quantity+item.Quantity).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Create(&models.CartItem{
					ID:       uuid.NewString(),
					CartID:   destID,
					BookID:   item.BookID,
					Quantity: item.Quantity,
				}).Error; err != nil {
					return err
				}
			default:
				return err
			}
		}

		if err := tx.Where("cart_id = ?", sourceID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", sourceID).Delete(&models.Cart{}).Error
	})
}

// Claim rattache un panier invité à un utilisateur fraîchement connecté.
// Si l'utilisateur a déjà un panier non vide, c'est le chemin de fusion
// qui s'applique, pas celui-ci.
func (s *CartService) Claim(userID, guestCartID string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var userCart models.Cart
		err := tx.Preload("Items").First(&userCart, "user_id = ?", userID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		hasUserCart := err == nil
		if hasUserCart && len(userCart.Items) > 0 {
			return models.NewCustomAPIError("L'utilisateur possède déjà un panier")
		}

		var guestCart models.Cart
		if err := tx.First(&guestCart, "id = ?", guestCartID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewCustomAPIError("Panier introuvable")
			}
			return err
		}
		if guestCart.UserID != nil {
			return models.NewCustomAPIError("Ce n'est pas un panier invité")
		}

		// Le panier (vide) de l'utilisateur devient superflu.
		if hasUserCart {
			if err := tx.Where("id = ?", userCart.ID).Delete(&models.Cart{}).Error; err != nil {
				return err
			}
		}

		return tx.Model(&models.Cart{}).Where("id = ?", guestCart.ID).Updates(map[string]interface{}{
			"user_id":          userID,
			"guest_token_hash": nil,
		}).Error
	})
	if err != nil {
		if models.IsCustomAPIError(err) {
			return err
		}
		log.Printf("❌ Rattachement du panier %s à %s impossible: %v", guestCartID, userID, err)
		return fmt.Errorf("échec rattachement du panier")
	}
	return nil
}

// SweepGuestCarts supprime les paniers invités abandonnés depuis plus de
// maxAge. Lancé périodiquement depuis main.
func (s *CartService) SweepGuestCarts(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	var swept int64

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var stale []models.Cart
		if err := tx.Where("user_id IS NULL AND created_at < ?", cutoff).Find(&stale).Error; err != nil {
			return err
		}
		for _, cart := range stale {
			if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id = ?", cart.ID).Delete(&models.Cart{}).Error; err != nil {
				return err
			}
		}
		swept = int64(len(stale))
		return nil
	})
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		log.Printf("🧹 %d panier(s) invité(s) expiré(s) supprimé(s)", swept)
	}
	return swept, nil
}
