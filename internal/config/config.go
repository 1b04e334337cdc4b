package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

func Load() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé, on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}

	for _, key := range []string{"DATABASE_URL", "STRIPE_SECRET_KEY"} {
		if os.Getenv(key) == "" {
			log.Printf("⚠️  Variable %s manquante", key)
		}
	}
}

// BaseURL retourne l'URL publique du service (redirections Stripe).
func BaseURL() string {
	if url := os.Getenv("BASE_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}
