package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/models"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// --- Variables Globales ---
var (
	DB            *gorm.DB
	Redis         *redis.Client
	ElasticClient *elasticsearch.Client
)

// --- Initialisation ---
func ConnectDatabases() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. Initialiser PostgreSQL
	if err := connectPostgres(); err != nil {
		log.Fatalf("❌ Échec initialisation PostgreSQL: %v", err)
	}

	// 2. Initialiser Redis
	connectRedis(ctx)

	// 3. Initialiser Elasticsearch
	connectElastic()

	log.Println("✅ Toutes les bases de données sont connectées")
}

// =============================================
// POSTGRESQL (GORM)
// =============================================

func connectPostgres() error {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return fmt.Errorf("DATABASE_URL non configuré")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("impossible de se connecter à PostgreSQL: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db
	log.Println("✅ PostgreSQL connecté")

	return Migrate(db)
}

// Migrate crée/ajuste les tables du domaine.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Book{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Refund{},
		&models.Shipping{},
	)
}

// =============================================
// REDIS (files de jobs webhook & notifications)
// =============================================

func connectRedis(ctx context.Context) {
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		redisHost = "localhost:6379"
	}

	Redis = redis.NewClient(&redis.Options{
		Addr:         redisHost,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})
	if err := Redis.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️ Redis injoignable (%v), les files de jobs ne fonctionneront pas", err)
		return
	}
	log.Println("✅ Redis connecté avec succès")
}

// =============================================
// ELASTICSEARCH (recherche catalogue)
// =============================================

func connectElastic() {
	addresses := os.Getenv("ELASTIC_ADDRESSES")
	if addresses == "" {
		log.Println("⚠️ ELASTIC_ADDRESSES non configuré, recherche désactivée")
		return
	}

	cfg := elasticsearch.Config{
		Addresses: strings.Split(addresses, ","),
		Username:  os.Getenv("ELASTIC_USERNAME"),
		Password:  os.Getenv("ELASTIC_PASSWORD"),
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		log.Printf("⚠️ Échec initialisation Elasticsearch: %v", err)
		return
	}

	ElasticClient = client
	log.Println("✅ Elasticsearch connecté")
}
