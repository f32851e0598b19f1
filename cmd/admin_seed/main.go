// Command admin_seed seeds the global commission rate and the admin
// credential into the settings collection.
package main

import (
	"context"
	"log"
	"os"
	"strconv"

	"refpay/internal/config"
	"refpay/internal/models"
	"refpay/internal/repositories"
	"refpay/internal/services/auth"
	"refpay/internal/storage"
)

func main() {
	config.LoadEnv()

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		log.Fatal("ADMIN_PASSWORD must be set in environment")
	}

	rate := config.GetFloatEnv("COMMISSION_RATE", models.DefaultCommissionRate)
	if rate < 0 || rate > 1 {
		log.Fatalf("COMMISSION_RATE must be between 0 and 1, got %v", rate)
	}

	dsn := "host=" + config.GetEnv("DB_HOST", "localhost") +
		" user=" + config.GetEnv("DB_USER", "postgres") +
		" password=" + config.GetEnv("DB_PASSWORD", "postgres") +
		" dbname=" + config.GetEnv("DB_NAME", "refpay") +
		" port=" + config.GetEnv("DB_PORT", "5432") +
		" sslmode=" + config.GetEnv("DB_SSLMODE", "disable")
	db, err := storage.OpenPostgres(dsn)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	tier, err := storage.NewPostgresTier(db)
	if err != nil {
		log.Fatalf("failed to prepare postgres tier: %v", err)
	}
	store := storage.NewTieredStore(tier)
	defer store.Flush()

	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		log.Fatalf("failed to hash admin password: %v", err)
	}

	ctx := context.Background()
	settings := repositories.NewSettingsRepository(store)
	if err := settings.Set(ctx, models.SettingCommissionRate, strconv.FormatFloat(rate, 'f', -1, 64)); err != nil {
		log.Fatalf("failed to seed commission rate: %v", err)
	}
	if err := settings.Set(ctx, models.SettingAdminPasswordHash, hash); err != nil {
		log.Fatalf("failed to seed admin credential: %v", err)
	}

	log.Printf("✅ seeded commission rate %v and admin credential", rate)
}
