// Package main is the entry point for the affiliate commission service.
// It assembles the storage tier stack, the cache, and the HTTP server, and
// runs the clearance sweeper in the background.
package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"refpay/internal/config"
	"refpay/internal/models"
	"refpay/internal/repositories"
	"refpay/internal/routes"
	"refpay/internal/storage"
)

func main() {
	config.LoadEnv()

	store := buildStore()
	defer store.Flush()

	cache := buildCache()
	defer cache.Close()

	// Seed settings so rate resolution works on a completely empty stack.
	settingsRepo := repositories.NewSettingsRepository(store)
	if err := settingsRepo.Seed(context.Background(), map[string]string{
		models.SettingCommissionRate: "0.10",
	}); err != nil {
		log.Printf("settings seeding failed: %v", err)
	}

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	sweeperService := routes.SetupRoutes(app, store, cache)

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	go sweeperService.Run(sweepCtx, config.GetDurationEnv("SWEEP_INTERVAL", 24*time.Hour))

	log.Fatal(app.Listen(":" + config.GetEnv("PORT", "3000")))
}

// buildStore assembles the ranked tier list. A backend that fails to connect
// at startup is left out entirely; the stack always ends with the snapshot
// tiers and the in-memory default so the process can come up with nothing
// but its own memory.
func buildStore() *storage.TieredStore {
	var tiers []storage.Tier

	dsn := "host=" + config.GetEnv("DB_HOST", "localhost") +
		" user=" + config.GetEnv("DB_USER", "postgres") +
		" password=" + config.GetEnv("DB_PASSWORD", "postgres") +
		" dbname=" + config.GetEnv("DB_NAME", "refpay") +
		" port=" + config.GetEnv("DB_PORT", "5432") +
		" sslmode=" + config.GetEnv("DB_SSLMODE", "disable")
	if db, err := storage.OpenPostgres(dsn); err != nil {
		log.Printf("⚠️ postgres tier unavailable: %v", err)
	} else if tier, err := storage.NewPostgresTier(db); err != nil {
		log.Printf("⚠️ postgres tier unavailable: %v", err)
	} else {
		log.Println("✅ postgres tier connected")
		tiers = append(tiers, tier)
	}

	if uri := config.GetEnv("MONGO_URI", ""); uri != "" {
		db, err := storage.ConnectMongo(context.Background(), uri, config.GetEnv("MONGO_DB", "refpay"))
		if err != nil {
			log.Printf("⚠️ mongo tier unavailable: %v", err)
		} else {
			log.Println("✅ mongo tier connected")
			tiers = append(tiers, storage.NewMongoTier(db))
		}
	}

	tiers = append(tiers, storage.NewEnvTier(config.GetEnv("SNAPSHOT_ENV_PREFIX", "REFPAY_SNAPSHOT_")))

	if fileTier, err := storage.NewFileTier(config.GetEnv("SNAPSHOT_DIR", "./data")); err != nil {
		log.Printf("⚠️ file tier unavailable: %v", err)
	} else {
		tiers = append(tiers, fileTier)
	}

	tiers = append(tiers, storage.NewMemoryTier("memory", false))

	return storage.NewTieredStore(tiers...)
}

// buildCache connects Redis when configured, else a no-op cache.
func buildCache() repositories.CacheRepository {
	host := config.GetEnv("REDIS_HOST", "")
	if host == "" {
		return repositories.NoopCache{}
	}
	client := repositories.NewRedisClient(
		host,
		config.GetEnv("REDIS_PORT", "6379"),
		config.GetEnv("REDIS_PASSWORD", ""),
		config.GetIntEnv("REDIS_DB", 0),
	)
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("⚠️ redis unavailable, running without cache: %v", err)
		return repositories.NoopCache{}
	}
	log.Println("✅ redis cache connected")
	return repositories.NewRedisCache(client)
}
