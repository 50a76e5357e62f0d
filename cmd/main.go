package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/ah-malik/SkyGloss-backend/internal/auth"
	"github.com/ah-malik/SkyGloss-backend/internal/config"
	"github.com/ah-malik/SkyGloss-backend/internal/gateway"
	"github.com/ah-malik/SkyGloss-backend/internal/handlers"
	"github.com/ah-malik/SkyGloss-backend/internal/messaging"
	"github.com/ah-malik/SkyGloss-backend/internal/repository"
	"github.com/ah-malik/SkyGloss-backend/internal/service"
)

func main() {
	log.Println("🚀 SkyGloss checkout backend starting...")

	cfg := config.Load()

	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Database connection error: %v", err)
	}
	defer db.Close()

	if err := runMigrations(db, cfg.DBName); err != nil {
		log.Fatalf("Migration error: %v", err)
	}

	stripeGateway, err := gateway.NewStripeGateway(gateway.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		APIBase:       cfg.StripeAPIBase,
		Timeout:       cfg.GatewayTimeout,
	})
	if err != nil {
		log.Fatalf("Payment gateway configuration error: %v", err)
	}

	// Event publishing is best effort. A broker outage must never block
	// checkout, so a failed connect just disables publishing.
	var publisher service.EventPublisher
	rabbitClient := messaging.NewRabbitMQClient(messaging.NewRabbitMQConfig())
	if err := rabbitClient.Connect(); err != nil {
		log.Printf("RabbitMQ unavailable, event publishing disabled: %v", err)
	} else {
		defer rabbitClient.Close()
		publisher = messaging.NewPublisher(rabbitClient)
	}

	pricing := service.PricingConfig{
		ShippingFeeCents:        cfg.ShippingFeeCents,
		TaxRateBps:              cfg.TaxRateBps,
		CertificationFeeCents:   cfg.CertificationFeeCents,
		FrontendURL:             cfg.FrontendURL,
		ShopRedirectPath:        cfg.ShopRedirectPath,
		DistributorRedirectPath: cfg.DistributorRedirectPath,
		GatewayTimeout:          cfg.GatewayTimeout,
	}

	orderRepo := repository.NewOrderRepository(db)
	certRepo := repository.NewCertificationRepository(db)

	checkoutService := service.NewCheckoutService(orderRepo, stripeGateway, publisher, pricing)
	certService := service.NewCertificationService(certRepo, stripeGateway, publisher, pricing)

	orderHandler := handlers.NewOrderHandler(checkoutService)
	certHandler := handlers.NewCertificationHandler(certService)
	authMW := auth.NewMiddleware(cfg.JWTSecret)

	app := setupFiberApp()
	handlers.SetupRoutes(app, authMW, orderHandler, certHandler)

	// Optional reaper for carts that never reached the gateway. Disabled
	// unless ORDER_REAPER_DAYS is set; paid history is never touched.
	if days, _ := strconv.Atoi(os.Getenv("ORDER_REAPER_DAYS")); days > 0 {
		go runOrderReaper(orderRepo, days)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("🛑 SkyGloss checkout backend closing...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("🌍 SkyGloss checkout backend listening: http://localhost:%s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server start error: %v", err)
	}
}

func runOrderReaper(orders *repository.OrderRepository, days int) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().AddDate(0, 0, -days)
		reaped, err := orders.DeleteStalePendingOrders(context.Background(), cutoff)
		if err != nil {
			log.Printf("Stale order cleanup error: %v", err)
			continue
		}
		if reaped > 0 {
			log.Printf("Stale order cleanup: removed=%d cutoff=%s", reaped, cutoff.Format(time.RFC3339))
		}
	}
}

func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	log.Printf("✅ Database connected: %s", cfg.DBName)
	return db, nil
}

func runMigrations(db *sql.DB, dbName string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	migrationsPath := getEnvOrDefault("MIGRATIONS_PATH", "file://migrations")
	m, err := migrate.NewWithDatabaseInstance(migrationsPath, dbName, driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	log.Println("✅ Migrations applied")
	return nil
}

func setupFiberApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "SkyGloss Backend v1.0",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} - ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: getEnvOrDefault("CORS_ORIGINS", "*"),
		AllowMethods: "GET,POST,PATCH,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID,Stripe-Signature",
	}))

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	log.Printf("Error: %v", err)

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
