package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	"reeflog_backend/internal/controller"
	"reeflog_backend/internal/middleware"
	"reeflog_backend/internal/model"
	"reeflog_backend/pkg/billing"
	"reeflog_backend/pkg/config"
	"reeflog_backend/pkg/cron"
	"reeflog_backend/pkg/database"
	"reeflog_backend/pkg/email"
	"reeflog_backend/pkg/payout"
	"reeflog_backend/pkg/promo"
	"reeflog_backend/pkg/seed"
	"reeflog_backend/pkg/subscription"
	"reeflog_backend/pkg/utils/jwt"
	"reeflog_backend/pkg/utils/storage"
)

type controllers struct {
	auth          *controller.AuthController
	subscriptions *controller.SubscriptionController
	webhooks      *controller.WebhookController
	promos        *controller.PromoController
	tanks         *controller.TankController
	parameters    *controller.ParameterController
	uploads       *controller.UploadController
}

func setupRoutes(app *fiber.App, db *gorm.DB, ctrl controllers) {
	api := app.Group("/api")

	// Auth Routes
	auth := api.Group("/auth")
	auth.Post("/register", ctrl.auth.Register)
	auth.Post("/login", ctrl.auth.Login)

	// Protected Routes
	protected := api.Group("/", middleware.AuthMiddleware())
	protected.Get("/me", ctrl.auth.GetMe)

	// Tank Routes
	tanks := protected.Group("/tanks")
	tanks.Get("/my", ctrl.tanks.ListMyTanks)
	tanks.Post("/", middleware.CheckTankLimit(db), ctrl.tanks.CreateTank)
	tanks.Get("/:id", middleware.CheckTankOwnership(db), ctrl.tanks.GetTank)
	tanks.Put("/:id", middleware.CheckTankOwnership(db), ctrl.tanks.UpdateTank)
	tanks.Delete("/:id", middleware.CheckTankOwnership(db), ctrl.tanks.DeleteTank)

	// Parameter logs
	tanks.Post("/:tank_id/parameters", middleware.CheckTankOwnership(db), ctrl.parameters.CreateLog)
	tanks.Get("/:tank_id/parameters", middleware.CheckTankOwnership(db), ctrl.parameters.ListLogs)
	protected.Delete("/parameters/:id", ctrl.parameters.DeleteLog)

	// Photo uploads gated on the gallery feature
	if ctrl.uploads != nil {
		tanks.Post("/:tank_id/photos",
			middleware.CheckTankOwnership(db),
			middleware.CheckFeatureAccess(db, subscription.PhotoGallery),
			ctrl.uploads.UploadTankPhoto)
		protected.Delete("/photos/:photo_id", ctrl.uploads.DeleteTankPhoto)
	}

	// Subscription routes
	subscriptions := api.Group("/subscriptions")
	subProtected := subscriptions.Group("/", middleware.AuthMiddleware())
	subProtected.Post("/create-checkout-session", ctrl.subscriptions.CreateCheckoutSession)
	subProtected.Post("/cancel-subscription", ctrl.subscriptions.CancelSubscription)
	subProtected.Get("/my", ctrl.subscriptions.GetMySubscription)

	// Stripe checkout landing pages
	subscriptions.Get("/payment-success", ctrl.subscriptions.HandleSubscriptionSuccess)
	subscriptions.Get("/payment-cancelled", ctrl.subscriptions.HandleSubscriptionCancel)

	// Admin surface: promo codes, partner summaries, payouts
	admin := api.Group("/admin", middleware.AuthMiddleware(), middleware.AdminOnly())
	admin.Post("/promo-codes", ctrl.promos.CreatePromoCode)
	admin.Get("/promo-codes", ctrl.promos.ListPromoCodes)
	admin.Put("/promo-codes/:id/activate", ctrl.promos.ActivatePromoCode)
	admin.Put("/promo-codes/:id/deactivate", ctrl.promos.DeactivatePromoCode)
	admin.Delete("/promo-codes/:id", ctrl.promos.DeletePromoCode)
	admin.Get("/partners", ctrl.promos.ListPartnerSummaries)
	admin.Get("/partners/:id", ctrl.promos.GetPartnerSummary)
	admin.Post("/partners/:id/payout", ctrl.promos.TriggerPayout)

	// Stripe webhook
	api.Post("/webhook", ctrl.webhooks.HandleStripeWebhook)
}

func main() {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is not set in .env")
	}

	jwt.Init(cfg.JWT.Secret)

	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		log.Fatal(err)
	}

	err = database.Migrate(db,
		&model.User{},
		&model.Subscription{},
		&model.PromoCode{},
		&model.AffiliateEarning{},
		&model.Tank{},
		&model.ParameterLog{},
		&model.TankPhoto{},
	)
	if err != nil {
		log.Printf("Migration warning: %v", err)
	}

	var emailService *email.Service
	if cfg.Email.ResendAPIKey != "" {
		emailService, err = email.NewService(cfg.Email.ResendAPIKey)
		if err != nil {
			log.Fatal("Could not initialize email service:", err)
		}
	} else {
		log.Println("RESEND_API_KEY not set, transactional email disabled")
	}

	seed.SeedAdminUser(db, os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD"))
	seed.SeedPromoCodes(db)

	promoRegistry := promo.NewRegistry(db)
	payoutProcessor := payout.NewProcessor(db)

	webhookProcessor := billing.NewProcessor(db,
		billing.NewStripeFetcher(cfg.Stripe.SecretKey),
		billing.Config{
			WebhookSecret:  cfg.Stripe.WebhookSecret,
			CommissionRate: cfg.Stripe.CommissionRate,
		})

	ctrl := controllers{
		auth:          controller.NewAuthController(db, emailService),
		subscriptions: controller.NewSubscriptionController(db, promoRegistry, emailService, cfg.Stripe),
		webhooks:      controller.NewWebhookController(webhookProcessor),
		promos:        controller.NewPromoController(promoRegistry, payoutProcessor, emailService),
		tanks:         controller.NewTankController(db),
		parameters:    controller.NewParameterController(db),
	}

	photoStorage, err := storage.NewPhotoStorage(cfg.Storage.Bucket, cfg.Storage.Region)
	if err != nil {
		log.Printf("Photo storage disabled: %v", err)
	} else {
		ctrl.uploads = controller.NewUploadController(db, photoStorage)
	}

	jobs := cron.NewJobs(db, emailService, promoRegistry, payoutProcessor)
	jobs.Start()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New())

	setupRoutes(app, db, ctrl)

	log.Printf("Server is running on port %s", cfg.Server.Port)
	log.Fatal(app.Listen(":" + cfg.Server.Port))
}
