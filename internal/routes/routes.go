package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/greenpay/greenpay/internal/account"
	"github.com/greenpay/greenpay/internal/auth"
	"github.com/greenpay/greenpay/internal/cards"
	"github.com/greenpay/greenpay/internal/config"
	"github.com/greenpay/greenpay/internal/identity"
	"github.com/greenpay/greenpay/internal/ledger"
	"github.com/greenpay/greenpay/internal/metrics"
	"github.com/greenpay/greenpay/internal/middleware"
	"github.com/greenpay/greenpay/internal/notification"
	"github.com/greenpay/greenpay/internal/rates"
	"github.com/greenpay/greenpay/internal/settlement"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes, and returns the
// settlement worker for the caller to run.
func Setup(app *fiber.App, d Deps) (*settlement.Worker, error) {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.IsDev() {
		// Plain text access log: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	} else {
		app.Use(middleware.Audit(d.Logger))
	}
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health and metrics
	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// Stores
	var accountStore account.Store
	var ledgerStore ledger.Store
	var identityRepo identity.Repository
	var cardRepo cards.Repository
	if d.DB != nil {
		accountStore = account.NewPostgresStore(d.DB)
		ledgerStore = ledger.NewPostgresStore(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
		cardRepo = cards.NewPostgresRepository(d.DB)
	} else {
		accountStore = account.NewMemoryStore()
		ledgerStore = ledger.NewMemoryStore(accountStore)
		identityRepo = identity.NewMemoryRepository()
		cardRepo = cards.NewMemoryRepository()
	}

	// Outbound adapters
	var provider rates.Provider
	if d.Cfg.RateAPIURL != "" {
		provider = rates.NewHTTPProvider(d.Cfg.RateAPIURL, d.Cfg.RateRequestTimeout)
	}
	resolver := rates.NewService(provider, d.Cfg.LenientRateFallback, d.Logger)

	var notifier notification.Notifier
	if d.Cfg.WhatsAppAPIURL != "" {
		notifier = notification.NewWhatsAppNotifier(d.Cfg.WhatsAppAPIURL, d.Cfg.WhatsAppToken)
	} else {
		notifier = notification.NewLoggerNotifier(d.Logger)
	}
	emitter := notification.NewEmitter(notifier, d.Logger)

	// Services and handlers
	identitySvc := identity.NewService(identityRepo, accountStore)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	ledgerSvc := ledger.NewService(ledgerStore, accountStore, resolver, emitter, d.Cfg.SettlementDelay, d.Logger)
	cardSvc := cards.NewService(cardRepo, accountStore, cards.StaticIssuer{}, emitter)

	identityHandler := identity.NewHandler(identitySvc)
	authHandler := auth.NewHandler(identitySvc, authSvc)
	accountHandler := account.NewHandler(accountStore)
	ledgerHandler := ledger.NewHandler(ledgerSvc)
	cardHandler := cards.NewHandler(cardSvc)
	rateHandler := rates.NewHandler(resolver)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterIdentityRoutes(api, identityHandler)
	RegisterAuthRoutes(api, authHandler, rateLimiter)

	// Protected routes
	jwtmw := middleware.JWTAuth(d.Cfg, identityRepo)
	protected := api.Group("", jwtmw)
	RegisterAccountRoutes(protected, accountHandler)
	RegisterLedgerRoutes(protected, ledgerHandler)
	RegisterCardRoutes(protected, cardHandler)
	RegisterRateRoutes(protected, rateHandler)
	protected.Post("/logout", authHandler.Logout)
	protected.Post("/kyc/submit", identityHandler.SubmitKYC)

	// Admin routes
	admin := api.Group("/admin", jwtmw, middleware.RequireAdmin())
	RegisterAdminRoutes(admin, accountHandler, identityHandler, ledgerHandler)

	return settlement.NewWorker(ledgerSvc, d.Cfg.SettlementPollInterval, d.Logger), nil
}
