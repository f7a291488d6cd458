package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	catalogapp "github.com/induservicios/backend/internal/application/catalog"
	identityapp "github.com/induservicios/backend/internal/application/identity"
	lookupapp "github.com/induservicios/backend/internal/application/lookup"
	mailapp "github.com/induservicios/backend/internal/application/mail"
	"github.com/induservicios/backend/internal/application/notification"
	orderapp "github.com/induservicios/backend/internal/application/order"
	quoteapp "github.com/induservicios/backend/internal/application/quote"
	receiptapp "github.com/induservicios/backend/internal/application/receipt"
	"github.com/induservicios/backend/internal/domain/receipt"
	"github.com/induservicios/backend/internal/infrastructure/auth"
	"github.com/induservicios/backend/internal/infrastructure/cache"
	"github.com/induservicios/backend/internal/infrastructure/config"
	"github.com/induservicios/backend/internal/infrastructure/event"
	"github.com/induservicios/backend/internal/infrastructure/lookup"
	"github.com/induservicios/backend/internal/infrastructure/mailer"
	"github.com/induservicios/backend/internal/infrastructure/payment"
	"github.com/induservicios/backend/internal/infrastructure/persistence"
	"github.com/induservicios/backend/internal/infrastructure/printing"
	"github.com/induservicios/backend/internal/infrastructure/realtime"
	"github.com/induservicios/backend/internal/infrastructure/scheduler"
	"github.com/induservicios/backend/internal/infrastructure/storage"
	"github.com/induservicios/backend/internal/infrastructure/whatsapp"
	"github.com/induservicios/backend/internal/interfaces/http/handler"
	"github.com/induservicios/backend/internal/interfaces/http/router"
)

// Scheduled task names, also used by POST /admin/system/tasks/:name/run
const (
	taskMailAlert   = "mail-failure-alert"
	taskOrderExpiry = "order-payment-expiry"
)

// filesPrefix is where in-memory uploads are served
const filesPrefix = "/files"

type application struct {
	jwt       *auth.JWTService
	blacklist auth.TokenBlacklist
	bus       *event.InMemoryEventBus
	hub       *realtime.Hub
	scheduler *scheduler.Scheduler
	notifier  *notification.Notifier
	renderer  printing.PDFRenderer
	handlers  router.Handlers
}

func buildApp(cfg *config.Config, db *persistence.Database, stores *cache.Stores, log *zap.Logger) (*application, error) {
	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	quoteRepo := persistence.NewGormQuoteRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	receiptRepo := persistence.NewGormReceiptRepository(db.DB)
	emailLogRepo := persistence.NewGormEmailLogRepository(db.DB)
	sequences := persistence.NewGormSequenceGenerator(db.DB)

	// Events fan out to the SSE hub
	bus := event.NewInMemoryEventBus(log, event.WithAsyncDispatch())
	hub := realtime.NewHub(cfg.Realtime, log)
	bus.Subscribe(hub, hub.EventTypes()...)

	objects, err := storage.New(&cfg.Storage, filesPrefix, log)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if stores.Redis != nil {
		blacklist = auth.NewRedisTokenBlacklist(stores.Redis)
	}
	jwtService := auth.NewJWTService(cfg.JWT)

	// Outbound channels
	mailService := mailapp.NewService(
		mailer.NewDispatcherFromConfig(cfg.Mail, log),
		emailLogRepo,
		mailapp.Config{
			AdminEmail:   cfg.Mail.AdminEmail,
			CompanyName:  cfg.Company.Name,
			CompanyPhone: cfg.Company.Phone,
			FrontendURL:  cfg.App.FrontendURL,
			Alert:        cfg.Mail.Alert,
		},
		log,
	)
	wa := whatsapp.NewClient(cfg.WhatsApp)
	notifier := notification.NewNotifier(mailService, wa, log)

	// Identity
	authService := identityapp.NewAuthService(
		userRepo,
		auth.NewSupabaseClient(cfg.Supabase),
		jwtService,
		blacklist,
		mailService,
		bus,
		identityapp.AuthServiceConfig{FrontendURL: cfg.App.FrontendURL},
		log,
	)
	userService := identityapp.NewUserService(userRepo, blacklist, cfg.JWT.RefreshTokenExpiration, bus, log)

	// Catalog
	categoryService := catalogapp.NewCategoryService(categoryRepo, productRepo, bus, log)
	productService := catalogapp.NewProductService(productRepo, categoryRepo, objects, bus,
		catalogapp.ProductServiceConfig{}, log)

	// Quotes
	quoteService := quoteapp.NewService(quoteRepo, quoteRepo, productRepo, sequences, notifier, bus,
		quoteapp.Config{FrontendURL: cfg.App.FrontendURL}, log)

	// Receipts
	var renderer printing.PDFRenderer = printing.DisabledRenderer{}
	if cfg.Printing.Enabled {
		renderer = printing.NewChromedpRenderer(cfg.Printing, log)
	}
	receiptService := receiptapp.NewService(receiptRepo, orderRepo, sequences,
		printing.NewTemplateEngine(), renderer, objects,
		receiptapp.Config{
			Issuer: receipt.Issuer{
				RUC:           cfg.Company.RUC,
				Name:          cfg.Company.Name,
				BoletaSeries:  cfg.Company.BoletaSeries,
				FacturaSeries: cfg.Company.FacturaSeries,
			},
			Company: printing.CompanyInfo{
				Name:    cfg.Company.Name,
				RUC:     cfg.Company.RUC,
				Address: cfg.Company.Address,
				Phone:   cfg.Company.Phone,
			},
			PaperSize:   printing.PaperSizeA4,
			DownloadTTL: cfg.Storage.PresignExpiration,
		}, log)

	// Orders
	orderService := orderapp.NewService(orderapp.Deps{
		Orders:   orderRepo,
		Products: productRepo,
		Sequence: sequences,
		Gateway:  payment.NewStripeGateway(cfg.Stripe, log),
		Receipts: receiptService,
		Files:    objects,
		Dedup:    stores.Idempotency,
		Notifier: notifier,
		Events:   bus,
	}, orderapp.Config{
		FrontendURL: cfg.App.FrontendURL,
		Rules:       cfg.Orders,
	}, log)

	lookupService := lookupapp.NewService(lookup.NewClient(cfg.Lookup), stores.Cache, cfg.Lookup.CacheTTL, log)

	// Background tasks
	sched := scheduler.New(log)
	if cfg.Mail.Alert.Enabled {
		if err := sched.Register(scheduler.Task{
			Name:     taskMailAlert,
			Interval: cfg.Mail.Alert.Interval,
			Run: func(ctx context.Context) error {
				_, err := mailService.CheckFailures(ctx)
				return err
			},
		}); err != nil {
			return nil, err
		}
	}
	if cfg.Orders.PaymentTimeout > 0 {
		if err := sched.Register(scheduler.Task{
			Name:       taskOrderExpiry,
			Interval:   cfg.Orders.ExpiryCheckInterval,
			RunOnStart: true,
			Run: func(ctx context.Context) error {
				n, err := orderService.ExpireUnpaid(ctx)
				if n > 0 {
					log.Info("Expired unpaid orders", zap.Int("count", n))
				}
				return err
			},
		}); err != nil {
			return nil, err
		}
	}

	checks := []handler.HealthCheck{{
		Name:  "database",
		Check: func(context.Context) error { return db.Ping() },
	}}
	if stores.Redis != nil {
		checks = append(checks, handler.HealthCheck{
			Name:     "redis",
			Optional: true,
			Check:    func(ctx context.Context) error { return stores.Redis.Ping(ctx).Err() },
		})
	}

	handlers := router.Handlers{
		System:   handler.NewSystemHandler(cfg.App.Name, version, sched, checks...),
		Auth:     handler.NewAuthHandler(authService),
		Users:    handler.NewUserHandler(userService),
		Category: handler.NewCategoryHandler(categoryService),
		Product:  handler.NewProductHandler(productService, cfg.HTTP.MaxUploadSize),
		Quote:    handler.NewQuoteHandler(quoteService),
		Order:    handler.NewOrderHandler(orderService, cfg.HTTP.MaxUploadSize),
		Receipt:  handler.NewReceiptHandler(receiptService, orderService),
		Lookup:   handler.NewLookupHandler(lookupService),
		Mail:     handler.NewMailHandler(mailService),
		Realtime: handler.NewRealtimeHandler(hub),
		Webhook:  handler.NewWebhookHandler(orderService),
	}
	// Only the in-memory backend needs the API to serve its objects
	if mem, ok := objects.(*storage.MemoryObjectStorage); ok {
		handlers.Files = handler.NewFileHandler(mem)
	}

	return &application{
		jwt:       jwtService,
		blacklist: blacklist,
		bus:       bus,
		hub:       hub,
		scheduler: sched,
		notifier:  notifier,
		renderer:  renderer,
		handlers:  handlers,
	}, nil
}
