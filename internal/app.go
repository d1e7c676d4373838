// internal/app.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	router "mandir-fund/internal/api"
	"mandir-fund/internal/api/handler"
	"mandir-fund/internal/config"
	"mandir-fund/internal/domain"
	"mandir-fund/internal/payment"
	"mandir-fund/internal/realtime"
	"mandir-fund/internal/repository"
	"mandir-fund/internal/repository/postgres"
	"mandir-fund/internal/service"
	"mandir-fund/internal/util"
	"mandir-fund/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *zerolog.Logger
	DB     *sqlx.DB

	// Repositories
	DonationRepository      repository.DonationRepository
	PaymentIntentRepository repository.PaymentIntentRepository

	// Services
	IntakeService   service.IntakeService
	DonationService service.DonationService
	LiveService     service.LiveService

	// Change feed
	Hub      *realtime.Hub
	Listener *realtime.Listener

	// HTTP API
	HTTPHandler http.Handler

	stopListener context.CancelFunc
	listenerDone sync.WaitGroup
	unsubscribe  func()
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{Logger: util.GetLogger()}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger(cfg.AppEnv, cfg.LogLevel)
	app.Logger = util.GetLogger()
	app.Logger.Info().Str("env", cfg.AppEnv).Msg("Application configuration loaded successfully.")

	// 3. Connect to Database
	database, err := db.NewPostgresDB(ctx, app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info().Str("host", cfg.DB.Host).Str("database", cfg.DB.DBName).Msg("Database connection established.")

	if cfg.DB.AutoMigrate {
		if err := db.Migrate(ctx, app.DB); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	// 4. Initialize Repositories
	app.DonationRepository = postgres.NewDonationRepository()
	app.PaymentIntentRepository = postgres.NewPaymentIntentRepository()
	app.Logger.Info().Msg("Repositories initialized.")

	// 5. Initialize Services
	validator := service.NewDetailsValidator()
	links := payment.NewUPILinkBuilder(cfg.UPI.PayeeAddress, cfg.UPI.PayeeName, cfg.UPI.Note)

	app.IntakeService, err = service.NewIntakeService(app.DB, app.PaymentIntentRepository, links, validator, cfg.Intake)
	if err != nil {
		return err
	}
	// Pass the concrete db.BeginTx, db.CommitTx, db.RollbackTx functions from pkg/db
	app.DonationService = service.NewDonationService(
		app.DB, // This is the DBTxBeginner
		app.DB, // This is the DBExecutor
		app.DonationRepository,
		app.PaymentIntentRepository,
		validator,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
	)
	app.LiveService = service.NewLiveService(app.DB, app.DonationRepository)
	app.Logger.Info().Msg("Services initialized.")

	// 6. Start the change feed. The listener performs the initial projection
	// load once LISTEN is active.
	app.Hub = realtime.NewHub()
	app.unsubscribe = app.Hub.Subscribe(domain.DonationsTable, nil, app.LiveService.HandleChange)
	source := realtime.NewPQSource(cfg.DB.DSN(), app.Logger)
	app.Listener = realtime.NewListener(source, app.Hub, app.LiveService.Reload, app.Logger)

	listenCtx, stop := context.WithCancel(context.Background())
	app.stopListener = stop
	app.listenerDone.Add(1)
	go func() {
		defer app.listenerDone.Done()
		if err := app.Listener.Run(listenCtx); err != nil {
			app.Logger.Error().Err(err).Msg("Change listener stopped")
		}
	}()
	app.Logger.Info().Str("channel", realtime.ChannelDonations).Msg("Change listener started.")

	// 7. Initialize HTTP Handlers and Router
	app.HTTPHandler = router.NewRouter(router.Handlers{
		Intake:    handler.NewIntakeHandler(app.IntakeService, app.Logger),
		Donations: handler.NewDonationHandler(app.LiveService, app.Logger),
		Admin:     handler.NewAdminHandler(app.DonationService, app.Logger),
	}, router.RouterConfig{
		AdminToken:         cfg.AdminToken,
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, app.Logger)
	if cfg.AdminToken == "" {
		app.Logger.Warn().Msg("ADMIN_TOKEN is not set; admin endpoints are disabled.")
	}
	app.Logger.Info().Msg("HTTP router and handlers initialized.")

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info().Msg("Shutting down application...")

	if app.stopListener != nil {
		app.stopListener()
		done := make(chan struct{})
		go func() {
			app.listenerDone.Wait()
			close(done)
		}()
		select {
		case <-done:
			app.Logger.Info().Msg("Change listener stopped.")
		case <-ctx.Done():
			app.Logger.Warn().Msg("Timed out waiting for change listener.")
		}
	}
	if app.unsubscribe != nil {
		app.unsubscribe()
	}

	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error().Err(err).Msg("Failed to close database connection")
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info().Msg("Database connection closed.")
	}
	app.Logger.Info().Msg("Application shut down gracefully.")
	return nil
}
