package main

import (
	"context"
	"time"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/api"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/api/cron"
	v1 "github.com/RasParker/XclusiveAfrica-sub000/internal/api/v1"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/config"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/subscription"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/gateway"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/logger"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/postgres"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/provider"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/repository"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/scheduler"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/service"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/validator"
	"github.com/gin-gonic/gin"
	govalidator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC

	// Local development convenience; missing .env is fine
	_ = godotenv.Load()
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			validator.NewValidator,
			config.NewConfig,
			provideLogger,
			postgres.NewDB,
			provideDBClient,
		),
	)

	// Repositories and external collaborators
	opts = append(opts,
		fx.Provide(
			repository.NewSubscriptionRepository,
			repository.NewTierRepository,
			repository.NewPaymentRepository,
			repository.NewPayoutRepository,
			gateway.NewClient,
			provider.NewRegistryFromConfig,
		),
	)

	// Services
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewSubscriptionChangeService,
			service.NewEarningsService,
			service.NewPayoutService,
		),
	)

	// Scheduler, API
	opts = append(opts,
		fx.Provide(
			provideSubscriptionLister,
			scheduler.NewSchedulerManager,
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideLogger(cfg *config.Configuration) (*logger.Logger, error) {
	return logger.NewLogger(cfg)
}

func provideDBClient(db *postgres.DB) postgres.IClient {
	return db
}

func provideSubscriptionLister(repo subscription.Repository) scheduler.SubscriptionLister {
	return repo
}

// provideHandlers depends on the validator so request validation is
// initialized before any handler can run.
func provideHandlers(
	_ *govalidator.Validate,
	cfg *config.Configuration,
	log *logger.Logger,
	changeService service.SubscriptionChangeService,
	earningsService service.EarningsService,
	payoutService service.PayoutService,
	params service.ServiceParams,
	gw gateway.Gateway,
	manager *scheduler.SchedulerManager,
) api.Handlers {
	return api.Handlers{
		Health:       v1.NewHealthHandler(),
		Subscription: v1.NewSubscriptionHandler(changeService, log),
		Creator:      v1.NewCreatorHandler(earningsService, payoutService, params.PayoutRepo, log),
		Webhook:      v1.NewWebhookHandler(gw, changeService, log),
		CronBilling:  cron.NewBillingHandler(changeService, payoutService, manager, log),
	}
}

func provideRouter(handlers api.Handlers) *gin.Engine {
	return api.NewRouter(handlers)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	db *postgres.DB,
	manager *scheduler.SchedulerManager,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := manager.RegisterJobs(); err != nil {
				return err
			}
			manager.Start()

			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down")
			if err := manager.Stop(); err != nil {
				log.Errorw("scheduler shutdown failed", "error", err)
			}
			db.Close()
			return nil
		},
	})
}
