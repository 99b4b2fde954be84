package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"spotfence/config"
	"spotfence/internal/delivery"
	"spotfence/internal/delivery/http"
	"spotfence/internal/delivery/http/middleware"
	"spotfence/internal/delivery/http/router/handler"
	"spotfence/internal/delivery/worker"
	workerhandler "spotfence/internal/delivery/worker/handler"
	"spotfence/internal/domain/constants"
	"spotfence/internal/domain/repository"
	"spotfence/internal/domain/service"
	"spotfence/internal/infra/devicebridge"
	logs "spotfence/internal/infra/log"
	"spotfence/internal/infra/notification"
	"spotfence/internal/infra/persistence/file"
	redisstore "spotfence/internal/infra/persistence/redis"
	"spotfence/internal/infra/pubsub"
	"spotfence/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			runLifecycleBridge,
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			newStateStores,
			newSpotRepository,
		),
	)
}

// newStateStores selects the persistence backend for the bookkeeping map and
// the notification ledger.
func newStateStores(cfg *config.Config) (repository.RegionBookkeepingStore, repository.NotificationLedgerStore, error) {
	switch cfg.StateStore.Provider {
	case constants.StateStoreProviderRedis:
		client, err := redisstore.New(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect state store redis: %w", err)
		}

		return redisstore.NewRegionBookkeepingStore(client, cfg.StateStore.KeyPrefix),
			redisstore.NewNotificationLedgerStore(client, cfg.StateStore.KeyPrefix), nil
	default:
		bookkeeping, err := file.NewRegionBookkeepingStore(cfg.StateStore.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open bookkeeping store: %w", err)
		}
		ledger, err := file.NewNotificationLedgerStore(cfg.StateStore.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open notification ledger: %w", err)
		}

		return bookkeeping, ledger, nil
	}
}

// newSpotRepository opens the snapshot store. The companion app re-uploads
// the full snapshot whenever it changes, so a local file is authoritative
// enough for every backend.
func newSpotRepository(cfg *config.Config) (repository.SpotRepository, error) {
	return file.NewSpotRepository(cfg.StateStore.Path)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			newDeviceChannel,
			devicebridge.New,
			pubsub.NewAlertPublisher,
			func(b *devicebridge.Bridge) service.RegionMonitor { return b },
			func(b *devicebridge.Bridge) service.PermissionService { return b },
			func(b *devicebridge.Bridge) service.LocationProvider { return b },
		),
	)
}

// newDeviceChannel creates the notifier/commander pair. Without Firebase
// configured both collapse to the log-only development service.
func newDeviceChannel(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.ProximityNotifier, service.DeviceCommander, error) {
	if cfg.Firebase == nil {
		logger.Info("Firebase not configured, using log-only device channel")
		svc := notification.NewLogService(logger)

		return svc, svc, nil
	}

	svc, err := notification.NewFCMService(ctx, cfg.Firebase.CredentialsPath, cfg.Firebase.DeviceToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create FCM service: %w", err)
	}

	return svc, svc, nil
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			newPermissionGate,
			newNotificationThrottle,
			impl.NewGeofenceManager,
			impl.NewLifecycleBridge,
		),
	)
}

func newPermissionGate(permissions service.PermissionService, cfg *config.Config, logger *slog.Logger) *impl.PermissionGate {
	return impl.NewPermissionGate(permissions, cfg.Geofence.PermissionDecisionTimeout, logger)
}

func newNotificationThrottle(ledger repository.NotificationLedgerStore, cfg *config.Config, logger *slog.Logger) *impl.NotificationThrottle {
	return impl.NewNotificationThrottle(ledger, cfg.Geofence.NotificationCooldown, logger)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
			middleware.NewErrorMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewGeofenceHandler,
			handler.NewDeviceHandler,
			workerhandler.NewPushHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
			fx.Annotate(
				worker.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

// runLifecycleBridge runs the event bridge for the whole process lifetime. It
// is the single goroutine that feeds platform callbacks into the engine.
func runLifecycleBridge(lc fx.Lifecycle, bridge *impl.LifecycleBridge, deviceBridge *devicebridge.Bridge) {
	runCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go bridge.Run(runCtx)

			return nil
		},
		OnStop: func(ctx context.Context) error {
			deviceBridge.Close()
			cancel()

			return nil
		},
	})
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
