package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	config "github.com/skyhostel/sky_hostel/configs"
	"github.com/skyhostel/sky_hostel/database"
	"github.com/skyhostel/sky_hostel/jobs"
	"github.com/skyhostel/sky_hostel/notifications"
	"github.com/skyhostel/sky_hostel/payments"
	"github.com/skyhostel/sky_hostel/services"
	"github.com/skyhostel/sky_hostel/utils"
	"github.com/skyhostel/sky_hostel/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container owns every long-lived client the process uses. Optional
// integrations are left nil when not configured.
type Container struct {
	Settings *config.Settings
	Logger   *zap.Logger

	DB      *gorm.DB
	Store   *database.Store
	Gateway payments.Gateway
	Redis   *redis.Client
	Hub     *websocket.Hub

	Cloudinary *services.CloudinaryStore
	Events     *notifications.StatusEventPublisher

	Issuance     *services.IssuanceService
	Reconciler   *services.ReconciliationService
	Verification *services.VerificationService
	Records      *services.PaymentRecordService
	Registration *services.RegistrationService
	Receipts     *services.ReceiptService
	Sweep        *jobs.SweepJob
}

func Build(settings *config.Settings, logger *zap.Logger) (*Container, error) {
	c := &Container{Settings: settings, Logger: logger}

	db, err := database.ConnectDB(settings.DatabaseURL)
	if err != nil {
		return nil, err
	}
	c.DB = db
	c.Store = database.NewStore(db)
	logger.Info("Database connection established")

	if settings.RedisURL != "" {
		client, err := utils.NewRedisClient(settings.RedisURL)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without status cache and sweep lock", zap.Error(err))
		} else {
			c.Redis = client
			logger.Info("Redis connection established")
		}
	}

	c.Gateway = c.buildGateway()

	c.Hub = websocket.NewHub(logger)
	listeners := []services.StatusListener{c.Hub}

	if mailer := notifications.NewBrevoService(settings.BrevoAPIKey, settings.EmailSender, settings.EmailSenderName, logger); mailer != nil {
		listeners = append(listeners, notifications.NewPaymentEmailNotifier(mailer, logger))
	}
	if brokers := settings.KafkaBrokers(); len(brokers) > 0 {
		writer := notifications.NewKafkaWriter(brokers, settings.KafkaPaymentStatusTopic, logger)
		c.Events = notifications.NewStatusEventPublisher(writer, logger)
		listeners = append(listeners, c.Events)
		logger.Info("Kafka status events enabled", zap.Strings("brokers", brokers), zap.String("topic", settings.KafkaPaymentStatusTopic))
	}

	if settings.CloudinaryURL != "" {
		store, err := services.NewCloudinaryStore(settings.CloudinaryURL)
		if err != nil {
			logger.Warn("Invalid CLOUDINARY_URL, uploads disabled", zap.Error(err))
		} else {
			c.Cloudinary = store
		}
	}

	c.Issuance = services.NewIssuanceService(c.Store, c.Gateway, utils.NewOrderIDGenerator(), logger)
	c.Reconciler = services.NewReconciliationService(c.Store, c.Gateway, logger, listeners...)
	c.Records = services.NewPaymentRecordService(c.Store, logger)
	c.Verification = services.NewVerificationService(c.Reconciler, c.Records, settings.HostelFeeAmount, services.FallbackPair{
		RRR:          settings.VerifyFallbackRRR,
		MatricNumber: settings.VerifyFallbackMatric,
	}, logger)
	c.Registration = services.NewRegistrationService(c.Store, logger)

	var uploader services.FileUploader
	if c.Cloudinary != nil {
		uploader = c.Cloudinary
	}
	c.Receipts = services.NewReceiptService(c.Store, services.ChromePDFRenderer{}, uploader, logger)

	var locker jobs.Locker
	if c.Redis != nil {
		locker = jobs.NewRedisLocker(c.Redis)
	}
	c.Sweep = jobs.NewSweepJob(c.Store, c.Reconciler, locker, logger)

	return c, nil
}

func (c *Container) buildGateway() payments.Gateway {
	var gw payments.Gateway
	if c.Settings.Remita.UseMock {
		c.Logger.Warn("REMITA_USE_MOCK is set, payments will not reach Remita")
		gw = payments.NewMockGateway(c.Logger)
	} else {
		r := c.Settings.Remita
		gw = payments.NewRemitaClient(payments.RemitaConfig{
			BaseURL:       r.BaseURL,
			MerchantID:    r.MerchantID,
			ServiceTypeID: r.ServiceTypeID,
			APIKey:        r.APIKey,
			Timeout:       r.Timeout,
		}, c.Logger)
	}
	if c.Redis != nil {
		gw = payments.NewCachedGateway(gw, c.Redis, c.Settings.StatusCacheTTL, c.Logger)
	}
	return gw
}

func (c *Container) Migrate() error {
	if err := database.Migrate(c.DB); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return database.SeedAdmin(c.DB, database.AdminSeed{
		Email:    c.Settings.AdminEmail,
		Password: c.Settings.AdminPassword,
		FullName: c.Settings.AdminFullName,
	}, c.Logger)
}

// RunHub starts the websocket hub; it stops with ctx.
func (c *Container) RunHub(ctx context.Context) {
	go c.Hub.Run(ctx)
}

func (c *Container) Close() {
	if c.Events != nil {
		if err := c.Events.Close(); err != nil {
			c.Logger.Error("Failed to close Kafka producer", zap.Error(err))
		}
	}
	if c.Redis != nil {
		c.Redis.Close()
	}
	if sqlDB, err := c.DB.DB(); err == nil {
		sqlDB.Close()
	}
	c.Logger.Sync()
}
