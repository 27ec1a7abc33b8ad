package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
	"github.com/skyhostel/sky_hostel/bootstrap"
	config "github.com/skyhostel/sky_hostel/configs"
	"github.com/skyhostel/sky_hostel/handlers"
	"github.com/skyhostel/sky_hostel/routes"
	"github.com/skyhostel/sky_hostel/utils"
	"go.uber.org/zap"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("🔥 Invalid configuration: %v", err)
	}

	zapLogger, err := utils.NewLogger(settings.IsDevelopment())
	if err != nil {
		log.Fatalf("🔥 Failed to initialize logger: %v", err)
	}

	container, err := bootstrap.Build(settings, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer container.Close()

	if err := container.Migrate(); err != nil {
		zapLogger.Fatal("Failed to prepare database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	container.RunHub(ctx)

	c := cron.New()
	if _, err := c.AddFunc(settings.SweepSchedule, container.Sweep.Run); err != nil {
		zapLogger.Fatal("Invalid SWEEP_SCHEDULE", zap.String("schedule", settings.SweepSchedule), zap.Error(err))
	}
	c.Start()
	defer c.Stop()
	zapLogger.Info("Cron job for pending payment sweep scheduled", zap.String("schedule", settings.SweepSchedule))

	app := fiber.New(fiber.Config{
		Prefork:       false,
		AppName:       "Sky Hostel",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  settings.Remita.Timeout + 15*time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}

			zapLogger.Error("Request failed",
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.Error(err),
			)
			message := err.Error()
			if e == nil {
				message = "Internal server error"
			}
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": message,
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, OPTIONS",
		ExposeHeaders: "Content-Length, Content-Disposition",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Africa/Lagos",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to Sky Hostel API",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	var signer handlers.UploadSigner
	if container.Cloudinary != nil {
		signer = container.Cloudinary
	}

	routes.Setup(app, routes.Handlers{
		Payments: handlers.NewPaymentHandler(
			container.Issuance,
			container.Reconciler,
			container.Verification,
			container.Records,
			container.Sweep,
			settings.HostelFeeAmount,
			zapLogger,
		),
		Registration: handlers.NewRegistrationHandler(container.Registration, zapLogger),
		Receipts:     handlers.NewReceiptHandler(container.Receipts, zapLogger),
		Uploads:      handlers.NewUploadHandler(signer, zapLogger),
		Auth:         handlers.NewAuthHandler(container.Store, settings.JWTSecret, zapLogger),
		Admin:        handlers.NewAdminHandler(container.Store, zapLogger),
		StatusSocket: handlers.NewStatusSocketHandler(container.Hub, zapLogger),
	}, routes.Secrets{JWT: settings.JWTSecret, Cron: settings.CronSecret})

	go func() {
		<-ctx.Done()
		zapLogger.Info("Shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			zapLogger.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("Server is running", zap.String("port", settings.Port))
	if err := app.Listen(":" + settings.Port); err != nil {
		zapLogger.Error("Server failed to start", zap.Error(err))
	}
}
