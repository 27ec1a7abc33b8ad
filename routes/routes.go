package routes

import (
	ws "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/skyhostel/sky_hostel/handlers"
	"github.com/skyhostel/sky_hostel/middleware"
)

type Handlers struct {
	Payments     *handlers.PaymentHandler
	Registration *handlers.RegistrationHandler
	Receipts     *handlers.ReceiptHandler
	Uploads      *handlers.UploadHandler
	Auth         *handlers.AuthHandler
	Admin        *handlers.AdminHandler
	StatusSocket *handlers.StatusSocketHandler
}

type Secrets struct {
	JWT  string
	Cron string
}

func Setup(app *fiber.App, h Handlers, secrets Secrets) {
	PublicRoutes(app, h)
	PaymentRoutes(app, h, secrets)
	AdminRoutes(app, h, secrets)
	WebSocketRoutes(app, h)
}

func PublicRoutes(app *fiber.App, h Handlers) {
	api := app.Group("/api/v1")

	api.Post("/register", h.Registration.Register)
	api.Get("/uploads/signature", h.Uploads.GenerateUploadSignature)
}

func PaymentRoutes(app *fiber.App, h Handlers, secrets Secrets) {
	api := app.Group("/api/v1")

	api.Post("/rrr-generation", h.Payments.GenerateRRR)
	api.Get("/verify-payment", h.Payments.VerifyPayment)
	api.Post("/verify-payment", h.Payments.PollPayment)
	api.Get("/check-payment-status", h.Payments.CheckPaymentStatus)
	api.Get("/payment", h.Payments.GetStudentPayment)
	api.Post("/payment", h.Payments.RecordPayment)
	api.Get("/payments/:rrr", h.Payments.GetPaymentByRRR)
	api.Get("/payments/:rrr/receipt", h.Receipts.GetReceipt)

	api.Post("/update-pending-payments", middleware.CronSecret(secrets.Cron), h.Payments.UpdatePendingPayments)
}

func AdminRoutes(app *fiber.App, h Handlers, secrets Secrets) {
	api := app.Group("/api/v1")

	// registered ahead of the protected group so it stays public
	api.Post("/admin/login", h.Auth.Login)

	admin := api.Group("/admin", middleware.Protected(secrets.JWT), middleware.AdminRequired())
	admin.Get("/students", h.Admin.ListStudents)
	admin.Get("/payments", h.Admin.ListPayments)
	admin.Post("/payments/sweep", h.Payments.UpdatePendingPayments)
	admin.Post("/payments/:rrr/receipt", h.Receipts.PublishReceipt)
}

func WebSocketRoutes(app *fiber.App, h Handlers) {
	api := app.Group("/api/v1")

	api.Use("/ws", handlers.RequireUpgrade)
	api.Get("/ws/payments/:rrr", ws.New(h.StatusSocket.Serve))
}
