package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/skyhostel/sky_hostel/models"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type AdminStore interface {
	ListStudents(ctx context.Context, paymentStatus string, limit, offset int) ([]models.Student, int64, error)
	ListPayments(ctx context.Context, status string, limit, offset int) ([]models.Payment, int64, error)
}

type AdminHandler struct {
	store  AdminStore
	logger *zap.Logger
}

func NewAdminHandler(store AdminStore, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{store: store, logger: logger.Named("admin_handler")}
}

func pagination(c *fiber.Ctx) (page, limit, offset int) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit = c.QueryInt("limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return page, limit, (page - 1) * limit
}

func (h *AdminHandler) ListStudents(c *fiber.Ctx) error {
	status := c.Query("payment_status")
	if status != "" && status != string(models.StudentPaymentPending) && status != string(models.StudentPaymentPaid) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment_status filter"})
	}
	page, limit, offset := pagination(c)

	students, total, err := h.store.ListStudents(c.UserContext(), status, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list students", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve students"})
	}
	return c.JSON(fiber.Map{"data": students, "total": total, "page": page, "limit": limit})
}

func (h *AdminHandler) ListPayments(c *fiber.Ctx) error {
	status := c.Query("status")
	if status != "" && !models.PaymentStatus(status).Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status filter"})
	}
	page, limit, offset := pagination(c)

	list, total, err := h.store.ListPayments(c.UserContext(), status, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list payments", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve payments"})
	}
	details := make([]*PaymentDetails, 0, len(list))
	for i := range list {
		details = append(details, paymentDetails(&list[i]))
	}
	return c.JSON(fiber.Map{"data": details, "total": total, "page": page, "limit": limit})
}
