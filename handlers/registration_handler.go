package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/skyhostel/sky_hostel/services"
	"go.uber.org/zap"
)

type Registrar interface {
	Register(ctx context.Context, req services.RegistrationRequest) (*services.RegistrationResult, error)
}

type RegistrationHandler struct {
	registrar Registrar
	logger    *zap.Logger
}

func NewRegistrationHandler(registrar Registrar, logger *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{registrar: registrar, logger: logger.Named("registration_handler")}
}

func (h *RegistrationHandler) Register(c *fiber.Ctx) error {
	var req services.RegistrationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Validation failed",
			"details": validationDetails(err),
		})
	}

	res, err := h.registrar.Register(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, services.ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success":   false,
				"error":     services.UserMessage(err),
				"errorCode": "ALREADY_REGISTERED",
			})
		}
		return respondError(c, h.logger, err, "Error saving registration")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Registration successful",
		"data": fiber.Map{
			"studentId": res.StudentID,
			"fullName":  res.FullName,
			"roomDetails": fiber.Map{
				"roomType":         res.Room.RoomType,
				"block":            res.Room.Block,
				"numberOfStudents": res.Room.NumberOfStudents,
			},
		},
	})
}
