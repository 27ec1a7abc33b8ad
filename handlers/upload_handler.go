package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/skyhostel/sky_hostel/services"
	"go.uber.org/zap"
)

type UploadSigner interface {
	PassportUploadSignature() (*services.UploadSignature, error)
}

type UploadHandler struct {
	signer UploadSigner
	logger *zap.Logger
}

// NewUploadHandler accepts a nil signer when Cloudinary is not configured.
func NewUploadHandler(signer UploadSigner, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{signer: signer, logger: logger.Named("upload_handler")}
}

// GenerateUploadSignature signs a browser-side passport photo upload.
func (h *UploadHandler) GenerateUploadSignature(c *fiber.Ctx) error {
	if h.signer == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Uploads are not configured"})
	}
	sig, err := h.signer.PassportUploadSignature()
	if err != nil {
		h.logger.Error("Failed to sign upload params", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to sign upload params"})
	}
	return c.JSON(sig)
}
