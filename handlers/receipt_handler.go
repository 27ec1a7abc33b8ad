package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Receipts interface {
	HTML(ctx context.Context, rrr string) (string, error)
	PDF(ctx context.Context, rrr string) ([]byte, error)
	Publish(ctx context.Context, rrr string) (string, error)
}

type ReceiptHandler struct {
	receipts Receipts
	logger   *zap.Logger
}

func NewReceiptHandler(receipts Receipts, logger *zap.Logger) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts, logger: logger.Named("receipt_handler")}
}

func (h *ReceiptHandler) GetReceipt(c *fiber.Ctx) error {
	rrr := c.Params("rrr")
	if c.Query("format") == "pdf" {
		pdf, err := h.receipts.PDF(c.UserContext(), rrr)
		if err != nil {
			return respondError(c, h.logger, err, "Failed to generate receipt")
		}
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="receipt-`+rrr+`.pdf"`)
		c.Set(fiber.HeaderContentType, "application/pdf")
		return c.Send(pdf)
	}

	html, err := h.receipts.HTML(c.UserContext(), rrr)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to generate receipt")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(html)
}

func (h *ReceiptHandler) PublishReceipt(c *fiber.Ctx) error {
	url, err := h.receipts.Publish(c.UserContext(), c.Params("rrr"))
	if err != nil {
		return respondError(c, h.logger, err, "Failed to publish receipt")
	}
	return c.JSON(fiber.Map{"success": true, "receiptUrl": url})
}
