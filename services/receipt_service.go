package services

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/skyhostel/sky_hostel/database"
	"github.com/skyhostel/sky_hostel/models"
	"go.uber.org/zap"
)

//go:embed templates/receipt.html
var receiptTemplates embed.FS

var receiptTemplate = template.Must(template.ParseFS(receiptTemplates, "templates/receipt.html"))

const receiptHostelName = "Sky Hostel"

// PDFRenderer turns a rendered HTML document into PDF bytes.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

// FileUploader stores a file and returns its public URL.
type FileUploader interface {
	Upload(ctx context.Context, data []byte, publicID string) (string, error)
}

type ReceiptService struct {
	store    PaymentStore
	renderer PDFRenderer
	uploader FileUploader
	logger   *zap.Logger
	now      func() time.Time
}

// NewReceiptService accepts nil renderer or uploader; the operations needing
// them then fail with ErrUnavailable.
func NewReceiptService(store PaymentStore, renderer PDFRenderer, uploader FileUploader, logger *zap.Logger) *ReceiptService {
	return &ReceiptService{
		store:    store,
		renderer: renderer,
		uploader: uploader,
		logger:   logger.Named("receipts"),
		now:      time.Now,
	}
}

var ErrUnavailable = errors.New("feature not configured")

type receiptData struct {
	HostelName    string
	StudentName   string
	MatricNumber  string
	RRR           string
	TransactionID string
	Amount        string
	RoomType      string
	Block         string
	PaidOn        string
	IssuedOn      string
	Status        string
}

func (s *ReceiptService) completedPayment(ctx context.Context, rrr string) (*models.Payment, error) {
	payment, err := s.store.FindPaymentWithStudent(ctx, rrr)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFoundErr("Payment not found")
		}
		return nil, persistenceErr("failed to load payment", err)
	}
	if payment.Status != models.PaymentStatusCompleted {
		return nil, validationErr("Receipts are only available for completed payments")
	}
	return payment, nil
}

func formatAmount(amount int64) string {
	digits := strconv.FormatInt(amount, 10)
	var out []byte
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}
	return string(out)
}

func (s *ReceiptService) render(payment *models.Payment) (string, error) {
	data := receiptData{
		HostelName:    receiptHostelName,
		StudentName:   payment.Student.FullName(),
		MatricNumber:  payment.Student.MatricNumber,
		RRR:           payment.RRR,
		TransactionID: payment.TransactionID,
		Amount:        formatAmount(payment.Amount),
		RoomType:      payment.Student.RoomType,
		Block:         payment.Student.Block,
		PaidOn:        payment.UpdatedAt.Format("January 2, 2006"),
		IssuedOn:      s.now().Format("January 2, 2006"),
		Status:        string(payment.Status),
	}

	var rendered bytes.Buffer
	if err := receiptTemplate.Execute(&rendered, data); err != nil {
		return "", err
	}
	return rendered.String(), nil
}

// HTML renders the receipt for a completed payment.
func (s *ReceiptService) HTML(ctx context.Context, rrr string) (string, error) {
	payment, err := s.completedPayment(ctx, rrr)
	if err != nil {
		return "", err
	}
	html, err := s.render(payment)
	if err != nil {
		return "", fmt.Errorf("render receipt %s: %w", rrr, err)
	}
	return html, nil
}

func (s *ReceiptService) PDF(ctx context.Context, rrr string) ([]byte, error) {
	if s.renderer == nil {
		return nil, ErrUnavailable
	}
	html, err := s.HTML(ctx, rrr)
	if err != nil {
		return nil, err
	}
	pdf, err := s.renderer.RenderPDF(ctx, html)
	if err != nil {
		s.logger.Error("Failed to render receipt PDF", zap.String("rrr", rrr), zap.Error(err))
		return nil, fmt.Errorf("render receipt pdf %s: %w", rrr, err)
	}
	return pdf, nil
}

// Publish renders the PDF receipt, uploads it and stores the URL on the
// payment.
func (s *ReceiptService) Publish(ctx context.Context, rrr string) (string, error) {
	if s.renderer == nil || s.uploader == nil {
		return "", ErrUnavailable
	}
	payment, err := s.completedPayment(ctx, rrr)
	if err != nil {
		return "", err
	}
	html, err := s.render(payment)
	if err != nil {
		return "", fmt.Errorf("render receipt %s: %w", rrr, err)
	}
	pdf, err := s.renderer.RenderPDF(ctx, html)
	if err != nil {
		s.logger.Error("Failed to render receipt PDF", zap.String("rrr", rrr), zap.Error(err))
		return "", fmt.Errorf("render receipt pdf %s: %w", rrr, err)
	}

	url, err := s.uploader.Upload(ctx, pdf, fmt.Sprintf("receipts/%s_%s", payment.Student.ID, payment.RRR))
	if err != nil {
		s.logger.Error("Failed to upload receipt", zap.String("rrr", rrr), zap.Error(err))
		return "", fmt.Errorf("upload receipt %s: %w", rrr, err)
	}

	if err := s.store.SetReceiptURL(ctx, payment.ID, url); err != nil {
		return "", persistenceErr("failed to save receipt url", err)
	}
	s.logger.Info("Receipt published", zap.String("rrr", rrr), zap.String("url", url))
	return url, nil
}

// ChromePDFRenderer prints HTML to PDF in a headless Chrome.
type ChromePDFRenderer struct {
	Timeout time.Duration
}

func (r ChromePDFRenderer) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	timeout := r.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuffer, nil
}
