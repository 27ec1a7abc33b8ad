package notifications

import (
	"bytes"
	"context"
	"html/template"
	"time"

	"github.com/skyhostel/sky_hostel/models"
	"go.uber.org/zap"
)

type Mailer interface {
	Send(ctx context.Context, toEmail, toName, subject, htmlContent string) error
}

// PaymentEmailNotifier mails the student once their payment completes.
// Delivery happens in the background and failures are only logged.
type PaymentEmailNotifier struct {
	mailer Mailer
	logger *zap.Logger
}

func NewPaymentEmailNotifier(mailer Mailer, logger *zap.Logger) *PaymentEmailNotifier {
	return &PaymentEmailNotifier{mailer: mailer, logger: logger.Named("payment_email")}
}

var paymentConfirmedTemplate = template.Must(template.New("payment_confirmed").Parse(
	`<h1>Payment Confirmed</h1><p>Hi {{.StudentName}},</p><p>We have received your hostel fee payment of &#8358;{{.Amount}} for matric number <b>{{.MatricNumber}}</b>.</p><p><b>Remita RRR:</b> {{.RRR}}<br><b>Transaction ID:</b> {{.TransactionID}}</p><p>You can download your receipt from the hostel portal.</p>`,
))

func paymentConfirmedBody(change models.PaymentStatusChange) (string, error) {
	var buf bytes.Buffer
	if err := paymentConfirmedTemplate.Execute(&buf, change); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (n *PaymentEmailNotifier) PaymentStatusChanged(_ context.Context, change models.PaymentStatusChange) {
	if change.Current != models.PaymentStatusCompleted || change.StudentEmail == "" {
		return
	}
	body, err := paymentConfirmedBody(change)
	if err != nil {
		n.logger.Error("Failed to render payment confirmation", zap.String("rrr", change.RRR), zap.Error(err))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := n.mailer.Send(ctx, change.StudentEmail, change.StudentName, "Hostel Fee Payment Confirmed", body)
		if err != nil {
			n.logger.Error("Failed to send payment confirmation", zap.String("rrr", change.RRR), zap.Error(err))
			return
		}
		n.logger.Info("Payment confirmation sent", zap.String("rrr", change.RRR))
	}()
}
