package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/skyhostel/sky_hostel/models"
	"go.uber.org/zap"
)

func TestBrevoSend(t *testing.T) {
	var got brevoPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "key" {
			t.Errorf("api-key = %q", r.Header.Get("api-key"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewBrevoService("key", "noreply@skyhostel.ng", "Sky Hostel", zap.NewNop())
	s.endpoint = srv.URL

	if err := s.Send(context.Background(), "ada@example.com", "", "Hi", "<p>x</p>"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got.To[0]["name"] != "ada" {
		t.Errorf("recipient name = %q; want derived from address", got.To[0]["name"])
	}
	if got.Sender["email"] != "noreply@skyhostel.ng" {
		t.Errorf("sender = %v", got.Sender)
	}
}

func TestBrevoSendErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewBrevoService("key", "noreply@skyhostel.ng", "Sky Hostel", zap.NewNop())
	s.endpoint = srv.URL

	if err := s.Send(context.Background(), "not-an-email", "", "Hi", ""); err == nil {
		t.Error("Send(invalid address) error = nil")
	}
	if err := s.Send(context.Background(), "ada@example.com", "Ada", "Hi", ""); err == nil {
		t.Error("Send() with 400 response error = nil")
	}
}

func TestNewBrevoServiceUnconfigured(t *testing.T) {
	if s := NewBrevoService("", "a@b.c", "x", zap.NewNop()); s != nil {
		t.Error("NewBrevoService() without api key != nil")
	}
}

type sentMail struct{ to, subject, body string }

type chanMailer chan sentMail

func (m chanMailer) Send(_ context.Context, toEmail, _, subject, html string) error {
	m <- sentMail{toEmail, subject, html}
	return nil
}

func TestPaymentEmailNotifier(t *testing.T) {
	mails := make(chanMailer, 1)
	n := NewPaymentEmailNotifier(mails, zap.NewNop())

	n.PaymentStatusChanged(context.Background(), models.PaymentStatusChange{
		RRR: "290019681818", Current: models.PaymentStatusFailed, StudentEmail: "ada@example.com",
	})
	n.PaymentStatusChanged(context.Background(), models.PaymentStatusChange{
		RRR: "290019681818", Amount: 219000, MatricNumber: "ABC/12345", StudentName: "Ada Obi",
		Current: models.PaymentStatusCompleted, StudentEmail: "ada@example.com",
	})

	select {
	case m := <-mails:
		if m.to != "ada@example.com" || !strings.Contains(m.body, "290019681818") {
			t.Errorf("mail = %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no confirmation sent")
	}
	select {
	case m := <-mails:
		t.Errorf("unexpected second mail %+v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPaymentConfirmedBodyEscapesStudentInput(t *testing.T) {
	body, err := paymentConfirmedBody(models.PaymentStatusChange{
		RRR: "290019681818", Amount: 219000, MatricNumber: "<b>ABC</b>", StudentName: `<script>alert("x")</script>`,
	})
	if err != nil {
		t.Fatalf("paymentConfirmedBody() error = %v", err)
	}
	if strings.Contains(body, "<script>") || strings.Contains(body, "<b>ABC</b>") {
		t.Errorf("body contains unescaped student input: %s", body)
	}
	if !strings.Contains(body, "&lt;script&gt;") || !strings.Contains(body, "219000") {
		t.Errorf("body = %s", body)
	}
}

type fakeWriter struct{ msgs []kafka.Message }

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestStatusEventPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := NewStatusEventPublisher(w, zap.NewNop())

	p.PaymentStatusChanged(context.Background(), models.PaymentStatusChange{
		RRR:          "290019681818",
		Previous:     models.PaymentStatusPending,
		Current:      models.PaymentStatusCompleted,
		StudentID:    uuid.New(),
		MatricNumber: "ABC/12345",
		ChangedAt:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	})

	if len(w.msgs) != 1 {
		t.Fatalf("wrote %d messages; want 1", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "290019681818" {
		t.Errorf("key = %q", w.msgs[0].Key)
	}
	var ev paymentStatusEvent
	if err := json.Unmarshal(w.msgs[0].Value, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.Type != paymentStatusChangedEvent || ev.Status != "completed" || ev.Previous != "pending" || ev.ChangedAt != "2025-01-02T03:04:05Z" {
		t.Errorf("event = %+v", ev)
	}
}
