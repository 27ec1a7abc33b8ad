package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/skyhostel/sky_hostel/database"
	"github.com/skyhostel/sky_hostel/database/dbtest"
	"github.com/skyhostel/sky_hostel/jobs"
	"github.com/skyhostel/sky_hostel/models"
	"github.com/skyhostel/sky_hostel/payments"
	"github.com/skyhostel/sky_hostel/services"
	"go.uber.org/zap"
)

type fnGateway struct {
	issue func(payments.InvoiceRequest) (*payments.Invoice, error)
	query func(string) (*payments.StatusResult, error)
}

func (g *fnGateway) IssueReference(_ context.Context, req payments.InvoiceRequest) (*payments.Invoice, error) {
	return g.issue(req)
}

func (g *fnGateway) QueryStatus(_ context.Context, rrr string) (*payments.StatusResult, error) {
	return g.query(rrr)
}

type staticOrderIDs struct{}

func (staticOrderIDs) Next(matric string) string { return "FEE-" + matric + "-1700000000000" }

type stubSweeper struct {
	res *jobs.SweepResult
	err error
}

func (s stubSweeper) Sweep(context.Context) (*jobs.SweepResult, error) { return s.res, s.err }

type testEnv struct {
	app     *fiber.App
	store   *database.Store
	gateway *fnGateway
	issued  []payments.InvoiceRequest
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := database.NewStore(dbtest.Open(t))
	env := &testEnv{store: store}
	env.gateway = &fnGateway{
		issue: func(req payments.InvoiceRequest) (*payments.Invoice, error) {
			env.issued = append(env.issued, req)
			return &payments.Invoice{RRR: "290019681818", StatusCode: "025"}, nil
		},
		query: func(rrr string) (*payments.StatusResult, error) {
			return &payments.StatusResult{RRR: rrr, Status: models.PaymentStatusCompleted}, nil
		},
	}

	log := zap.NewNop()
	reconciler := services.NewReconciliationService(store, env.gateway, log)
	records := services.NewPaymentRecordService(store, log)
	ph := NewPaymentHandler(
		services.NewIssuanceService(store, env.gateway, staticOrderIDs{}, log),
		reconciler,
		services.NewVerificationService(reconciler, records, 219000, services.FallbackPair{}, log),
		records,
		stubSweeper{res: &jobs.SweepResult{Checked: 3, Updated: 2}},
		219000,
		log,
	)
	rh := NewRegistrationHandler(services.NewRegistrationService(store, log), log)
	receipts := NewReceiptHandler(services.NewReceiptService(store, nil, nil, log), log)

	app := fiber.New()
	api := app.Group("/api/v1")
	api.Post("/rrr-generation", ph.GenerateRRR)
	api.Get("/verify-payment", ph.VerifyPayment)
	api.Post("/verify-payment", ph.PollPayment)
	api.Get("/check-payment-status", ph.CheckPaymentStatus)
	api.Get("/payment", ph.GetStudentPayment)
	api.Post("/payment", ph.RecordPayment)
	api.Post("/update-pending-payments", ph.UpdatePendingPayments)
	api.Post("/register", rh.Register)
	api.Get("/payments/:rrr", ph.GetPaymentByRRR)
	api.Get("/payments/:rrr/receipt", receipts.GetReceipt)
	env.app = app
	return env
}

func (e *testEnv) seedStudent(t *testing.T, matric string) *models.Student {
	t.Helper()
	s := &models.Student{MatricNumber: matric, FirstName: "Ada", LastName: "Obi", Email: "ada@example.com"}
	if err := e.store.CreateStudent(context.Background(), s); err != nil {
		t.Fatalf("seed student: %v", err)
	}
	return s
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()
	out := map[string]interface{}{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestGenerateRRR(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "ABC/12345")

	code, body := env.do(t, "POST", "/api/v1/rrr-generation", map[string]interface{}{
		"matricNumber": "ABC/12345", "firstName": "Ada", "lastName": "Obi", "email": "ada@example.com", "amount": 219000,
	})
	if code != http.StatusOK {
		t.Fatalf("status = %d; body %v", code, body)
	}
	if body["success"] != true || body["rrr"] != "290019681818" || body["transactionId"] != "FEE-ABC/12345-1700000000000" {
		t.Errorf("body = %v", body)
	}
	p, err := env.store.FindPaymentWithStudent(context.Background(), "290019681818")
	if err != nil || p.Status != models.PaymentStatusPending {
		t.Errorf("stored payment = %+v, err %v", p, err)
	}
}

func TestGenerateRRRFromPaymentOption(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "ABC/12345")

	code, _ := env.do(t, "POST", "/api/v1/rrr-generation", map[string]interface{}{
		"matricNumber": "ABC/12345", "firstName": "Ada", "lastName": "Obi", "email": "ada@example.com", "paymentOption": "HALF",
	})
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(env.issued) != 1 || env.issued[0].Amount != 109500 {
		t.Errorf("issued = %+v; want amount 109500", env.issued)
	}
}

func TestGenerateRRRErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     map[string]interface{}
		gwErr    error
		wantCode int
		wantErr  string
	}{
		{
			name:     "missing fields",
			body:     map[string]interface{}{"matricNumber": "ABC/12345"},
			wantCode: http.StatusBadRequest,
			wantErr:  "MISSING_FIELDS",
		},
		{
			name:     "unknown student",
			body:     map[string]interface{}{"matricNumber": "NOPE/1", "firstName": "A", "lastName": "B", "email": "a@b.c", "amount": 1},
			wantCode: http.StatusNotFound,
			wantErr:  "STUDENT_NOT_FOUND",
		},
		{
			name:     "gateway unauthorized",
			body:     map[string]interface{}{"matricNumber": "ABC/12345", "firstName": "A", "lastName": "B", "email": "a@b.c", "amount": 1},
			gwErr:    &payments.GatewayError{Op: "issue", Kind: payments.KindUnauthorized, StatusCode: 401},
			wantCode: http.StatusInternalServerError,
			wantErr:  "AUTH_ERROR",
		},
		{
			name:     "gateway timeout",
			body:     map[string]interface{}{"matricNumber": "ABC/12345", "firstName": "A", "lastName": "B", "email": "a@b.c", "amount": 1},
			gwErr:    &payments.GatewayError{Op: "issue", Kind: payments.KindTimeout},
			wantCode: http.StatusInternalServerError,
			wantErr:  "TIMEOUT",
		},
		{
			name:     "gateway rejected",
			body:     map[string]interface{}{"matricNumber": "ABC/12345", "firstName": "A", "lastName": "B", "email": "a@b.c", "amount": 1},
			gwErr:    &payments.GatewayError{Op: "issue", Kind: payments.KindRejected},
			wantCode: http.StatusInternalServerError,
			wantErr:  "GENERATION_FAILED",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.seedStudent(t, "ABC/12345")
			if tt.gwErr != nil {
				env.gateway.issue = func(payments.InvoiceRequest) (*payments.Invoice, error) { return nil, tt.gwErr }
			}
			code, body := env.do(t, "POST", "/api/v1/rrr-generation", tt.body)
			if code != tt.wantCode {
				t.Errorf("status = %d; want %d", code, tt.wantCode)
			}
			if body["success"] != false || body["errorCode"] != tt.wantErr {
				t.Errorf("body = %v; want errorCode %s", body, tt.wantErr)
			}
			if msg, _ := body["error"].(string); strings.Contains(msg, "gateway") {
				t.Errorf("error leaks internals: %q", msg)
			}
		})
	}
}

func TestVerifyPayment(t *testing.T) {
	env := newTestEnv(t)
	s := env.seedStudent(t, "ABC/12345")
	env.store.CreatePayment(context.Background(), &models.Payment{StudentID: s.ID, RRR: "290019681818", TransactionID: "t", Amount: 219000})

	code, body := env.do(t, "GET", "/api/v1/verify-payment?rrr=290019681818&matricNumber=ABC/12345", nil)
	if code != http.StatusOK || body["isPaid"] != true {
		t.Fatalf("GET verify = %d %v", code, body)
	}

	code, body = env.do(t, "GET", "/api/v1/verify-payment?rrr=290019681818", nil)
	if code != http.StatusBadRequest || body["error"] != "RRR and matricNumber are required" {
		t.Errorf("GET verify without matric = %d %v", code, body)
	}
}

func TestVerifyPaymentUnissuedReference(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "ABC/12345")

	code, body := env.do(t, "GET", "/api/v1/verify-payment?rrr=310000000001&matricNumber=ABC/12345", nil)
	if code != http.StatusOK || body["isPaid"] != true {
		t.Fatalf("GET verify = %d %v", code, body)
	}
	details, _ := body["paymentDetails"].(map[string]interface{})
	if details["rrr"] != "310000000001" || details["status"] != "completed" {
		t.Errorf("paymentDetails = %v", details)
	}

	p, err := env.store.FindPaymentWithStudent(context.Background(), "310000000001")
	if err != nil {
		t.Fatalf("FindPaymentWithStudent() error = %v", err)
	}
	if p.Student.PaymentStatus != models.StudentPaymentPaid {
		t.Errorf("student payment status = %q; want paid", p.Student.PaymentStatus)
	}
}

func TestVerifyPaymentGatewayFailureMessage(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "ABC/12345")
	env.gateway.query = func(string) (*payments.StatusResult, error) {
		return nil, &payments.GatewayError{Op: "query_status", Kind: payments.KindMalformed}
	}

	code, body := env.do(t, "GET", "/api/v1/verify-payment?rrr=310000000001&matricNumber=ABC/12345", nil)
	if code != http.StatusBadGateway {
		t.Fatalf("status = %d; want 502", code)
	}
	if body["error"] != "Failed to verify payment" {
		t.Errorf("error = %v; want the verification message", body["error"])
	}

	code, body = env.do(t, "GET", "/api/v1/check-payment-status?rrr=310000000001", nil)
	if code != http.StatusBadGateway || body["error"] != "Failed to check payment status" {
		t.Errorf("check-payment-status = %d %v", code, body)
	}
}

func TestGetPaymentByRRR(t *testing.T) {
	env := newTestEnv(t)
	s := env.seedStudent(t, "ABC/12345")
	env.store.CreatePayment(context.Background(), &models.Payment{StudentID: s.ID, RRR: "777", TransactionID: "t", Amount: 219000})
	env.gateway.query = func(string) (*payments.StatusResult, error) {
		t.Error("stored lookup must not query the processor")
		return nil, nil
	}

	code, body := env.do(t, "GET", "/api/v1/payments/777", nil)
	if code != http.StatusOK || body["matricNumber"] != "ABC/12345" {
		t.Fatalf("GET payment = %d %v", code, body)
	}
	details, _ := body["paymentDetails"].(map[string]interface{})
	if details["status"] != "pending" || details["amount"] != float64(219000) {
		t.Errorf("paymentDetails = %v", details)
	}

	if code, _ := env.do(t, "GET", "/api/v1/payments/888", nil); code != http.StatusNotFound {
		t.Errorf("unknown rrr status = %d; want 404", code)
	}
}

func TestPollPaymentPending(t *testing.T) {
	env := newTestEnv(t)
	s := env.seedStudent(t, "ABC/12345")
	env.store.CreatePayment(context.Background(), &models.Payment{StudentID: s.ID, RRR: "1", TransactionID: "t", Amount: 1})
	env.gateway.query = func(rrr string) (*payments.StatusResult, error) {
		return &payments.StatusResult{RRR: rrr, Status: models.PaymentStatusPending}, nil
	}

	code, body := env.do(t, "POST", "/api/v1/verify-payment", map[string]string{"rrr": "1", "matricNumber": "ABC/12345"})
	if code != http.StatusOK || body["isPaid"] != false {
		t.Fatalf("POST verify = %d %v", code, body)
	}
	if msg, _ := body["message"].(string); !strings.HasSuffix(msg, "Client should poll for updates.") {
		t.Errorf("message = %q", msg)
	}
}

func TestCheckPaymentStatus(t *testing.T) {
	env := newTestEnv(t)
	s := env.seedStudent(t, "ABC/12345")
	env.store.CreatePayment(context.Background(), &models.Payment{StudentID: s.ID, RRR: "290019681818", TransactionID: "t", Amount: 219000})

	code, body := env.do(t, "GET", "/api/v1/check-payment-status?matricNumber=ABC/12345", nil)
	if code != http.StatusOK || body["status"] != "pending" {
		t.Fatalf("by matric = %d %v", code, body)
	}

	code, body = env.do(t, "GET", "/api/v1/check-payment-status?rrr=290019681818", nil)
	if code != http.StatusOK || body["status"] != "completed" {
		t.Fatalf("by rrr = %d %v", code, body)
	}
	details, _ := body["paymentDetails"].(map[string]interface{})
	if details["rrr"] != "290019681818" {
		t.Errorf("paymentDetails = %v", details)
	}

	code, _ = env.do(t, "GET", "/api/v1/check-payment-status?rrr=404", nil)
	if code != http.StatusNotFound {
		t.Errorf("unknown rrr status = %d; want 404", code)
	}
	code, _ = env.do(t, "GET", "/api/v1/check-payment-status", nil)
	if code != http.StatusBadRequest {
		t.Errorf("no params status = %d; want 400", code)
	}
}

func TestRecordAndGetPayment(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "ABC/12345")

	code, body := env.do(t, "POST", "/api/v1/payment", map[string]interface{}{
		"matricNumber": "ABC/12345", "rrr": "555", "transactionId": "FEE-ABC/12345-1", "amount": 219000,
	})
	if code != http.StatusOK || body["success"] != true {
		t.Fatalf("record = %d %v", code, body)
	}

	code, body = env.do(t, "GET", "/api/v1/payment?matricNumber=ABC/12345", nil)
	if code != http.StatusOK || body["paid"] != true {
		t.Fatalf("get = %d %v", code, body)
	}

	code, _ = env.do(t, "POST", "/api/v1/payment", map[string]interface{}{"matricNumber": "ABC/12345"})
	if code != http.StatusBadRequest {
		t.Errorf("incomplete record status = %d; want 400", code)
	}
}

func TestUpdatePendingPayments(t *testing.T) {
	env := newTestEnv(t)
	code, body := env.do(t, "POST", "/api/v1/update-pending-payments", nil)
	if code != http.StatusOK || body["updatedCount"] != float64(2) || body["success"] != true {
		t.Errorf("sweep = %d %v", code, body)
	}
}

func registrationBody(matric string) map[string]interface{} {
	kin := map[string]interface{}{
		"firstName": "Chi", "lastName": "Obi", "contactNumber": "08011112222", "email": "chi@example.com",
		"relationship": "Mother", "homeAddress": "12 Allen Avenue", "city": "Ikeja",
	}
	guarantor := map[string]interface{}{"signatureDeclaration": true, "date": "2025-01-10"}
	for k, v := range kin {
		guarantor[k] = v
	}
	return map[string]interface{}{
		"personalInfo": map[string]interface{}{
			"firstName": "Ada", "lastName": "Obi", "contactNumber": "08012345678", "email": "ada@example.com",
			"matricNumber": matric, "level": "200", "faculty": "Science", "department": "Physics",
			"programme": "BSc Physics", "dateOfBirth": "2004-01-02", "stateOfOrigin": "Enugu",
			"maritalStatus": "single", "homeAddress": "4 Marina Road", "city": "Lagos",
		},
		"nextOfKin":    kin,
		"securityInfo": map[string]interface{}{"isWellBehaved": true},
		"agreement":    map[string]interface{}{"acceptedTerms": true, "firstName": "Ada", "lastName": "Obi"},
		"guarantor":    guarantor,
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, "POST", "/api/v1/register", registrationBody("ABC/88888"))
	if code != http.StatusCreated {
		t.Fatalf("register = %d %v", code, body)
	}
	data, _ := body["data"].(map[string]interface{})
	room, _ := data["roomDetails"].(map[string]interface{})
	if data["fullName"] != "Ada Obi" || room["roomType"] != "Room of 4" || room["block"] != "Block A" {
		t.Errorf("data = %v", data)
	}

	code, body = env.do(t, "POST", "/api/v1/register", registrationBody("ABC/88888"))
	if code != http.StatusConflict || body["errorCode"] != "ALREADY_REGISTERED" {
		t.Errorf("duplicate register = %d %v", code, body)
	}

	bad := registrationBody("ABC/99999")
	bad["agreement"] = map[string]interface{}{"acceptedTerms": false, "firstName": "Ada", "lastName": "Obi"}
	code, body = env.do(t, "POST", "/api/v1/register", bad)
	if code != http.StatusBadRequest || body["error"] != "Validation failed" {
		t.Errorf("invalid register = %d %v", code, body)
	}
}

func TestGetReceipt(t *testing.T) {
	env := newTestEnv(t)
	s := env.seedStudent(t, "ABC/12345")
	env.store.CreatePayment(context.Background(), &models.Payment{StudentID: s.ID, RRR: "666", TransactionID: "t", Amount: 219000, Status: models.PaymentStatusCompleted})

	req := httptest.NewRequest("GET", "/api/v1/payments/666/receipt", nil)
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()
	html, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(html), "ABC/12345") {
		t.Errorf("receipt = %d %s", resp.StatusCode, html)
	}

	code, _ := env.do(t, "GET", "/api/v1/payments/666/receipt?format=pdf", nil)
	if code != http.StatusServiceUnavailable {
		t.Errorf("pdf without renderer status = %d; want 503", code)
	}
}

func TestClassifyGatewayError(t *testing.T) {
	tests := []struct {
		kind payments.ErrorKind
		want string
	}{
		{payments.KindUnauthorized, "AUTH_ERROR"},
		{payments.KindTimeout, "TIMEOUT"},
		{payments.KindNetwork, "NETWORK_ERROR"},
		{payments.KindMalformed, "GENERATION_FAILED"},
		{payments.KindHTTP, "GENERATION_FAILED"},
	}
	for _, tt := range tests {
		code, msg := classifyGatewayError(&payments.GatewayError{Op: "issue", Kind: tt.kind})
		if code != tt.want || msg == "" {
			t.Errorf("classifyGatewayError(%s) = %q, %q; want %q", tt.kind, code, msg, tt.want)
		}
	}
}
