package payments

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/skyhostel/sky_hostel/models"
	"go.uber.org/zap"
)

// MockGateway stands in for the processor in development. References are
// random 12 digit numbers and every query reports Status.
type MockGateway struct {
	Status models.PaymentStatus

	mu     sync.Mutex
	rand   *rand.Rand
	issued map[string]InvoiceRequest
	logger *zap.Logger
}

func NewMockGateway(logger *zap.Logger) *MockGateway {
	return &MockGateway{
		Status: models.PaymentStatusPending,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		issued: make(map[string]InvoiceRequest),
		logger: logger.Named("mock_gateway"),
	}
}

func (m *MockGateway) IssueReference(ctx context.Context, in InvoiceRequest) (*Invoice, error) {
	if in.Amount <= 0 {
		return nil, &GatewayError{Op: "issue_reference", Kind: KindRejected, Err: fmt.Errorf("amount must be positive, got %d", in.Amount)}
	}

	m.mu.Lock()
	rrr := fmt.Sprintf("%012d", 100000000000+m.rand.Int63n(900000000000))
	m.issued[rrr] = in
	m.mu.Unlock()

	m.logger.Info("Mock payment reference issued", zap.String("rrr", rrr), zap.String("order_id", in.OrderID))
	return &Invoice{
		RRR:        rrr,
		StatusCode: invoiceCreatedCode,
		Message:    "Payment Reference generated",
		Raw:        []byte(fmt.Sprintf(`{"statuscode":%q,"RRR":%q,"mock":true}`, invoiceCreatedCode, rrr)),
	}, nil
}

func (m *MockGateway) QueryStatus(ctx context.Context, rrr string) (*StatusResult, error) {
	m.mu.Lock()
	status := m.Status
	m.mu.Unlock()

	return &StatusResult{
		RRR:     rrr,
		Status:  status,
		Code:    "mock",
		Message: "mock status",
		Raw:     []byte(fmt.Sprintf(`{"status":%q,"mock":true}`, status)),
	}, nil
}

func (m *MockGateway) SetStatus(status models.PaymentStatus) {
	m.mu.Lock()
	m.Status = status
	m.mu.Unlock()
}
