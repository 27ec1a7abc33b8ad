package payments

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/skyhostel/sky_hostel/models"
)

// Gateway is the outbound side of the payment processor: it issues payment
// references and reports their processor-side status.
type Gateway interface {
	IssueReference(ctx context.Context, req InvoiceRequest) (*Invoice, error)
	QueryStatus(ctx context.Context, rrr string) (*StatusResult, error)
}

type InvoiceRequest struct {
	Amount      int64
	PayerName   string
	PayerEmail  string
	PayerPhone  string
	Description string
	OrderID     string
}

type Invoice struct {
	RRR        string
	StatusCode string
	Message    string
	Raw        []byte
}

type StatusResult struct {
	RRR     string
	Status  models.PaymentStatus
	Code    string
	Message string
	Raw     []byte
}

type ErrorKind string

const (
	KindUnauthorized ErrorKind = "unauthorized"
	KindTimeout      ErrorKind = "timeout"
	KindNetwork      ErrorKind = "network"
	KindHTTP         ErrorKind = "http"
	KindMalformed    ErrorKind = "malformed"
	KindRejected     ErrorKind = "rejected"
)

// GatewayError wraps every failure that originates at the processor boundary.
// Err carries the raw cause and is meant for logs only.
type GatewayError struct {
	Op         string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s failed (%s, http %d): %v", e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("gateway %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func IsGatewayError(err error) bool {
	var gerr *GatewayError
	return errors.As(err, &gerr)
}

// transportError classifies an error returned by http.Client.Do.
func transportError(op string, err error) *GatewayError {
	kind := KindNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		kind = KindTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && strings.Contains(strings.ToLower(urlErr.Error()), "timeout") {
		kind = KindTimeout
	}
	return &GatewayError{Op: op, Kind: kind, Err: err}
}

func httpStatusError(op string, statusCode int, body []byte) *GatewayError {
	kind := KindHTTP
	if statusCode == 401 || statusCode == 403 {
		kind = KindUnauthorized
	}
	return &GatewayError{
		Op:         op,
		Kind:       kind,
		StatusCode: statusCode,
		Err:        fmt.Errorf("processor returned status %d: %s", statusCode, truncate(string(body), 256)),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
