package payments

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	paymentInitPath = "/remita/exapp/api/v1/send/api/echannelsvc/merchant/api/paymentinit"
	statusPathFmt   = "/remita/exapp/api/v1/send/api/echannelsvc/%s/%s/%s/status.reg"

	DefaultPayerPhone = "08000000000"
)

type RemitaConfig struct {
	BaseURL       string
	MerchantID    string
	ServiceTypeID string
	APIKey        string
	Timeout       time.Duration
}

type paymentInitRequest struct {
	ServiceTypeID string `json:"serviceTypeId"`
	Amount        string `json:"amount"`
	OrderID       string `json:"orderId"`
	PayerName     string `json:"payerName"`
	PayerEmail    string `json:"payerEmail"`
	PayerPhone    string `json:"payerPhone"`
	Description   string `json:"description"`
}

type paymentInitResponse struct {
	StatusCode string `json:"statuscode"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	RRR        string `json:"RRR"`
}

type statusResponse struct {
	Status        string          `json:"status"`
	Message       string          `json:"message"`
	StatusMessage string          `json:"statusMessage"`
	RRR           string          `json:"RRR"`
	Amount        json.RawMessage `json:"amount"`
	OrderID       string          `json:"orderId"`
}

type RemitaClient struct {
	cfg    RemitaConfig
	client *http.Client
	logger *zap.Logger
}

func NewRemitaClient(cfg RemitaConfig, logger *zap.Logger) *RemitaClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemitaClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("remita"),
	}
}

func digest(parts ...string) string {
	sum := sha512.Sum512([]byte(strings.Join(parts, "")))
	return hex.EncodeToString(sum[:])
}

func (c *RemitaClient) authorization(token string) string {
	return fmt.Sprintf("remitaConsumerKey=%s,remitaConsumerToken=%s", c.cfg.MerchantID, token)
}

// InvoiceToken is the SHA-512 of merchantId+serviceTypeId+orderId+amount+apiKey.
func (c *RemitaClient) InvoiceToken(orderID string, amount int64) string {
	return digest(c.cfg.MerchantID, c.cfg.ServiceTypeID, orderID, strconv.FormatInt(amount, 10), c.cfg.APIKey)
}

// StatusToken is the SHA-512 of apiKey+rrr+merchantId.
func (c *RemitaClient) StatusToken(rrr string) string {
	return digest(c.cfg.APIKey, rrr, c.cfg.MerchantID)
}

var nonNumericRegex = regexp.MustCompile(`[^0-9]`)

// SanitizePayerPhone normalises Nigerian numbers to the local 0XXXXXXXXXX form.
func SanitizePayerPhone(phone string) (string, error) {
	sanitized := nonNumericRegex.ReplaceAllString(phone, "")

	if strings.HasPrefix(sanitized, "0") && len(sanitized) == 11 {
		return sanitized, nil
	}
	if strings.HasPrefix(sanitized, "234") && len(sanitized) == 13 {
		return "0" + sanitized[3:], nil
	}
	if len(sanitized) == 10 && !strings.HasPrefix(sanitized, "0") {
		return "0" + sanitized, nil
	}

	return "", errors.New("invalid payer phone number format")
}

// stripJSONP unwraps the `jsonp ({...})` envelope some processor endpoints use.
func stripJSONP(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if i := bytes.IndexByte(trimmed, '('); i >= 0 && bytes.HasSuffix(trimmed, []byte(")")) && !bytes.HasPrefix(trimmed, []byte("{")) {
		return bytes.TrimSpace(trimmed[i+1 : len(trimmed)-1])
	}
	return trimmed
}

func (c *RemitaClient) IssueReference(ctx context.Context, in InvoiceRequest) (*Invoice, error) {
	const op = "issue_reference"

	if in.Amount <= 0 {
		return nil, &GatewayError{Op: op, Kind: KindRejected, Err: fmt.Errorf("amount must be positive, got %d", in.Amount)}
	}

	payerPhone := in.PayerPhone
	if payerPhone == "" {
		payerPhone = DefaultPayerPhone
	} else if sanitized, err := SanitizePayerPhone(payerPhone); err == nil {
		payerPhone = sanitized
	}

	payload := paymentInitRequest{
		ServiceTypeID: c.cfg.ServiceTypeID,
		Amount:        strconv.FormatInt(in.Amount, 10),
		OrderID:       in.OrderID,
		PayerName:     in.PayerName,
		PayerEmail:    in.PayerEmail,
		PayerPhone:    payerPhone,
		Description:   in.Description,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &GatewayError{Op: op, Kind: KindMalformed, Err: fmt.Errorf("failed to marshal invoice payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+paymentInitPath, bytes.NewReader(body))
	if err != nil {
		return nil, &GatewayError{Op: op, Kind: KindNetwork, Err: fmt.Errorf("failed to create invoice request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authorization(c.InvoiceToken(in.OrderID, in.Amount)))

	c.logger.Debug("Requesting payment reference",
		zap.String("order_id", in.OrderID),
		zap.Int64("amount", in.Amount),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GatewayError{Op: op, Kind: KindNetwork, Err: fmt.Errorf("failed to read invoice response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Processor rejected invoice request",
			zap.Int("http_status", resp.StatusCode),
			zap.ByteString("body", respBody),
		)
		return nil, httpStatusError(op, resp.StatusCode, respBody)
	}

	raw := stripJSONP(respBody)
	var result paymentInitResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &GatewayError{Op: op, Kind: KindMalformed, Err: fmt.Errorf("failed to unmarshal invoice response: %w", err)}
	}

	if result.StatusCode != invoiceCreatedCode || result.RRR == "" {
		msg := result.Message
		if msg == "" {
			msg = result.Status
		}
		if msg == "" {
			msg = "no reference returned"
		}
		return nil, &GatewayError{Op: op, Kind: KindRejected, Err: fmt.Errorf("statuscode %q: %s", result.StatusCode, msg)}
	}

	c.logger.Info("Payment reference issued", zap.String("order_id", in.OrderID), zap.String("rrr", result.RRR))
	return &Invoice{
		RRR:        result.RRR,
		StatusCode: result.StatusCode,
		Message:    result.Status,
		Raw:        raw,
	}, nil
}

func (c *RemitaClient) QueryStatus(ctx context.Context, rrr string) (*StatusResult, error) {
	const op = "query_status"

	if strings.TrimSpace(rrr) == "" {
		return nil, &GatewayError{Op: op, Kind: KindRejected, Err: errors.New("empty reference")}
	}

	token := c.StatusToken(rrr)
	url := c.cfg.BaseURL + fmt.Sprintf(statusPathFmt, c.cfg.MerchantID, rrr, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &GatewayError{Op: op, Kind: KindNetwork, Err: fmt.Errorf("failed to create status request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authorization(token))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GatewayError{Op: op, Kind: KindNetwork, Err: fmt.Errorf("failed to read status response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, httpStatusError(op, resp.StatusCode, respBody)
	}

	raw := stripJSONP(respBody)
	var result statusResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &GatewayError{Op: op, Kind: KindMalformed, Err: fmt.Errorf("failed to unmarshal status response: %w", err)}
	}

	message := result.Message
	if message == "" {
		message = result.StatusMessage
	}

	status := MapStatusCode(result.Status)
	c.logger.Debug("Reference status queried",
		zap.String("rrr", rrr),
		zap.String("code", result.Status),
		zap.String("status", string(status)),
	)

	return &StatusResult{
		RRR:     rrr,
		Status:  status,
		Code:    result.Status,
		Message: message,
		Raw:     raw,
	}, nil
}
