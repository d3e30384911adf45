package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/blues/cfp/internal/config"
	"github.com/blues/cfp/internal/model"
	"github.com/google/uuid"
)

// PaymentGateway 支付网关接口，远程调用可能瞬时失败，调用方负责重试
type PaymentGateway interface {
	Confirm(ctx context.Context, paymentId string) error
	Refund(ctx context.Context, backingId int64, amount int64) error
}

// Client 支付网关HTTP客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Init 初始化支付网关客户端
func Init(cfg config.GatewayConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

type confirmRequest struct {
	PaymentId string `json:"payment_id"`
}

type refundRequest struct {
	BackingId      int64  `json:"backing_id"`
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
}

type gatewayResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Confirm 向网关确认支付
func (c *Client) Confirm(ctx context.Context, paymentId string) error {
	return c.post(ctx, "/v1/payments/confirm", confirmRequest{PaymentId: paymentId})
}

// Refund 向网关发起退款
// 幂等键由支持记录派生，同一笔退款不论重试多少次网关都只扣一次
func (c *Client) Refund(ctx context.Context, backingId int64, amount int64) error {
	return c.post(ctx, "/v1/payments/refund", refundRequest{
		BackingId:      backingId,
		Amount:         amount,
		IdempotencyKey: fmt.Sprintf("refund-%d", backingId),
	})
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal request: %v", model.ErrPaymentGateway, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", model.ErrPaymentGateway, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrPaymentGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", model.ErrPaymentGateway, resp.StatusCode)
	}

	var gr gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return fmt.Errorf("%w: decode response: %v", model.ErrPaymentGateway, err)
	}
	if !gr.OK {
		return fmt.Errorf("%w: %s", model.ErrPaymentGateway, gr.Message)
	}

	return nil
}
