package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blues/cfp/internal/config"
	"github.com/blues/cfp/internal/model"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return Init(config.GatewayConfig{BaseURL: srv.URL, Timeout: 5}), srv
}

func TestRefundIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	var keys []string
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		var req refundRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		keys = append(keys, req.IdempotencyKey)
		if r.Header.Get("X-Request-Id") == "" {
			t.Error("缺少X-Request-Id请求头")
		}
		json.NewEncoder(w).Encode(gatewayResponse{OK: true})
	})
	defer srv.Close()

	// 同一笔退款重发两次，幂等键必须一致，网关才能去重
	if err := c.Refund(ctx, 7, 8000); err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if err := c.Refund(ctx, 7, 8000); err != nil {
		t.Fatalf("Refund重发: %v", err)
	}

	if len(keys) != 2 {
		t.Fatalf("请求次数 = %d, want 2", len(keys))
	}
	if keys[0] == "" || keys[0] != keys[1] {
		t.Errorf("幂等键 = %q / %q, want 两次一致", keys[0], keys[1])
	}
}

func TestGatewayErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("HTTP错误包装为网关错误", func(t *testing.T) {
		c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		defer srv.Close()

		if err := c.Confirm(ctx, "pay_1"); !errors.Is(err, model.ErrPaymentGateway) {
			t.Errorf("err = %v, want ErrPaymentGateway", err)
		}
	})

	t.Run("业务失败包装为网关错误", func(t *testing.T) {
		c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(gatewayResponse{OK: false, Message: "balance insufficient"})
		})
		defer srv.Close()

		if err := c.Refund(ctx, 7, 8000); !errors.Is(err, model.ErrPaymentGateway) {
			t.Errorf("err = %v, want ErrPaymentGateway", err)
		}
	})
}
