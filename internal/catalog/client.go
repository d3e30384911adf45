package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/blues/cfp/internal/config"
)

// ProductCatalog 商品目录接口，项目成功结算后创建在售商品
type ProductCatalog interface {
	CreateProduct(ctx context.Context, snapshot ProjectSnapshot) (int64, error)
}

// ProjectSnapshot 项目快照，结算时生成商品的依据
type ProjectSnapshot struct {
	ProjectId   int64            `json:"project_id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	ImageURL    string           `json:"image_url"`
	CreatorId   int64            `json:"creator_id"`
	Rewards     []RewardSnapshot `json:"rewards"`
}

// RewardSnapshot 回报档位快照，作为商品的SKU
type RewardSnapshot struct {
	RewardId    int64  `json:"reward_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Quantity    int64  `json:"quantity"`
}

// Client 商品目录HTTP客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Init 初始化商品目录客户端
func Init(cfg config.CatalogConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

type createProductResponse struct {
	ProductId int64  `json:"product_id"`
	Message   string `json:"message"`
}

// CreateProduct 根据项目快照创建商品
func (c *Client) CreateProduct(ctx context.Context, snapshot ProjectSnapshot) (int64, error) {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return 0, fmt.Errorf("marshal snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/products", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("create product: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("create product: unexpected status %d", resp.StatusCode)
	}

	var cr createProductResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if cr.ProductId == 0 {
		return 0, fmt.Errorf("create product: empty product id in response")
	}

	return cr.ProductId, nil
}
