package payrail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid   = errors.New("payrail config invalid")
	ErrRequestFailed   = errors.New("payrail request failed")
	ErrResponseInvalid = errors.New("payrail response invalid")
	ErrTransferFailed  = errors.New("payrail transfer rejected")
)

// 转账方向常量
const (
	DirectionMoverPayout  = "mover_payout"  // 托管放款给搬家公司
	DirectionClientRefund = "client_refund" // 退款给客户
)

// Config 支付通道配置
type Config struct {
	BaseURL   string `json:"base_url"`   // 通道地址
	APIKey    string `json:"api_key"`    // API Key
	TimeoutMS int    `json:"timeout_ms"` // 请求超时（毫秒）
}

// TransferInput 转账输入
type TransferInput struct {
	Reference string          `json:"reference"` // 幂等参考号（同号重复提交不重复转账）
	Direction string          `json:"direction"` // 转账方向
	UserID    uint            `json:"user_id"`   // 收款用户ID
	Amount    decimal.Decimal `json:"amount"`    // 转账金额
	Remark    string          `json:"remark,omitempty"`
}

// TransferResult 转账结果
type TransferResult struct {
	Reference string `json:"reference"` // 回传的参考号
	TradeID   string `json:"trade_id"`  // 通道侧交易ID
	Status    string `json:"status"`    // accepted/completed
}

// Client 支付通道客户端接口
type Client interface {
	Transfer(ctx context.Context, input TransferInput) (*TransferResult, error)
}

// HTTPClient 基于 HTTP 的支付通道客户端
type HTTPClient struct {
	cfg  Config
	http *http.Client
}

// NewHTTPClient 创建 HTTP 支付通道客户端
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base_url is required", ErrConfigInvalid)
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}, nil
}

// Transfer 发起转账
func (c *HTTPClient) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	input.Reference = strings.TrimSpace(input.Reference)
	if input.Reference == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrConfigInvalid)
	}
	if input.UserID == 0 {
		return nil, fmt.Errorf("%w: user_id is required", ErrConfigInvalid)
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", ErrConfigInvalid)
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	endpoint := c.cfg.BaseURL + "/api/v1/transfer"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http status %d", ErrRequestFailed, resp.StatusCode)
	}

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	var payload struct {
		Code    int            `json:"code"`
		Message string         `json:"message"`
		Data    TransferResult `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if payload.Code != 0 {
		return nil, fmt.Errorf("%w: code=%d message=%s", ErrTransferFailed, payload.Code, payload.Message)
	}
	if strings.TrimSpace(payload.Data.Reference) == "" {
		payload.Data.Reference = input.Reference
	}
	return &payload.Data, nil
}
