package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrConfigInvalid   = errors.New("advisory config invalid")
	ErrRequestFailed   = errors.New("advisory request failed")
	ErrResponseInvalid = errors.New("advisory response invalid")
)

// Config 风控分析服务配置
type Config struct {
	BaseURL   string `json:"base_url"`   // 服务地址，如 https://advisory.example.com
	APIKey    string `json:"api_key"`    // API Key
	TimeoutMS int    `json:"timeout_ms"` // 请求超时（毫秒）
}

// AnalyzeInput 分析请求输入
type AnalyzeInput struct {
	PhotoRefs   []string `json:"photo_refs"`            // 照片存储引用
	Description string   `json:"description,omitempty"` // 事件描述
	Context     string   `json:"context,omitempty"`     // 分析场景（damage/release）
}

// Result 分析结果
// 结果仅供管理员裁决参考，永远不直接驱动资金动作。
type Result struct {
	RiskLevel           string   `json:"riskLevel"`           // low/medium/high/unknown
	Severity            string   `json:"severity"`            // none/minor/moderate/severe/unknown
	HasClientSignature  bool     `json:"hasClientSignature"`  // 是否检测到客户签名
	HasNegativeComments bool     `json:"hasNegativeComments"` // 是否检测到负面备注
	DetectedIssues      []string `json:"detectedIssues"`      // 检测到的问题
	Recommendations     []string `json:"recommendations"`     // 处理建议
	Summary             string   `json:"summary"`             // 摘要
	Degraded            bool     `json:"degraded"`            // 服务不可用时的降级标记
}

// Client 风控分析客户端接口
type Client interface {
	Analyze(ctx context.Context, input AnalyzeInput) (*Result, error)
}

// HTTPClient 基于 HTTP 的风控分析客户端
type HTTPClient struct {
	cfg  Config
	http *http.Client
}

// NewHTTPClient 创建 HTTP 风控分析客户端
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base_url is required", ErrConfigInvalid)
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}, nil
}

// Analyze 请求风控分析
func (c *HTTPClient) Analyze(ctx context.Context, input AnalyzeInput) (*Result, error) {
	if len(input.PhotoRefs) == 0 && strings.TrimSpace(input.Description) == "" {
		return nil, fmt.Errorf("%w: empty input", ErrConfigInvalid)
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	endpoint := c.cfg.BaseURL + "/api/v1/analyze"
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

	var result Result
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	normalizeResult(&result)
	return &result, nil
}

// DegradedResult 服务不可用时的降级结果，所有判定标记为 unknown。
func DegradedResult(reason string) *Result {
	summary := "analysis unavailable"
	if strings.TrimSpace(reason) != "" {
		summary = "analysis unavailable: " + strings.TrimSpace(reason)
	}
	return &Result{
		RiskLevel:       RiskUnknown,
		Severity:        SeverityUnknown,
		DetectedIssues:  []string{},
		Recommendations: []string{"manual review required"},
		Summary:         summary,
		Degraded:        true,
	}
}

// 风险等级常量
const (
	RiskLow     = "low"
	RiskMedium  = "medium"
	RiskHigh    = "high"
	RiskUnknown = "unknown"
)

// 严重程度常量（从轻到重）
const (
	SeverityNone     = "none"
	SeverityMinor    = "minor"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
	SeverityUnknown  = "unknown"
)

var severityRanks = map[string]int{
	SeverityNone:     0,
	SeverityMinor:    1,
	SeverityModerate: 2,
	SeveritySevere:   3,
}

// SeverityRank 返回严重程度排序值，unknown 与非法值返回 -1。
func SeverityRank(severity string) int {
	rank, ok := severityRanks[strings.ToLower(strings.TrimSpace(severity))]
	if !ok {
		return -1
	}
	return rank
}

// MaxSeverity 返回两个严重程度中较重的一个，任一为 unknown 时返回 unknown。
func MaxSeverity(a, b string) string {
	rankA := SeverityRank(a)
	rankB := SeverityRank(b)
	if rankA < 0 || rankB < 0 {
		return SeverityUnknown
	}
	if rankA >= rankB {
		return strings.ToLower(strings.TrimSpace(a))
	}
	return strings.ToLower(strings.TrimSpace(b))
}

func normalizeResult(result *Result) {
	if result == nil {
		return
	}
	result.RiskLevel = strings.ToLower(strings.TrimSpace(result.RiskLevel))
	switch result.RiskLevel {
	case RiskLow, RiskMedium, RiskHigh:
	default:
		result.RiskLevel = RiskUnknown
	}
	result.Severity = strings.ToLower(strings.TrimSpace(result.Severity))
	if SeverityRank(result.Severity) < 0 {
		result.Severity = SeverityUnknown
	}
	if result.DetectedIssues == nil {
		result.DetectedIssues = []string{}
	}
	if result.Recommendations == nil {
		result.Recommendations = []string{}
	}
}
