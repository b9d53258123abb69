package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"freelanceos/pkg/circuitbreaker"
	"freelanceos/pkg/metrics"
	"freelanceos/pkg/trace"
)

const providerAgent = "agent"

// AgentClient 通过 HTTP 调用 agent 服务的 /invoke 接口
type AgentClient struct {
	baseURL    string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewAgentClient timeout <= 0 时使用 60s
func NewAgentClient(baseURL string, timeout time.Duration, logger *zap.Logger) *AgentClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AgentClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
			FailureThreshold:    3,
			SuccessThreshold:    2,
			Timeout:             30 * time.Second,
			HalfOpenMaxRequests: 2,
		}),
		logger: logger,
	}
}

// Invoke 调用 agent 服务，带熔断器
func (c *AgentClient) Invoke(ctx context.Context, req Request) (*Response, error) {
	var out *Response

	err := c.cb.Execute(func() error {
		start := time.Now()
		resp, status, err := c.do(ctx, req)
		metrics.RecordLLMCallLatency(providerAgent, status, time.Since(start))
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
			c.logger.Warn("Agent circuit breaker open, skipping call")
		}
		return nil, err
	}
	return out, nil
}

func (c *AgentClient) do(ctx context.Context, req Request) (*Response, string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, "error", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/invoke", bytes.NewReader(body))
	if err != nil {
		return nil, "error", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if traceID := trace.FromContext(ctx); traceID != "" {
		httpReq.Header.Set(trace.HeaderName(), traceID)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "error", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, "5xx", fmt.Errorf("%w: agent returned %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, strconv.Itoa(resp.StatusCode), fmt.Errorf("agent service error: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "error", err
	}
	out, err := decodeAgentBody(raw)
	if err != nil {
		return nil, "invalid", err
	}
	return out, "success", nil
}

// decodeAgentBody agent 返回 JSON 字符串（自由文本）或 JSON 对象（结构化输出）
func decodeAgentBody(raw []byte) (*Response, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidResponse)
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		return &Response{Text: text}, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: body is not json", ErrInvalidResponse)
	}
	return &Response{Text: string(raw), JSON: json.RawMessage(raw)}, nil
}
