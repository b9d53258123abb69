package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"freelanceos/pkg/config"
)

var (
	// ErrInvalidResponse 模型输出无法解析或不符合 schema
	ErrInvalidResponse = errors.New("invalid llm response")
	// ErrUnavailable 模型服务不可用（可重试）
	ErrUnavailable = errors.New("llm service unavailable")
)

// Request 一次模型调用
type Request struct {
	Prompt                 string         `json:"prompt"`
	AddContextFromInternet bool           `json:"add_context_from_internet,omitempty"`
	ResponseJSONSchema     map[string]any `json:"response_json_schema,omitempty"`
}

// Response 模型输出；请求带 schema 时 JSON 为结构化结果
type Response struct {
	Text string          `json:"text"`
	JSON json.RawMessage `json:"json,omitempty"`
}

// Invoker 大模型调用接口
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// New 根据配置创建 Invoker
func New(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Invoker, error) {
	switch cfg.Provider {
	case "agent":
		if cfg.AgentURL == "" {
			return nil, fmt.Errorf("llm provider agent requires agent_url")
		}
		return NewAgentClient(cfg.AgentURL, cfg.Timeout, logger), nil
	case "gemini":
		client, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "", "mock":
		logger.Warn("Using mock LLM provider")
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// InvokeJSON 调用模型并把结构化结果解码到 T
func InvokeJSON[T any](ctx context.Context, inv Invoker, req Request) (T, error) {
	var out T
	resp, err := inv.Invoke(ctx, req)
	if err != nil {
		return out, err
	}

	raw := resp.JSON
	if len(raw) == 0 {
		raw = json.RawMessage(stripCodeFence(resp.Text))
	}
	if len(raw) == 0 {
		return out, fmt.Errorf("%w: empty output", ErrInvalidResponse)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return out, nil
}

// stripCodeFence 去掉模型常见的 ```json 包裹
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
