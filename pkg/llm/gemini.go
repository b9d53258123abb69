package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/genai"

	"freelanceos/pkg/metrics"
)

const providerGemini = "gemini"

// GeminiClient 基于 Gemini API 的 Invoker
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiClient 创建 Gemini 客户端
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini provider requires an api key")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiClient{client: client, modelName: model}, nil
}

// Invoke 有 schema 时使用 JSON 模式；需要联网上下文时启用 Google Search 工具
func (g *GeminiClient) Invoke(ctx context.Context, req Request) (*Response, error) {
	cfg := &genai.GenerateContentConfig{}
	structured := len(req.ResponseJSONSchema) > 0
	if structured {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseJsonSchema = req.ResponseJSONSchema
	}
	if req.AddContextFromInternet {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}

	start := time.Now()
	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		metrics.RecordLLMCallLatency(providerGemini, "error", time.Since(start))
		return nil, fmt.Errorf("%w: gemini generate content: %v", ErrUnavailable, err)
	}

	text := res.Text()
	if text == "" {
		metrics.RecordLLMCallLatency(providerGemini, "empty", time.Since(start))
		return nil, fmt.Errorf("%w: gemini returned empty text", ErrInvalidResponse)
	}
	metrics.RecordLLMCallLatency(providerGemini, "success", time.Since(start))

	out := &Response{Text: text}
	if structured {
		clean := stripCodeFence(text)
		if !json.Valid([]byte(clean)) {
			return nil, fmt.Errorf("%w: gemini output is not json", ErrInvalidResponse)
		}
		out.JSON = json.RawMessage(clean)
	}
	return out, nil
}
