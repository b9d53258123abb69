package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// Mock 按顺序返回预设响应；队列耗尽后回退到 Fallback
type Mock struct {
	mu       sync.Mutex
	queue    []mockReply
	calls    []Request
	Fallback func(req Request) (*Response, error)
}

type mockReply struct {
	resp *Response
	err  error
}

// NewMock 默认回退：无 schema 时回显提示词，有 schema 时返回空对象
func NewMock() *Mock {
	return &Mock{
		Fallback: func(req Request) (*Response, error) {
			if len(req.ResponseJSONSchema) > 0 {
				return &Response{Text: "{}", JSON: json.RawMessage(`{}`)}, nil
			}
			return &Response{Text: "mock reply: " + req.Prompt}, nil
		},
	}
}

// PushJSON 追加一个结构化响应
func (m *Mock) PushJSON(v any) *Mock {
	raw, err := json.Marshal(v)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.queue = append(m.queue, mockReply{err: err})
		return m
	}
	m.queue = append(m.queue, mockReply{resp: &Response{Text: string(raw), JSON: raw}})
	return m
}

// PushText 追加一个文本响应
func (m *Mock) PushText(text string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockReply{resp: &Response{Text: text}})
	return m
}

// PushError 追加一个错误
func (m *Mock) PushError(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockReply{err: err})
	return m
}

// Calls 返回已收到的请求
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

func (m *Mock) Invoke(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	if len(m.queue) > 0 {
		r := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		return r.resp, r.err
	}
	fallback := m.Fallback
	m.mu.Unlock()

	if fallback == nil {
		return &Response{}, nil
	}
	return fallback(req)
}
