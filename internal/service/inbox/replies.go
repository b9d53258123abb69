package inbox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"freelanceos/internal/model"
	"freelanceos/internal/repository"
	"freelanceos/pkg/llm"
	"freelanceos/pkg/logger"
	"freelanceos/pkg/metrics"
)

const (
	ModeSuggestions = "suggestions"
	ModeFreeform    = "freeform"
)

// ReplyTones are the three tones a suggestions run must return.
var ReplyTones = []string{"professional", "friendly", "concise"}

var (
	sentiments = []string{"positive", "neutral", "negative"}
	urgencies  = []string{"low", "medium", "high", "urgent"}
)

var ErrInvalidMode = errors.New("invalid reply mode")

type ReplyOptions struct {
	Mode           string `json:"mode"`
	Tone           string `json:"tone,omitempty"`
	Instructions   string `json:"instructions,omitempty"`
	IncludeClient  bool   `json:"include_client"`
	IncludeProject bool   `json:"include_project"`
}

type ReplySuggestion struct {
	Tone    string `json:"tone"`
	Content string `json:"content"`
}

// ReplyResult carries Replies in suggestions mode and Text in freeform mode.
type ReplyResult struct {
	Mode    string            `json:"mode"`
	Replies []ReplySuggestion `json:"replies,omitempty"`
	Text    string            `json:"text,omitempty"`
}

var repliesSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"replies": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"tone":    map[string]any{"type": "string", "enum": ReplyTones},
					"content": map[string]any{"type": "string"},
				},
				"required": []string{"tone", "content"},
			},
		},
	},
	"required": []string{"replies"},
}

var analysisSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"sentiment":        map[string]any{"type": "string", "enum": sentiments},
		"urgency":          map[string]any{"type": "string", "enum": urgencies},
		"summary":          map[string]any{"type": "string"},
		"suggested_action": map[string]any{"type": "string"},
		"key_topics":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
	"required": []string{"sentiment", "urgency", "summary", "suggested_action", "key_topics"},
}

// SuggestReplies drafts replies to one message, optionally with client and project context.
func (s *Service) SuggestReplies(ctx context.Context, id string, opts ReplyOptions) (*ReplyResult, error) {
	log := logger.WithTrace(ctx, s.logger)
	if opts.Mode == "" {
		opts.Mode = ModeSuggestions
	}
	if opts.Mode != ModeSuggestions && opts.Mode != ModeFreeform {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, opts.Mode)
	}

	m, err := s.messages.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	prompt := s.replyPrompt(ctx, m, opts)

	if opts.Mode == ModeFreeform {
		resp, err := s.llm.Invoke(ctx, llm.Request{Prompt: prompt})
		if err != nil {
			metrics.IncrementAIAction("reply_freeform", "error")
			log.Error("Reply generation failed", zap.String("message_id", id), zap.Error(err))
			return nil, fmt.Errorf("generate reply: %w", err)
		}
		metrics.IncrementAIAction("reply_freeform", "success")
		return &ReplyResult{Mode: ModeFreeform, Text: strings.TrimSpace(resp.Text)}, nil
	}

	out, err := llm.InvokeJSON[struct {
		Replies []ReplySuggestion `json:"replies"`
	}](ctx, s.llm, llm.Request{Prompt: prompt, ResponseJSONSchema: repliesSchema})
	if err == nil {
		out.Replies, err = orderReplies(out.Replies)
	}
	if err != nil {
		metrics.IncrementAIAction("reply_suggestions", "error")
		log.Error("Reply suggestions failed", zap.String("message_id", id), zap.Error(err))
		return nil, fmt.Errorf("suggest replies: %w", err)
	}
	metrics.IncrementAIAction("reply_suggestions", "success")
	return &ReplyResult{Mode: ModeSuggestions, Replies: out.Replies}, nil
}

// orderReplies returns one non-empty reply per tone in ReplyTones order.
func orderReplies(in []ReplySuggestion) ([]ReplySuggestion, error) {
	byTone := make(map[string]ReplySuggestion, len(in))
	for _, r := range in {
		tone := strings.ToLower(strings.TrimSpace(r.Tone))
		if _, dup := byTone[tone]; dup || strings.TrimSpace(r.Content) == "" {
			continue
		}
		byTone[tone] = ReplySuggestion{Tone: tone, Content: strings.TrimSpace(r.Content)}
	}
	out := make([]ReplySuggestion, 0, len(ReplyTones))
	var missing []string
	for _, tone := range ReplyTones {
		r, ok := byTone[tone]
		if !ok {
			missing = append(missing, tone)
			continue
		}
		out = append(out, r)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing tones %s", llm.ErrInvalidResponse, strings.Join(missing, ", "))
	}
	return out, nil
}

func (s *Service) replyPrompt(ctx context.Context, m *model.Message, opts ReplyOptions) string {
	var b strings.Builder
	b.WriteString("You are a freelancer replying to a client message.\n\n")
	fmt.Fprintf(&b, "Channel: %s\n", m.Channel)
	if m.Sender != "" {
		fmt.Fprintf(&b, "From: %s\n", m.Sender)
	}
	if m.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", m.Subject)
	}
	fmt.Fprintf(&b, "Message:\n%s\n", m.Content)

	if opts.IncludeClient && m.ClientID != "" {
		if c, err := s.clients.Get(ctx, m.ClientID); err == nil {
			fmt.Fprintf(&b, "\nClient: %s", c.CompanyName)
			if c.ContactName != "" {
				fmt.Fprintf(&b, " (contact %s)", c.ContactName)
			}
			if c.Industry != "" {
				fmt.Fprintf(&b, ", industry %s", c.Industry)
			}
			if p := c.CommunicationPreferences.PreferredChannel; p != "" {
				fmt.Fprintf(&b, ", prefers %s", p)
			}
			b.WriteString("\n")
		} else if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("Failed to load client context", zap.String("client_id", m.ClientID), zap.Error(err))
		}
	}
	if opts.IncludeProject && m.ProjectID != "" {
		if p, err := s.projects.Get(ctx, m.ProjectID); err == nil {
			fmt.Fprintf(&b, "Project: %s, status %s, progress %.0f%%", p.Title, p.Status, p.Progress)
			if p.Deadline != "" {
				fmt.Fprintf(&b, ", deadline %s", p.Deadline)
			}
			b.WriteString("\n")
		} else if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("Failed to load project context", zap.String("project_id", m.ProjectID), zap.Error(err))
		}
	}
	if opts.Instructions != "" {
		fmt.Fprintf(&b, "\nExtra instructions: %s\n", opts.Instructions)
	}

	if opts.Mode == ModeFreeform {
		tone := opts.Tone
		if tone == "" {
			tone = "professional"
		}
		fmt.Fprintf(&b, "\nWrite one %s reply. Return only the reply text.", tone)
		return b.String()
	}
	b.WriteString("\nWrite three replies with the tones professional, friendly and concise.")
	return b.String()
}

func analysisPrompt(m *model.Message) string {
	var b strings.Builder
	b.WriteString("Analyse this client message for a freelancer's inbox.\n\n")
	if m.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", m.Subject)
	}
	fmt.Fprintf(&b, "Channel: %s\nMessage:\n%s\n\n", m.Channel, m.Content)
	b.WriteString("Return sentiment (positive, neutral, negative), urgency (low, medium, high, urgent), " +
		"a one-sentence summary, a suggested_action and key_topics.")
	return b.String()
}
