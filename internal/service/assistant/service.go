package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"freelanceos/internal/model"
	"freelanceos/internal/repository"
	"freelanceos/internal/service/auth"
	"freelanceos/pkg/llm"
	"freelanceos/pkg/logger"
	"freelanceos/pkg/metrics"
)

var (
	ErrInvalidMessage    = errors.New("invalid conversation message")
	ErrWhatsAppDisabled  = errors.New("whatsapp number is not configured")
	ErrConversationOwner = errors.New("conversation belongs to another user")
)

// historyLimit bounds how many earlier turns are replayed to the model.
const historyLimit = 20

var agentInstructions = map[string]string{
	"business_assistant": "You are a business assistant for an independent freelancer. " +
		"Help with client communication, project planning, pricing and invoicing. Be concise and practical.",
	"project_planner": "You are a project planning assistant. Break work into tasks, estimate effort and flag delivery risks.",
}

type Config struct {
	DefaultAgent   string
	WhatsAppNumber string
}

type Service struct {
	conversations repository.Store[model.Conversation]
	broker        Broker
	llm           llm.Invoker
	cfg           Config
	logger        *zap.Logger
	now           func() time.Time
}

func NewService(conversations repository.Store[model.Conversation], broker Broker, inv llm.Invoker, cfg Config, logger *zap.Logger) *Service {
	if cfg.DefaultAgent == "" {
		cfg.DefaultAgent = "business_assistant"
	}
	return &Service{
		conversations: conversations,
		broker:        broker,
		llm:           inv,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *Service) CreateConversation(ctx context.Context, agentName string, metadata map[string]any) (*model.Conversation, error) {
	if agentName == "" {
		agentName = s.cfg.DefaultAgent
	}
	conv := &model.Conversation{
		Meta:      model.Meta{CreatedBy: auth.ActorFrom(ctx).UserID},
		AgentName: agentName,
		Metadata:  metadata,
		Messages:  []model.ConversationMessage{},
	}
	return s.conversations.Create(ctx, conv)
}

// ListConversations returns the caller's conversations with agentName, newest first.
func (s *Service) ListConversations(ctx context.Context, agentName string) ([]model.Conversation, error) {
	query := map[string]any{}
	if agentName != "" {
		query["agent_name"] = agentName
	}
	all, err := s.conversations.Filter(ctx, query, "-updated_date", repository.MaxLimit)
	if err != nil {
		return nil, err
	}
	user := auth.ActorFrom(ctx).UserID
	out := make([]model.Conversation, 0, len(all))
	for _, c := range all {
		if c.CreatedBy == user {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	conv, err := s.conversations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.CreatedBy != auth.ActorFrom(ctx).UserID {
		return nil, ErrConversationOwner
	}
	return conv, nil
}

// AddMessage appends msg and, for user turns, the agent's reply. Each stored
// state is pushed to subscribers. When the model fails the user turn stays saved.
func (s *Service) AddMessage(ctx context.Context, id string, msg model.ConversationMessage) (*model.Conversation, error) {
	log := logger.WithTrace(ctx, s.logger)
	msg.Content = strings.TrimSpace(msg.Content)
	if msg.Content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidMessage)
	}
	if msg.Role == "" {
		msg.Role = model.RoleUser
	}
	if msg.Role != model.RoleUser && msg.Role != model.RoleAssistant {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidMessage, msg.Role)
	}

	conv, err := s.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	msg.CreatedAt = s.now().UTC()
	conv, err = s.appendMessages(ctx, conv, msg)
	if err != nil {
		return nil, err
	}
	if msg.Role != model.RoleUser {
		return conv, nil
	}

	resp, err := s.llm.Invoke(ctx, llm.Request{Prompt: s.prompt(conv)})
	if err != nil {
		metrics.IncrementAIAction("assistant_reply", "error")
		log.Error("Assistant reply failed", zap.String("conversation_id", id), zap.Error(err))
		return conv, fmt.Errorf("assistant reply: %w", err)
	}
	metrics.IncrementAIAction("assistant_reply", "success")

	reply := model.ConversationMessage{
		Role:      model.RoleAssistant,
		Content:   strings.TrimSpace(resp.Text),
		CreatedAt: s.now().UTC(),
	}
	return s.appendMessages(ctx, conv, reply)
}

func (s *Service) appendMessages(ctx context.Context, conv *model.Conversation, msgs ...model.ConversationMessage) (*model.Conversation, error) {
	messages := append(append([]model.ConversationMessage{}, conv.Messages...), msgs...)
	updated, err := s.conversations.Update(ctx, conv.ID, map[string]any{"messages": messages})
	if err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}
	if err := s.broker.Publish(ctx, updated); err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Failed to publish conversation update",
			zap.String("conversation_id", conv.ID), zap.Error(err))
	}
	return updated, nil
}

// Subscribe streams every stored state of the conversation until ctx ends.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan *model.Conversation, error) {
	if _, err := s.GetConversation(ctx, id); err != nil {
		return nil, err
	}
	return s.broker.Subscribe(ctx, id)
}

// WhatsAppConnectURL returns the wa.me deep link that opens a chat with the agent.
func (s *Service) WhatsAppConnectURL(agentName string) (string, error) {
	number := strings.TrimLeft(strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s.cfg.WhatsAppNumber), "0")
	if number == "" {
		return "", ErrWhatsAppDisabled
	}
	if agentName == "" {
		agentName = s.cfg.DefaultAgent
	}
	text := fmt.Sprintf("Hi! I'd like to talk to %s.", agentName)
	return "https://wa.me/" + number + "?text=" + url.QueryEscape(text), nil
}

func (s *Service) prompt(conv *model.Conversation) string {
	var b strings.Builder
	instr, ok := agentInstructions[conv.AgentName]
	if !ok {
		instr = agentInstructions["business_assistant"]
	}
	b.WriteString(instr)
	b.WriteString("\n\nConversation so far:\n")
	history := conv.Messages
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	b.WriteString("assistant:")
	return b.String()
}
