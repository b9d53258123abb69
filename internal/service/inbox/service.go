package inbox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"freelanceos/internal/model"
	"freelanceos/internal/repository"
	"freelanceos/internal/service/auth"
	"freelanceos/pkg/llm"
	"freelanceos/pkg/logger"
	"freelanceos/pkg/metrics"
)

var ErrEmptyReply = errors.New("reply content is required")

type Service struct {
	messages repository.Store[model.Message]
	clients  repository.Store[model.Client]
	projects repository.Store[model.Project]
	llm      llm.Invoker
	logger   *zap.Logger
}

func NewService(messages repository.Store[model.Message], clients repository.Store[model.Client], projects repository.Store[model.Project], inv llm.Invoker, logger *zap.Logger) *Service {
	return &Service{messages: messages, clients: clients, projects: projects, llm: inv, logger: logger}
}

// Load returns the caller's messages, newest first, narrowed by f.
func (s *Service) Load(ctx context.Context, f Filter) ([]model.Message, Counts, error) {
	query := map[string]any{}
	if actor := auth.ActorFrom(ctx); actor.IsClient() {
		query["client_id"] = actor.ClientID
	} else if f.ClientID != "" {
		query["client_id"] = f.ClientID
	}
	if f.Channel != "" {
		query["channel"] = f.Channel
	}
	all, err := s.messages.Filter(ctx, query, "-created_date", repository.MaxLimit)
	if err != nil {
		return nil, Counts{}, fmt.Errorf("load messages: %w", err)
	}
	return f.Apply(all), CountMessages(all), nil
}

// Flag toggles is_flagged.
func (s *Service) Flag(ctx context.Context, id string) (*model.Message, error) {
	m, err := s.messages.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.messages.Update(ctx, id, map[string]any{"is_flagged": !m.IsFlagged})
}

func (s *Service) Archive(ctx context.Context, id string) (*model.Message, error) {
	return s.messages.Update(ctx, id, map[string]any{"status": model.MessageArchived})
}

func (s *Service) MarkRead(ctx context.Context, id string) (*model.Message, error) {
	return s.messages.Update(ctx, id, map[string]any{"status": model.MessageRead})
}

// Reply stores an outgoing message in the original's thread and marks the original replied.
func (s *Service) Reply(ctx context.Context, id, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyReply
	}
	orig, err := s.messages.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	thread := orig.ThreadID
	if thread == "" {
		thread = orig.ID
	}
	subject := orig.Subject
	if subject != "" && !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}
	recipient := orig.SenderEmail
	if recipient == "" {
		recipient = orig.Sender
	}
	actor := auth.ActorFrom(ctx)
	reply := &model.Message{
		Meta:      model.Meta{CreatedBy: actor.UserID},
		Channel:   orig.Channel,
		ClientID:  orig.ClientID,
		ProjectID: orig.ProjectID,
		Sender:    actor.UserID,
		Recipient: recipient,
		Subject:   subject,
		Content:   content,
		Status:    model.MessageRead,
		ThreadID:  thread,
		ReplyToID: orig.ID,
	}
	created, err := s.messages.Create(ctx, reply)
	if err != nil {
		return nil, fmt.Errorf("create reply: %w", err)
	}
	if _, err := s.messages.Update(ctx, orig.ID, map[string]any{"status": model.MessageReplied}); err != nil {
		// Undo the reply so the thread never shows an answer to an unanswered message.
		if derr := s.messages.Delete(ctx, created.ID); derr != nil {
			logger.WithTrace(ctx, s.logger).Error("Failed to roll back reply",
				zap.String("message_id", orig.ID),
				zap.String("reply_id", created.ID),
				zap.Error(derr),
			)
		}
		return nil, fmt.Errorf("mark replied: %w", err)
	}
	return created, nil
}

// AnalyzeMessage stores the model's reading of an inbound message in ai_analysis.
// Messages that already carry an analysis are left alone.
func (s *Service) AnalyzeMessage(ctx context.Context, id string) (*model.Message, error) {
	log := logger.WithTrace(ctx, s.logger)
	m, err := s.messages.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.AIAnalysis != nil {
		log.Info("Message already analysed", zap.String("message_id", id))
		return m, nil
	}

	analysis, err := llm.InvokeJSON[model.MessageAnalysis](ctx, s.llm, llm.Request{
		Prompt:             analysisPrompt(m),
		ResponseJSONSchema: analysisSchema,
	})
	if err == nil {
		err = normalizeAnalysis(&analysis)
	}
	if err != nil {
		metrics.IncrementAIAction("analyze_message", "error")
		return nil, fmt.Errorf("analyze message %s: %w", id, err)
	}
	metrics.IncrementAIAction("analyze_message", "success")

	updated, err := s.messages.Update(ctx, id, map[string]any{"ai_analysis": analysis})
	if err != nil {
		return nil, err
	}
	log.Info("Message analysed",
		zap.String("message_id", id),
		zap.String("sentiment", analysis.Sentiment),
		zap.String("urgency", analysis.Urgency),
	)
	return updated, nil
}

func normalizeAnalysis(a *model.MessageAnalysis) error {
	a.Sentiment = strings.ToLower(strings.TrimSpace(a.Sentiment))
	a.Urgency = strings.ToLower(strings.TrimSpace(a.Urgency))
	if !oneOf(a.Sentiment, sentiments) {
		return fmt.Errorf("%w: sentiment %q", llm.ErrInvalidResponse, a.Sentiment)
	}
	if !oneOf(a.Urgency, urgencies) {
		return fmt.Errorf("%w: urgency %q", llm.ErrInvalidResponse, a.Urgency)
	}
	if a.KeyTopics == nil {
		a.KeyTopics = []string{}
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
