package inbox

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"freelanceos/internal/model"
	"freelanceos/internal/repository"
	"freelanceos/internal/service/auth"
	"freelanceos/pkg/llm"
)

func newService() (*Service, *repository.MemoryStores, *llm.Mock) {
	stores := repository.NewMemoryStores()
	mock := llm.NewMock()
	return NewService(stores.Messages, stores.Clients, stores.Projects, mock, zap.NewNop()), stores, mock
}

func TestFilterApply(t *testing.T) {
	msgs := []model.Message{
		{Meta: model.Meta{ID: "1"}, Channel: model.ChannelEmail, ClientID: "c1", Subject: "Invoice question", Content: "hi", Status: model.MessageUnread},
		{Meta: model.Meta{ID: "2"}, Channel: model.ChannelSlack, ClientID: "c2", Content: "Logo FEEDBACK", Status: model.MessageRead, IsFlagged: true},
		{Meta: model.Meta{ID: "3"}, Channel: model.ChannelEmail, ClientID: "c2", Sender: "Dana", Content: "ok", Status: model.MessageArchived},
	}
	cases := []struct {
		name string
		f    Filter
		want string
	}{
		{"all", Filter{}, "123"},
		{"search subject", Filter{Search: "INVOICE"}, "1"},
		{"search content", Filter{Search: "feedback"}, "2"},
		{"search sender", Filter{Search: "dan"}, "3"},
		{"channel and client", Filter{Channel: model.ChannelEmail, ClientID: "c2"}, "3"},
		{"flagged", Filter{FlaggedOnly: true}, "2"},
		{"status", Filter{Status: model.MessageUnread}, "1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got strings.Builder
			for _, m := range tc.f.Apply(msgs) {
				got.WriteString(m.ID)
			}
			if got.String() != tc.want {
				t.Errorf("got %q, want %q", got.String(), tc.want)
			}
		})
	}

	c := CountMessages(msgs)
	if c.Unread != 1 || c.Flagged != 1 || c.Archived != 1 || c.Replied != 0 {
		t.Errorf("unexpected counts %+v", c)
	}
}

func TestActionsAreSingleUpdates(t *testing.T) {
	svc, stores, _ := newService()
	ctx := context.Background()
	m := stores.Messages.Seed(model.Message{Channel: model.ChannelEmail, Content: "x", Status: model.MessageUnread})[0]

	got, err := svc.Flag(ctx, m.ID)
	if err != nil || !got.IsFlagged {
		t.Fatalf("Flag: %+v %v", got, err)
	}
	if got, _ = svc.Flag(ctx, m.ID); got.IsFlagged {
		t.Error("second Flag should unflag")
	}
	if got, _ = svc.MarkRead(ctx, m.ID); got.Status != model.MessageRead {
		t.Errorf("MarkRead status %q", got.Status)
	}
	if got, _ = svc.Archive(ctx, m.ID); got.Status != model.MessageArchived {
		t.Errorf("Archive status %q", got.Status)
	}
	if n := stores.Messages.Calls("update"); n != 4 {
		t.Errorf("expected 4 updates, got %d", n)
	}
}

func TestReplyThreadsAndMarksReplied(t *testing.T) {
	svc, stores, _ := newService()
	ctx := auth.WithActor(context.Background(), auth.Actor{UserID: "me", Role: "admin"})
	orig := stores.Messages.Seed(model.Message{
		Channel: model.ChannelEmail, ClientID: "c1", SenderEmail: "dana@example.com",
		Subject: "Kickoff", Content: "When can we start?", Status: model.MessageUnread, ThreadID: "t-1",
	})[0]

	reply, err := svc.Reply(ctx, orig.ID, "  Monday works.  ")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if reply.ReplyToID != orig.ID || reply.ThreadID != "t-1" || reply.Subject != "Re: Kickoff" {
		t.Errorf("unexpected reply threading: %+v", reply)
	}
	if reply.Recipient != "dana@example.com" || reply.Content != "Monday works." || reply.ClientID != "c1" {
		t.Errorf("unexpected reply fields: %+v", reply)
	}
	updated, _ := stores.Messages.Get(ctx, orig.ID)
	if updated.Status != model.MessageReplied {
		t.Errorf("original should be replied, got %q", updated.Status)
	}

	if _, err := svc.Reply(ctx, orig.ID, "   "); !errors.Is(err, ErrEmptyReply) {
		t.Errorf("expected ErrEmptyReply, got %v", err)
	}
}

func TestReplyRolledBackWhenOriginalCannotBeMarked(t *testing.T) {
	svc, stores, _ := newService()
	ctx := auth.WithActor(context.Background(), auth.Actor{UserID: "me", Role: "admin"})
	orig := stores.Messages.Seed(model.Message{Channel: model.ChannelEmail, Content: "Ping", Status: model.MessageUnread})[0]
	stores.Messages.FailUpdate = func(id string, _ map[string]any) error {
		return errors.New("connection reset")
	}

	if _, err := svc.Reply(ctx, orig.ID, "Pong"); err == nil {
		t.Fatal("expected error when the original cannot be marked replied")
	}
	left, _ := stores.Messages.Filter(ctx, map[string]any{"reply_to_id": orig.ID}, "", 0)
	if len(left) != 0 {
		t.Errorf("expected the reply to be rolled back, found %+v", left)
	}
	if n := stores.Messages.Calls("delete"); n != 1 {
		t.Errorf("expected one compensating delete, got %d", n)
	}
}

func TestSuggestRepliesOrdersTones(t *testing.T) {
	svc, stores, mock := newService()
	ctx := context.Background()
	client := stores.Clients.Seed(model.Client{CompanyName: "Acme", ContactName: "Dana"})[0]
	m := stores.Messages.Seed(model.Message{Channel: model.ChannelEmail, ClientID: client.ID, Content: "Status?", Status: model.MessageUnread})[0]

	mock.PushJSON(map[string]any{"replies": []map[string]any{
		{"tone": "Concise", "content": "On track."},
		{"tone": "professional", "content": "We are on schedule."},
		{"tone": "friendly", "content": "All good here!"},
	}})
	res, err := svc.SuggestReplies(ctx, m.ID, ReplyOptions{Mode: ModeSuggestions, IncludeClient: true})
	if err != nil {
		t.Fatalf("SuggestReplies: %v", err)
	}
	if len(res.Replies) != 3 || res.Replies[0].Tone != "professional" || res.Replies[2].Tone != "concise" {
		t.Fatalf("unexpected replies: %+v", res.Replies)
	}
	if prompt := mock.Calls()[0].Prompt; !strings.Contains(prompt, "Acme") {
		t.Errorf("client context missing from prompt: %s", prompt)
	}
}

func TestSuggestRepliesMissingTone(t *testing.T) {
	svc, stores, mock := newService()
	m := stores.Messages.Seed(model.Message{Channel: model.ChannelEmail, Content: "x", Status: model.MessageUnread})[0]

	mock.PushJSON(map[string]any{"replies": []map[string]any{
		{"tone": "professional", "content": "a"},
		{"tone": "friendly", "content": "b"},
	}})
	_, err := svc.SuggestReplies(context.Background(), m.ID, ReplyOptions{})
	if !errors.Is(err, llm.ErrInvalidResponse) || !strings.Contains(err.Error(), "concise") {
		t.Fatalf("expected missing concise tone, got %v", err)
	}
}

func TestSuggestRepliesFreeform(t *testing.T) {
	svc, stores, mock := newService()
	m := stores.Messages.Seed(model.Message{Channel: model.ChannelSlack, Content: "x", Status: model.MessageUnread})[0]

	mock.PushText("  Thanks, will do.\n")
	res, err := svc.SuggestReplies(context.Background(), m.ID, ReplyOptions{Mode: ModeFreeform, Tone: "friendly"})
	if err != nil {
		t.Fatalf("SuggestReplies: %v", err)
	}
	if res.Text != "Thanks, will do." || res.Replies != nil {
		t.Errorf("unexpected freeform result: %+v", res)
	}
	if call := mock.Calls()[0]; call.ResponseJSONSchema != nil || !strings.Contains(call.Prompt, "friendly") {
		t.Errorf("unexpected freeform request: %+v", call)
	}

	if _, err := svc.SuggestReplies(context.Background(), m.ID, ReplyOptions{Mode: "poem"}); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("expected ErrInvalidMode, got %v", err)
	}
}

func TestAnalyzeMessage(t *testing.T) {
	svc, stores, mock := newService()
	ctx := context.Background()
	m := stores.Messages.Seed(model.Message{Channel: model.ChannelEmail, Content: "Urgent: site down", Status: model.MessageUnread})[0]

	mock.PushJSON(map[string]any{
		"sentiment": "Negative", "urgency": "urgent", "summary": "Site is down",
		"suggested_action": "Call the client", "key_topics": []string{"outage"},
	})
	got, err := svc.AnalyzeMessage(ctx, m.ID)
	if err != nil {
		t.Fatalf("AnalyzeMessage: %v", err)
	}
	if got.AIAnalysis == nil || got.AIAnalysis.Sentiment != "negative" || got.AIAnalysis.Urgency != "urgent" {
		t.Fatalf("unexpected analysis: %+v", got.AIAnalysis)
	}

	if _, err := svc.AnalyzeMessage(ctx, m.ID); err != nil {
		t.Fatalf("second AnalyzeMessage: %v", err)
	}
	if len(mock.Calls()) != 1 {
		t.Errorf("already analysed message must not call the model again")
	}
}

func TestAnalyzeMessageInvalidResponse(t *testing.T) {
	svc, stores, mock := newService()
	m := stores.Messages.Seed(model.Message{Channel: model.ChannelEmail, Content: "x", Status: model.MessageUnread})[0]

	mock.PushJSON(map[string]any{"sentiment": "furious", "urgency": "high"})
	if _, err := svc.AnalyzeMessage(context.Background(), m.ID); !errors.Is(err, llm.ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
	if stores.Messages.Calls("update") != 0 {
		t.Error("message must be unchanged")
	}
}
