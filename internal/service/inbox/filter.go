package inbox

import (
	"strings"

	"freelanceos/internal/model"
)

// Filter narrows the inbox; empty fields match everything.
type Filter struct {
	Search      string `form:"search" json:"search,omitempty"`
	Channel     string `form:"channel" json:"channel,omitempty"`
	ClientID    string `form:"client_id" json:"client_id,omitempty"`
	Status      string `form:"status" json:"status,omitempty"`
	FlaggedOnly bool   `form:"flagged" json:"flagged_only,omitempty"`
}

// Apply keeps the messages matching f in their original order.
// Search is a case-insensitive substring match over subject, content and sender.
func (f Filter) Apply(messages []model.Message) []model.Message {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]model.Message, 0, len(messages))
	for _, m := range messages {
		if f.Channel != "" && m.Channel != f.Channel {
			continue
		}
		if f.ClientID != "" && m.ClientID != f.ClientID {
			continue
		}
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if f.FlaggedOnly && !m.IsFlagged {
			continue
		}
		if q != "" && !containsFold(q, m.Subject, m.Content, m.Sender, m.SenderEmail) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func containsFold(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// Counts is the per-status badge summary shown above the inbox.
type Counts struct {
	Unread   int `json:"unread"`
	Flagged  int `json:"flagged"`
	Replied  int `json:"replied"`
	Archived int `json:"archived"`
}

func CountMessages(messages []model.Message) Counts {
	var c Counts
	for _, m := range messages {
		switch m.Status {
		case model.MessageUnread:
			c.Unread++
		case model.MessageReplied:
			c.Replied++
		case model.MessageArchived:
			c.Archived++
		}
		if m.IsFlagged {
			c.Flagged++
		}
	}
	return c
}
