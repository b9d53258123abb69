package model

import "fmt"

const (
	ChannelEmail    = "email"
	ChannelSlack    = "slack"
	ChannelWhatsApp = "whatsapp"
	ChannelSMS      = "sms"
	ChannelPortal   = "portal"
	ChannelInternal = "internal"
)

var MessageChannels = []string{ChannelEmail, ChannelSlack, ChannelWhatsApp, ChannelSMS, ChannelPortal, ChannelInternal}

const (
	MessageUnread   = "unread"
	MessageRead     = "read"
	MessageReplied  = "replied"
	MessageArchived = "archived"
)

type MessageAnalysis struct {
	Sentiment       string   `json:"sentiment"`
	Urgency         string   `json:"urgency"`
	Summary         string   `json:"summary"`
	SuggestedAction string   `json:"suggested_action"`
	KeyTopics       []string `json:"key_topics"`
}

type Message struct {
	Meta
	Channel     string           `json:"channel"`
	ClientID    string           `json:"client_id,omitempty"`
	ProjectID   string           `json:"project_id,omitempty"`
	Sender      string           `json:"sender,omitempty"`
	SenderEmail string           `json:"sender_email,omitempty"`
	Recipient   string           `json:"recipient,omitempty"`
	Subject     string           `json:"subject,omitempty"`
	Content     string           `json:"content"`
	Status      string           `json:"status"`
	Priority    string           `json:"priority,omitempty"`
	IsFlagged   bool             `json:"is_flagged"`
	ThreadID    string           `json:"thread_id,omitempty"`
	ReplyToID   string           `json:"reply_to_id,omitempty"`
	AIAnalysis  *MessageAnalysis `json:"ai_analysis,omitempty"`
	Attachments []string         `json:"attachments,omitempty"`
}

func (Message) EntityType() string { return TypeMessage }

func ValidMessageStatus(s string) bool { return oneOf(s, MessageUnread, MessageRead, MessageReplied, MessageArchived) }
func ValidChannel(s string) bool       { return oneOf(s, MessageChannels...) }

func (m *Message) Validate() error {
	if m.Content == "" {
		return fmt.Errorf("content is required")
	}
	if !ValidChannel(m.Channel) {
		return fmt.Errorf("invalid channel %q", m.Channel)
	}
	if !ValidMessageStatus(m.Status) {
		return fmt.Errorf("invalid message status %q", m.Status)
	}
	return nil
}
