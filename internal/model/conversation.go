package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ConversationMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Conversation struct {
	Meta
	AgentName string                `json:"agent_name"`
	Metadata  map[string]any        `json:"metadata,omitempty"`
	Messages  []ConversationMessage `json:"messages"`
}

func (Conversation) EntityType() string { return TypeConversation }
