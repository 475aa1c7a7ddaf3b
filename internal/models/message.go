package models

// Role identifies the author of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is one turn of the chat history supplied by the client.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
