package models

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one conversation turn. History is owned by the caller.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
