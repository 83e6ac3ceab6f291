package domain

import "time"

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// FormSchema maps extracted form field names to their values.
type FormSchema map[string]string

// Clone returns an independent copy of the schema. A nil schema clones to nil.
func (s FormSchema) Clone() FormSchema {
	if s == nil {
		return nil
	}
	out := make(FormSchema, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ChatMessage is one entry of a form-filling conversation. Schema is only set
// on the AI message that completed the session.
type ChatMessage struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	Sender    Sender     `json:"sender"`
	Timestamp time.Time  `json:"timestamp"`
	Schema    FormSchema `json:"schema,omitempty"`
}
