package model

import (
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// NormalizeRole maps any role other than "user" to RoleModel.
func NormalizeRole(role string) Role {
	if role == string(RoleUser) {
		return RoleUser
	}
	return RoleModel
}

// UnmarshalJSON accepts any JSON value. Only the string "user" decodes to
// RoleUser; everything else, including non-string values, is RoleModel.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*r = RoleModel
		return nil
	}
	*r = NormalizeRole(s)
	return nil
}

// Message is a single chat turn. Treat it as immutable once built.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func NewMessage(role, content string) Message {
	return Message{
		Role:    NormalizeRole(role),
		Content: content,
	}
}

// Conversation is a chronological history followed by exactly one pending
// user query.
type Conversation struct {
	History []Message
	Query   Message
}

// NewConversation builds a Conversation from an optional history and a
// required query. Unknown history roles are collapsed to RoleModel.
func NewConversation(history []Message, query string) (*Conversation, error) {
	if strings.TrimSpace(query) == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "query is empty")
	}

	normalized := make([]Message, 0, len(history))
	for _, msg := range history {
		normalized = append(normalized, NewMessage(string(msg.Role), msg.Content))
	}

	return &Conversation{
		History: normalized,
		Query:   Message{Role: RoleUser, Content: query},
	}, nil
}

// Messages returns the history followed by the pending query.
func (c *Conversation) Messages() []Message {
	msgs := make([]Message, 0, len(c.History)+1)
	msgs = append(msgs, c.History...)
	return append(msgs, c.Query)
}
