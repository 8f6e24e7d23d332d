package types

type MessageUserRole string

const (
	USER_ROLE_SYSTEM    MessageUserRole = "system"
	USER_ROLE_USER      MessageUserRole = "user"
	USER_ROLE_ASSISTANT MessageUserRole = "assistant"
)

func (r MessageUserRole) String() string {
	return string(r)
}

type MessageContext struct {
	Role    MessageUserRole `json:"role"`
	Content string          `json:"content"`
}
