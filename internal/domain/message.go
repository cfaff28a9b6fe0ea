package domain

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation. The full history is resent by the
// caller on every request; nothing is persisted server-side.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ValidRole reports whether r is one of the known message roles.
func ValidRole(r string) bool {
	return r == RoleSystem || r == RoleUser || r == RoleAssistant
}

// LastUserIndex returns the index of the last user-role message, or -1.
func LastUserIndex(msgs []Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return i
		}
	}
	return -1
}
