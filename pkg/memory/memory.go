// Package memory persists the conversation history between the user and the
// assistant.
//
// History is an ordered list of role-tagged turns stored as a single JSON
// array. The file is read, mutated in memory, and rewritten wholesale each
// turn; only the most recent turns are kept.
package memory

// Role identifies who produced a turn.
type Role string

const (
	// RoleUser is a transcribed user utterance.
	RoleUser Role = "user"

	// RoleAssistant is a reply from the language model.
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a role the chat endpoint accepts.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is one role-tagged message in the conversation history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Prune returns the last limit turns of turns, in their original order.
// A limit of zero or less disables pruning.
func Prune(turns []Turn, limit int) []Turn {
	if limit <= 0 || len(turns) <= limit {
		return turns
	}
	return turns[len(turns)-limit:]
}

// Conversation is an in-memory history loaded from a Store.
// It is not safe for concurrent use.
type Conversation struct {
	turns []Turn
}

// NewConversation wraps an existing history. The slice is copied.
func NewConversation(turns []Turn) *Conversation {
	c := &Conversation{turns: make([]Turn, len(turns))}
	copy(c.turns, turns)
	return c
}

// Append adds a turn at the end of the history.
func (c *Conversation) Append(role Role, content string) {
	c.turns = append(c.turns, Turn{Role: role, Content: content})
}

// Prune drops all but the last limit turns.
func (c *Conversation) Prune(limit int) {
	pruned := Prune(c.turns, limit)
	if len(pruned) == len(c.turns) {
		return
	}
	c.turns = append([]Turn(nil), pruned...)
}

// Turns returns a copy of the history.
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// Last returns the most recent turn and false if the history is empty.
func (c *Conversation) Last() (Turn, bool) {
	if len(c.turns) == 0 {
		return Turn{}, false
	}
	return c.turns[len(c.turns)-1], true
}
