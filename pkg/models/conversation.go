package models

// Conversation is a direct thread between exactly two participants,
// optionally scoped to a subject entity (e.g. a listing id). The
// participant pair is stored sorted so the pair key is canonical.
type Conversation struct {
	ID           string    `json:"id"`
	Participants [2]string `json:"participants"`
	// Subject is an opaque reference to the entity the conversation is
	// about; empty for a plain direct conversation.
	Subject string `json:"subject,omitempty"`
	// Preview holds the (truncated) body of the most recent message.
	Preview   string `json:"preview,omitempty"`
	LastMsgTS int64  `json:"last_msg_ts,omitempty"`
	CreatedTS int64  `json:"created_ts"`
	UpdatedTS int64  `json:"updated_ts"`
}

// HasParticipant reports whether id is one of the two members.
func (c *Conversation) HasParticipant(id string) bool {
	return c.Participants[0] == id || c.Participants[1] == id
}

// Counterpart returns the other member relative to id. Empty when id is
// not a member.
func (c *Conversation) Counterpart(id string) string {
	switch id {
	case c.Participants[0]:
		return c.Participants[1]
	case c.Participants[1]:
		return c.Participants[0]
	}
	return ""
}

// ConversationSummary is the list-view shape: the conversation augmented
// with the caller-relative counterpart and unread count.
type ConversationSummary struct {
	Conversation
	Counterpart string `json:"counterpart"`
	Unread      int    `json:"unread"`
}
