package models

// MessageKind distinguishes text payloads from media references.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindFile  MessageKind = "file"
)

// DeletedPlaceholder replaces the body of a soft-deleted message. The
// message stays in the sequence; only its body is redacted.
const DeletedPlaceholder = "[deleted]"

type Message struct {
	ID           string      `json:"id"`
	Conversation string      `json:"conversation"`
	Sender       string      `json:"sender"`
	Body         string      `json:"body"`
	Kind         MessageKind `json:"kind,omitempty"`
	TS           int64       `json:"ts"`
	Read         bool        `json:"read,omitempty"`
	Edited       bool        `json:"edited,omitempty"`
	EditedTS     int64       `json:"edited_ts,omitempty"`
	Deleted      bool        `json:"deleted,omitempty"`
	DeletedTS    int64       `json:"deleted_ts,omitempty"`
}

// MessagePage is an ascending-order page plus the cursor for the next
// older page. NextBefore is empty when the page reached the oldest message.
type MessagePage struct {
	Messages   []Message `json:"messages"`
	NextBefore string    `json:"next_before,omitempty"`
}
