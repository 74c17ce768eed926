package models

// TicketStatus is the support-ticket lifecycle state. closed is terminal;
// there is no reopening transition.
type TicketStatus string

const (
	TicketOpen     TicketStatus = "open"
	TicketAssigned TicketStatus = "assigned"
	TicketClosed   TicketStatus = "closed"
)

// SenderRole tags who authored a ticket message.
type SenderRole string

const (
	RoleCustomer SenderRole = "customer"
	RoleAgent    SenderRole = "agent"
)

type Ticket struct {
	ID            string       `json:"id"`
	Requester     string       `json:"requester"`
	RequesterRole string       `json:"requester_role,omitempty"`
	Category      string       `json:"category"`
	Subcategory   string       `json:"subcategory,omitempty"`
	Problem       string       `json:"problem"`
	Status        TicketStatus `json:"status"`
	Assignee      string       `json:"assignee,omitempty"`
	CreatedTS     int64        `json:"created_ts"`
	ClosedTS      int64        `json:"closed_ts,omitempty"`
	// Rating is the post-closure feedback score, 1-5; zero means unset.
	Rating int `json:"rating,omitempty"`
}

// TicketMessage mirrors Message but addresses a ticket and carries the
// sender's role plus an optional stored-attachment URL.
type TicketMessage struct {
	ID         string     `json:"id"`
	Ticket     string     `json:"ticket"`
	Sender     string     `json:"sender"`
	SenderRole SenderRole `json:"sender_role"`
	Body       string     `json:"body"`
	Attachment string     `json:"attachment,omitempty"`
	TS         int64      `json:"ts"`
}
