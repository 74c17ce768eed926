package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Key layout. Both backends see identical keys, so everything above the
// Backend interface is ordering-compatible across them.
//
//	conv:<id>:meta                       conversation record
//	conv:<id>:msg:<%020d ts>-<%06d seq>  message, sortable by (ts, seq)
//	conv:<id>:unread:<participant>       unread counter (decimal string)
//	convby:<participant>:<convID>        membership index
//	convpair:<a>|<b>|<subject>           pair uniqueness index -> convID
//	msgref:<msgID>                       message ledger key, for by-id lookup
//	ticket:<id>:meta                     ticket record
//	ticket:<id>:msg:<ts>-<seq>           ticket message
//	ticketby:<requester>:<ticketID>      requester index
//	tombstone:<%020d ts>:<convID>        deletion audit record

const TombstonePrefix = "tombstone:"

func ConvMetaKey(convID string) string { return "conv:" + convID + ":meta" }

func ConvMsgPrefix(convID string) string { return "conv:" + convID + ":msg:" }

// ConvMsgKey builds a message key whose suffix sorts by creation time with
// the sequence breaking nanosecond ties.
func ConvMsgKey(convID string, ts int64, seq uint64) string {
	return fmt.Sprintf("%s%020d-%06d", ConvMsgPrefix(convID), ts, seq)
}

func ConvPrefix(convID string) string { return "conv:" + convID + ":" }

func UnreadKey(convID, participant string) string {
	return "conv:" + convID + ":unread:" + participant
}

func MemberKey(participant, convID string) string {
	return "convby:" + participant + ":" + convID
}

func MemberPrefix(participant string) string { return "convby:" + participant + ":" }

// PairKey is the storage-level uniqueness guard for (participant pair,
// subject). The pair is sorted so (a,b) and (b,a) collapse to one key. An
// empty subject is encoded as "-" so it cannot collide with a real one.
func PairKey(a, b, subject string) string {
	p := []string{a, b}
	sort.Strings(p)
	if subject == "" {
		subject = "-"
	}
	return "convpair:" + p[0] + "|" + p[1] + "|" + subject
}

func MsgRefKey(msgID string) string { return "msgref:" + msgID }

func TicketMetaKey(id string) string { return "ticket:" + id + ":meta" }

func TicketMsgPrefix(id string) string { return "ticket:" + id + ":msg:" }

func TicketMsgKey(id string, ts int64, seq uint64) string {
	return fmt.Sprintf("%s%020d-%06d", TicketMsgPrefix(id), ts, seq)
}

func TicketByKey(requester, ticketID string) string {
	return "ticketby:" + requester + ":" + ticketID
}

func TicketByPrefix(requester string) string { return "ticketby:" + requester + ":" }

func TicketMetaScanPrefix() string { return "ticket:" }

func TombstoneKey(ts int64, convID string) string {
	return fmt.Sprintf("%s%020d:%s", TombstonePrefix, ts, convID)
}

// TombstoneTS extracts the deletion timestamp from a tombstone key.
func TombstoneTS(key string) (int64, bool) {
	rest := strings.TrimPrefix(key, TombstonePrefix)
	if rest == key {
		return 0, false
	}
	i := strings.IndexByte(rest, ':')
	if i < 0 {
		return 0, false
	}
	ts, err := strconv.ParseInt(rest[:i], 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

// MsgCursor returns the opaque pagination cursor for a message key: the
// sortable <ts>-<seq> suffix. Cursors anchor the newest-first fetch
// direction, so appends at the head never shift older pages.
func MsgCursor(key string) string {
	i := strings.LastIndex(key, ":msg:")
	if i < 0 {
		return ""
	}
	return key[i+len(":msg:"):]
}
