package conversation

import (
	"context"
	"strconv"

	"parley/pkg/store"
)

// readUnread reads a participant's unread counter for one conversation.
// An absent or unparsable counter reads as zero.
func readUnread(ctx context.Context, st *store.Store, convID, participant string) (int, error) {
	v, ok, err := st.Get(ctx, store.UnreadKey(convID, participant))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(string(v))
	if err != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}

func unreadValue(n int) []byte {
	if n < 0 {
		n = 0
	}
	return []byte(strconv.Itoa(n))
}
