package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"parley/pkg/apperr"
	"parley/pkg/models"
)

// Rules bounds user-supplied input. Set once at startup from config.
type Rules struct {
	MaxBodyChars int
	PageSize     int
	PreviewChars int
}

var rules = Rules{MaxBodyChars: 5000, PageSize: 50, PreviewChars: 120}

func SetRules(r Rules) {
	if r.MaxBodyChars > 0 {
		rules.MaxBodyChars = r.MaxBodyChars
	}
	if r.PageSize > 0 {
		rules.PageSize = r.PageSize
	}
	if r.PreviewChars > 0 {
		rules.PreviewChars = r.PreviewChars
	}
}

// MaxPageSize caps list/page limits; a non-positive requested limit gets
// the full page.
func MaxPageSize() int { return rules.PageSize }

// ClampLimit normalizes a requested page limit into (0, MaxPageSize].
func ClampLimit(limit int) int {
	if limit <= 0 || limit > rules.PageSize {
		return rules.PageSize
	}
	return limit
}

// ParticipantID validates an id that will be embedded in delimited index
// keys. The delimiter characters are reserved: an id containing them could
// forge a key that matches another participant's scan prefix.
func ParticipantID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.InvalidArg("participant id is required")
	}
	if strings.ContainsAny(id, ":|") {
		return apperr.InvalidArg("participant id contains a reserved character")
	}
	return nil
}

// Body validates a message body against the configured bound.
func Body(body string) error {
	if strings.TrimSpace(body) == "" {
		return apperr.InvalidArg("body is required")
	}
	if n := utf8.RuneCountInString(body); n > rules.MaxBodyChars {
		return apperr.InvalidArg(fmt.Sprintf("body exceeds %d characters", rules.MaxBodyChars))
	}
	return nil
}

// Kind validates a message kind, defaulting empty to text.
func Kind(k models.MessageKind) (models.MessageKind, error) {
	switch k {
	case "", models.KindText:
		return models.KindText, nil
	case models.KindImage, models.KindFile:
		return k, nil
	}
	return "", apperr.InvalidArg("unknown message kind: " + string(k))
}

// Preview truncates body to the preview bound for the conversation record.
func Preview(body string) string {
	if utf8.RuneCountInString(body) <= rules.PreviewChars {
		return body
	}
	r := []rune(body)
	return string(r[:rules.PreviewChars])
}

// TicketCreate validates the ticket creation input.
func TicketCreate(requester, category, problem string) error {
	if strings.TrimSpace(requester) == "" {
		return apperr.InvalidArg("requester is required")
	}
	if strings.TrimSpace(category) == "" {
		return apperr.InvalidArg("category is required")
	}
	if strings.TrimSpace(problem) == "" {
		return apperr.InvalidArg("problem description is required")
	}
	if n := utf8.RuneCountInString(problem); n > rules.MaxBodyChars {
		return apperr.InvalidArg(fmt.Sprintf("problem description exceeds %d characters", rules.MaxBodyChars))
	}
	return nil
}

// Rating validates a post-closure feedback score.
func Rating(r int) error {
	if r < 1 || r > 5 {
		return apperr.InvalidArg("rating must be between 1 and 5")
	}
	return nil
}
