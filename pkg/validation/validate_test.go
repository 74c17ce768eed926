package validation

import (
	"strings"
	"testing"

	"parley/pkg/apperr"
	"parley/pkg/models"
)

func TestBody(t *testing.T) {
	if err := Body("hello"); err != nil {
		t.Fatalf("valid body rejected: %v", err)
	}
	if err := Body("  \n\t "); !apperr.Is(err, apperr.CodeInvalidArgument) {
		t.Fatalf("whitespace body: %v", err)
	}
	if err := Body(strings.Repeat("a", rules.MaxBodyChars)); err != nil {
		t.Fatalf("body at the bound rejected: %v", err)
	}
	if err := Body(strings.Repeat("a", rules.MaxBodyChars+1)); !apperr.Is(err, apperr.CodeInvalidArgument) {
		t.Fatalf("oversized body: %v", err)
	}
	// bounds count runes, not bytes
	if err := Body(strings.Repeat("ü", rules.MaxBodyChars)); err != nil {
		t.Fatalf("multibyte body at the bound rejected: %v", err)
	}
}

func TestParticipantID(t *testing.T) {
	for _, id := range []string{"alice", "cust-42", "a.b@example.com"} {
		if err := ParticipantID(id); err != nil {
			t.Fatalf("id %q rejected: %v", id, err)
		}
	}
	// delimiter characters would let an id forge foreign index keys
	for _, id := range []string{"", "  ", "alice:zzz", "alice|zzz", ":", "|"} {
		if err := ParticipantID(id); !apperr.Is(err, apperr.CodeInvalidArgument) {
			t.Fatalf("id %q: %v", id, err)
		}
	}
}

func TestKind(t *testing.T) {
	k, err := Kind("")
	if err != nil || k != models.KindText {
		t.Fatalf("empty kind: %v %q", err, k)
	}
	if _, err := Kind("video"); !apperr.Is(err, apperr.CodeInvalidArgument) {
		t.Fatalf("unknown kind: %v", err)
	}
	for _, k := range []models.MessageKind{models.KindText, models.KindImage, models.KindFile} {
		if got, err := Kind(k); err != nil || got != k {
			t.Fatalf("kind %q: %v", k, err)
		}
	}
}

func TestClampLimit(t *testing.T) {
	if got := ClampLimit(0); got != rules.PageSize {
		t.Fatalf("zero limit: %d", got)
	}
	if got := ClampLimit(-5); got != rules.PageSize {
		t.Fatalf("negative limit: %d", got)
	}
	if got := ClampLimit(rules.PageSize + 100); got != rules.PageSize {
		t.Fatalf("over-limit: %d", got)
	}
	if got := ClampLimit(7); got != 7 {
		t.Fatalf("in-range limit: %d", got)
	}
}

func TestPreview(t *testing.T) {
	short := "hi there"
	if Preview(short) != short {
		t.Fatalf("short body must pass through")
	}
	long := strings.Repeat("é", rules.PreviewChars+40)
	p := Preview(long)
	if len([]rune(p)) != rules.PreviewChars {
		t.Fatalf("preview length %d, want %d", len([]rune(p)), rules.PreviewChars)
	}
}

func TestRating(t *testing.T) {
	for _, r := range []int{1, 3, 5} {
		if err := Rating(r); err != nil {
			t.Fatalf("rating %d rejected: %v", r, err)
		}
	}
	for _, r := range []int{0, -1, 6} {
		if err := Rating(r); !apperr.Is(err, apperr.CodeInvalidArgument) {
			t.Fatalf("rating %d: %v", r, err)
		}
	}
}
