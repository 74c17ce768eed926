package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{NotFound("gone"), CodeNotFound},
		{Forbidden("no"), CodeForbidden},
		{InvalidArg("bad"), CodeInvalidArgument},
		{InvalidState("closed"), CodeInvalidState},
		{Unavailable("down", errors.New("io")), CodeUnavailable},
		{Internal("boom", nil), CodeInternal},
		{errors.New("plain"), CodeUnknown},
		{nil, CodeUnknown},
	}
	for _, c := range cases {
		if got := CodeOf(c.err); got != c.want {
			t.Fatalf("CodeOf(%v) = %s, want %s", c.err, got, c.want)
		}
	}
}

func TestCodeSurvivesWrapping(t *testing.T) {
	base := NotFound("conversation not found")
	wrapped := fmt.Errorf("loading: %w", base)
	if !Is(wrapped, CodeNotFound) {
		t.Fatalf("code lost through fmt.Errorf wrapping")
	}
	if CodeOf(wrapped) != CodeNotFound {
		t.Fatalf("CodeOf lost through wrapping")
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Unavailable("store put failed", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("cause not reachable via errors.Is")
	}
	if err.Error() == "" || err.Error() == cause.Error() {
		t.Fatalf("message should combine context and cause: %q", err.Error())
	}
}
