package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf_Tagged(t *testing.T) {
	err := NotFound("queue entry not found")
	if KindOf(err) != KindNotFound {
		t.Errorf("expected KindNotFound, got %v", KindOf(err))
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("admit: %w", Validation("patient_id is required"))
	if KindOf(err) != KindValidation {
		t.Errorf("expected KindValidation through wrapping, got %v", KindOf(err))
	}
}

func TestKindOf_Untagged(t *testing.T) {
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("expected KindUnknown for untagged error")
	}
}

func TestErrorIs_MatchesByKind(t *testing.T) {
	err := fmt.Errorf("update: %w", Conflict("cannot leave COMPLETED"))
	if !errors.Is(err, Conflict("")) {
		t.Error("expected errors.Is to match by kind")
	}
	if errors.Is(err, NotFound("")) {
		t.Error("expected no match across kinds")
	}
}

func TestUnavailable_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable("store unreachable", cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause in chain")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{Validation("x"), http.StatusBadRequest},
		{Conflict("x"), http.StatusConflict},
		{Unavailable("x", nil), http.StatusServiceUnavailable},
		{errors.New("x"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.err); got != c.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
