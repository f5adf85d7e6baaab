package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestError(t *testing.T) {
	t.Run("message", func(t *testing.T) {
		err := InvalidSort("sort name is required")
		if got := err.Error(); got != "sort name is required" {
			t.Errorf("Error() = %q", got)
		}
		if err.Code() != ErrInvalidSort {
			t.Errorf("Code() = %q, want %q", err.Code(), ErrInvalidSort)
		}
	})

	t.Run("wrap", func(t *testing.T) {
		cause := stderrors.New("boom")
		err := RelationshipFailed("owners", cause)
		if got := err.Error(); got != `expanding relationship "owners": boom` {
			t.Errorf("Error() = %q", got)
		}
		if !stderrors.Is(err, cause) {
			t.Error("errors.Is should reach the wrapped cause")
		}
		if err.Details()["key"] != "owners" {
			t.Errorf("Details() = %v", err.Details())
		}
	})

	t.Run("is matches on code", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", UnknownOperator("v", "$gt"))
		if !stderrors.Is(err, New(ErrUnknownOperator, "")) {
			t.Error("expected code match")
		}
		if stderrors.Is(err, New(ErrInvalidFilter, "")) {
			t.Error("unexpected code match")
		}
	})

	t.Run("CodeOf", func(t *testing.T) {
		tests := []struct {
			name string
			err  error
			want ErrorCode
		}{
			{"nil", nil, ""},
			{"plain", stderrors.New("x"), ""},
			{"direct", ViewNotFound("v"), ErrViewNotFound},
			{"wrapped", fmt.Errorf("a: %w", CollectionNotFound("c")), ErrCollectionNotFound},
			{"outermost wins", RelationshipFailed("k", InvalidSort("s")), ErrRelationshipFailed},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if got := CodeOf(tt.err); got != tt.want {
					t.Errorf("CodeOf() = %q, want %q", got, tt.want)
				}
			})
		}
	})
}
