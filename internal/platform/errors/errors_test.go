package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(CodeNotFound, "session abc not found")
	if !stderrors.Is(err, New(CodeNotFound, "other message")) {
		t.Fatal("expected errors with the same code to match")
	}
	if stderrors.Is(err, New(CodeChoicesEmpty, "")) {
		t.Fatal("expected errors with different codes not to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(CodePathMalformed, "parse path", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable via errors.Is")
	}
	if err.Error() != "parse path" {
		t.Fatalf("message = %q, want %q", err.Error(), "parse path")
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{name: "domain error", err: New(CodeNoNarrative, "no narrative"), want: CodeNoNarrative},
		{name: "wrapped domain error", err: fmt.Errorf("outer: %w", New(CodeNotFound, "missing")), want: CodeNotFound},
		{name: "plain error", err: stderrors.New("plain"), want: CodeUnknown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := GetCode(tc.err); got != tc.want {
				t.Fatalf("code = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestGRPCCodeMapping(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodeNotFound, codes.NotFound},
		{CodeChoicesEmpty, codes.InvalidArgument},
		{CodePathBadIndex, codes.InvalidArgument},
		{CodeNoPendingChoices, codes.FailedPrecondition},
		{CodeUnknown, codes.Internal},
	}
	for _, tc := range tests {
		if got := tc.code.GRPCCode(); got != tc.want {
			t.Fatalf("GRPCCode(%s) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestHandleErrorAttachesCode(t *testing.T) {
	err := HandleError(New(CodeNotFound, "session missing"))
	st, ok := status.FromError(err)
	if !ok {
		t.Fatal("expected a gRPC status error")
	}
	if st.Code() != codes.NotFound {
		t.Fatalf("status code = %v, want %v", st.Code(), codes.NotFound)
	}
	if st.Message() != "session missing" {
		t.Fatalf("status message = %q, want %q", st.Message(), "session missing")
	}
}

func TestHandleErrorUnknownCollapsesToInternal(t *testing.T) {
	err := HandleError(stderrors.New("db exploded"))
	st, ok := status.FromError(err)
	if !ok {
		t.Fatal("expected a gRPC status error")
	}
	if st.Code() != codes.Internal {
		t.Fatalf("status code = %v, want %v", st.Code(), codes.Internal)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: http.StatusOK},
		{name: "not found", err: New(CodeNotFound, ""), want: http.StatusNotFound},
		{name: "validation", err: New(CodeChoiceBlank, ""), want: http.StatusBadRequest},
		{name: "state", err: New(CodeNoNarrative, ""), want: http.StatusConflict},
		{name: "plain", err: stderrors.New("x"), want: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := HTTPStatus(tc.err); got != tc.want {
				t.Fatalf("status = %d, want %d", got, tc.want)
			}
		})
	}
}
