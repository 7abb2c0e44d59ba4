package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
		grpc   codes.Code
	}{
		{"validation", NewValidationError("caption", "too long"), "validation_failed", http.StatusBadRequest, codes.InvalidArgument},
		{"permission", &PermissionError{Role: RoleUser, Action: "approve"}, "permission_denied", http.StatusForbidden, codes.PermissionDenied},
		{"not found", &NotFoundError{Kind: "item", ID: "x"}, "not_found", http.StatusNotFound, codes.NotFound},
		{"conflict", NewConflictError("stale"), "conflict", http.StatusConflict, codes.Aborted},
		{"transport", &TransportError{Op: "poll", Err: errors.New("refused")}, "unavailable", http.StatusServiceUnavailable, codes.Unavailable},
		{"wrapped conflict", fmt.Errorf("patch: %w", NewConflictError("stale")), "conflict", http.StatusConflict, codes.Aborted},
		{"plain", errors.New("boom"), "internal", http.StatusInternalServerError, codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ErrorCode(tt.err))
			assert.Equal(t, tt.status, StatusCode(tt.err))
			assert.Equal(t, tt.grpc, GRPCCode(tt.err))
		})
	}
}

func TestErrorFromCode_RoundTrip(t *testing.T) {
	for _, code := range []string{"validation_failed", "permission_denied", "not_found", "conflict", "unavailable"} {
		err := ErrorFromCode(code, "server said no")
		assert.Equal(t, code, ErrorCode(err), code)
	}

	err := ErrorFromCode("conflict", "item changed since you loaded it")
	assert.Equal(t, "item changed since you loaded it", err.Error())
	assert.True(t, IsPermission(ErrorFromCode("unauthenticated", "no token")))
}

func TestCodeForStatus(t *testing.T) {
	tests := map[int]string{
		http.StatusBadRequest:          "validation_failed",
		http.StatusUnauthorized:        "unauthenticated",
		http.StatusForbidden:           "permission_denied",
		http.StatusNotFound:            "not_found",
		http.StatusConflict:            "conflict",
		http.StatusUnprocessableEntity: "validation_failed",
		http.StatusBadGateway:          "unavailable",
	}
	for status, code := range tests {
		assert.Equal(t, code, CodeForStatus(status), status)
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	root := errors.New("connection reset")
	err := &TransportError{Op: "push", Attempts: 3, Err: root}

	assert.ErrorIs(t, err, root)
	assert.Contains(t, err.Error(), "after 3 attempts")
}
