package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSessionExpiry(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		err    error
		want   bool
	}{
		{"401 alone", http.StatusUnauthorized, nil, true},
		{"401 overrides unrelated error", http.StatusUnauthorized, errors.New("boom"), true},
		{"unauthorized app error", 0, Unauthorized("credentials rejected"), true},
		{"wrapped unauthorized app error", 0, fmt.Errorf("get session: %w", Unauthorized("nope")), true},
		{"jwt expired fragment", 0, errors.New("oidc: JWT expired at 2026-08-01"), true},
		{"invalid token fragment", 0, errors.New("refresh grant: invalid token"), true},
		{"session expired fragment", 0, errors.New("session expired"), true},
		{"not authenticated fragment", 0, errors.New("backend: Not Authenticated"), true},
		{"nil error non-401", http.StatusInternalServerError, nil, false},
		{"unrelated error", 0, errors.New("connection refused"), false},
		{"session missing is not expiry", 0, errors.New("get session: session not found"), false},
		{"other app error", 0, NotFound("farm not found"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, IsSessionExpiry(tc.status, tc.err))
		})
	}
}
