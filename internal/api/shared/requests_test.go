package shared

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Email    string `json:"email"    validate:"required,email"`
	Headline string `json:"headline" validate:"required,max=5"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid json", `{"email": "a@example.com", "headline": "hi"}`, false},
		{"invalid json", `{"email": "a@example.com",}`, true},
		{"empty body", ``, true},
		{"unknown field", `{"email": "a@example.com", "admin": true}`, true},
		{"trailing object", `{"email": "a@example.com"} {"email": "b@example.com"}`, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var p testPayload
			err := DecodeJSON(req, &p)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a@example.com", p.Email)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	err := ValidateRequest(testPayload{Email: "a@example.com", Headline: "ok"})
	assert.NoError(t, err)

	err = ValidateRequest(testPayload{Email: "nope", Headline: "too long"})
	require.Error(t, err)

	fields := ValidationFields(err)
	assert.Equal(t, map[string]string{
		"email":    "has invalid format",
		"headline": "must be at most 5 characters long",
	}, fields)
}

type selfValidating struct{ ok bool }

func (s selfValidating) Validate() error {
	if s.ok {
		return nil
	}
	return assert.AnError
}

func TestValidateRequest_UsesValidateMethod(t *testing.T) {
	assert.NoError(t, ValidateRequest(selfValidating{ok: true}))
	assert.ErrorIs(t, ValidateRequest(selfValidating{}), assert.AnError)
	assert.Nil(t, ValidationFields(assert.AnError))
}
