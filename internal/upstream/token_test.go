package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractToken_ProbeOrder(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    string
	}{
		{"token", map[string]any{"token": "a"}, "a"},
		{"access_token", map[string]any{"access_token": "b"}, "b"},
		{"accessToken", map[string]any{"accessToken": "c"}, "c"},
		{"data.token", map[string]any{"data": map[string]any{"token": "d"}}, "d"},
		{"data.access_token", map[string]any{"data": map[string]any{"access_token": "e"}}, "e"},
		{"data.accessToken", map[string]any{"data": map[string]any{"accessToken": "X"}}, "X"},
		{"token beats access_token", map[string]any{"access_token": "b", "token": "a"}, "a"},
		{"access_token beats accessToken", map[string]any{"accessToken": "c", "access_token": "b"}, "b"},
		{"top level beats nested", map[string]any{"accessToken": "top", "data": map[string]any{"token": "nested"}}, "top"},
		{"blank skipped", map[string]any{"token": "  ", "data": map[string]any{"token": "d"}}, "d"},
		{"trimmed", map[string]any{"token": " t "}, "t"},
		{"non-string ignored", map[string]any{"token": 42, "accessToken": "c"}, "c"},
		{"none", map[string]any{"data": map[string]any{"admin": "x"}}, ""},
		{"not an object", []any{"token"}, ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractToken(tt.payload))
		})
	}
}

func TestStripToken(t *testing.T) {
	payload := map[string]any{
		"token":   "a",
		"message": "ok",
		"data": map[string]any{
			"accessToken": "X",
			"admin":       map[string]any{"name": "Asha"},
		},
	}

	got := StripToken(payload).(map[string]any)

	assert.NotContains(t, got, "token")
	assert.Equal(t, "ok", got["message"])
	inner := got["data"].(map[string]any)
	assert.NotContains(t, inner, "accessToken")
	assert.Contains(t, inner, "admin")

	// the input is left untouched
	assert.Equal(t, "a", payload["token"])
	assert.Equal(t, "X", payload["data"].(map[string]any)["accessToken"])
}

func TestStripToken_NonObjectPassesThrough(t *testing.T) {
	assert.Equal(t, []any{1.0}, StripToken([]any{1.0}))
	assert.Nil(t, StripToken(nil))
}
