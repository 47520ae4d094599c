package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorAccessors(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", Upstream("services.get", 404, "Service not found", map[string]any{"id": "s1"}))

	assert.Equal(t, EUPSTREAM, ErrorCode(wrapped))
	assert.Equal(t, "Service not found", ErrorMessage(wrapped))
	assert.Equal(t, "services.get", ErrorOp(wrapped))
	assert.Equal(t, 404, UpstreamStatus(wrapped))
	assert.Equal(t, map[string]any{"id": "s1"}, ErrorDetail(wrapped))
}

func TestErrorAccessors_ForeignError(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, EINTERNAL, ErrorCode(err))
	assert.Equal(t, "Internal server error", ErrorMessage(err))
	assert.Equal(t, "", ErrorOp(err))
	assert.Equal(t, 0, UpstreamStatus(err))
	assert.Equal(t, "boom", ErrorDetail(err))
}

func TestErrorAccessors_Nil(t *testing.T) {
	assert.Equal(t, "", ErrorCode(nil))
	assert.Equal(t, "", ErrorMessage(nil))
	assert.Nil(t, ErrorDetail(nil))
	assert.Equal(t, 0, UpstreamStatus(nil))
}

func TestUpstreamStatus_OnlyForUpstreamErrors(t *testing.T) {
	err := &Error{Code: EINVALID, Status: 418}
	assert.Equal(t, 0, UpstreamStatus(err))
}

func TestServer_KeepsFailureText(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Server(cause, "orders.get", "Internal server error")

	assert.Equal(t, "dial tcp: connection refused", ErrorDetail(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "orders.get: Internal server error: dial tcp: connection refused", err.Error())
}

func TestFailed(t *testing.T) {
	env := Failed(Upstream("auth.post", 401, "Invalid credentials", "bad password"))

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"message":"Invalid credentials","error":"bad password"}`, string(raw))
}

func TestOK_OmitsEmptyFields(t *testing.T) {
	raw, err := json.Marshal(OK(nil, ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, string(raw))

	raw, err = json.Marshal(OK([]any{}, "Fetched"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"message":"Fetched","data":[]}`, string(raw))
}
