package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogErrorExtractsOopsCode(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("REGISTRATION_STORE_FAILED").With("phone", "+15551234567").Wrap(errors.New("boom"))
	LogError(logger, "request failed", err, slog.String("request_id", "req-1"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request failed", entry["msg"])
	assert.Equal(t, "REGISTRATION_STORE_FAILED", entry["code"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Contains(t, entry["error"], "boom")
}

func TestLogErrorPlainError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	LogError(logger, "plain", errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "boom", entry["error"])
	assert.NotContains(t, entry, "code")
}

func TestLogErrorIgnoresNil(t *testing.T) {
	var buf bytes.Buffer
	LogError(slog.New(slog.NewJSONHandler(&buf, nil)), "nothing", nil)
	LogError(nil, "nothing", errors.New("boom"))
	assert.Zero(t, buf.Len())
}
