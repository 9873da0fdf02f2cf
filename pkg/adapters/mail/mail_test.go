package mail

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationMessage(t *testing.T) {
	m := verificationMessage("bot@example.com", "Libris", "jane@example.com", "123456")

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, "To: jane@example.com")
	assert.Contains(t, raw, "123456")
	assert.Equal(t, []string{"jane@example.com"}, m.GetHeader("To"))
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := NewLog(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, m.SendVerificationCode(context.Background(), "jane@example.com", "654321"))
	assert.True(t, strings.Contains(buf.String(), "code=654321"))
}

func TestSMTP_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSMTP("localhost", 2525, "", "", "bot@example.com", "Libris").SendVerificationCode(ctx, "a@b.c", "1")
	assert.ErrorIs(t, err, context.Canceled)
}
