package runtime_test

import (
	"errors"
	"testing"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistration_HappyPath(t *testing.T) {
	h := newHarness(t)

	replies := h.text(strangerChat, "/start")
	assert.Contains(t, joined(replies), "work email")
	assert.Equal(t, domain.WorkflowRegistration, h.state(strangerChat).Workflow)

	replies = h.text(strangerChat, "not an email")
	assert.Contains(t, joined(replies), "does not look like an email")

	replies = h.text(strangerChat, "nobody@example.com")
	assert.Contains(t, joined(replies), "No employee")
	assert.Equal(t, domain.Step("await_email"), h.state(strangerChat).Step)

	replies = h.text(strangerChat, "Sam Stranger <SAM@example.com>")
	assert.Contains(t, joined(replies), "sam@example.com")
	code := h.mail.code("sam@example.com")
	require.Len(t, code, 6)

	s := h.state(strangerChat)
	assert.Equal(t, domain.Step("await_code"), s.Step)
	assert.NotContains(t, s.Scratchpad, code, "only the hash is kept")
	assert.NotEqual(t, code, s.Scratchpad["code_hash"])

	replies = h.text(strangerChat, "/books")
	assert.Contains(t, joined(replies), "6-digit code", "commands wait for the registration")

	replies = h.text(strangerChat, code)
	assert.Contains(t, joined(replies), "Welcome, Sam Stranger")
	assert.Nil(t, h.state(strangerChat))

	replies = h.text(strangerChat, "/books")
	assert.Contains(t, tags(replies), "book:list:view")
	assert.NotContains(t, tags(replies), "book:add")
	assert.Equal(t, 1, h.committed("app_user", "create"))
}

func TestRegistration_LocksOutAfterThreeWrongCodes(t *testing.T) {
	h := newHarness(t)

	h.text(strangerChat, "/start")
	h.text(strangerChat, "sam@example.com")
	code := h.mail.code("sam@example.com")
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	replies := h.text(strangerChat, wrong)
	assert.Contains(t, joined(replies), "2 attempt(s) left")
	replies = h.text(strangerChat, wrong)
	assert.Contains(t, joined(replies), "1 attempt(s) left")
	replies = h.text(strangerChat, wrong)
	assert.Contains(t, joined(replies), "Too many wrong codes")
	assert.Nil(t, h.state(strangerChat))

	replies = h.text(strangerChat, code)
	assert.Contains(t, joined(replies), "not registered")
}

func TestRegistration_MailFailureStaysOnEmail(t *testing.T) {
	h := newHarness(t)
	h.mail.err = errors.New("smtp timeout")

	h.text(strangerChat, "/start")
	replies := h.text(strangerChat, "sam@example.com")
	assert.Contains(t, joined(replies), "try again later")
	assert.Equal(t, domain.Step("await_email"), h.state(strangerChat).Step)
}

func TestUnregisteredChatsArePointedAtStart(t *testing.T) {
	h := newHarness(t)

	for _, replies := range [][]domain.Reply{
		h.text(strangerChat, "/books"),
		h.text(strangerChat, "hello"),
		h.press(strangerChat, "book:list:view"),
	} {
		assert.Contains(t, joined(replies), "/start")
	}
	assert.Nil(t, h.state(strangerChat))
	assert.Empty(t, h.text(strangerChat, "/cancel"))
}

func TestStart_RegisteredChatGetsHelp(t *testing.T) {
	h := newHarness(t)

	replies := h.text(aliceChat, "/start")
	assert.Contains(t, joined(replies), "Welcome back")
	assert.Nil(t, h.state(aliceChat))
}
