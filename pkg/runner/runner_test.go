package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// menuEngine answers every event with a two-row menu and records what it saw.
type menuEngine struct {
	chats  []string
	events []domain.Event
	err    error
}

func (m *menuEngine) Handle(_ context.Context, chatID string, ev domain.Event) ([]domain.Reply, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.chats = append(m.chats, chatID)
	m.events = append(m.events, ev)
	return []domain.Reply{{
		Text: "📚 Books",
		Buttons: [][]domain.Button{
			{{Label: "➕ Add book", Tag: "book:add"}, {Label: "📖 View books", Tag: "book:list:view"}},
			{{Label: "Fiction"}},
		},
	}}, nil
}

func run(t *testing.T, input string, engine *menuEngine, opts ...TextHandlerOption) string {
	t.Helper()
	var out bytes.Buffer
	r := NewRunner(
		WithChatID("100"),
		WithInputHandler(NewTextHandler(strings.NewReader(input), &out, opts...)),
	)
	require.NoError(t, r.Run(context.Background(), engine))
	return out.String()
}

func TestRunner_ButtonsAndText(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := &menuEngine{}
	out := run(t, "/books\n#2\n#3\n!loc:menu\nDune\n", engine)

	assert.Equal(t, []domain.Event{
		domain.TextInput("/books"),
		domain.ButtonPress("book:list:view"),
		domain.TextInput("Fiction"),
		domain.ButtonPress("loc:menu"),
		domain.TextInput("Dune"),
	}, engine.events)
	assert.Equal(t, []string{"100", "100", "100", "100", "100"}, engine.chats)
	assert.Contains(t, out, "📚 Books")
	assert.Contains(t, out, "Add book")
	assert.Contains(t, out, "[3]")
}

func TestRunner_BadButtonNumberIsReported(t *testing.T) {
	engine := &menuEngine{}
	out := run(t, "#1\n/books\n#9\n#x\n#1\n", engine)

	assert.Equal(t, []domain.Event{
		domain.TextInput("/books"),
		domain.ButtonPress("book:add"),
	}, engine.events)
	assert.Equal(t, 3, strings.Count(out, "Please try again."))
}

func TestRunner_EmptyLinesAreSkipped(t *testing.T) {
	engine := &menuEngine{}
	run(t, "\n   \n/help", engine)
	assert.Equal(t, []domain.Event{domain.TextInput("/help")}, engine.events)
}

func TestRunner_SanitizesInput(t *testing.T) {
	engine := &menuEngine{}
	out := run(t, "Du\x1bne\n!bad tag\n", engine)

	assert.Equal(t, []domain.Event{domain.TextInput("Dune")}, engine.events)
	assert.Contains(t, out, "Error: "+ErrInvalidTag.Error())
}

func TestRunner_EngineErrorStops(t *testing.T) {
	engine := &menuEngine{err: errors.New("session store down")}
	r := NewRunner(WithInputHandler(NewTextHandler(strings.NewReader("/help\n/help\n"), &bytes.Buffer{})))

	err := r.Run(context.Background(), engine)
	assert.ErrorContains(t, err, "session store down")
	assert.Equal(t, DefaultChatID, r.ChatID())
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(WithInputHandler(NewTextHandler(strings.NewReader("/help\n"), &bytes.Buffer{})))
	assert.NoError(t, r.Run(ctx, &menuEngine{}))
}

func TestTextHandler_RendererAndNotice(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader(""), &out, WithTextHandlerRenderer(func(s string) (string, error) {
		return "Rendered: " + s, nil
	}))

	require.NoError(t, h.Output(context.Background(), []domain.Reply{
		{Text: "Previous operation discarded.", Notice: true},
		{Text: "Enter the title:"},
	}))

	assert.Contains(t, out.String(), "Previous operation discarded.")
	assert.NotContains(t, out.String(), "Rendered: Previous")
	assert.Contains(t, out.String(), "Rendered: Enter the title:")
}

func TestTextHandler_Images(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}

	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader(""), &out)
	require.NoError(t, h.Output(context.Background(), []domain.Reply{{Text: "QR", Image: png}}))
	assert.Contains(t, out.String(), "(image, 4 bytes)")

	dir := t.TempDir()
	out.Reset()
	h = NewTextHandler(strings.NewReader(""), &out, WithImageDir(dir))
	require.NoError(t, h.Output(context.Background(), []domain.Reply{{Text: "QR", Image: png}}))

	saved, err := os.ReadFile(filepath.Join(dir, "reply-1.png"))
	require.NoError(t, err)
	assert.Equal(t, png, saved)
}

func TestTextHandler_ButtonsSurviveButtonlessReplies(t *testing.T) {
	h := NewTextHandler(strings.NewReader(""), &bytes.Buffer{})
	ctx := context.Background()

	require.NoError(t, h.Output(ctx, []domain.Reply{{Text: "menu", Buttons: [][]domain.Button{{{Label: "Close", Tag: "menu:close"}}}}}))
	require.NoError(t, h.Output(ctx, []domain.Reply{{Text: "Added Fiction."}}))

	ev, err := h.parse("#1")
	require.NoError(t, err)
	assert.Equal(t, domain.ButtonPress("menu:close"), ev)
}

func TestJSONHandler(t *testing.T) {
	input := `{"type":"button","value":"book:add"}` + "\n\n" + `"Dune"` + "\nFrank Herbert"
	var out bytes.Buffer
	engine := &menuEngine{}

	r := NewRunner(WithInputHandler(NewJSONHandler(strings.NewReader(input), &out)))
	require.NoError(t, r.Run(context.Background(), engine))

	assert.Equal(t, []domain.Event{
		domain.ButtonPress("book:add"),
		domain.TextInput("Dune"),
		domain.TextInput("Frank Herbert"),
	}, engine.events)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"tag":"book:add"`)
}

func TestRunner_RejectsChatID(t *testing.T) {
	engine := &menuEngine{}
	r := NewRunner(
		WithChatID("../other"),
		WithInputHandler(NewTextHandler(strings.NewReader("hi\n"), &bytes.Buffer{})),
	)

	err := r.Run(context.Background(), engine)
	assert.ErrorIs(t, err, ErrInvalidChatID)
	assert.Empty(t, engine.events)
}
