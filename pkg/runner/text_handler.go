package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/charmbracelet/lipgloss"
)

// TextHandler is the interactive console interface.
//
// A line starting with '#' presses the numbered button of the last reply,
// a line starting with '!' presses a raw tag, anything else is typed text.
type TextHandler struct {
	reader   *bufio.Reader
	writer   io.Writer
	renderer ContentRenderer
	imageDir string

	styles  textStyles
	buttons []domain.Button
	images  int

	inputChan chan inputResult
	startOnce sync.Once
}

type textStyles struct {
	notice lipgloss.Style
	button lipgloss.Style
	index  lipgloss.Style
	prompt lipgloss.Style
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption configures a TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.renderer = renderer
	}
}

// WithImageDir saves reply images (QR codes) as PNG files under dir.
func WithImageDir(dir string) TextHandlerOption {
	return func(h *TextHandler) {
		h.imageDir = dir
	}
}

// NewTextHandler creates a handler for console IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	lg := lipgloss.NewRenderer(w)
	h := &TextHandler{
		reader: bufio.NewReader(r),
		writer: w,
		styles: textStyles{
			notice: lg.NewStyle().Faint(true).Italic(true),
			button: lg.NewStyle().Foreground(lipgloss.Color("#a78bfa")).Bold(true),
			index:  lg.NewStyle().Foreground(lipgloss.Color("#818cf8")),
			prompt: lg.NewStyle().Foreground(lipgloss.Color("#f472b6")),
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult, DefaultInputBufferSize)
		go h.pump()
	})
}

func (h *TextHandler) pump() {
	defer close(h.inputChan)
	for {
		text, err := h.reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			return
		}
	}
}

// Output prints each reply followed by its numbered buttons.
func (h *TextHandler) Output(ctx context.Context, replies []domain.Reply) error {
	var buttons []domain.Button
	for _, reply := range replies {
		if err := h.print(reply); err != nil {
			return err
		}
		for _, row := range reply.Buttons {
			cells := make([]string, len(row))
			for i, b := range row {
				buttons = append(buttons, b)
				cells[i] = h.styles.index.Render(fmt.Sprintf("[%d]", len(buttons))) + " " + h.styles.button.Render(b.Label)
			}
			if _, err := fmt.Fprintln(h.writer, "  "+strings.Join(cells, "   ")); err != nil {
				return err
			}
		}
	}
	if len(buttons) > 0 {
		h.buttons = buttons
	}
	return nil
}

func (h *TextHandler) print(reply domain.Reply) error {
	text := reply.Text
	if h.renderer != nil && !reply.Notice {
		if rendered, err := h.renderer(text); err == nil {
			text = rendered
		}
	}
	text = strings.TrimSpace(text)
	if reply.Notice {
		text = h.styles.notice.Render(text)
	}
	if _, err := fmt.Fprintln(h.writer, text); err != nil {
		return err
	}
	if len(reply.Image) == 0 {
		return nil
	}

	h.images++
	if h.imageDir == "" {
		_, err := fmt.Fprintf(h.writer, "  (image, %d bytes)\n", len(reply.Image))
		return err
	}
	path := filepath.Join(h.imageDir, fmt.Sprintf("reply-%d.png", h.images))
	if err := os.WriteFile(path, reply.Image, 0o644); err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	_, err := fmt.Fprintf(h.writer, "  (image saved to %s)\n", path)
	return err
}

// Input reads lines until one parses into an event.
func (h *TextHandler) Input(ctx context.Context) (domain.Event, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return domain.Event{}, ctx.Err()
		default:
			fmt.Fprint(h.writer, h.styles.prompt.Render(">")+" ")
		}

		select {
		case <-ctx.Done():
			return domain.Event{}, ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return domain.Event{}, io.EOF
			}
			if res.err != nil {
				return domain.Event{}, res.err
			}
			ev, err := h.parse(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(h.writer, "Error: %v. Please try again.\n", err)
				continue
			}
			if ev.Value == "" {
				continue
			}
			return ev, nil
		}
	}
}

func (h *TextHandler) parse(line string) (domain.Event, error) {
	switch {
	case strings.HasPrefix(line, "#"):
		n, err := strconv.Atoi(strings.TrimPrefix(line, "#"))
		if err != nil || n < 1 || n > len(h.buttons) {
			return domain.Event{}, fmt.Errorf("no button %s", line)
		}
		b := h.buttons[n-1]
		if b.Tag == "" {
			return domain.TextInput(b.Label), nil
		}
		return domain.ButtonPress(b.Tag), nil
	case strings.HasPrefix(line, "!") && len(line) > 1:
		return domain.ButtonPress(line[1:]), nil
	default:
		return domain.TextInput(line), nil
	}
}
