package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/aretw0/libris/pkg/domain"
)

// JSONHandler speaks JSON Lines: each input line is an event object
// ({"type":"button","value":"book:add"}) or a bare JSON string taken as text,
// and each output line is the array of replies for one event.
type JSONHandler struct {
	reader  *bufio.Reader
	encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		reader:  bufio.NewReader(r),
		encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Output(ctx context.Context, replies []domain.Reply) error {
	if replies == nil {
		replies = []domain.Reply{}
	}
	return h.encoder.Encode(replies)
}

func (h *JSONHandler) Input(ctx context.Context) (domain.Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.Event{}, err
		}
		line, err := h.reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			if err != nil {
				return domain.Event{}, err
			}
			continue
		}

		var ev domain.Event
		if json.Unmarshal([]byte(line), &ev) == nil && ev.Kind != "" {
			return ev, nil
		}
		var text string
		if json.Unmarshal([]byte(line), &text) == nil {
			return domain.TextInput(text), nil
		}
		return domain.TextInput(line), nil
	}
}
