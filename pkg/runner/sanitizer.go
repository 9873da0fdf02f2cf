package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/libris/pkg/domain"
)

var (
	// DefaultMaxInputSize matches the longest message a chat platform delivers.
	DefaultMaxInputSize = 4096
	// MaxTagSize is the longest button tag accepted.
	MaxTagSize = 128
	// MaxChatIDSize is the longest chat identity accepted.
	MaxChatIDSize = 64
	// EnvMaxInputSize overrides DefaultMaxInputSize.
	EnvMaxInputSize = "LIBRIS_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
	ErrInvalidTag    = errors.New("invalid button tag")
	ErrUnknownKind   = errors.New("unknown event type")
	ErrInvalidChatID = errors.New("invalid chat id")
)

// SanitizeChatID accepts transport chat identities: letters, digits and
// "-_.@", at most MaxChatIDSize bytes. Telegram chat IDs may be negative.
func SanitizeChatID(id string) error {
	if id == "" || len(id) > MaxChatIDSize {
		return fmt.Errorf("%w: length %d", ErrInvalidChatID, len(id))
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == '@':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidChatID, id)
		}
	}
	return nil
}

// SanitizeInput enforces the size limit, rejects invalid UTF-8 and strips
// control characters other than newline, tab and carriage return.
func SanitizeInput(input string) (string, error) {
	limit := maxInputSize()
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	if !strings.ContainsFunc(input, unsafeControl) {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unsafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// SanitizeEvent validates an inbound event. Text goes through SanitizeInput;
// button tags must be short printable ASCII.
func SanitizeEvent(ev domain.Event) (domain.Event, error) {
	switch ev.Kind {
	case domain.KindText:
		clean, err := SanitizeInput(ev.Value)
		if err != nil {
			return domain.Event{}, err
		}
		return domain.TextInput(clean), nil
	case domain.KindButton:
		if ev.Value == "" || len(ev.Value) > MaxTagSize {
			return domain.Event{}, fmt.Errorf("%w: length %d", ErrInvalidTag, len(ev.Value))
		}
		for _, r := range ev.Value {
			if r < '!' || r > '~' {
				return domain.Event{}, fmt.Errorf("%w: %q", ErrInvalidTag, ev.Value)
			}
		}
		return ev, nil
	default:
		return domain.Event{}, fmt.Errorf("%w: %q", ErrUnknownKind, ev.Kind)
	}
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

func maxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
