package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/aretw0/libris/pkg/ports"
)

// Mask replaces redacted scratchpad values.
const Mask = "***"

// DefaultRedactions match the scratchpad keys that hold personal data.
var DefaultRedactions = []string{`(?i)email`, `^code_hash$`, `^name$`, `^employee_id$`}

type redactionMiddleware struct {
	ports.StateStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware masks scratchpad values whose key matches one of
// the patterns when a session is loaded. Writes pass through untouched, so the
// wrapped store is meant for operator views such as session inspection.
func NewRedactionMiddleware(patterns []string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled[i] = re
	}
	return func(next ports.StateStore) ports.StateStore {
		return &redactionMiddleware{StateStore: next, patterns: compiled}
	}, nil
}

func (m *redactionMiddleware) Load(ctx context.Context, chatID string) (*domain.State, error) {
	state, err := m.StateStore.Load(ctx, chatID)
	if err != nil {
		return nil, err
	}
	out := state.Clone()
	mask(out.Scratchpad, m.patterns)
	return out, nil
}

func mask(values map[string]any, patterns []*regexp.Regexp) {
	for k, v := range values {
		if nested, ok := v.(map[string]any); ok {
			mask(nested, patterns)
			continue
		}
		for _, p := range patterns {
			if p.MatchString(k) {
				values[k] = Mask
				break
			}
		}
	}
}
