package http_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	libhttp "github.com/aretw0/libris/pkg/adapters/http"
	"github.com/aretw0/libris/pkg/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	mu     sync.Mutex
	events map[string][]domain.Event
	err    error
}

func (f *fakeEngine) Handle(_ context.Context, chatID string, ev domain.Event) ([]domain.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.events == nil {
		f.events = make(map[string][]domain.Event)
	}
	f.events[chatID] = append(f.events[chatID], ev)
	return []domain.Reply{
		{Text: "Enter the title:", Buttons: [][]domain.Button{{{Label: "Cancel", Tag: "book:cancel"}}}},
		{Text: "QR", Image: []byte{0x89, 'P', 'N', 'G'}},
	}, nil
}

const secret = "test-secret"

func post(t *testing.T, h http.Handler, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sign(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestPostEvent_RoundTrip(t *testing.T) {
	engine := &fakeEngine{}
	h := libhttp.NewHandler(engine)

	rec := post(t, h, "/v1/chats/42/events", `{"type":"button","value":"book:add"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var raw struct {
		Replies []struct {
			Text    string            `json:"text"`
			Buttons [][]domain.Button `json:"buttons"`
			Image   string            `json:"image"`
		} `json:"replies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.Len(t, raw.Replies, 2)
	assert.Equal(t, "book:cancel", raw.Replies[0].Buttons[0][0].Tag)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'}), raw.Replies[1].Image)

	assert.Equal(t, []domain.Event{domain.ButtonPress("book:add")}, engine.events["42"])
}

func TestPostEvent_SanitizesText(t *testing.T) {
	engine := &fakeEngine{}
	h := libhttp.NewHandler(engine)

	rec := post(t, h, "/v1/chats/7/events", `{"type":"text","value":"Du\u0000ne"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []domain.Event{domain.TextInput("Dune")}, engine.events["7"])
}

func TestPostEvent_BadRequests(t *testing.T) {
	h := libhttp.NewHandler(&fakeEngine{})

	tests := []struct {
		name string
		body string
	}{
		{"not json", `hello`},
		{"unknown field", `{"type":"text","value":"x","extra":1}`},
		{"unknown type", `{"type":"sticker","value":"x"}`},
		{"empty tag", `{"type":"button","value":""}`},
		{"too large", `{"type":"text","value":"` + strings.Repeat("a", 5000) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, "/v1/chats/1/events", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestPostEvent_RejectsChatIDs(t *testing.T) {
	engine := &fakeEngine{}
	h := libhttp.NewHandler(engine)

	for _, path := range []string{"/v1/chats/a:b/events", "/v1/chats/" + strings.Repeat("1", 65) + "/events", "/v1/chats/a%20b/events"} {
		rec := post(t, h, path, `{"type":"text","value":"hi"}`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
	assert.Empty(t, engine.events)
}

func TestPostEvent_EngineFailure(t *testing.T) {
	h := libhttp.NewHandler(&fakeEngine{err: errors.New("redis down")})

	rec := post(t, h, "/v1/chats/1/events", `{"type":"text","value":"hi"}`, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "redis", "internal errors are not leaked")
}

func TestPostEvent_JWT(t *testing.T) {
	engine := &fakeEngine{}
	h := libhttp.NewHandler(engine, libhttp.WithJWTSecret(secret))
	body := `{"type":"text","value":"/help"}`
	exp := time.Now().Add(time.Hour).Unix()

	t.Run("missing token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, post(t, h, "/v1/chats/1/events", body, "").Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		bad, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp}).SignedString([]byte("other"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, post(t, h, "/v1/chats/1/events", body, bad).Code)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		tok := sign(t, jwt.SigningMethodHS512, jwt.MapClaims{"exp": exp})
		assert.Equal(t, http.StatusUnauthorized, post(t, h, "/v1/chats/1/events", body, tok).Code)
	})

	t.Run("expired", func(t *testing.T) {
		tok := sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})
		assert.Equal(t, http.StatusUnauthorized, post(t, h, "/v1/chats/1/events", body, tok).Code)
	})

	t.Run("token without chat", func(t *testing.T) {
		tok := sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp})
		assert.Equal(t, http.StatusForbidden, post(t, h, "/v1/chats/1/events", body, tok).Code)
		tok = sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp, "chat_id": ""})
		assert.Equal(t, http.StatusForbidden, post(t, h, "/v1/chats/1/events", body, tok).Code)
	})

	t.Run("chat scoped token", func(t *testing.T) {
		tok := sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp, "chat_id": "5"})
		assert.Equal(t, http.StatusOK, post(t, h, "/v1/chats/5/events", body, tok).Code)
		assert.Equal(t, http.StatusForbidden, post(t, h, "/v1/chats/6/events", body, tok).Code)
	})

	t.Run("health stays open", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestInfo(t *testing.T) {
	h := libhttp.NewHandler(&fakeEngine{}, libhttp.WithVersion("v1.2.3\n"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/info", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"app":"libris","version":"v1.2.3"}`, rec.Body.String())
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: libhttp.NewHandler(&fakeEngine{})}

	done := make(chan error, 1)
	go func() { done <- libhttp.Serve(ctx, srv) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
