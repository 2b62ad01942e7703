package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xela07ax/ran-copilot/internal/domain"
	"github.com/xela07ax/ran-copilot/internal/ranapi"
)

type fakeChatAPI struct {
	msg domain.ChatMessage
	err error
}

func (f fakeChatAPI) Chat(context.Context, string) (domain.ChatMessage, error) {
	return f.msg, f.err
}

func TestNewSessionID_Length(t *testing.T) {
	t.Parallel()

	id := NewSessionID()
	if len(id) < MinSessionIDLength {
		t.Fatalf("session id too short: %q", id)
	}
	if id == NewSessionID() {
		t.Fatalf("session ids repeat")
	}
	if err := (Session{ID: strings.Repeat("x", 32)}).Validate(); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("32-char id accepted: %v", err)
	}
	if err := (Session{ID: strings.Repeat("x", 33)}).Validate(); err != nil {
		t.Fatalf("33-char id rejected: %v", err)
	}
}

func TestRESTTransport_PassesSessionThrough(t *testing.T) {
	t.Parallel()

	rec := &domain.Recommendation{Title: "Revert tx_power", Description: "d", Impact: "+3.6% RRC"}
	tr := NewRESTTransport(fakeChatAPI{msg: domain.ChatMessage{Role: domain.RoleAssistant, Content: "ok", Recommendation: rec}})
	sess := NewSession()

	reply, next, err := tr.Send(context.Background(), "hi", sess)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Content != "ok" || reply.Recommendation != rec || reply.Timestamp.IsZero() {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if next != sess {
		t.Fatalf("session changed: %+v", next)
	}
}

// invokeServer записывает входящие запросы и отвечает заданной функцией.
type invokeServer struct {
	mu       sync.Mutex
	requests []map[string]any
	headers  []http.Header
}

func (s *invokeServer) start(t *testing.T, respond func(w http.ResponseWriter, n int)) *ranapi.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.requests = append(s.requests, body)
		s.headers = append(s.headers, r.Header.Clone())
		n := len(s.requests)
		s.mu.Unlock()
		respond(w, n)
	}))
	t.Cleanup(srv.Close)
	return ranapi.New(srv.URL)
}

func TestInvokeTransport_SessionContinuity(t *testing.T) {
	t.Parallel()

	s := &invokeServer{}
	api := s.start(t, func(w http.ResponseWriter, n int) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"completion":    "turn",
			"session_token": "token-" + string(rune('0'+n)),
		})
	})
	tr := NewInvokeTransport(api, "arn:runtime/ran-copilot")

	sess := NewSession()
	_, sess, err := tr.Send(context.Background(), "first", sess)
	if err != nil {
		t.Fatalf("first Send: %v", err)
	}
	if sess.Token != "token-1" {
		t.Fatalf("token after first call=%q", sess.Token)
	}
	if _, _, err := tr.Send(context.Background(), "second", sess); err != nil {
		t.Fatalf("second Send: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[0]["session_token"]; ok {
		t.Fatalf("first request carried a token: %v", s.requests[0])
	}
	if got := s.requests[1]["session_token"]; got != "token-1" {
		t.Fatalf("second request token=%v want token-1", got)
	}
	if s.requests[0]["session_id"] != s.requests[1]["session_id"] {
		t.Fatalf("session id changed between turns")
	}
	if s.headers[0].Get("X-Agent-Runtime") != "arn:runtime/ran-copilot" {
		t.Fatalf("runtime header missing")
	}
}

func TestInvokeTransport_ReassemblesChunksAndFallsBackToRawText(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("Cell-456 needs attention. ", 400) // больше одного чанка
	s := &invokeServer{}
	api := s.start(t, func(w http.ResponseWriter, _ int) {
		w.Header().Set("X-Session-Token", "hdr-token")
		f := w.(http.Flusher)
		for i := 0; i < len(text); i += 100 {
			_, _ = w.Write([]byte(text[i:min(i+100, len(text))]))
			f.Flush()
		}
	})

	reply, sess, err := NewInvokeTransport(api, "rt").Send(context.Background(), "status?", Session{})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Content != strings.TrimSpace(text) {
		t.Fatalf("content not reassembled: %d bytes", len(reply.Content))
	}
	if len(sess.ID) < MinSessionIDLength {
		t.Fatalf("session id not generated: %q", sess.ID)
	}
	if sess.Token != "hdr-token" {
		t.Fatalf("token=%q", sess.Token)
	}
}

func TestInvokeTransport_RejectsShortSessionID(t *testing.T) {
	t.Parallel()

	s := &invokeServer{}
	api := s.start(t, func(w http.ResponseWriter, _ int) {})

	_, _, err := NewInvokeTransport(api, "rt").Send(context.Background(), "hi", Session{ID: "short"})
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("err=%v", err)
	}
	if len(s.requests) != 0 {
		t.Fatalf("request sent with invalid session")
	}
}

func TestParseInvokeBody(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		raw   string
		want  string
		token string
		rec   bool
	}{
		{"completion", `{"completion":"a","session_token":"t"}`, "a", "t", false},
		{"content", `{"content":"b"}`, "b", "", false},
		{"message string", `{"message":"c"}`, "c", "", false},
		{"message object", `{"message":{"role":"assistant","content":"d","recommendation":{"title":"x"}}}`, "d", "", true},
		{"plain text", "just text\n", "just text", "", false},
		{"json without text", `{"foo":1}`, `{"foo":1}`, "", false},
		{"json string", `"hello"` + "\n", "hello", "", false},
		{"zoneless timestamp", `{"message":{"content":"Cell-456 is overloaded","timestamp":"2024-01-15T10:30:00.123456"}}`, "Cell-456 is overloaded", "", false},
	}
	for _, tc := range cases {
		reply, token := parseInvokeBody([]byte(tc.raw))
		if reply.Content != tc.want || token != tc.token || (reply.Recommendation != nil) != tc.rec {
			t.Fatalf("%s: got %+v token=%q", tc.name, reply, token)
		}
	}

	reply, _ := parseInvokeBody([]byte(`{"message":{"content":"x","timestamp":"2024-01-15T10:30:00"}}`))
	if want := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC); !reply.Timestamp.Equal(want) {
		t.Fatalf("message timestamp=%v want %v", reply.Timestamp, want)
	}
}
