package ranapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xela07ax/ran-copilot/internal/domain"
	"github.com/xela07ax/ran-copilot/internal/ranapi/mock"
)

func newMockClient(t *testing.T, opts ...mock.Option) (*Client, *mock.Backend) {
	t.Helper()
	b := mock.New(append([]mock.Option{mock.WithoutJitter()}, opts...)...)
	s := httptest.NewServer(b)
	t.Cleanup(s.Close)
	return New(s.URL), b
}

func TestClient_DashboardKPIs(t *testing.T) {
	t.Parallel()

	c, _ := newMockClient(t)
	got, err := c.DashboardKPIs(context.Background())
	if err != nil {
		t.Fatalf("DashboardKPIs: %v", err)
	}
	if got != domain.FallbackKPIs() {
		t.Fatalf("unexpected kpis: %+v", got)
	}
}

func TestClient_CellsAndPerformance(t *testing.T) {
	t.Parallel()

	c, _ := newMockClient(t)
	cells, err := c.CellStatus(context.Background())
	if err != nil {
		t.Fatalf("CellStatus: %v", err)
	}
	if len(cells) != 3 || cells[1].CellID != "Cell-456" {
		t.Fatalf("unexpected cells: %+v", cells)
	}

	rows, err := c.CellPerformance(context.Background(), 2)
	if err != nil {
		t.Fatalf("CellPerformance: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("limit not applied: %d rows", len(rows))
	}
}

func TestClient_QueryDefaults(t *testing.T) {
	t.Parallel()

	var gotHours, gotLimit string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/analytics/timeseries":
			gotHours = r.URL.Query().Get("hours")
		case "/api/cells/performance":
			gotLimit = r.URL.Query().Get("limit")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer s.Close()

	c := New(s.URL + "/")
	if _, err := c.TimeSeries(context.Background(), 0); err != nil {
		t.Fatalf("TimeSeries: %v", err)
	}
	if _, err := c.CellPerformance(context.Background(), -1); err != nil {
		t.Fatalf("CellPerformance: %v", err)
	}
	if gotHours != "24" || gotLimit != "100" {
		t.Fatalf("hours=%q limit=%q", gotHours, gotLimit)
	}
}

func TestClient_StatusErrorIncludesBody(t *testing.T) {
	t.Parallel()

	c, b := newMockClient(t)
	b.SetFailing(true)

	_, err := c.DashboardKPIs(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	var sErr *StatusError
	if !errors.As(err, &sErr) {
		t.Fatalf("expected StatusError, got %T", err)
	}
	if sErr.Code != http.StatusServiceUnavailable || !sErr.Temporary() {
		t.Fatalf("unexpected status error: %+v", sErr)
	}
	if !strings.Contains(err.Error(), "backend unavailable") {
		t.Fatalf("error missing body: %q", err)
	}
	if !IsStatus(err, http.StatusServiceUnavailable) {
		t.Fatalf("IsStatus mismatch")
	}
}

func TestClient_TimeoutSurfacesAsError(t *testing.T) {
	t.Parallel()

	b := mock.New(mock.WithLatency(200 * time.Millisecond))
	s := httptest.NewServer(b)
	defer s.Close()

	c := New(s.URL, WithTimeout(20*time.Millisecond))
	if _, err := c.CellStatus(context.Background()); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestClient_MalformedBody(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rrc_success_rate":`))
	}))
	defer s.Close()

	_, err := New(s.URL).DashboardKPIs(context.Background())
	if err == nil || !strings.Contains(err.Error(), "decode") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestClient_KPIHeatmap(t *testing.T) {
	t.Parallel()

	c, _ := newMockClient(t)
	fc, err := c.KPIHeatmap(context.Background(), "rsrp")
	if err != nil {
		t.Fatalf("KPIHeatmap: %v", err)
	}
	if len(fc.Features) != 3 {
		t.Fatalf("features=%d", len(fc.Features))
	}
	if v := fc.Features[0].Properties.MustFloat64("value", 0); v != -84.2 {
		t.Fatalf("value=%v", v)
	}

	if _, err := c.KPIHeatmap(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty kpi name")
	}
}

func TestClient_ChatAndInvoke(t *testing.T) {
	t.Parallel()

	c, _ := newMockClient(t)
	msg, err := c.Chat(context.Background(), "why is Cell-456 degraded?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if msg.Role != domain.RoleAssistant || msg.Content == "" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	res, err := c.InvokeAgent(context.Background(), InvokeRequest{
		Runtime:   "runtime-1",
		Prompt:    "hello",
		SessionID: "0123456789abcdef0123456789abcdef01",
	})
	if err != nil {
		t.Fatalf("InvokeAgent: %v", err)
	}
	if !strings.Contains(string(res.Body), `"completion"`) {
		t.Fatalf("body not reassembled: %q", res.Body)
	}
	if res.SessionToken != "tok-0123456789abcdef0123456789abcdef01" {
		t.Fatalf("session token=%q", res.SessionToken)
	}
}

func TestClient_ChatZonelessTimestamp(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Cell-456 is overloaded","timestamp":"2024-01-15T10:30:00.123456"}}`))
	}))
	t.Cleanup(s.Close)

	msg, err := New(s.URL).Chat(context.Background(), "why is Cell-456 degraded?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if msg.Content != "Cell-456 is overloaded" {
		t.Fatalf("content=%q", msg.Content)
	}
	if want := time.Date(2024, 1, 15, 10, 30, 0, 123456000, time.UTC); !msg.Timestamp.Equal(want) {
		t.Fatalf("timestamp=%v want %v", msg.Timestamp, want)
	}
}

func TestClient_WaitReadyRetriesPing(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","timestamp":"now"}`))
	}))
	defer s.Close()

	if err := New(s.URL).WaitReady(context.Background(), 5); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls=%d", calls.Load())
	}
}

func TestClient_WaitReadyGivesUp(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer s.Close()

	if err := New(s.URL).WaitReady(context.Background(), 2); err == nil {
		t.Fatalf("expected error")
	}
}
