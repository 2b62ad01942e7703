package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseWireTime(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-15T10:30:00Z", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"2024-01-15T10:30:00.123456", time.Date(2024, 1, 15, 10, 30, 0, 123456000, time.UTC)},
		{"2024-01-15T10:30:00", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"2024-01-15 10:30:00.5", time.Date(2024, 1, 15, 10, 30, 0, 500000000, time.UTC)},
		{"2024-01-15T13:30:00+03:00", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"yesterday", time.Time{}},
		{"", time.Time{}},
	}
	for _, tc := range cases {
		if got := ParseWireTime(tc.in); !got.Equal(tc.want) {
			t.Fatalf("ParseWireTime(%q)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestChatMessage_TolerantTimestamp(t *testing.T) {
	t.Parallel()

	cases := map[string]time.Time{
		`{"content":"Cell-456 is overloaded","timestamp":"2024-01-15T10:30:00.123456"}`: time.Date(2024, 1, 15, 10, 30, 0, 123456000, time.UTC),
		`{"content":"Cell-456 is overloaded","timestamp":"not a time"}`:                 {},
		`{"content":"Cell-456 is overloaded","timestamp":1705314600}`:                   {},
		`{"content":"Cell-456 is overloaded"}`:                                          {},
	}
	for body, want := range cases {
		var m ChatMessage
		if err := json.Unmarshal([]byte(body), &m); err != nil {
			t.Fatalf("%s: %v", body, err)
		}
		if m.Content != "Cell-456 is overloaded" || !m.Timestamp.Equal(want) {
			t.Fatalf("%s: got %+v", body, m)
		}
	}
}

func TestChatMessage_RoundTripKeepsRecommendation(t *testing.T) {
	t.Parallel()

	in := ChatMessage{
		ID:             "m-1",
		Role:           RoleAssistant,
		Content:        "Roll back tilt",
		Timestamp:      time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Recommendation: &Recommendation{Title: "Rollback", Impact: "high"},
	}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out ChatMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if out.ID != in.ID || out.Role != in.Role || !out.Timestamp.Equal(in.Timestamp) || out.Recommendation.Title != "Rollback" {
		t.Fatalf("round trip lost fields: %+v", out)
	}
}
