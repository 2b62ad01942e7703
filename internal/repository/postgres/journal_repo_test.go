package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/xela07ax/ran-copilot/internal/audit"
)

// Интеграционный тест: нужен живой PostgreSQL в RAN_COPILOT_TEST_DB.
func TestJournalRepo_WriteAndRead(t *testing.T) {
	url := os.Getenv("RAN_COPILOT_TEST_DB")
	if url == "" {
		t.Skip("RAN_COPILOT_TEST_DB is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := NewPool(ctx, url, 2, 1)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()

	repo := NewJournalRepo(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	subject := "test-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)
	events := []audit.Event{
		{ID: uuid.NewString(), Kind: audit.KindFetch, Subject: subject, Outcome: audit.OutcomeReady, Timestamp: now.Add(-time.Second), DurationMs: 12},
		{ID: uuid.NewString(), Kind: audit.KindFetch, Subject: subject, Outcome: audit.OutcomeDegraded, Timestamp: now, DurationMs: 10000, Error: "timeout"},
	}
	if err := repo.WriteBatch(ctx, events); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}

	got, err := repo.Recent(ctx, subject, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows=%d want 2", len(got))
	}
	if got[0].Outcome != audit.OutcomeDegraded || got[0].Error != "timeout" {
		t.Fatalf("newest first expected, got %+v", got[0])
	}
}
