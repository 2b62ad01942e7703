package postgres

/*
Файл journal_repo.go хранит операционный журнал консоли: циклы опроса вью и ходы чата.
Пишем пачками через COPY, читаем последние записи для страницы журнала.
*/

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/ran-copilot/internal/audit"
)

const schema = `
CREATE TABLE IF NOT EXISTS fetch_journal (
	id          UUID PRIMARY KEY,
	trace_id    TEXT NOT NULL DEFAULT '',
	kind        TEXT NOT NULL,
	subject     TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	duration_ms BIGINT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	timestamp   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS fetch_journal_ts_idx ON fetch_journal (timestamp DESC);`

var journalColumns = []string{"id", "trace_id", "kind", "subject", "outcome", "duration_ms", "error", "timestamp"}

type JournalRepo struct {
	pool *pgxpool.Pool
}

// NewPool открывает пул и проверяет соединение.
func NewPool(ctx context.Context, url string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

func NewJournalRepo(pool *pgxpool.Pool) *JournalRepo {
	return &JournalRepo{pool: pool}
}

// EnsureSchema создает таблицу журнала, если ее нет.
func (r *JournalRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: ensure journal schema: %w", err)
	}
	return nil
}

// WriteBatch реализует audit.StorageInterface.
func (r *JournalRepo) WriteBatch(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}

	n, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"fetch_journal"},
		journalColumns,
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			e := events[i]
			return []any{e.ID, e.TraceID, e.Kind, e.Subject, e.Outcome, e.DurationMs, e.Error, e.Timestamp}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("postgres: write journal batch: %w", err)
	}
	if int(n) != len(events) {
		return fmt.Errorf("postgres: journal batch: copied %d of %d rows", n, len(events))
	}
	return nil
}

// Recent возвращает последние записи журнала; subject фильтрует по вью, пустой - все.
func (r *JournalRepo) Recent(ctx context.Context, subject string, limit int) ([]audit.Event, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query := `
		SELECT id, trace_id, kind, subject, outcome, duration_ms, error, timestamp
		FROM fetch_journal
		WHERE ($1 = '' OR subject = $1)
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, subject, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query journal: %w", err)
	}
	defer rows.Close()

	results := make([]audit.Event, 0, limit)
	for rows.Next() {
		var e audit.Event
		if err := rows.Scan(&e.ID, &e.TraceID, &e.Kind, &e.Subject, &e.Outcome, &e.DurationMs, &e.Error, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan journal: %w", err)
		}
		results = append(results, e)
	}
	// Проверка на ошибки итерации (стандарт качества pgx)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate journal: %w", err)
	}
	return results, nil
}
