package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres

	"github.com/xela07ax/medipredict-console/internal/domain"
)

// Schema: таблица истории распределения парка.
const Schema = `
CREATE TABLE IF NOT EXISTS fleet_snapshots (
	id            TEXT PRIMARY KEY,
	taken_at      TIMESTAMPTZ NOT NULL,
	total_devices INTEGER NOT NULL,
	counts        JSONB NOT NULL,
	degraded      BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS fleet_snapshots_taken_at_idx ON fleet_snapshots (taken_at DESC);
`

const snapshotFields = 5

type SnapshotRepo struct {
	db *sql.DB
}

func NewSnapshotRepo(db *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Open открывает пул через драйвер pgx. Соединение проверяется отдельно через Ping.
func Open(connString string, maxConns, minConns int32) (*sql.DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(int(maxConns))
	}
	if minConns > 0 {
		db.SetMaxIdleConns(int(minConns))
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// Migrate создает таблицу, если ее еще нет.
func (r *SnapshotRepo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("postgres: migrate fleet_snapshots: %w", err)
	}
	return nil
}

// WriteBatch: пакетная вставка одним INSERT.
func (r *SnapshotRepo) WriteBatch(ctx context.Context, snapshots []domain.FleetSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(snapshots))
	vals := make([]interface{}, 0, len(snapshots)*snapshotFields)

	for i, s := range snapshots {
		p := i * snapshotFields
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", p+1, p+2, p+3, p+4, p+5))

		counts, err := json.Marshal(s.Counts)
		if err != nil {
			return fmt.Errorf("postgres: encode counts of %s: %w", s.ID, err)
		}
		vals = append(vals, s.ID, s.TakenAt, s.TotalDevices, counts, s.Degraded)
	}

	query := fmt.Sprintf(
		"INSERT INTO fleet_snapshots (id, taken_at, total_devices, counts, degraded) VALUES %s ON CONFLICT (id) DO NOTHING",
		strings.Join(placeholders, ", "),
	)

	if _, err := r.db.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("postgres: write fleet snapshots: %w", err)
	}
	return nil
}

// ListRecent: последние limit снимков, новые первыми.
func (r *SnapshotRepo) ListRecent(ctx context.Context, limit int) ([]domain.FleetSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, taken_at, total_devices, counts, degraded
		FROM fleet_snapshots
		ORDER BY taken_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list fleet snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]domain.FleetSnapshot, 0, limit)
	for rows.Next() {
		var (
			s      domain.FleetSnapshot
			counts []byte
		)
		if err := rows.Scan(&s.ID, &s.TakenAt, &s.TotalDevices, &counts, &s.Degraded); err != nil {
			return nil, fmt.Errorf("postgres: scan fleet snapshot: %w", err)
		}
		if err := json.Unmarshal(counts, &s.Counts); err != nil {
			return nil, fmt.Errorf("postgres: decode counts of %s: %w", s.ID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Ping проверяет доступность базы при старте
func (r *SnapshotRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SnapshotRepo) Close() error {
	return r.db.Close()
}
