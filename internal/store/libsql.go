package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/flowcanvas/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// --- Agents ---

func (s *LibSQLStore) CreateAgent(ctx context.Context, a *schema.Agent) error {
	config, err := marshalConfig(a.Config)
	if err != nil {
		return fmt.Errorf("marshal agent config: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO agents (id, name, type, pos_x, pos_y, config, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Type, a.Position.X, a.Position.Y, config, time.Now().UTC(),
	)
	return err
}

func (s *LibSQLStore) GetAgent(ctx context.Context, id string) (*schema.Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, type, pos_x, pos_y, config FROM agents WHERE id = ?`, id)
	a, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "agent %q not found", id)
	}
	return a, err
}

func (s *LibSQLStore) UpdateAgent(ctx context.Context, a *schema.Agent) error {
	config, err := marshalConfig(a.Config)
	if err != nil {
		return fmt.Errorf("marshal agent config: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE agents SET name = ?, type = ?, pos_x = ?, pos_y = ?, config = ? WHERE id = ?`,
		a.Name, a.Type, a.Position.X, a.Position.Y, config, a.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "agent", a.ID)
}

func (s *LibSQLStore) DeleteAgent(ctx context.Context, id string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM connections WHERE source_agent_id = ? OR target_agent_id = ? ORDER BY id`, id, id)
	if err != nil {
		return nil, err
	}
	var removed []string
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			rows.Close()
			return nil, err
		}
		removed = append(removed, cid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM connections WHERE source_agent_id = ? OR target_agent_id = ?`, id, id); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if err := checkRowsAffected(res, "agent", id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return removed, nil
}

func (s *LibSQLStore) ListAgents(ctx context.Context) ([]*schema.Agent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type, pos_x, pos_y, config FROM agents ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*schema.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- Connections ---

func (s *LibSQLStore) CreateConnection(ctx context.Context, c *schema.Connection) error {
	for _, agentID := range []string{c.SourceAgentID, c.TargetAgentID} {
		if _, err := s.GetAgent(ctx, agentID); err != nil {
			return err
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO connections (id, source_agent_id, target_agent_id, source_port, target_port, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.SourceAgentID, c.TargetAgentID, c.SourcePort, c.TargetPort, time.Now().UTC(),
	)
	return err
}

func (s *LibSQLStore) GetConnection(ctx context.Context, id string) (*schema.Connection, error) {
	c := &schema.Connection{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source_agent_id, target_agent_id, source_port, target_port FROM connections WHERE id = ?`, id,
	).Scan(&c.ID, &c.SourceAgentID, &c.TargetAgentID, &c.SourcePort, &c.TargetPort)
	if err == sql.ErrNoRows {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "connection %q not found", id)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *LibSQLStore) DeleteConnection(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM connections WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "connection", id)
}

func (s *LibSQLStore) ListConnections(ctx context.Context) ([]*schema.Connection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_agent_id, target_agent_id, source_port, target_port FROM connections ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*schema.Connection
	for rows.Next() {
		c := &schema.Connection{}
		if err := rows.Scan(&c.ID, &c.SourceAgentID, &c.TargetAgentID, &c.SourcePort, &c.TargetPort); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- Schedules ---

func (s *LibSQLStore) CreateSchedule(ctx context.Context, sched *Schedule) error {
	createdAt := sched.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schedules (id, cron_expression, enabled, last_run_at, next_run_at, last_run_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sched.ID, sched.CronExpression, boolToInt(sched.Enabled),
		nullTime(sched.LastRunAt), nullTime(sched.NextRunAt), nullStr(sched.LastRunStatus), createdAt,
	)
	return err
}

func (s *LibSQLStore) GetSchedule(ctx context.Context, id string) (*Schedule, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, cron_expression, enabled, last_run_at, next_run_at, last_run_status, created_at
		 FROM schedules WHERE id = ?`, id)
	sched, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "schedule %q not found", id)
	}
	return sched, err
}

func (s *LibSQLStore) UpdateSchedule(ctx context.Context, id string, update ScheduleUpdate) error {
	var sets []string
	var args []any

	if update.Enabled != nil {
		sets = append(sets, "enabled = ?")
		args = append(args, boolToInt(*update.Enabled))
	}
	if update.LastRunAt != nil {
		sets = append(sets, "last_run_at = ?")
		args = append(args, *update.LastRunAt)
	}
	if update.NextRunAt != nil {
		sets = append(sets, "next_run_at = ?")
		args = append(args, *update.NextRunAt)
	}
	if update.LastRunStatus != "" {
		sets = append(sets, "last_run_status = ?")
		args = append(args, update.LastRunStatus)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE schedules SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "schedule", id)
}

func (s *LibSQLStore) ListSchedules(ctx context.Context, filter ScheduleFilter) ([]*Schedule, error) {
	query := `SELECT id, cron_expression, enabled, last_run_at, next_run_at, last_run_status, created_at FROM schedules`
	var args []any
	if filter.Enabled != nil {
		query += ` WHERE enabled = ?`
		args = append(args, boolToInt(*filter.Enabled))
	}
	query += ` ORDER BY id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sched)
	}
	return out, rows.Err()
}

func (s *LibSQLStore) DeleteSchedule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "schedule", id)
}

// --- Helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*schema.Agent, error) {
	a := &schema.Agent{}
	var config string
	if err := row.Scan(&a.ID, &a.Name, &a.Type, &a.Position.X, &a.Position.Y, &config); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(config), &a.Config); err != nil {
		return nil, fmt.Errorf("unmarshal agent config: %w", err)
	}
	return a, nil
}

func scanSchedule(row rowScanner) (*Schedule, error) {
	sched := &Schedule{}
	var (
		enabled          int
		lastRun, nextRun sql.NullTime
		lastStatus       sql.NullString
	)
	if err := row.Scan(&sched.ID, &sched.CronExpression, &enabled, &lastRun, &nextRun, &lastStatus, &sched.CreatedAt); err != nil {
		return nil, err
	}
	sched.Enabled = enabled != 0
	if lastRun.Valid {
		sched.LastRunAt = &lastRun.Time
	}
	if nextRun.Valid {
		sched.NextRunAt = &nextRun.Time
	}
	sched.LastRunStatus = lastStatus.String
	return sched, nil
}

func marshalConfig(config map[string]string) (string, error) {
	if config == nil {
		return "{}", nil
	}
	data, err := json.Marshal(config)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", kind, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
