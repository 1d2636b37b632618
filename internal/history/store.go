// Package history persists completed task executions to SQLite: the Task
// Queue's durable sibling, queryable through GetExecutions/GetRecent after
// the in-memory State Store has moved on. Uses database/sql and
// github.com/mattn/go-sqlite3 to store task-execution records.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/agentcore/internal/agentcore"
)

// schemaSQL creates the task_executions table on first use. Inlined as a
// constant rather than behind a go:embed directive so the package has no
// external file dependency.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS task_executions (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id       TEXT NOT NULL,
	kind          TEXT NOT NULL,
	description   TEXT,
	status        TEXT NOT NULL,
	success       INTEGER NOT NULL,
	output        TEXT,
	error_message TEXT,
	exit_code     INTEGER,
	duration_ms   INTEGER NOT NULL,
	retry_count   INTEGER NOT NULL,
	trigger_source TEXT,
	timestamp     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_task_executions_task_id ON task_executions(task_id);
CREATE INDEX IF NOT EXISTS idx_task_executions_timestamp ON task_executions(timestamp);
`

// Execution is one persisted task-execution record.
type Execution struct {
	ID            int64
	TaskID        string
	Kind          string
	Description   string
	Status        string
	Success       bool
	Output        string
	ErrorMessage  string
	ExitCode      int
	DurationMS    int64
	RetryCount    int
	TriggerSource string
	Timestamp     time.Time
}

// Store manages the SQLite database backing task execution history.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if necessary) the SQLite database at dbPath and
// ensures its schema exists. dbPath may be ":memory:" for an ephemeral,
// test-only store.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create history directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	store := &Store{db: db, dbPath: dbPath}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordTask persists task's terminal state as an execution record.
func (s *Store) RecordTask(ctx context.Context, task *agentcore.Task) error {
	var success bool
	var output, errMsg string
	var exitCode int
	if task.Result != nil {
		success = task.Result.Success
		output = task.Result.Output
		errMsg = task.Result.Error
		exitCode = task.Result.ExitCode
	}

	var durationMS int64
	if !task.StartedAt.IsZero() && !task.CompletedAt.IsZero() {
		durationMS = task.CompletedAt.Sub(task.StartedAt).Milliseconds()
	}

	const query = `INSERT INTO task_executions
		(task_id, kind, description, status, success, output, error_message, exit_code, duration_ms, retry_count, trigger_source, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		string(task.Kind),
		task.Description,
		string(task.Status),
		success,
		output,
		errMsg,
		exitCode,
		durationMS,
		task.RetryCount,
		task.Context.TriggerSource,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("record task execution: %w", err)
	}
	return nil
}

// GetExecutions returns every persisted execution for taskID, most recent
// first.
func (s *Store) GetExecutions(ctx context.Context, taskID string) ([]*Execution, error) {
	const query = `SELECT id, task_id, kind, description, status, success, output, error_message, exit_code, duration_ms, retry_count, trigger_source, timestamp
		FROM task_executions WHERE task_id = ? ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("query task executions: %w", err)
	}
	defer rows.Close()
	return scanExecutions(rows)
}

// GetRecent returns the most recent limit executions across all tasks,
// most recent first.
func (s *Store) GetRecent(ctx context.Context, limit int) ([]*Execution, error) {
	const query = `SELECT id, task_id, kind, description, status, success, output, error_message, exit_code, duration_ms, retry_count, trigger_source, timestamp
		FROM task_executions ORDER BY id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent executions: %w", err)
	}
	defer rows.Close()
	return scanExecutions(rows)
}

func scanExecutions(rows *sql.Rows) ([]*Execution, error) {
	var out []*Execution
	for rows.Next() {
		e := &Execution{}
		var description, output, errMsg, triggerSource sql.NullString
		if err := rows.Scan(
			&e.ID, &e.TaskID, &e.Kind, &description, &e.Status, &e.Success,
			&output, &errMsg, &e.ExitCode, &e.DurationMS, &e.RetryCount,
			&triggerSource, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan execution row: %w", err)
		}
		e.Description = description.String
		e.Output = output.String
		e.ErrorMessage = errMsg.String
		e.TriggerSource = triggerSource.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution rows: %w", err)
	}
	return out, nil
}

// Clear deletes every execution record.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM task_executions")
	if err != nil {
		return fmt.Errorf("clear task executions: %w", err)
	}
	return nil
}
