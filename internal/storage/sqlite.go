package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Novip1906/todo-api/internal/models"
)

// SQLiteStorage keeps tasks in a single local database file. Writes go
// through one connection.
type SQLiteStorage struct {
	db  *sql.DB
	log *slog.Logger
}

func NewSQLiteStorage(path string, log *slog.Logger) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cannot open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("cannot connect to db: %w", err)
	}

	s := &SQLiteStorage{db: db, log: log}

	if err := s.init(); err != nil {
		return nil, fmt.Errorf("cannot initialize db schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStorage) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		text TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS tasks_owner_completed_idx ON tasks (owner_id, completed);`
	_, err := s.db.Exec(schema)
	return err
}

func scanSQLiteTask(row rowScanner) (*models.Task, error) {
	var task models.Task
	var created, updated int64
	if err := row.Scan(&task.Id, &task.OwnerId, &task.Text, &task.Completed, &created, &updated); err != nil {
		return nil, err
	}
	task.CreatedAt = time.Unix(0, created).UTC()
	task.UpdatedAt = time.Unix(0, updated).UTC()
	return &task, nil
}

func (s *SQLiteStorage) CreateTask(ctx context.Context, ownerId, text string) (*models.Task, error) {
	now := time.Now().UnixNano()
	query := "INSERT INTO tasks (id, owner_id, text, completed, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?) RETURNING " + taskColumns
	return scanSQLiteTask(s.db.QueryRowContext(ctx, query, uuid.NewString(), ownerId, text, now, now))
}

func (s *SQLiteStorage) ListTasks(ctx context.Context, ownerId string, completed *bool) ([]*models.Task, error) {
	query := `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE owner_id = ? AND (? IS NULL OR completed = ?)
	ORDER BY created_at, id`

	var flag sql.NullBool
	if completed != nil {
		flag = sql.NullBool{Bool: *completed, Valid: true}
	}

	rows, err := s.db.QueryContext(ctx, query, ownerId, flag, flag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateTask reads the replaced text and rewrites the row inside one
// transaction; both statements match on id and owner. SQLite cannot return
// pre-update values from RETURNING, and the pool holds a single connection,
// so no other write can land between the two statements.
func (s *SQLiteStorage) UpdateTask(ctx context.Context, ownerId, taskId string, upd models.TaskUpdate) (*models.Task, string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", err
	}
	defer tx.Rollback()

	var oldText string
	err = tx.QueryRowContext(ctx, "SELECT text FROM tasks WHERE id = ? AND owner_id = ?", taskId, ownerId).Scan(&oldText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrTaskNotFound
	}
	if err != nil {
		return nil, "", err
	}

	query := `
	UPDATE tasks SET text = ?, completed = ?, updated_at = ?
	WHERE id = ? AND owner_id = ?
	RETURNING ` + taskColumns
	task, err := scanSQLiteTask(tx.QueryRowContext(ctx, query, upd.Text, upd.Completed, time.Now().UnixNano(), taskId, ownerId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrTaskNotFound
	}
	if err != nil {
		return nil, "", err
	}

	if err := tx.Commit(); err != nil {
		return nil, "", err
	}
	return task, oldText, nil
}

func (s *SQLiteStorage) DeleteTask(ctx context.Context, ownerId, taskId string) (*models.Task, error) {
	query := "DELETE FROM tasks WHERE id = ? AND owner_id = ? RETURNING " + taskColumns
	task, err := scanSQLiteTask(s.db.QueryRowContext(ctx, query, taskId, ownerId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *SQLiteStorage) DeleteAllTasks(ctx context.Context, ownerId string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE owner_id = ?", ownerId)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStorage) Close(context.Context) error {
	return s.db.Close()
}
