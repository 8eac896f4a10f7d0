package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/Novip1906/todo-api/internal/models"
)

type PostgresStorage struct {
	db  *sql.DB
	log *slog.Logger
}

func NewPostgresStorage(host, port, user, password, dbname string, log *slog.Logger) (*PostgresStorage, error) {
	psqlInfo := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname,
	)
	return OpenPostgresStorage(psqlInfo, log)
}

func OpenPostgresStorage(dsn string, log *slog.Logger) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("cannot connect to db: %w", err)
	}

	s := &PostgresStorage{db: db, log: log}

	if err := s.init(); err != nil {
		return nil, fmt.Errorf("cannot initialize db schema: %w", err)
	}

	return s, nil
}

func (s *PostgresStorage) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id UUID PRIMARY KEY,
		owner_id TEXT NOT NULL,
		text TEXT NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS tasks_owner_completed_idx ON tasks (owner_id, completed);`
	_, err := s.db.Exec(schema)
	return err
}

const taskColumns = "id, owner_id, text, completed, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var task models.Task
	if err := row.Scan(&task.Id, &task.OwnerId, &task.Text, &task.Completed, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *PostgresStorage) CreateTask(ctx context.Context, ownerId, text string) (*models.Task, error) {
	query := "INSERT INTO tasks (id, owner_id, text) VALUES ($1, $2, $3) RETURNING " + taskColumns
	return scanTask(s.db.QueryRowContext(ctx, query, uuid.New(), ownerId, text))
}

func (s *PostgresStorage) ListTasks(ctx context.Context, ownerId string, completed *bool) ([]*models.Task, error) {
	query := `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE owner_id=$1 AND ($2::boolean IS NULL OR completed=$2)
	ORDER BY created_at, id`

	var flag sql.NullBool
	if completed != nil {
		flag = sql.NullBool{Bool: *completed, Valid: true}
	}

	rows, err := s.db.QueryContext(ctx, query, ownerId, flag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
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

// UpdateTask locks and rewrites the row matching id and owner in a single
// statement, returning the new row and the text it replaced.
func (s *PostgresStorage) UpdateTask(ctx context.Context, ownerId, taskId string, upd models.TaskUpdate) (*models.Task, string, error) {
	id, err := uuid.Parse(taskId)
	if err != nil {
		return nil, "", ErrTaskNotFound
	}

	query := `
	UPDATE tasks t
	SET text=$3, completed=$4, updated_at=now()
	FROM (SELECT id, text FROM tasks WHERE id=$1 AND owner_id=$2 FOR UPDATE) old
	WHERE t.id = old.id
	RETURNING t.id, t.owner_id, t.text, t.completed, t.created_at, t.updated_at, old.text`

	var (
		task    models.Task
		oldText string
	)
	err = s.db.QueryRowContext(ctx, query, id, ownerId, upd.Text, upd.Completed).Scan(
		&task.Id, &task.OwnerId, &task.Text, &task.Completed, &task.CreatedAt, &task.UpdatedAt, &oldText,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrTaskNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return &task, oldText, nil
}

func (s *PostgresStorage) DeleteTask(ctx context.Context, ownerId, taskId string) (*models.Task, error) {
	id, err := uuid.Parse(taskId)
	if err != nil {
		return nil, ErrTaskNotFound
	}

	query := "DELETE FROM tasks WHERE id=$1 AND owner_id=$2 RETURNING " + taskColumns
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id, ownerId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *PostgresStorage) DeleteAllTasks(ctx context.Context, ownerId string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE owner_id=$1", ownerId)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PostgresStorage) Close(context.Context) error {
	return s.db.Close()
}
