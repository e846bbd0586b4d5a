package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"todosync/domain"
)

var (
	// ErrTaskNotFound is returned when a task write matches no row owned by the caller.
	ErrTaskNotFound = errors.New("task not found")
	// ErrUserNotFound is returned when the account does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when registering an already-taken email.
	ErrUserExists = errors.New("user already exists")
)

// Store is the durable owner of record for accounts and tasks, backed by SQLite.
type Store struct {
	db *sql.DB
}

// New opens or creates the database at path and initializes the schema.
// Use ":memory:" for tests.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS users (
			email    TEXT PRIMARY KEY,
			password TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS tasks (
			id      TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			done    INTEGER NOT NULL DEFAULT 0,
			owner   TEXT NOT NULL REFERENCES users(email) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTask inserts a new task row.
func (s *Store) CreateTask(ctx context.Context, t domain.Task) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO tasks (id, content, done, owner) VALUES (?, ?, ?, ?)",
		t.ID, t.Content, t.Done, t.Owner)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// DeleteTask removes the task with the given id, provided owner owns it.
func (s *Store) DeleteTask(ctx context.Context, id, owner string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM tasks WHERE id = ? AND owner = ?", id, owner)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return oneRow(res)
}

// UpdateContent sets the content field of one task.
func (s *Store) UpdateContent(ctx context.Context, id, owner, content string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET content = ? WHERE id = ? AND owner = ?", content, id, owner)
	if err != nil {
		return fmt.Errorf("update content: %w", err)
	}
	return oneRow(res)
}

// UpdateDone sets the done field of one task.
func (s *Store) UpdateDone(ctx context.Context, id, owner string, done bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET done = ? WHERE id = ? AND owner = ?", done, id, owner)
	if err != nil {
		return fmt.Errorf("update done: %w", err)
	}
	return oneRow(res)
}

func oneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// ListByOwner returns every task owned by the given account.
func (s *Store) ListByOwner(ctx context.Context, owner string) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, done FROM tasks WHERE owner = ?", owner)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	tasks := []domain.Task{}
	for rows.Next() {
		t := domain.Task{Owner: owner}
		if err := rows.Scan(&t.ID, &t.Content, &t.Done); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// AddUser registers an account with an already-hashed password.
func (s *Store) AddUser(ctx context.Context, email, passwordHash string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM users WHERE email = ?", email).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if exists > 0 {
		return ErrUserExists
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO users (email, password) VALUES (?, ?)", email, passwordHash); err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	return nil
}

// PasswordHash returns the stored password hash for the account.
func (s *Store) PasswordHash(ctx context.Context, email string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		"SELECT password FROM users WHERE email = ?", email).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("fetch password: %w", err)
	}
	return hash, nil
}

// DeleteUser removes the account and, through the foreign key, all its tasks.
func (s *Store) DeleteUser(ctx context.Context, email string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE email = ?", email)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
