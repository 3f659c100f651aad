package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite "modernc.org/sqlite"
)

const (
	sqliteConstraintCode = 19
	defaultBusyTimeout   = 5000
)

// Store wraps the SQLite handle holding room reservations. Reservations are
// the only persisted state: a reserved key (and its optional passcode hash)
// survives a restart, live session state never does.
type Store struct {
	db *sql.DB
}

// Reservation is a row in the rooms table.
type Reservation struct {
	Key          string
	PasscodeHash []byte
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// ErrRoomReserved is returned when inserting a key that is already taken.
var ErrRoomReserved = errors.New("room key already reserved")

// NewStore initializes the SQLite database at the provided path. Call Close when done.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "groupcode.db"
	}
	dsn := buildDSN(path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying DB connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func buildDSN(path string) string {
	switch {
	case strings.HasPrefix(path, "sqlite://"):
		path = path[len("sqlite://"):]
	case strings.HasPrefix(path, "file:"), strings.HasPrefix(path, ":memory:"):
		// already in a form sqlite understands
	default:
		path = "file:" + path
	}
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout=%d&_pragma=foreign_keys=ON", path, separator, defaultBusyTimeout)
}

// Migrate runs the schema creation statements.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			key TEXT PRIMARY KEY,
			passcode_hash BLOB,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rooms_expires_at ON rooms(expires_at);`,
	}
	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return err
		}
	}
	return nil
}

// CreateReservation inserts a reserved room key. ErrRoomReserved is returned
// when the key is already taken.
func (s *Store) CreateReservation(ctx context.Context, key string, passcodeHash []byte, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms(key, passcode_hash, expires_at) VALUES(?, ?, ?)`,
		key, passcodeHash, expiresAt.UTC())
	if err != nil && isConstraintError(err) {
		return ErrRoomReserved
	}
	return err
}

// GetReservation returns the reservation for the key, or nil when the key is
// unreserved or its reservation has expired.
func (s *Store) GetReservation(ctx context.Context, key string) (*Reservation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, passcode_hash, created_at, expires_at FROM rooms WHERE key = ?`, key)
	var res Reservation
	if err := row.Scan(&res.Key, &res.PasscodeHash, &res.CreatedAt, &res.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if time.Now().After(res.ExpiresAt) {
		return nil, nil
	}
	return &res, nil
}

// DeleteReservation removes a reserved key. Deleting an unknown key is a no-op.
func (s *Store) DeleteReservation(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE key = ?`, key)
	return err
}

// ListReservations returns every stored reservation, expired ones included.
// The startup sweep uses it to reap rows that lapsed while the process was down.
func (s *Store) ListReservations(ctx context.Context) ([]Reservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, passcode_hash, created_at, expires_at FROM rooms ORDER BY expires_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reservations []Reservation
	for rows.Next() {
		var res Reservation
		if err := rows.Scan(&res.Key, &res.PasscodeHash, &res.CreatedAt, &res.ExpiresAt); err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqliteConstraintCode
	}
	return false
}
