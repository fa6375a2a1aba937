package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"slotbook/internal/models"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// SQLiteStore keeps bookings in a sqlite database while preserving the
// whole-collection read/write contract of the file store.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSQLiteStore(path string, logger *zerolog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "storage").Logger()
	}
	log.Info().Str("path", path).Msg("sqlite store initialized")

	return &SQLiteStore{db: db, logger: log}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            date TEXT NOT NULL,
            time TEXT NOT NULL,
            service TEXT NOT NULL,
            user_id TEXT NOT NULL,
            name TEXT,
            created_at TEXT NOT NULL
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_slot ON bookings(date, time)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_date ON bookings(date)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (s *SQLiteStore) ReadAll() []models.Booking {
	rows, err := s.db.Query(`SELECT date, time, service, user_id, name, created_at FROM bookings ORDER BY id`)
	if err != nil {
		s.logger.Error().Err(err).Msg("read bookings")
		return []models.Booking{}
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		var b models.Booking
		var name sql.NullString
		if err := rows.Scan(&b.Date, &b.Time, &b.Service, &b.UserID, &name, &b.CreatedAt); err != nil {
			s.logger.Error().Err(err).Msg("scan booking row")
			return []models.Booking{}
		}
		b.Name = name.String
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		s.logger.Error().Err(err).Msg("iterate booking rows")
		return []models.Booking{}
	}
	return bookings
}

func (s *SQLiteStore) WriteAll(bookings []models.Booking) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.Exec(`DELETE FROM bookings`); err != nil {
		return fmt.Errorf("clear bookings: %w", err)
	}

	insert := `INSERT INTO bookings (date, time, service, user_id, name, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	for _, b := range bookings {
		if _, err := tx.Exec(insert, b.Date, b.Time, b.Service, b.UserID, b.Name, b.CreatedAt); err != nil {
			return fmt.Errorf("insert booking %s: %w", b.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bookings: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
