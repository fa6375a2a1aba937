package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"slotbook/internal/models"

	"github.com/rs/zerolog"
)

// FileStore keeps bookings as a single JSON array on disk. Access is
// serialized through a mutex so concurrent creates cannot both observe a
// slot as free and both land on disk.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger zerolog.Logger
}

func NewFileStore(path string, logger *zerolog.Logger) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "storage").Logger()
	}

	s := &FileStore{path: path, logger: log}

	// Seed an empty collection so the first read does not have to special
	// case a missing file. Failure here is not fatal, ReadAll degrades to
	// an empty result either way.
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("seed bookings file failed")
		}
	}

	s.logger.Info().Str("path", path).Msg("file store initialized")
	return s, nil
}

func (s *FileStore) ReadAll() []models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *FileStore) readLocked() []models.Booking {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("read bookings file")
		return []models.Booking{}
	}

	var bookings []models.Booking
	if err := json.Unmarshal(data, &bookings); err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("parse bookings file")
		return []models.Booking{}
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings
}

func (s *FileStore) WriteAll(bookings []models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(bookings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bookings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write bookings file: %w", err)
	}
	return nil
}
