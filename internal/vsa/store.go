package vsa

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"nerdkernel/internal/logging"
)

// PersistentStore persists hypervectors alongside the content they were
// derived from, so a ranker can be rebuilt without re-embedding every
// fact on restart. Backed by the CGO-free `modernc.org/sqlite` driver;
// the schema is plain SQL so a faster driver is a drop-in replacement of
// the same *sql.DB handle.
type PersistentStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// OpenPersistentStore opens (creating if needed) a SQLite-backed vector
// store at path.
func OpenPersistentStore(path string) (*PersistentStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("vsa: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("vsa: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.VSADebug("failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.VSADebug("failed to set sqlite busy_timeout: %v", err)
	}
	s := &PersistentStore{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PersistentStore) initialize() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS hypervectors (
	key TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	vector TEXT NOT NULL
)`)
	return err
}

// Put stores the hypervector derived from content under key, replacing
// any existing entry.
func (s *PersistentStore) Put(key, content string, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("vsa: marshal vector: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT INTO hypervectors (key, content, vector) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET content=excluded.content, vector=excluded.vector",
		key, content, string(data),
	)
	if err != nil {
		logging.VSADebug("failed to persist hypervector for key=%s: %v", key, err)
	}
	return err
}

// Get returns the persisted hypervector for key, if present.
func (s *PersistentStore) Get(key string) ([]float32, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRow("SELECT vector FROM hypervectors WHERE key = ?", key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("vsa: query vector: %w", err)
	}
	var v []float32
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, false, fmt.Errorf("vsa: unmarshal vector: %w", err)
	}
	return v, true, nil
}

// All returns every persisted (key, vector) pair, in no particular
// order, for a full-corpus ranking pass.
func (s *PersistentStore) All() (keys []string, vectors [][]float32, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT key, vector FROM hypervectors")
	if err != nil {
		return nil, nil, fmt.Errorf("vsa: scan vectors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			continue
		}
		var v []float32
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			continue
		}
		keys = append(keys, key)
		vectors = append(vectors, v)
	}
	return keys, vectors, rows.Err()
}

// Close releases the underlying database handle.
func (s *PersistentStore) Close() error {
	return s.db.Close()
}
