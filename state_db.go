package main

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// BestShare is one entry of the best-difficulty leaderboard. Entry zero is
// the all-time best record.
type BestShare struct {
	Worker     string
	Difficulty float64
	Timestamp  time.Time
	Hash       string
}

// bestShareStore persists the leaderboard across restarts.
type bestShareStore interface {
	LoadBestShares() ([]BestShare, error)
	SaveBestShares(shares []BestShare) error
	Close() error
}

func openStateDB(dbPath string) (*sql.DB, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_foreign_keys=1&_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureStateTables(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func ensureStateTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS best_shares (
			position INTEGER PRIMARY KEY,
			worker TEXT NOT NULL,
			difficulty REAL NOT NULL,
			timestamp_unix INTEGER NOT NULL,
			hash TEXT
		)
	`)
	return err
}

type sqliteBestShareStore struct {
	db *sql.DB
}

func openBestShareStore(path string) (*sqliteBestShareStore, error) {
	db, err := openStateDB(path)
	if err != nil {
		return nil, err
	}
	return &sqliteBestShareStore{db: db}, nil
}

func (s *sqliteBestShareStore) LoadBestShares() ([]BestShare, error) {
	rows, err := s.db.Query("SELECT worker, difficulty, timestamp_unix, hash FROM best_shares ORDER BY position ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []BestShare
	for rows.Next() {
		var (
			worker string
			diff   float64
			tsUnix int64
			hash   sql.NullString
		)
		if err := rows.Scan(&worker, &diff, &tsUnix, &hash); err != nil {
			return nil, err
		}
		if diff <= 0 {
			continue
		}
		share := BestShare{
			Worker:     strings.TrimSpace(worker),
			Difficulty: diff,
			Hash:       strings.TrimSpace(hash.String),
		}
		if tsUnix > 0 {
			share.Timestamp = time.Unix(tsUnix, 0).UTC()
		}
		shares = append(shares, share)
		if len(shares) >= bestShareCount {
			break
		}
	}
	return shares, rows.Err()
}

// SaveBestShares replaces the stored leaderboard in one transaction.
func (s *sqliteBestShareStore) SaveBestShares(shares []BestShare) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM best_shares"); err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT INTO best_shares (position, worker, difficulty, timestamp_unix, hash) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, share := range shares {
		if i >= bestShareCount {
			break
		}
		if share.Difficulty <= 0 {
			continue
		}
		if _, err := stmt.Exec(i, share.Worker, share.Difficulty, unixOrZero(share.Timestamp), share.Hash); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteBestShareStore) Close() error {
	return s.db.Close()
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
