//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"studydex/internal/model"

	_ "modernc.org/sqlite"
)

const defaultProfile = "default"

type SQLiteStore struct {
	path    string
	profile string

	mu sync.RWMutex
	db *sqlx.DB
}

type stateRow struct {
	Profile       string `db:"profile"`
	SchemaVersion int    `db:"schema_version"`
	CodecVersion  int    `db:"codec_version"`
	Payload       []byte `db:"payload"`
	UpdatedAt     string `db:"updated_at"`
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path, profile: defaultProfile}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sqlx.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	// modernc.org/sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (model.State, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.State{}, false, err
	}

	var row stateRow
	err = db.GetContext(ctx, &row, `
		SELECT profile, schema_version, codec_version, payload, updated_at
		FROM app_state WHERE profile = ?
	`, s.profile)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.State{}, false, nil
		}
		return model.State{}, false, err
	}
	if err := checkVersion(model.VersionedRecord{SchemaVersion: row.SchemaVersion, CodecVersion: row.CodecVersion}); err != nil {
		return model.State{}, false, fmt.Errorf("load state %s: %w", row.Profile, err)
	}

	state, err := DecodeState(row.Payload)
	if err != nil {
		return model.State{}, false, fmt.Errorf("decode state %s: %w", row.Profile, err)
	}
	return state, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, state model.State) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeState(state)
	if err != nil {
		return err
	}

	_, err = db.NamedExecContext(ctx, `
		INSERT INTO app_state (profile, schema_version, codec_version, payload, updated_at)
		VALUES (:profile, :schema_version, :codec_version, :payload, :updated_at)
		ON CONFLICT(profile) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, stateRow{
		Profile:       s.profile,
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
		Payload:       payload,
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	})
	return err
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sqlx.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS app_state (
			profile TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);
	`)
	return err
}
