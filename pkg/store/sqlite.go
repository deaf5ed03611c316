package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/modfort/modfort/pkg/errors"
	"github.com/modfort/modfort/pkg/mod"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS mods (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	version      TEXT NOT NULL,
	enabled      INTEGER NOT NULL DEFAULT 0,
	install_path TEXT NOT NULL DEFAULT '',
	installed_at TIMESTAMP,
	updated_at   TIMESTAMP,
	record       TEXT NOT NULL
);
`

// SQLiteStore keeps all records in a single SQLite database. The full
// record is stored as a JSON column; the indexed columns exist for
// queries and sorting, with the JSON as the source of truth.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (creating if needed) the database at dsn and
// ensures the schema exists.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "open database %s", dsn)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "migrate schema")
	}
	return &SQLiteStore{db: db}, nil
}

// modRow mirrors the mods table for sqlx scanning.
type modRow struct {
	ID          string     `db:"id"`
	Name        string     `db:"name"`
	Version     string     `db:"version"`
	Enabled     bool       `db:"enabled"`
	InstallPath string     `db:"install_path"`
	InstalledAt *time.Time `db:"installed_at"`
	UpdatedAt   *time.Time `db:"updated_at"`
	Record      string     `db:"record"`
}

func (r modRow) decode() (*mod.Record, error) {
	var rec mod.Record
	if err := json.Unmarshal([]byte(r.Record), &rec); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "corrupt record %s", r.ID)
	}
	return &rec, nil
}

// List implements Store.
func (s *SQLiteStore) List() ([]*mod.Record, error) {
	var rows []modRow
	if err := s.db.Select(&rows, `SELECT * FROM mods ORDER BY id`); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "list records")
	}
	records := make([]*mod.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.decode()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(id string) (*mod.Record, error) {
	var row modRow
	err := s.db.Get(&row, `SELECT * FROM mods WHERE id = ?`, mod.CanonicalID(id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "get record %s", id)
	}
	return row.decode()
}

// Put implements Store.
func (s *SQLiteStore) Put(r *mod.Record) error {
	if err := r.Normalize(); err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode record %s", r.ID)
	}
	_, err = s.db.Exec(`
		INSERT INTO mods (id, name, version, enabled, install_path, installed_at, updated_at, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			version = excluded.version,
			enabled = excluded.enabled,
			install_path = excluded.install_path,
			installed_at = excluded.installed_at,
			updated_at = excluded.updated_at,
			record = excluded.record`,
		r.ID, r.Name, r.Version, r.Enabled, r.InstallPath, r.InstalledAt, r.UpdatedAt, string(data))
	if err != nil {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "put record %s", r.ID)
	}
	return nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM mods WHERE id = ?`, mod.CanonicalID(id)); err != nil {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "delete record %s", id)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error { return s.db.Close() }
