package process

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"twinpass/internal/aas"
	dErrors "twinpass/pkg/domain-errors"
	"twinpass/pkg/requestcontext"
)

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS processes (
	id                TEXT PRIMARY KEY,
	connector_address TEXT NOT NULL DEFAULT '',
	bpn               TEXT NOT NULL DEFAULT '',
	passport_path     TEXT NOT NULL DEFAULT '',
	search_record     JSONB,
	digital_twin      JSONB,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS process_history (
	seq        BIGSERIAL PRIMARY KEY,
	process_id TEXT NOT NULL REFERENCES processes(id),
	name       TEXT NOT NULL,
	state      TEXT NOT NULL,
	asset_id   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS process_history_process_id_idx ON process_history (process_id, seq);
`

// PostgresStore persists processes in PostgreSQL. Per-process serialization
// comes from row-level locking (SELECT ... FOR UPDATE); history rows are
// append-only and ordered by sequence.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed process store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the process schema. Idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate process schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, id string) (*Process, error) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO processes (id) VALUES ($1)`, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, dErrors.New(dErrors.CodeConflict, "process ["+id+"] already exists")
		}
		return nil, fmt.Errorf("create process: %w", err)
	}
	return &Process{ID: id}, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Process, error) {
	p := &Process{ID: id}
	var searchRecord, digitalTwin []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT connector_address, bpn, passport_path, search_record, digital_twin
		FROM processes WHERE id = $1`, id).
		Scan(&p.ConnectorAddress, &p.BPN, &p.PassportPath, &searchRecord, &digitalTwin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeNotFound, "process ["+id+"] not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get process: %w", err)
	}

	if searchRecord != nil {
		var record SearchRecord
		if err := json.Unmarshal(searchRecord, &record); err != nil {
			return nil, fmt.Errorf("decode search record: %w", err)
		}
		p.Search = &record
	}
	if digitalTwin != nil {
		var twin aas.DigitalTwin
		if err := json.Unmarshal(digitalTwin, &twin); err != nil {
			return nil, fmt.Errorf("decode digital twin: %w", err)
		}
		p.DigitalTwin = &twin
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, state, asset_id, created_at
		FROM process_history WHERE process_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("load process history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t StatusTransition
		if err := rows.Scan(&t.Name, &t.State, &t.AssetID, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		p.History = append(p.History, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) AppendStatus(ctx context.Context, id, name string, state State, assetID string) (*Process, error) {
	err := s.withProcessLock(ctx, id, func(tx *sql.Tx) error {
		return appendHistory(ctx, tx, id, name, state, assetID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *PostgresStore) AttachSearchRecord(ctx context.Context, id string, record SearchRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode search record: %w", err)
	}
	return s.withProcessLock(ctx, id, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE processes SET search_record = $2 WHERE id = $1`, id, payload); err != nil {
			return fmt.Errorf("attach search record: %w", err)
		}
		return appendHistory(ctx, tx, id, StatusSearchAttached, StateInProgress, record.AssetID)
	})
}

func (s *PostgresStore) AttachDigitalTwin(ctx context.Context, id string, twin *aas.DigitalTwin) error {
	payload, err := json.Marshal(twin)
	if err != nil {
		return fmt.Errorf("encode digital twin: %w", err)
	}
	return s.withProcessLock(ctx, id, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE processes SET digital_twin = $2 WHERE id = $1`, id, payload); err != nil {
			return fmt.Errorf("attach digital twin: %w", err)
		}
		return appendHistory(ctx, tx, id, StatusTwinAttached, StateInProgress, "")
	})
}

func (s *PostgresStore) AttachPassport(ctx context.Context, id, location string) error {
	return s.withProcessLock(ctx, id, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE processes SET passport_path = $2 WHERE id = $1`, id, location); err != nil {
			return fmt.Errorf("attach passport: %w", err)
		}
		return appendHistory(ctx, tx, id, StatusPassportStored, StateInProgress, "")
	})
}

func (s *PostgresStore) SetConnector(ctx context.Context, id, address, bpn string) error {
	return s.withProcessLock(ctx, id, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE processes SET connector_address = $2, bpn = $3 WHERE id = $1`, id, address, bpn); err != nil {
			return fmt.Errorf("set connector: %w", err)
		}
		return nil
	})
}

// withProcessLock runs fn in a transaction holding the row lock for id, so
// mutations on one process are serialized while other processes proceed.
func (s *PostgresStore) withProcessLock(ctx context.Context, id string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var locked string
	err = tx.QueryRowContext(ctx, `SELECT id FROM processes WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return dErrors.New(dErrors.CodeNotFound, "process ["+id+"] not found")
	}
	if err != nil {
		return fmt.Errorf("lock process row: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func appendHistory(ctx context.Context, tx *sql.Tx, id, name string, state State, assetID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO process_history (process_id, name, state, asset_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		id, name, string(state), assetID, requestcontext.Now(ctx))
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}
