package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/postgres"
)

// PostgresStore keeps a single settings row in the rewrite_settings table
// created by EnsureSchema.
type PostgresStore struct {
	db *sql.DB
}

const settingsRowID = 1

const schema = `CREATE TABLE IF NOT EXISTS rewrite_settings (
    id                SMALLINT PRIMARY KEY,
    mode              TEXT NOT NULL,
    term_count_cutoff BIGINT NOT NULL,
    doc_count_percent DOUBLE PRECISION NOT NULL,
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

func NewPostgresStore(client *postgres.Client) *PostgresStore {
	return &PostgresStore{db: client.DB}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating rewrite_settings table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (Settings, error) {
	var out Settings
	var mode string
	err := s.db.QueryRowContext(ctx,
		`SELECT mode, term_count_cutoff, doc_count_percent, updated_at
		   FROM rewrite_settings WHERE id = $1`,
		settingsRowID,
	).Scan(&mode, &out.TermCountCutoff, &out.DocCountPercent, &out.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, apperrors.ErrSettingsNotFound
	}
	if err != nil {
		return Settings{}, fmt.Errorf("querying rewrite settings: %w", err)
	}
	out.Mode = Mode(mode)
	return out, nil
}

func (s *PostgresStore) Save(ctx context.Context, st Settings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rewrite_settings (id, mode, term_count_cutoff, doc_count_percent, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		     mode = EXCLUDED.mode,
		     term_count_cutoff = EXCLUDED.term_count_cutoff,
		     doc_count_percent = EXCLUDED.doc_count_percent,
		     updated_at = EXCLUDED.updated_at`,
		settingsRowID, string(st.Mode), st.TermCountCutoff, st.DocCountPercent, st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving rewrite settings: %w", err)
	}
	return nil
}

// MemoryStore keeps settings in process, for tests and single-node runs
// without Postgres.
type MemoryStore struct {
	mu    sync.Mutex
	saved *Settings
	err   error
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load(context.Context) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Settings{}, s.err
	}
	if s.saved == nil {
		return Settings{}, apperrors.ErrSettingsNotFound
	}
	return *s.saved, nil
}

func (s *MemoryStore) Save(_ context.Context, st Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = &st
	return nil
}
