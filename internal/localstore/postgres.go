package localstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed migrations/001_storefront_kv.up.sql
var schemaSQL string

// DBPool matches the methods from *pgxpool.Pool that PostgresBackend uses,
// so tests can substitute pgxmock.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PostgresBackend stores a profile's keys in the storefront_kv table.
// Used on shared kiosk devices whose profile must outlive the container.
type PostgresBackend struct {
	pool      DBPool
	profileID string
}

// NewPostgresBackend creates a backend scoped to profileID.
func NewPostgresBackend(pool DBPool, profileID string) (*PostgresBackend, error) {
	if pool == nil {
		return nil, errors.New("pool is nil")
	}
	if profileID == "" {
		return nil, errors.New("profileID is empty")
	}
	return &PostgresBackend{pool: pool, profileID: profileID}, nil
}

// EnsureSchema creates the storefront_kv table when it does not exist.
func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	if _, err := b.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.pool.QueryRow(ctx,
		`SELECT value FROM storefront_kv WHERE profile_id=$1 AND key=$2`,
		b.profileID, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

func (b *PostgresBackend) Set(ctx context.Context, key string, value []byte) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO storefront_kv(profile_id, key, value)
		VALUES($1, $2, $3)
		ON CONFLICT (profile_id, key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()
	`, b.profileID, key, value)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (b *PostgresBackend) Delete(ctx context.Context, key string) error {
	_, err := b.pool.Exec(ctx,
		`DELETE FROM storefront_kv WHERE profile_id=$1 AND key=$2`,
		b.profileID, key,
	)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
