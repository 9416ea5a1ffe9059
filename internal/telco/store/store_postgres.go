package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"telcoreg/internal/telco/models"
	"telcoreg/pkg/platform/sentinel"
	"telcoreg/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

// pgUniqueViolation is the SQLSTATE for a primary key or unique clash.
const pgUniqueViolation = "23505"

// PostgresStore persists the registry state in PostgreSQL.
// Every rule about who may change what lives in the registry; the store only
// refuses mutations computed against an outdated version, which is what keeps
// processes sharing one database from acting on stale state.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed state store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the registry tables if they are missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure telco schema: %w", err)
	}
	return nil
}

// Load reads the admin and the full directory from one repeatable-read
// snapshot.
func (s *PostgresStore) Load(ctx context.Context) (*models.State, error) {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin load: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	var (
		admin   string
		version int64
	)
	err = sqlTx.QueryRowContext(ctx, `SELECT address, version FROM registry_admin WHERE id = 1`).Scan(&admin, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("load admin: %w", err)
	}

	rows, err := sqlTx.QueryContext(ctx, `
		SELECT address, verified, name, country, website, public_key, registered_at, updated_at, verified_at
		FROM telcos
	`)
	if err != nil {
		return nil, fmt.Errorf("load telcos: %w", err)
	}
	defer rows.Close()

	state := models.NewState(models.Address(admin))
	state.Version = uint64(version)
	for rows.Next() {
		addr, t, err := scanTelco(rows)
		if err != nil {
			return nil, fmt.Errorf("scan telco: %w", err)
		}
		state.Telcos[addr] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate telcos: %w", err)
	}
	return state, nil
}

// Version returns the stored state version, 0 before the first write.
func (s *PostgresStore) Version(ctx context.Context) (uint64, error) {
	var version int64
	err := s.db.QueryRowContext(ctx, `SELECT version FROM registry_admin WHERE id = 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}
	return uint64(version), nil
}

// Apply persists one mutation in its own transaction, or in the caller's
// transaction when ctx carries one. It returns sentinel.ErrConflict when the
// stored version no longer matches m.Version, or when creating an address
// that already has a row.
func (s *PostgresStore) Apply(ctx context.Context, m models.Mutation) error {
	return s.RunInTx(ctx, func(ctx context.Context) error {
		return s.apply(ctx, m)
	})
}

// RunInTx runs fn with a transaction stored in its context. Nested calls join
// the outer transaction.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := tx.From(ctx); ok {
		return fn(ctx)
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) execer {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *PostgresStore) apply(ctx context.Context, m models.Mutation) error {
	if m.Kind == models.MutationSetAdmin {
		return s.setAdmin(ctx, m)
	}
	if err := s.advance(ctx, m.Version); err != nil {
		return err
	}

	switch m.Kind {
	case models.MutationCreateTelco:
		return s.insertTelco(ctx, m.Address, m.Telco)
	case models.MutationPutTelco:
		return s.upsertTelco(ctx, m.Address, m.Telco)
	case models.MutationDeleteTelco:
		if _, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM telcos WHERE address = $1`, m.Address.String()); err != nil {
			return fmt.Errorf("delete telco: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown mutation kind %q", m.Kind)
	}
}

// advance bumps the stored version from expected. The row lock it takes
// serializes concurrent writers; the loser sees zero rows.
func (s *PostgresStore) advance(ctx context.Context, expected uint64) error {
	query := `
		UPDATE registry_admin
		SET version = version + 1, updated_at = now()
		WHERE id = 1 AND version = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, int64(expected))
	if err != nil {
		return fmt.Errorf("advance version: %w", err)
	}
	return requireOneRow(res)
}

// setAdmin writes the admin and advances the version in one statement. On an
// empty table it inserts the genesis row.
func (s *PostgresStore) setAdmin(ctx context.Context, m models.Mutation) error {
	query := `
		INSERT INTO registry_admin (id, address, version, updated_at)
		VALUES (1, $1, $2::bigint + 1, now())
		ON CONFLICT (id) DO UPDATE SET
			address = EXCLUDED.address,
			version = registry_admin.version + 1,
			updated_at = EXCLUDED.updated_at
		WHERE registry_admin.version = $2::bigint
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, m.Address.String(), int64(m.Version))
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) insertTelco(ctx context.Context, addr models.Address, t *models.Telco) error {
	if t == nil {
		return fmt.Errorf("telco record is required")
	}
	query := `
		INSERT INTO telcos (address, verified, name, country, website, public_key, registered_at, updated_at, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query, telcoArgs(addr, t)...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert telco: %w", err)
	}
	return nil
}

func (s *PostgresStore) upsertTelco(ctx context.Context, addr models.Address, t *models.Telco) error {
	if t == nil {
		return fmt.Errorf("telco record is required")
	}
	query := `
		INSERT INTO telcos (address, verified, name, country, website, public_key, registered_at, updated_at, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (address) DO UPDATE SET
			verified = EXCLUDED.verified,
			name = EXCLUDED.name,
			country = EXCLUDED.country,
			website = EXCLUDED.website,
			updated_at = EXCLUDED.updated_at,
			verified_at = EXCLUDED.verified_at
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query, telcoArgs(addr, t)...); err != nil {
		return fmt.Errorf("upsert telco: %w", err)
	}
	return nil
}

func telcoArgs(addr models.Address, t *models.Telco) []any {
	return []any{
		addr.String(),
		t.Verified,
		t.Name,
		t.Country,
		t.Website,
		t.PublicKey,
		t.RegisteredAt,
		t.UpdatedAt,
		t.VerifiedAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTelco(row rowScanner) (models.Address, *models.Telco, error) {
	var (
		addr       string
		t          models.Telco
		verifiedAt sql.NullTime
	)
	if err := row.Scan(&addr, &t.Verified, &t.Name, &t.Country, &t.Website, &t.PublicKey, &t.RegisteredAt, &t.UpdatedAt, &verifiedAt); err != nil {
		return "", nil, err
	}
	if verifiedAt.Valid {
		v := verifiedAt.Time
		t.VerifiedAt = &v
	}
	return models.Address(addr), &t, nil
}
