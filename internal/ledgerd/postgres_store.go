package ledgerd

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error codes
const pgErrUniqueViolation = "23505" // unique_violation

// PostgresStore implements Store on a PostgreSQL pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn, verifies the connection, and ensures the
// schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS accounts (
			account_id         TEXT PRIMARY KEY,
			balance            BIGINT NOT NULL DEFAULT 0,
			last_issuance_unix BIGINT NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS issuances (
			settlement_ref TEXT PRIMARY KEY,
			account_id     TEXT NOT NULL,
			handle         TEXT NOT NULL,
			raw_score      BIGINT NOT NULL,
			amount         BIGINT NOT NULL,
			issued_at_unix BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS issuances_account_idx ON issuances (account_id, issued_at_unix);
	`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate ledger schema: %w", err)
	}
	return nil
}

// Account implements Store.
func (s *PostgresStore) Account(ctx context.Context, accountID string) (Account, error) {
	query := `
		SELECT account_id, balance, last_issuance_unix
		FROM accounts
		WHERE account_id = $1
	`

	var acct Account
	err := s.pool.QueryRow(ctx, query, accountID).Scan(&acct.AccountID, &acct.Balance, &acct.LastIssuanceUnix)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{AccountID: accountID}, nil
	}
	if err != nil {
		return Account{}, fmt.Errorf("get account: %w", err)
	}
	return acct, nil
}

// Apply implements Store. The issuance insert and the balance update run in
// one transaction; the settlement_ref primary key rejects replays.
func (s *PostgresStore) Apply(ctx context.Context, iss Issuance) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin apply: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO issuances (settlement_ref, account_id, handle, raw_score, amount, issued_at_unix)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, iss.SettlementRef, iss.AccountID, iss.Handle, iss.RawScore, iss.Amount, iss.IssuedAtUnix)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateRef
		}
		return fmt.Errorf("insert issuance: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO accounts (account_id, balance, last_issuance_unix)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO UPDATE
		SET balance = accounts.balance + EXCLUDED.balance,
		    last_issuance_unix = EXCLUDED.last_issuance_unix
	`, iss.AccountID, iss.Amount, iss.IssuedAtUnix)
	if err != nil {
		return fmt.Errorf("credit account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit apply: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}
	return false
}
