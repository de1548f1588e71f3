package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendalivre/payhub/internal/model"
)

type LedgerRepository struct {
	pool *pgxpool.Pool
}

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Append writes one ledger entry. The (gateway, external_ref, status)
// unique key absorbs webhook redelivery: a duplicate transition writes
// nothing and reports inserted=false.
func (r *LedgerRepository) Append(ctx context.Context, e *model.LedgerEntry) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO ledger_entries (entry_type, gateway, external_ref, gross_minor, fee_minor, net_minor, status, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, '{}'::jsonb))
		ON CONFLICT (gateway, external_ref, status) DO NOTHING`,
		e.Type, e.Gateway, e.ExternalRef, e.GrossMinor, e.FeeMinor, e.NetMinor, e.Status, e.Meta,
	)
	if err != nil {
		return false, fmt.Errorf("append ledger entry: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *LedgerRepository) ListByRef(ctx context.Context, gateway model.Gateway, externalRef string) ([]*model.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, entry_type, gateway, external_ref, gross_minor, fee_minor, net_minor, status, meta, created_at
		FROM ledger_entries WHERE gateway = $1 AND external_ref = $2 ORDER BY created_at`,
		gateway, externalRef,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.ID, &e.Type, &e.Gateway, &e.ExternalRef,
			&e.GrossMinor, &e.FeeMinor, &e.NetMinor, &e.Status, &e.Meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
