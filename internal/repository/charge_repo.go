package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendalivre/payhub/internal/model"
)

type ChargeRepository struct {
	pool *pgxpool.Pool
}

func NewChargeRepository(pool *pgxpool.Pool) *ChargeRepository {
	return &ChargeRepository{pool: pool}
}

func (r *ChargeRepository) Insert(ctx context.Context, c *model.Charge) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO charges (order_id, gateway, method, amount_minor, status, external_ref,
		        gross_minor, plugin_fee_minor, gateway_fee_minor, net_minor, fee_tier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		c.OrderID, c.Gateway, c.Method, c.AmountMinor, c.Status, c.ExternalRef,
		c.Fees.GrossMinor, c.Fees.PluginFeeMinor, c.Fees.GatewayFeeMinor, c.Fees.NetMinor, c.Fees.Tier,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *ChargeRepository) GetByID(ctx context.Context, id string) (*model.Charge, error) {
	return r.scanOne(ctx,
		`SELECT id, order_id, gateway, method, amount_minor, status, external_ref,
		        gross_minor, plugin_fee_minor, gateway_fee_minor, net_minor, fee_tier,
		        created_at, updated_at
		FROM charges WHERE id = $1`, id)
}

// GetByExternalRef resolves an inbound webhook reference to its charge.
func (r *ChargeRepository) GetByExternalRef(ctx context.Context, gateway model.Gateway, externalRef string) (*model.Charge, error) {
	return r.scanOne(ctx,
		`SELECT id, order_id, gateway, method, amount_minor, status, external_ref,
		        gross_minor, plugin_fee_minor, gateway_fee_minor, net_minor, fee_tier,
		        created_at, updated_at
		FROM charges WHERE gateway = $1 AND external_ref = $2`, gateway, externalRef)
}

func (r *ChargeRepository) scanOne(ctx context.Context, query string, args ...any) (*model.Charge, error) {
	var c model.Charge
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&c.ID, &c.OrderID, &c.Gateway, &c.Method, &c.AmountMinor, &c.Status, &c.ExternalRef,
		&c.Fees.GrossMinor, &c.Fees.PluginFeeMinor, &c.Fees.GatewayFeeMinor, &c.Fees.NetMinor, &c.Fees.Tier,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateStatus moves a charge to status only when the row is still in
// expectedFrom, making the transition itself the concurrency guard.
// Returns whether a row changed.
func (r *ChargeRepository) UpdateStatus(ctx context.Context, id string, expectedFrom, status model.Status) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE charges SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`,
		status, id, expectedFrom,
	)
	if err != nil {
		return false, fmt.Errorf("update charge status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AppendNote records an order annotation alongside the charge.
func (r *ChargeRepository) AppendNote(ctx context.Context, id, note string) error {
	raw, err := json.Marshal(note)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE charges SET notes = notes || $1::jsonb, updated_at = now() WHERE id = $2`,
		string(raw), id,
	)
	return err
}
