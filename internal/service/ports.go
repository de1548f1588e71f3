package service

import (
	"context"
	"errors"

	"github.com/vendalivre/payhub/internal/model"
)

// ErrChargeNotFound is returned when a webhook or lookup references a
// charge we never created.
var ErrChargeNotFound = errors.New("charge not found")

// ChargeStore is the persistence port for charge rows. Implemented by
// repository.ChargeRepository; tests use in-memory fakes.
type ChargeStore interface {
	Insert(ctx context.Context, c *model.Charge) error
	GetByID(ctx context.Context, id string) (*model.Charge, error)
	GetByExternalRef(ctx context.Context, gateway model.Gateway, externalRef string) (*model.Charge, error)
	UpdateStatus(ctx context.Context, id string, expectedFrom, status model.Status) (bool, error)
	AppendNote(ctx context.Context, id, note string) error
}

// LedgerStore is the append-only financial trail. Append reports
// whether a row was actually written; duplicates are silently absorbed
// by the idempotency key.
type LedgerStore interface {
	Append(ctx context.Context, e *model.LedgerEntry) (bool, error)
}

// TransactionValidator authorizes a charge attempt and returns the
// only wallet allowed in a split payload.
type TransactionValidator interface {
	Validate(ctx context.Context, amountMinor int64, merchantID string, gateway model.Gateway, method model.Method) (model.Authorization, error)
}

// OrderEvents receives order-status-changed events. The storefront's
// notification side (email templates etc.) lives behind this.
type OrderEvents interface {
	StatusChanged(ctx context.Context, orderID, orderStatus, note string)
}
