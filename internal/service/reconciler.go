package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/vendalivre/payhub/internal/model"
)

// Reconciler drives asynchronous provider events into durable order
// and ledger state. Deliveries are at-least-once and may race a
// user-initiated status poll; both paths funnel through
// applyTransition, so redundant delivery is a no-op, never an error.
type Reconciler struct {
	adapters AdapterSource
	charges  ChargeStore
	ledger   LedgerStore
	events   OrderEvents
}

func NewReconciler(adapters AdapterSource, charges ChargeStore, ledger LedgerStore, events OrderEvents) *Reconciler {
	return &Reconciler{adapters: adapters, charges: charges, ledger: ledger, events: events}
}

type ReconcileResult struct {
	Charge      *model.Charge
	Transition  bool
	OrderStatus string
}

// HandleWebhook processes one inbound provider notification. Parse
// errors propagate (the only case callers should reject); an unknown
// reference returns ErrChargeNotFound without mutation; everything
// else resolves to a deterministic, idempotent transition.
func (r *Reconciler) HandleWebhook(ctx context.Context, gw model.Gateway, body []byte) (*ReconcileResult, error) {
	adapter, err := r.adapters.Adapter(gw)
	if err != nil {
		return nil, err
	}

	event, err := adapter.ParseWebhook(body)
	if err != nil {
		return nil, err
	}

	charge, err := r.charges.GetByExternalRef(ctx, gw, event.ExternalRef)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrChargeNotFound) {
			log.Warn().Str("gateway", string(gw)).Str("external_ref", event.ExternalRef).Msg("webhook for unknown charge")
			return nil, ErrChargeNotFound
		}
		return nil, err
	}

	status := event.Status
	if !event.StatusKnown {
		// Cielo-style notification: only the id arrives, the status
		// lives behind the query API.
		if status, err = adapter.GetStatus(ctx, charge.ExternalRef); err != nil {
			return nil, err
		}
	}

	changed, err := applyTransition(ctx, r.charges, r.ledger, r.events, charge, status)
	if err != nil {
		return nil, err
	}
	return &ReconcileResult{
		Charge:      charge,
		Transition:  changed,
		OrderStatus: charge.Status.OrderStatus(),
	}, nil
}

// applyTransition is the single place charge status ever changes. It
// enforces the state machine, appends exactly one ledger entry per
// real transition and emits the order-status-changed event. Replays
// and disallowed moves are quiet no-ops.
func applyTransition(ctx context.Context, charges ChargeStore, ledger LedgerStore, events OrderEvents, charge *model.Charge, target model.Status) (bool, error) {
	if charge.Status == target {
		return false, nil
	}
	if !charge.Status.CanTransition(target) {
		log.Info().
			Str("charge", charge.ID).
			Str("from", string(charge.Status)).
			Str("to", string(target)).
			Msg("ignoring transition out of terminal state")
		return false, nil
	}

	moved, err := charges.UpdateStatus(ctx, charge.ID, charge.Status, target)
	if err != nil {
		return false, err
	}
	if !moved {
		// Lost a race against a concurrent delivery or poll. Reload:
		// whoever won has already written the ledger entry.
		fresh, err := charges.GetByID(ctx, charge.ID)
		if err != nil {
			return false, err
		}
		*charge = *fresh
		return false, nil
	}
	charge.Status = target

	entryType := model.EntryCharge
	if target == model.StatusRefunded {
		entryType = model.EntryRefund
	}
	inserted, err := ledger.Append(ctx, &model.LedgerEntry{
		Type:        entryType,
		Gateway:     charge.Gateway,
		ExternalRef: charge.ExternalRef,
		GrossMinor:  charge.Fees.GrossMinor,
		FeeMinor:    charge.Fees.PluginFeeMinor + charge.Fees.GatewayFeeMinor,
		NetMinor:    charge.Fees.NetMinor,
		Status:      target,
	})
	if err != nil {
		return false, err
	}
	if !inserted {
		log.Debug().Str("charge", charge.ID).Str("status", string(target)).Msg("ledger entry already present")
	}

	orderStatus := target.OrderStatus()
	note := fmt.Sprintf("Cobrança %s: %s", charge.ExternalRef, target)
	if err := charges.AppendNote(ctx, charge.ID, note); err != nil {
		log.Error().Err(err).Str("charge", charge.ID).Msg("append charge note")
	}
	if events != nil {
		events.StatusChanged(ctx, charge.OrderID, orderStatus, note)
	}

	log.Info().
		Str("charge", charge.ID).
		Str("order", charge.OrderID).
		Str("gateway", string(charge.Gateway)).
		Str("status", string(target)).
		Str("order_status", orderStatus).
		Msg("charge transitioned")
	return true, nil
}

// LogOrderEvents is the default OrderEvents sink: the storefront picks
// status changes up from the log pipeline / outbound notifier.
type LogOrderEvents struct{}

func (LogOrderEvents) StatusChanged(ctx context.Context, orderID, orderStatus, note string) {
	log.Info().
		Str("order", orderID).
		Str("order_status", orderStatus).
		Str("note", note).
		Msg("order status changed")
}
