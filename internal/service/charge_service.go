package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/vendalivre/payhub/internal/fees"
	"github.com/vendalivre/payhub/internal/gateway"
	"github.com/vendalivre/payhub/internal/model"
	"github.com/vendalivre/payhub/internal/order"
	"github.com/vendalivre/payhub/internal/payerr"
)

// AdapterSource resolves a gateway id to its adapter. Implemented by
// gateway.Registry.
type AdapterSource interface {
	Adapter(gw model.Gateway) (gateway.Adapter, error)
}

type ChargeService struct {
	adapters   AdapterSource
	fees       fees.Calculator
	validator  TransactionValidator
	charges    ChargeStore
	ledger     LedgerStore
	events     OrderEvents
	merchantID string

	// group collapses concurrent duplicate submissions for the same
	// order/gateway/method into one provider call.
	group singleflight.Group
}

func NewChargeService(adapters AdapterSource, calc fees.Calculator, v TransactionValidator, charges ChargeStore, ledger LedgerStore, events OrderEvents, merchantID string) *ChargeService {
	return &ChargeService{
		adapters:   adapters,
		fees:       calc,
		validator:  v,
		charges:    charges,
		ledger:     ledger,
		events:     events,
		merchantID: merchantID,
	}
}

// CreateChargeInput carries the checkout data for one attempt. Any
// wallet id found in caller payment data is deliberately absent here:
// splits are built exclusively from the validator's answer.
type CreateChargeInput struct {
	Order             *order.Snapshot
	Gateway           model.Gateway
	Method            model.Method
	ProductType       string
	Installments      int
	Card              *gateway.Card
	PixExpirationSecs int
	BoletoDueDate     string
}

type ChargeResult struct {
	Charge   *model.Charge
	Artifact *model.PaymentArtifact
	Fees     model.FeeBreakdown
}

func (s *ChargeService) CreateCharge(ctx context.Context, in *CreateChargeInput) (*ChargeResult, error) {
	key := in.Order.ID() + "|" + string(in.Gateway) + "|" + string(in.Method)
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.createCharge(ctx, in)
	})
	if err != nil {
		return nil, err
	}
	return v.(*ChargeResult), nil
}

func (s *ChargeService) createCharge(ctx context.Context, in *CreateChargeInput) (*ChargeResult, error) {
	adapter, err := s.adapters.Adapter(in.Gateway)
	if err != nil {
		return nil, err
	}
	if !adapter.Supports(in.Method) {
		return nil, payerr.New(payerr.KindValidation, "gateway %s does not support method %s", in.Gateway, in.Method)
	}

	breakdown, err := s.fees.CalculateAllFees(in.Order.TotalMinor(), in.ProductType, in.Gateway, in.Method)
	if err != nil {
		return nil, err
	}

	auth, err := s.validator.Validate(ctx, breakdown.GrossMinor, s.merchantID, in.Gateway, in.Method)
	if err != nil {
		// Annotate and surface the validator's answer verbatim; the
		// provider is never contacted.
		in.Order.AddNote(fmt.Sprintf("Pagamento não autorizado pelo validador central: %v", err))
		return nil, err
	}

	req := &gateway.ChargeRequest{
		Order:             in.Order,
		Method:            in.Method,
		AmountMinor:       breakdown.GrossMinor,
		Installments:      in.Installments,
		Card:              in.Card,
		PixExpirationSecs: in.PixExpirationSecs,
		BoletoDueDate:     in.BoletoDueDate,
		Fees:              breakdown,
	}
	if breakdown.PluginFeeMinor > 0 && auth.WalletID != "" {
		req.Split = &model.SplitRule{
			WalletID:         auth.WalletID,
			AmountMinor:      breakdown.PluginFeeMinor,
			ChargeProcessing: true,
		}
	}

	artifact, err := s.dispatch(ctx, adapter, req)
	if err != nil {
		return nil, err
	}

	charge := &model.Charge{
		OrderID:     in.Order.ID(),
		Gateway:     in.Gateway,
		Method:      in.Method,
		AmountMinor: breakdown.GrossMinor,
		Status:      model.StatusPending,
		ExternalRef: artifact.ExternalRef,
		Fees:        breakdown,
	}
	if err := s.charges.Insert(ctx, charge); err != nil {
		return nil, fmt.Errorf("persist charge %s/%s: %w", in.Gateway, artifact.ExternalRef, err)
	}

	if _, err := s.ledger.Append(ctx, &model.LedgerEntry{
		Type:        model.EntryCharge,
		Gateway:     in.Gateway,
		ExternalRef: artifact.ExternalRef,
		GrossMinor:  breakdown.GrossMinor,
		FeeMinor:    breakdown.PluginFeeMinor + breakdown.GatewayFeeMinor,
		NetMinor:    breakdown.NetMinor,
		Status:      model.StatusPending,
	}); err != nil {
		return nil, fmt.Errorf("ledger entry for %s/%s: %w", in.Gateway, artifact.ExternalRef, err)
	}

	in.Order.AddNote(fmt.Sprintf("Cobrança %s criada via %s (%s)", artifact.ExternalRef, in.Gateway, in.Method))

	// Some providers answer terminally on the synchronous call (card
	// authorizations). Run those through the same transition path the
	// reconciler uses so both arrive at identical states.
	if artifact.Status.Terminal() {
		if _, err := applyTransition(ctx, s.charges, s.ledger, s.events, charge, artifact.Status); err != nil {
			log.Error().Err(err).Str("charge", charge.ID).Msg("apply synchronous terminal status")
		}
	}

	return &ChargeResult{Charge: charge, Artifact: artifact, Fees: breakdown}, nil
}

func (s *ChargeService) dispatch(ctx context.Context, adapter gateway.Adapter, req *gateway.ChargeRequest) (*model.PaymentArtifact, error) {
	switch req.Method {
	case model.MethodPix:
		return adapter.CreatePixPayment(ctx, req)
	case model.MethodBoleto:
		return adapter.CreateBoletoPayment(ctx, req)
	case model.MethodCreditCard:
		return adapter.CreateCreditCardPayment(ctx, req)
	case model.MethodDebitCard:
		return adapter.CreateDebitCardPayment(ctx, req)
	}
	return nil, payerr.New(payerr.KindValidation, "unknown payment method %s", req.Method)
}

// GetCharge returns the stored charge. With refresh, the provider is
// polled first and any status change reconciled through the same
// transition path webhooks use.
func (s *ChargeService) GetCharge(ctx context.Context, id string, refresh bool) (*model.Charge, error) {
	charge, err := s.charges.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !refresh || charge.Status.Terminal() {
		return charge, nil
	}

	adapter, err := s.adapters.Adapter(charge.Gateway)
	if err != nil {
		return nil, err
	}
	status, err := adapter.GetStatus(ctx, charge.ExternalRef)
	if err != nil {
		return nil, err
	}
	if _, err := applyTransition(ctx, s.charges, s.ledger, s.events, charge, status); err != nil {
		return nil, err
	}
	return charge, nil
}

func (s *ChargeService) Cancel(ctx context.Context, id string) (*model.Charge, error) {
	charge, err := s.charges.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !charge.Status.CanTransition(model.StatusCancelled) {
		return nil, payerr.New(payerr.KindValidation, "charge %s in status %s cannot be cancelled", id, charge.Status)
	}
	adapter, err := s.adapters.Adapter(charge.Gateway)
	if err != nil {
		return nil, err
	}
	if err := adapter.Cancel(ctx, charge.ExternalRef); err != nil {
		return nil, err
	}
	if _, err := applyTransition(ctx, s.charges, s.ledger, s.events, charge, model.StatusCancelled); err != nil {
		return nil, err
	}
	return charge, nil
}

func (s *ChargeService) Refund(ctx context.Context, id string, amountMinor int64) (*model.Charge, error) {
	charge, err := s.charges.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !charge.Status.CanTransition(model.StatusRefunded) {
		return nil, payerr.New(payerr.KindValidation, "charge %s in status %s cannot be refunded", id, charge.Status)
	}
	adapter, err := s.adapters.Adapter(charge.Gateway)
	if err != nil {
		return nil, err
	}
	if err := adapter.Refund(ctx, charge.ExternalRef, amountMinor); err != nil {
		return nil, err
	}
	if _, err := applyTransition(ctx, s.charges, s.ledger, s.events, charge, model.StatusRefunded); err != nil {
		return nil, err
	}
	return charge, nil
}
