package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendalivre/payhub/internal/fees"
	"github.com/vendalivre/payhub/internal/model"
	"github.com/vendalivre/payhub/internal/order"
	"github.com/vendalivre/payhub/internal/payerr"
)

func testSnapshot(totalMinor int64) *order.Snapshot {
	return &order.Snapshot{
		OrderID:  "order-42",
		Total:    totalMinor,
		Name:     "João Lima",
		Email:    "joao@example.com",
		Document: "98765432100",
	}
}

func newTestService(a *fakeAdapter, v *fakeValidator, charges *memChargeStore, ledger *memLedger, events *recordingEvents) *ChargeService {
	return NewChargeService(sourceFor(a), fees.NewTieredCalculator(), v, charges, ledger, events, "merchant-1")
}

func TestCreateCharge_SplitCarriesOnlyAuthorizedWallet(t *testing.T) {
	adapter := &fakeAdapter{
		gw: model.GatewayAsaas,
		artifact: &model.PaymentArtifact{
			Gateway:     model.GatewayAsaas,
			Method:      model.MethodPix,
			ExternalRef: "pay_1",
			Status:      model.StatusPending,
			PixPayload:  "00020126",
		},
	}
	validator := &fakeValidator{auth: model.Authorization{WalletID: "wallet-auth", AuthToken: "tok"}}
	charges, ledger, events := newMemChargeStore(), newMemLedger(), &recordingEvents{}
	svc := newTestService(adapter, validator, charges, ledger, events)

	res, err := svc.CreateCharge(context.Background(), &CreateChargeInput{
		Order:   testSnapshot(10000),
		Gateway: model.GatewayAsaas,
		Method:  model.MethodPix,
	})
	require.NoError(t, err)

	require.NotNil(t, adapter.lastReq.Split)
	assert.Equal(t, "wallet-auth", adapter.lastReq.Split.WalletID)
	assert.EqualValues(t, 300, adapter.lastReq.Split.AmountMinor, "split amount is the platform commission")

	assert.Equal(t, model.StatusPending, res.Charge.Status)
	assert.Equal(t, "pay_1", res.Charge.ExternalRef)
	assert.EqualValues(t, 9550, res.Fees.NetMinor)
	assert.Equal(t, 1, ledger.count(), "one pending ledger entry per created charge")
	assert.Equal(t, model.StatusPending, ledger.entries[0].Status)
}

func TestCreateCharge_ValidatorDenialNeverReachesProvider(t *testing.T) {
	adapter := &fakeAdapter{gw: model.GatewayAsaas}
	denial := payerr.New(payerr.KindValidation, "transaction declined by risk engine")
	validator := &fakeValidator{err: denial}
	charges, ledger := newMemChargeStore(), newMemLedger()
	svc := newTestService(adapter, validator, charges, ledger, &recordingEvents{})

	snap := testSnapshot(10000)
	_, err := svc.CreateCharge(context.Background(), &CreateChargeInput{
		Order:   snap,
		Gateway: model.GatewayAsaas,
		Method:  model.MethodPix,
	})

	require.ErrorIs(t, err, denial, "the validator's answer surfaces verbatim")
	assert.Equal(t, 0, adapter.createCalls, "provider must not be contacted after a denial")
	assert.Equal(t, 0, ledger.count())
	require.Len(t, snap.Notes, 1)
	assert.Contains(t, snap.Notes[0], "não autorizado")
}

func TestCreateCharge_NoWalletMeansNoSplit(t *testing.T) {
	adapter := &fakeAdapter{
		gw:       model.GatewayStone,
		artifact: &model.PaymentArtifact{ExternalRef: "st_1", Status: model.StatusPending},
	}
	validator := &fakeValidator{auth: model.Authorization{}}
	svc := newTestService(adapter, validator, newMemChargeStore(), newMemLedger(), &recordingEvents{})

	_, err := svc.CreateCharge(context.Background(), &CreateChargeInput{
		Order:   testSnapshot(10000),
		Gateway: model.GatewayStone,
		Method:  model.MethodPix,
	})
	require.NoError(t, err)
	assert.Nil(t, adapter.lastReq.Split)
}

func TestCreateCharge_UnsupportedMethodFailsClosed(t *testing.T) {
	adapter := &fakeAdapter{
		gw:          model.GatewayRede,
		unsupported: map[model.Method]bool{model.MethodPix: true},
	}
	validator := &fakeValidator{}
	svc := newTestService(adapter, validator, newMemChargeStore(), newMemLedger(), &recordingEvents{})

	_, err := svc.CreateCharge(context.Background(), &CreateChargeInput{
		Order:   testSnapshot(10000),
		Gateway: model.GatewayRede,
		Method:  model.MethodPix,
	})
	assert.Equal(t, payerr.KindValidation, payerr.KindOf(err))
	assert.Equal(t, 0, validator.calls, "no validator round-trip for an unsupported method")
	assert.Equal(t, 0, adapter.createCalls)
}

func TestCreateCharge_SynchronousCardApprovalTransitions(t *testing.T) {
	adapter := &fakeAdapter{
		gw: model.GatewayCielo,
		artifact: &model.PaymentArtifact{
			Gateway:           model.GatewayCielo,
			Method:            model.MethodCreditCard,
			ExternalRef:       "cielo_1",
			Status:            model.StatusPaid,
			AuthorizationCode: "A1",
		},
	}
	validator := &fakeValidator{auth: model.Authorization{WalletID: "w"}}
	charges, ledger, events := newMemChargeStore(), newMemLedger(), &recordingEvents{}
	svc := newTestService(adapter, validator, charges, ledger, events)

	res, err := svc.CreateCharge(context.Background(), &CreateChargeInput{
		Order:   testSnapshot(25000),
		Gateway: model.GatewayCielo,
		Method:  model.MethodCreditCard,
	})
	require.NoError(t, err)

	stored, err := charges.GetByID(context.Background(), res.Charge.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, stored.Status)
	assert.Equal(t, 2, ledger.count(), "pending entry plus the paid transition")

	require.Len(t, events.events, 1)
	assert.Equal(t, "completed", events.events[0].OrderStatus)
}

func TestCreateCharge_ConcurrentDuplicatesCollapse(t *testing.T) {
	gate := make(chan struct{})
	adapter := &fakeAdapter{
		gw:       model.GatewayAsaas,
		gate:     gate,
		artifact: &model.PaymentArtifact{ExternalRef: "pay_dup", Status: model.StatusPending},
	}
	validator := &fakeValidator{auth: model.Authorization{WalletID: "w"}}
	svc := newTestService(adapter, validator, newMemChargeStore(), newMemLedger(), &recordingEvents{})

	const submitters = 5
	var started atomic.Int32
	var wg sync.WaitGroup
	results := make([]*ChargeResult, submitters)
	errs := make([]error, submitters)

	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Add(1)
			results[i], errs[i] = svc.CreateCharge(context.Background(), &CreateChargeInput{
				Order:   testSnapshot(10000),
				Gateway: model.GatewayAsaas,
				Method:  model.MethodPix,
			})
		}(i)
	}

	for started.Load() < submitters {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, adapter.createCalls, "double submission must produce one provider charge")
	for i := 0; i < submitters; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "pay_dup", results[i].Charge.ExternalRef)
	}
}

func TestGetCharge_RefreshPollsAndReconciles(t *testing.T) {
	adapter := &fakeAdapter{
		gw:         model.GatewayStone,
		artifact:   &model.PaymentArtifact{ExternalRef: "st_2", Status: model.StatusPending},
		pollStatus: model.StatusPaid,
	}
	validator := &fakeValidator{auth: model.Authorization{WalletID: "w"}}
	charges, ledger := newMemChargeStore(), newMemLedger()
	svc := newTestService(adapter, validator, charges, ledger, &recordingEvents{})

	res, err := svc.CreateCharge(context.Background(), &CreateChargeInput{
		Order:   testSnapshot(10000),
		Gateway: model.GatewayStone,
		Method:  model.MethodPix,
	})
	require.NoError(t, err)

	refreshed, err := svc.GetCharge(context.Background(), res.Charge.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, refreshed.Status)
	assert.Equal(t, 1, adapter.statusCalls)
	assert.Equal(t, 2, ledger.count())

	// A terminal charge is served from storage without another poll.
	_, err = svc.GetCharge(context.Background(), res.Charge.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, adapter.statusCalls)
}

func TestRefund_GuardedByStateMachine(t *testing.T) {
	adapter := &fakeAdapter{
		gw:       model.GatewayAsaas,
		artifact: &model.PaymentArtifact{ExternalRef: "pay_r", Status: model.StatusPending},
	}
	validator := &fakeValidator{auth: model.Authorization{WalletID: "w"}}
	charges, ledger := newMemChargeStore(), newMemLedger()
	svc := newTestService(adapter, validator, charges, ledger, &recordingEvents{})

	res, err := svc.CreateCharge(context.Background(), &CreateChargeInput{
		Order:   testSnapshot(10000),
		Gateway: model.GatewayAsaas,
		Method:  model.MethodPix,
	})
	require.NoError(t, err)

	// Force the charge into a state that cannot move to refunded.
	_, err = charges.UpdateStatus(context.Background(), res.Charge.ID, model.StatusPending, model.StatusCancelled)
	require.NoError(t, err)

	_, err = svc.Refund(context.Background(), res.Charge.ID, 0)
	assert.Equal(t, payerr.KindValidation, payerr.KindOf(err))
	assert.Equal(t, 0, adapter.refundCalls, "no provider refund call for a disallowed transition")
}

func TestCancel_GuardedByStateMachine(t *testing.T) {
	adapter := &fakeAdapter{
		gw:       model.GatewayAsaas,
		artifact: &model.PaymentArtifact{ExternalRef: "pay_cv", Status: model.StatusPending},
	}
	validator := &fakeValidator{auth: model.Authorization{WalletID: "w"}}
	charges, ledger := newMemChargeStore(), newMemLedger()
	svc := newTestService(adapter, validator, charges, ledger, &recordingEvents{})

	res, err := svc.CreateCharge(context.Background(), &CreateChargeInput{
		Order:   testSnapshot(10000),
		Gateway: model.GatewayAsaas,
		Method:  model.MethodPix,
	})
	require.NoError(t, err)

	// A settled charge can only move to refunded, never be voided.
	_, err = charges.UpdateStatus(context.Background(), res.Charge.ID, model.StatusPending, model.StatusPaid)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), res.Charge.ID)
	assert.Equal(t, payerr.KindValidation, payerr.KindOf(err))
	assert.Equal(t, 0, adapter.cancelCalls, "no provider void for a disallowed transition")

	stored, err := charges.GetByID(context.Background(), res.Charge.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, stored.Status)
}

func TestCancel_TransitionsAndNotes(t *testing.T) {
	adapter := &fakeAdapter{
		gw:       model.GatewayAsaas,
		artifact: &model.PaymentArtifact{ExternalRef: "pay_c", Status: model.StatusPending},
	}
	validator := &fakeValidator{auth: model.Authorization{WalletID: "w"}}
	charges, ledger := newMemChargeStore(), newMemLedger()
	svc := newTestService(adapter, validator, charges, ledger, &recordingEvents{})

	res, err := svc.CreateCharge(context.Background(), &CreateChargeInput{
		Order:   testSnapshot(10000),
		Gateway: model.GatewayAsaas,
		Method:  model.MethodPix,
	})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), res.Charge.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, adapter.cancelCalls)

	stored, err := charges.GetByID(context.Background(), res.Charge.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stored.Status)
	assert.NotEmpty(t, charges.notes[res.Charge.ID])
}
