package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/vendalivre/payhub/internal/gateway"
	"github.com/vendalivre/payhub/internal/model"
)

// memChargeStore is the in-memory ChargeStore used by service tests.
type memChargeStore struct {
	mu      sync.Mutex
	seq     int
	charges map[string]*model.Charge
	notes   map[string][]string
}

func newMemChargeStore() *memChargeStore {
	return &memChargeStore{
		charges: make(map[string]*model.Charge),
		notes:   make(map[string][]string),
	}
}

func (s *memChargeStore) Insert(ctx context.Context, c *model.Charge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	c.ID = fmt.Sprintf("chg-%d", s.seq)
	cp := *c
	s.charges[c.ID] = &cp
	return nil
}

func (s *memChargeStore) GetByID(ctx context.Context, id string) (*model.Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.charges[id]
	if !ok {
		return nil, ErrChargeNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memChargeStore) GetByExternalRef(ctx context.Context, gw model.Gateway, externalRef string) (*model.Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.charges {
		if c.Gateway == gw && c.ExternalRef == externalRef {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrChargeNotFound
}

func (s *memChargeStore) UpdateStatus(ctx context.Context, id string, expectedFrom, status model.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.charges[id]
	if !ok || c.Status != expectedFrom {
		return false, nil
	}
	c.Status = status
	return true, nil
}

func (s *memChargeStore) AppendNote(ctx context.Context, id, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[id] = append(s.notes[id], note)
	return nil
}

// memLedger absorbs duplicates on (gateway, external_ref, status), the
// same key the table enforces.
type memLedger struct {
	mu      sync.Mutex
	entries []model.LedgerEntry
	seen    map[string]bool
}

func newMemLedger() *memLedger {
	return &memLedger{seen: make(map[string]bool)}
}

func (l *memLedger) Append(ctx context.Context, e *model.LedgerEntry) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := string(e.Gateway) + "|" + e.ExternalRef + "|" + string(e.Status)
	if l.seen[key] {
		return false, nil
	}
	l.seen[key] = true
	l.entries = append(l.entries, *e)
	return true, nil
}

func (l *memLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

type fakeValidator struct {
	mu    sync.Mutex
	auth  model.Authorization
	err   error
	calls int
}

func (v *fakeValidator) Validate(ctx context.Context, amountMinor int64, merchantID string, gw model.Gateway, method model.Method) (model.Authorization, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if v.err != nil {
		return model.Authorization{}, v.err
	}
	return v.auth, nil
}

type recordedEvent struct {
	OrderID     string
	OrderStatus string
	Note        string
}

type recordingEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingEvents) StatusChanged(ctx context.Context, orderID, orderStatus, note string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{orderID, orderStatus, note})
}

// fakeAdapter implements gateway.Adapter in memory. Every create path
// records the request and hands back the configured artifact.
type fakeAdapter struct {
	mu sync.Mutex

	gw          model.Gateway
	unsupported map[model.Method]bool

	artifact  *model.PaymentArtifact
	createErr error
	// gate, when set, blocks create calls until closed.
	gate chan struct{}

	pollStatus model.Status
	webhook    *gateway.WebhookEvent
	parseErr   error

	createCalls int
	lastReq     *gateway.ChargeRequest
	statusCalls int
	cancelCalls int
	refundCalls int
}

func (f *fakeAdapter) Gateway() model.Gateway { return f.gw }

func (f *fakeAdapter) Supports(method model.Method) bool { return !f.unsupported[method] }

func (f *fakeAdapter) create(req *gateway.ChargeRequest) (*model.PaymentArtifact, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.lastReq = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	cp := *f.artifact
	return &cp, nil
}

func (f *fakeAdapter) CreatePixPayment(ctx context.Context, req *gateway.ChargeRequest) (*model.PaymentArtifact, error) {
	return f.create(req)
}

func (f *fakeAdapter) CreateBoletoPayment(ctx context.Context, req *gateway.ChargeRequest) (*model.PaymentArtifact, error) {
	return f.create(req)
}

func (f *fakeAdapter) CreateCreditCardPayment(ctx context.Context, req *gateway.ChargeRequest) (*model.PaymentArtifact, error) {
	return f.create(req)
}

func (f *fakeAdapter) CreateDebitCardPayment(ctx context.Context, req *gateway.ChargeRequest) (*model.PaymentArtifact, error) {
	return f.create(req)
}

func (f *fakeAdapter) GetStatus(ctx context.Context, externalRef string) (model.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	return f.pollStatus, nil
}

func (f *fakeAdapter) Cancel(ctx context.Context, externalRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	return nil
}

func (f *fakeAdapter) Refund(ctx context.Context, externalRef string, amountMinor int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refundCalls++
	return nil
}

func (f *fakeAdapter) NormalizeStatus(code string) (model.Status, error) {
	return model.Status(code), nil
}

func (f *fakeAdapter) ParseWebhook(body []byte) (*gateway.WebhookEvent, error) {
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	cp := *f.webhook
	return &cp, nil
}

type fakeSource struct {
	adapters map[model.Gateway]gateway.Adapter
	err      error
}

func (s *fakeSource) Adapter(gw model.Gateway) (gateway.Adapter, error) {
	if s.err != nil {
		return nil, s.err
	}
	a, ok := s.adapters[gw]
	if !ok {
		return nil, fmt.Errorf("gateway %s not configured", gw)
	}
	return a, nil
}

func sourceFor(a *fakeAdapter) *fakeSource {
	return &fakeSource{adapters: map[model.Gateway]gateway.Adapter{a.gw: a}}
}
