package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/99minutos/shipment-legs/internal/core/domain"
	"github.com/99minutos/shipment-legs/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub store shared by the repository stubs. One mutex stands in
// for the database transaction.
// ---------------------------------------------------------------------------

type stubStore struct {
	mu      sync.Mutex
	orders  map[string]*domain.ShipmentOrder
	legs    map[string]*domain.ShipmentLeg
	ledger  []domain.LedgerTransaction
	proofs  []domain.ProofOfDeliveryRecord
	saveErr error // if set, Save returns this error
}

func newStubStore() *stubStore {
	return &stubStore{
		orders: make(map[string]*domain.ShipmentOrder),
		legs:   make(map[string]*domain.ShipmentLeg),
	}
}

func (s *stubStore) seed(tx domain.LedgerTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = append(s.ledger, tx)
}

func (s *stubStore) entries(courierID string, t domain.TransactionType) []domain.LedgerTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.LedgerTransaction
	for _, tx := range s.ledger {
		if tx.CourierID == courierID && tx.Type == t {
			out = append(out, tx)
		}
	}
	return out
}

func (s *stubStore) outstandingLocked(courierID string) int64 {
	var sum int64
	for _, tx := range s.ledger {
		if tx.CourierID == courierID && tx.Type.IsCOD() {
			sum += tx.Amount
		}
	}
	return sum
}

func (s *stubStore) duplicateLocked(tx *domain.LedgerTransaction) bool {
	if tx.IdempotencyKey == "" {
		return false
	}
	for _, existing := range s.ledger {
		if existing.CourierID == tx.CourierID && existing.IdempotencyKey == tx.IdempotencyKey {
			return true
		}
	}
	return false
}

// --- ShipmentRepository ---

type stubShipmentRepo struct{ *stubStore }

func (r stubShipmentRepo) CreateWithLegs(_ context.Context, order *domain.ShipmentOrder, legs []*domain.ShipmentLeg) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; ok {
		return domain.ErrShipmentExists
	}
	clone := *order
	r.orders[order.ID] = &clone
	for _, l := range legs {
		r.legs[l.ID] = l.Clone()
	}
	return nil
}

func (r stubShipmentRepo) FindByID(_ context.Context, orderID string) (*domain.ShipmentOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, domain.ErrShipmentNotFound
	}
	clone := *o
	return &clone, nil
}

// --- LegRepository ---

type stubLegRepo struct{ *stubStore }

func (r stubLegRepo) FindByID(_ context.Context, id string) (*domain.ShipmentLeg, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.legs[id]
	if !ok {
		return nil, domain.ErrLegNotFound
	}
	return l.Clone(), nil
}

func (r stubLegRepo) FindByTrackingCode(_ context.Context, code string) (*domain.ShipmentLeg, error) {
	return r.findOne(func(l *domain.ShipmentLeg) bool { return l.TrackingCode == code })
}

func (r stubLegRepo) FindBySequence(_ context.Context, orderID string, sequence int) (*domain.ShipmentLeg, error) {
	return r.findOne(func(l *domain.ShipmentLeg) bool {
		return l.ShipmentOrderID == orderID && l.Sequence == sequence
	})
}

func (r stubLegRepo) ListByShortCode(_ context.Context, shortCode string) ([]*domain.ShipmentLeg, error) {
	return r.findAll(func(l *domain.ShipmentLeg) bool { return l.ShortCode == shortCode }), nil
}

func (r stubLegRepo) ListByOrder(_ context.Context, orderID string) ([]*domain.ShipmentLeg, error) {
	return r.findAll(func(l *domain.ShipmentLeg) bool { return l.ShipmentOrderID == orderID }), nil
}

func (r stubLegRepo) List(_ context.Context, f ports.ListLegsFilter) ([]*domain.ShipmentLeg, int64, error) {
	matched := r.findAll(func(l *domain.ShipmentLeg) bool {
		if f.CourierID != "" && l.AssignedCourierID != f.CourierID {
			return false
		}
		if f.OrderID != "" && l.ShipmentOrderID != f.OrderID {
			return false
		}
		if f.Sequence != 0 && l.Sequence != f.Sequence {
			return false
		}
		if f.Status != "" && string(l.Status) != f.Status {
			return false
		}
		return true
	})
	total := int64(len(matched))
	skip := (f.Page - 1) * f.Limit
	if skip >= len(matched) {
		return []*domain.ShipmentLeg{}, total, nil
	}
	end := skip + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], total, nil
}

func (r stubLegRepo) Save(_ context.Context, leg *domain.ShipmentLeg, expectedVersion int64, entries []*domain.LedgerTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	stored, ok := r.legs[leg.ID]
	if !ok {
		return domain.ErrLegNotFound
	}
	if stored.Version != expectedVersion {
		return domain.ErrConcurrentModification
	}
	leg.Version = expectedVersion + 1
	r.legs[leg.ID] = leg.Clone()
	for _, tx := range entries {
		r.ledger = append(r.ledger, *tx)
	}
	return nil
}

func (r stubLegRepo) findOne(match func(*domain.ShipmentLeg) bool) (*domain.ShipmentLeg, error) {
	found := r.findAll(match)
	if len(found) == 0 {
		return nil, domain.ErrLegNotFound
	}
	return found[0], nil
}

func (r stubLegRepo) findAll(match func(*domain.ShipmentLeg) bool) []*domain.ShipmentLeg {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ShipmentLeg
	for _, l := range r.legs {
		if match(l) {
			out = append(out, l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ShipmentOrderID != out[j].ShipmentOrderID {
			return out[i].ShipmentOrderID < out[j].ShipmentOrderID
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

// --- LedgerRepository ---

type stubLedgerRepo struct{ *stubStore }

func (r stubLedgerRepo) AppendDeposit(_ context.Context, tx *domain.LedgerTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.duplicateLocked(tx) {
		return domain.ErrDuplicateTransaction
	}
	if -tx.Amount > r.outstandingLocked(tx.CourierID) {
		return domain.ErrInsufficientBalance
	}
	r.ledger = append(r.ledger, *tx)
	return nil
}

func (r stubLedgerRepo) Append(_ context.Context, tx *domain.LedgerTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.duplicateLocked(tx) {
		return domain.ErrDuplicateTransaction
	}
	r.ledger = append(r.ledger, *tx)
	return nil
}

func (r stubLedgerRepo) FindByIdempotencyKey(_ context.Context, courierID, key string) (*domain.LedgerTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.ledger {
		if tx.CourierID == courierID && tx.IdempotencyKey == key {
			clone := tx
			return &clone, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (r stubLedgerRepo) Totals(_ context.Context, courierID string) (map[domain.TransactionType]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var own []domain.LedgerTransaction
	for _, tx := range r.ledger {
		if tx.CourierID == courierID {
			own = append(own, tx)
		}
	}
	return domain.TotalsByType(own), nil
}

func (r stubLedgerRepo) List(_ context.Context, f ports.ListTransactionsFilter) ([]*domain.LedgerTransaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.LedgerTransaction
	for _, tx := range r.ledger {
		if tx.CourierID != f.CourierID {
			continue
		}
		if f.Type != "" && string(tx.Type) != f.Type {
			continue
		}
		clone := tx
		matched = append(matched, &clone)
	}
	total := int64(len(matched))
	skip := (f.Page - 1) * f.Limit
	if skip >= len(matched) {
		return []*domain.LedgerTransaction{}, total, nil
	}
	end := skip + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], total, nil
}

// --- ProofRepository ---

type stubProofRepo struct{ *stubStore }

func (r stubProofRepo) Create(_ context.Context, rec *domain.ProofOfDeliveryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proofs = append(r.proofs, *rec)
	return nil
}

func (r stubProofRepo) ListByLeg(_ context.Context, legID string) ([]*domain.ProofOfDeliveryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ProofOfDeliveryRecord
	for _, p := range r.proofs {
		if p.LegID == legID {
			clone := p
			out = append(out, &clone)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Infrastructure stubs
// ---------------------------------------------------------------------------

// keyLocker is an in-process Locker with one mutex per key.
type keyLocker struct {
	mu   sync.Mutex
	keys map[string]*sync.Mutex
}

func newKeyLocker() *keyLocker { return &keyLocker{keys: make(map[string]*sync.Mutex)} }

func (l *keyLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.keys[key]
	if !ok {
		m = &sync.Mutex{}
		l.keys[key] = m
	}
	l.mu.Unlock()
	m.Lock()
	var once sync.Once
	return func() { once.Do(m.Unlock) }, nil
}

// noLocker grants every lock immediately, leaving only the version check.
type noLocker struct{}

func (noLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

type stubPublisher struct {
	mu     sync.Mutex
	events []domain.LegEvent
}

func (p *stubPublisher) Publish(_ context.Context, ev domain.LegEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *stubPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

type stubProofStore struct {
	mu   sync.Mutex
	puts []string
	err  error
}

func (s *stubProofStore) Put(_ context.Context, obj ports.ProofObject) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj.Body); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := fmt.Sprintf("s3://proofs/%s/%d-%s", obj.LegID, len(s.puts)+1, obj.Filename)
	s.puts = append(s.puts, ref)
	return ref, nil
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

var staff = domain.Actor{ID: "staff-1", Role: domain.RoleStaff}

func courier(id string) domain.Actor { return domain.Actor{ID: id, Role: domain.RoleCourier} }

type fixture struct {
	store     *stubStore
	events    *stubPublisher
	files     *stubProofStore
	shipments *ShipmentService
	legs      ports.LegService
	ledger    *LedgerService
	proofs    *ProofService
}

func newFixture(locker ports.Locker) *fixture {
	store := newStubStore()
	events := &stubPublisher{}
	files := &stubProofStore{}
	nop := zerolog.Nop()
	return &fixture{
		store:     store,
		events:    events,
		files:     files,
		shipments: NewShipmentService(stubShipmentRepo{store}, stubLegRepo{store}, events, nop),
		legs:      NewLegService(stubLegRepo{store}, locker, events, nop),
		ledger:    NewLedgerService(stubLedgerRepo{store}, locker, events, nop),
		proofs:    NewProofService(stubLegRepo{store}, stubProofRepo{store}, files, locker, events, nop),
	}
}

// dispatchThreeLegs creates SHOP → WH-A → WH-B → CUSTOMER handled by
// couriers c1, c2 and c3, with cod on the last leg.
func (f *fixture) dispatchThreeLegs(t *testing.T, orderID string, cod int64) []*domain.ShipmentLeg {
	t.Helper()
	input := ports.DispatchInput{
		OrderID: orderID,
		Route:   []string{"SHOP-1", "WH-A", "WH-B", "CUSTOMER-9"},
		Legs: []ports.LegSpecInput{
			{CourierID: "c1", ShippingFee: 3000, CourierFee: 1000},
			{CourierID: "c2", ShippingFee: 3000, CourierFee: 1000},
			{CourierID: "c3", ShippingFee: 4000, CourierFee: 2000},
		},
		Actor: staff,
	}
	if cod > 0 {
		input.Legs[2].CODAmount = &cod
	}
	detail, err := f.shipments.Dispatch(context.Background(), input)
	if err != nil {
		t.Fatalf("dispatch %s: %v", orderID, err)
	}
	return detail.Legs
}

// complete drives a leg from PENDING to DELIVERED as its assignee.
func (f *fixture) complete(t *testing.T, leg *domain.ShipmentLeg) *domain.ShipmentLeg {
	t.Helper()
	ctx := context.Background()
	actor := courier(leg.AssignedCourierID)
	if leg.RequiresVerification() {
		if _, err := f.legs.Verify(ctx, leg.ID, actor, leg.TrackingCode); err != nil {
			t.Fatalf("verify leg %d: %v", leg.Sequence, err)
		}
	}
	steps := []func(context.Context, string, domain.Actor) (*domain.ShipmentLeg, error){
		f.legs.ConfirmPickup,
		f.legs.ConfirmTransit,
		f.legs.ConfirmDelivery,
	}
	var out *domain.ShipmentLeg
	for i, step := range steps {
		var err error
		out, err = step(ctx, leg.ID, actor)
		if err != nil {
			t.Fatalf("leg %d step %d: %v", leg.Sequence, i, err)
		}
	}
	return out
}
