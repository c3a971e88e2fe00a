package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/99minutos/shipment-legs/internal/core/domain"
	"github.com/99minutos/shipment-legs/internal/core/ports"
)

func seedCollected(f *fixture, courierID string, amount int64) {
	f.store.seed(domain.LedgerTransaction{
		ID:        "seed-" + courierID,
		CourierID: courierID,
		LegID:     "leg-seed",
		Type:      domain.TxCollectCOD,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	})
}

// ---------------------------------------------------------------------------
// RecordDeposit
// ---------------------------------------------------------------------------

func TestRecordDeposit_StoresNegativeAmount(t *testing.T) {
	f := newFixture(newKeyLocker())
	seedCollected(f, "c3", 500000)

	res, err := f.ledger.RecordDeposit(context.Background(), ports.DepositInput{
		CourierID: "c3",
		Amount:    200000,
		Actor:     courier("c3"),
	})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if res.AlreadyExisted {
		t.Error("first deposit must not be a replay")
	}
	if res.Transaction.Type != domain.TxDepositCOD || res.Transaction.Amount != -200000 {
		t.Errorf("unexpected transaction: %s %d", res.Transaction.Type, res.Transaction.Amount)
	}
	if f.events.count(domain.EventLedgerTransaction) != 1 {
		t.Error("expected one ledger event")
	}
}

func TestRecordDeposit_Validation(t *testing.T) {
	f := newFixture(newKeyLocker())
	seedCollected(f, "c3", 500000)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   ports.DepositInput
		wantErr error
	}{
		{"zero amount", ports.DepositInput{CourierID: "c3", Amount: 0, Actor: courier("c3")}, domain.ErrInvalidAmount},
		{"negative amount", ports.DepositInput{CourierID: "c3", Amount: -5, Actor: courier("c3")}, domain.ErrInvalidAmount},
		{"other courier", ports.DepositInput{CourierID: "c3", Amount: 100, Actor: courier("c2")}, domain.ErrForbidden},
		{"anonymous", ports.DepositInput{CourierID: "c3", Amount: 100}, domain.ErrForbidden},
		{"exceeds outstanding", ports.DepositInput{CourierID: "c3", Amount: 500001, Actor: courier("c3")}, domain.ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.RecordDeposit(ctx, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if n := len(f.store.entries("c3", domain.TxDepositCOD)); n != 0 {
		t.Errorf("rejected deposits must not be written, got %d", n)
	}
}

func TestRecordDeposit_StaffOnBehalfOfCourier(t *testing.T) {
	f := newFixture(newKeyLocker())
	seedCollected(f, "c3", 1000)

	res, err := f.ledger.RecordDeposit(context.Background(), ports.DepositInput{CourierID: "c3", Amount: 1000, Actor: staff})
	if err != nil {
		t.Fatalf("staff deposit: %v", err)
	}
	if res.Transaction.RecordedBy != staff.ID {
		t.Errorf("expected recorded_by %s, got %s", staff.ID, res.Transaction.RecordedBy)
	}
}

func TestRecordDeposit_IdempotencyKey(t *testing.T) {
	f := newFixture(newKeyLocker())
	seedCollected(f, "c3", 500000)
	ctx := context.Background()
	input := ports.DepositInput{CourierID: "c3", Amount: 300000, IdempotencyKey: "dep-42", Actor: courier("c3")}

	first, err := f.ledger.RecordDeposit(ctx, input)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.ledger.RecordDeposit(ctx, input)
	if err != nil {
		t.Fatalf("replay must succeed, got %v", err)
	}
	if !second.AlreadyExisted || second.Transaction.ID != first.Transaction.ID {
		t.Errorf("expected replay of %s, got %+v", first.Transaction.ID, second)
	}
	if n := len(f.store.entries("c3", domain.TxDepositCOD)); n != 1 {
		t.Errorf("expected one deposit row, got %d", n)
	}
}

func TestRecordDeposit_ConcurrentNeverOverdraws(t *testing.T) {
	for _, tc := range []struct {
		name   string
		locker ports.Locker
	}{
		{"with locker", newKeyLocker()},
		{"repository guard only", noLocker{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(tc.locker)
			seedCollected(f, "c3", 500000)
			ctx := context.Background()

			const attempts = 10
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				ok, short int
			)
			start := make(chan struct{})
			for i := 0; i < attempts; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, err := f.ledger.RecordDeposit(ctx, ports.DepositInput{CourierID: "c3", Amount: 100000, Actor: courier("c3")})
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						ok++
					case errors.Is(err, domain.ErrInsufficientBalance):
						short++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			close(start)
			wg.Wait()

			if ok != 5 || short != 5 {
				t.Errorf("expected 5 accepted and 5 rejected, got %d / %d", ok, short)
			}
			bal, _ := f.ledger.Balance(ctx, "c3", courier("c3"))
			if bal.Outstanding != 0 {
				t.Errorf("expected outstanding 0, got %d", bal.Outstanding)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// RecordEntry and Balance
// ---------------------------------------------------------------------------

func TestRecordEntry(t *testing.T) {
	f := newFixture(newKeyLocker())
	ctx := context.Background()
	seedCollected(f, "c3", 500000)

	bonus, err := f.ledger.RecordEntry(ctx, ports.EntryInput{CourierID: "c3", Type: "BONUS", Amount: 1000, Actor: staff})
	if err != nil {
		t.Fatal(err)
	}
	if bonus.Amount != 1000 {
		t.Errorf("bonus must be stored positive, got %d", bonus.Amount)
	}
	penalty, err := f.ledger.RecordEntry(ctx, ports.EntryInput{CourierID: "c3", Type: "PENALTY", Amount: 300, Note: "late", Actor: staff})
	if err != nil {
		t.Fatal(err)
	}
	if penalty.Amount != -300 {
		t.Errorf("penalty must be stored negative, got %d", penalty.Amount)
	}
	adj, err := f.ledger.RecordEntry(ctx, ports.EntryInput{CourierID: "c3", Type: "ADJUSTMENT", Amount: -50, Actor: staff})
	if err != nil {
		t.Fatal(err)
	}
	if adj.Amount != -50 {
		t.Errorf("adjustment keeps its sign, got %d", adj.Amount)
	}

	bal, err := f.ledger.Balance(ctx, "c3", staff)
	if err != nil {
		t.Fatal(err)
	}
	if bal.NetIncome != 650 {
		t.Errorf("expected net income 650, got %d", bal.NetIncome)
	}
	if bal.Outstanding != 500000 {
		t.Errorf("earnings must not touch custody, outstanding %d", bal.Outstanding)
	}
}

func TestRecordEntry_Rejections(t *testing.T) {
	f := newFixture(newKeyLocker())
	ctx := context.Background()

	tests := []struct {
		name    string
		input   ports.EntryInput
		wantErr error
	}{
		{"courier caller", ports.EntryInput{CourierID: "c3", Type: "BONUS", Amount: 1, Actor: courier("c3")}, domain.ErrForbidden},
		{"cod type", ports.EntryInput{CourierID: "c3", Type: "COLLECT_COD", Amount: 1, Actor: staff}, domain.ErrInvalidEntryType},
		{"deposit type", ports.EntryInput{CourierID: "c3", Type: "DEPOSIT_COD", Amount: 1, Actor: staff}, domain.ErrInvalidEntryType},
		{"unknown type", ports.EntryInput{CourierID: "c3", Type: "TIP", Amount: 1, Actor: staff}, domain.ErrInvalidEntryType},
		{"zero amount", ports.EntryInput{CourierID: "c3", Type: "BONUS", Amount: 0, Actor: staff}, domain.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.ledger.RecordEntry(ctx, tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBalance_OtherCourierForbidden(t *testing.T) {
	f := newFixture(newKeyLocker())
	if _, err := f.ledger.Balance(context.Background(), "c3", courier("c2")); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestBalance_ReturnMayGoNegative(t *testing.T) {
	f := newFixture(newKeyLocker())
	ctx := context.Background()
	seedCollected(f, "c3", 1000)
	if _, err := f.ledger.RecordDeposit(ctx, ports.DepositInput{CourierID: "c3", Amount: 1000, Actor: courier("c3")}); err != nil {
		t.Fatal(err)
	}
	f.store.seed(domain.LedgerTransaction{ID: "ret-1", CourierID: "c3", Type: domain.TxReturnCOD, Amount: -1000})

	bal, _ := f.ledger.Balance(ctx, "c3", courier("c3"))
	if bal.Outstanding != -1000 || bal.Paid != 2000 {
		t.Errorf("expected outstanding -1000 and paid 2000, got %+v", bal)
	}
}

// ---------------------------------------------------------------------------
// ListTransactions
// ---------------------------------------------------------------------------

func TestListTransactions(t *testing.T) {
	f := newFixture(newKeyLocker())
	ctx := context.Background()
	seedCollected(f, "c3", 500000)
	for i := 0; i < 3; i++ {
		if _, err := f.ledger.RecordDeposit(ctx, ports.DepositInput{CourierID: "c3", Amount: 1000, Actor: courier("c3")}); err != nil {
			t.Fatal(err)
		}
	}

	res, err := f.ledger.ListTransactions(ctx, ports.ListTransactionsInput{CourierID: "c3", Type: "DEPOSIT_COD", Page: 1, Limit: 2, Actor: courier("c3")})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 3 || len(res.Items) != 2 || res.TotalPages != 2 {
		t.Errorf("unexpected page: total=%d items=%d pages=%d", res.Total, len(res.Items), res.TotalPages)
	}

	if _, err := f.ledger.ListTransactions(ctx, ports.ListTransactionsInput{CourierID: "c3", Type: "TIP", Actor: staff}); !errors.Is(err, domain.ErrInvalidFilter) {
		t.Errorf("expected ErrInvalidFilter, got %v", err)
	}
	if _, err := f.ledger.ListTransactions(ctx, ports.ListTransactionsInput{CourierID: "c3", Actor: courier("c1")}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}
