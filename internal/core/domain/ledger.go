package domain

import (
	"fmt"
	"time"
)

// TransactionType is the closed set of ledger categories. Unknown strings are
// rejected at the boundary so they can never skew a balance projection.
type TransactionType string

const (
	TxDeliveryFee TransactionType = "DELIVERY_FEE"
	TxCollectCOD  TransactionType = "COLLECT_COD"
	TxReturnCOD   TransactionType = "RETURN_COD"
	TxDepositCOD  TransactionType = "DEPOSIT_COD"
	TxBonus       TransactionType = "BONUS"
	TxPenalty     TransactionType = "PENALTY"
	TxWithdrawal  TransactionType = "WITHDRAWAL"
	TxRefund      TransactionType = "REFUND"
	TxAdjustment  TransactionType = "ADJUSTMENT"
)

// direction: +1 income (stored positive), -1 outflow (stored negative),
// 0 either sign (corrections).
var transactionDirection = map[TransactionType]int{
	TxDeliveryFee: 1,
	TxCollectCOD:  1,
	TxBonus:       1,
	TxRefund:      1,
	TxReturnCOD:   -1,
	TxDepositCOD:  -1,
	TxPenalty:     -1,
	TxWithdrawal:  -1,
	TxAdjustment:  0,
}

// ParseTransactionType validates s against the closed set.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	if _, ok := transactionDirection[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntryType, s)
	}
	return t, nil
}

// IsCOD reports whether t moves cash held in custody for customers.
func (t TransactionType) IsCOD() bool {
	return t == TxCollectCOD || t == TxReturnCOD || t == TxDepositCOD
}

// SignedAmount applies the sign convention of t to a magnitude. For
// ADJUSTMENT the caller's sign is kept as is.
func (t TransactionType) SignedAmount(amount int64) (int64, error) {
	dir, ok := transactionDirection[t]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEntryType, t)
	}
	if amount == 0 {
		return 0, fmt.Errorf("%w: amount must be non-zero", ErrInvalidAmount)
	}
	if dir == 0 {
		return amount, nil
	}
	if amount < 0 {
		amount = -amount
	}
	return int64(dir) * amount, nil
}

// LedgerTransaction is an append-only ledger row. Rows are never updated or
// deleted; corrections are new ADJUSTMENT rows.
type LedgerTransaction struct {
	ID             string          `json:"id" bson:"_id"`
	CourierID      string          `json:"courier_id" bson:"courier_id"`
	LegID          string          `json:"leg_id,omitempty" bson:"leg_id,omitempty"`
	Type           TransactionType `json:"type" bson:"type"`
	Amount         int64           `json:"amount" bson:"amount"`
	Note           string          `json:"note,omitempty" bson:"note,omitempty"`
	RecordedBy     string          `json:"recorded_by,omitempty" bson:"recorded_by,omitempty"`
	IdempotencyKey string          `json:"-" bson:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `json:"created_at" bson:"created_at"`
}

// Balance is the read projection of one courier's ledger. COD custody
// (Collected, Paid, Outstanding) and earnings (NetIncome) are never summed
// together.
type Balance struct {
	CourierID   string `json:"courier_id"`
	Collected   int64  `json:"collected"`
	Paid        int64  `json:"paid"`
	Outstanding int64  `json:"outstanding"`
	NetIncome   int64  `json:"net_income"`
}

// ProjectBalance folds per-type signed totals into a Balance.
func ProjectBalance(courierID string, totals map[TransactionType]int64) Balance {
	collected := totals[TxCollectCOD]
	paid := -(totals[TxDepositCOD] + totals[TxReturnCOD])

	var income int64
	for t, sum := range totals {
		if t.IsCOD() {
			continue
		}
		income += sum
	}

	return Balance{
		CourierID:   courierID,
		Collected:   collected,
		Paid:        paid,
		Outstanding: collected - paid,
		NetIncome:   income,
	}
}

// TotalsByType sums signed amounts per transaction type.
func TotalsByType(txs []LedgerTransaction) map[TransactionType]int64 {
	totals := make(map[TransactionType]int64, len(transactionDirection))
	for _, tx := range txs {
		totals[tx.Type] += tx.Amount
	}
	return totals
}
