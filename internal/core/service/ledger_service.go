package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/shipment-legs/internal/core/domain"
	"github.com/99minutos/shipment-legs/internal/core/ports"
)

type LedgerService struct {
	repo   ports.LedgerRepository
	locker ports.Locker
	events ports.EventPublisher
	logger zerolog.Logger
	now    func() time.Time
}

func NewLedgerService(repo ports.LedgerRepository, locker ports.Locker, events ports.EventPublisher, logger zerolog.Logger) *LedgerService {
	return &LedgerService{
		repo:   repo,
		locker: locker,
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func courierLockKey(courierID string) string { return "courier:" + courierID }

// RecordDeposit books cash handed back by a courier. The balance check and
// the append happen atomically per courier. If an idempotency key is provided
// and already seen, the original deposit is returned without side effects.
func (s *LedgerService) RecordDeposit(ctx context.Context, input ports.DepositInput) (*ports.DepositResult, error) {
	if err := canAccessLedger(input.Actor, input.CourierID); err != nil {
		return nil, err
	}
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: deposit must be positive", domain.ErrInvalidAmount)
	}

	if input.IdempotencyKey != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, input.CourierID, input.IdempotencyKey)
		if err == nil && existing != nil {
			s.logger.Info().Str("idempotency_key", input.IdempotencyKey).Str("transaction_id", existing.ID).Msg("idempotent replay")
			return &ports.DepositResult{Transaction: existing, AlreadyExisted: true}, nil
		}
	}

	unlock, err := s.locker.Lock(ctx, courierLockKey(input.CourierID))
	if err != nil {
		return nil, fmt.Errorf("lock courier %s: %w", input.CourierID, err)
	}
	defer unlock()

	tx := &domain.LedgerTransaction{
		ID:             uuid.NewString(),
		CourierID:      input.CourierID,
		Type:           domain.TxDepositCOD,
		Amount:         -input.Amount,
		RecordedBy:     input.Actor.ID,
		IdempotencyKey: input.IdempotencyKey,
		CreatedAt:      s.now(),
	}

	err = s.repo.AppendDeposit(ctx, tx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrDuplicateTransaction) && input.IdempotencyKey != "":
		existing, findErr := s.repo.FindByIdempotencyKey(ctx, input.CourierID, input.IdempotencyKey)
		if findErr != nil {
			return nil, fmt.Errorf("deposit replay: %w", findErr)
		}
		return &ports.DepositResult{Transaction: existing, AlreadyExisted: true}, nil
	case errors.Is(err, domain.ErrInsufficientBalance):
		s.logger.Warn().Str("courier_id", input.CourierID).Int64("amount", input.Amount).Msg("deposit rejected")
		return nil, err
	default:
		s.logger.Error().Err(err).Str("courier_id", input.CourierID).Msg("failed to record deposit")
		return nil, fmt.Errorf("record deposit: %w", err)
	}

	s.logger.Info().
		Str("courier_id", tx.CourierID).
		Str("transaction_id", tx.ID).
		Int64("amount", input.Amount).
		Msg("deposit recorded")
	s.publish(ctx, tx)

	return &ports.DepositResult{Transaction: tx}, nil
}

// RecordEntry appends a back-office entry. COD types are reserved for the leg
// lifecycle and deposits.
func (s *LedgerService) RecordEntry(ctx context.Context, input ports.EntryInput) (*domain.LedgerTransaction, error) {
	if !input.Actor.IsStaff() {
		return nil, domain.ErrForbidden
	}
	if input.CourierID == "" {
		return nil, fmt.Errorf("%w: courier id is required", domain.ErrInvalidAmount)
	}
	txType, err := domain.ParseTransactionType(input.Type)
	if err != nil {
		return nil, err
	}
	if txType.IsCOD() {
		return nil, fmt.Errorf("%w: %s is recorded by the leg lifecycle only", domain.ErrInvalidEntryType, txType)
	}
	amount, err := txType.SignedAmount(input.Amount)
	if err != nil {
		return nil, err
	}

	tx := &domain.LedgerTransaction{
		ID:         uuid.NewString(),
		CourierID:  input.CourierID,
		LegID:      input.LegID,
		Type:       txType,
		Amount:     amount,
		Note:       input.Note,
		RecordedBy: input.Actor.ID,
		CreatedAt:  s.now(),
	}
	if err := s.repo.Append(ctx, tx); err != nil {
		s.logger.Error().Err(err).Str("courier_id", input.CourierID).Msg("failed to record ledger entry")
		return nil, fmt.Errorf("record entry: %w", err)
	}

	s.logger.Info().
		Str("courier_id", tx.CourierID).
		Str("type", string(tx.Type)).
		Int64("amount", tx.Amount).
		Str("by", input.Actor.ID).
		Msg("ledger entry recorded")
	s.publish(ctx, tx)

	return tx, nil
}

// Balance projects the courier's transaction log. It never writes.
func (s *LedgerService) Balance(ctx context.Context, courierID string, actor domain.Actor) (*domain.Balance, error) {
	if err := canAccessLedger(actor, courierID); err != nil {
		return nil, err
	}
	totals, err := s.repo.Totals(ctx, courierID)
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", courierID, err)
	}
	b := domain.ProjectBalance(courierID, totals)
	return &b, nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, input ports.ListTransactionsInput) (*ports.ListTransactionsResult, error) {
	if err := canAccessLedger(input.Actor, input.CourierID); err != nil {
		return nil, err
	}
	if input.Type != "" {
		if _, err := domain.ParseTransactionType(input.Type); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFilter, err)
		}
	}
	page, limit := normalizePage(input.Page, input.Limit)

	items, total, err := s.repo.List(ctx, ports.ListTransactionsFilter{
		CourierID: input.CourierID,
		Type:      input.Type,
		DateFrom:  input.DateFrom,
		DateTo:    input.DateTo,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	return &ports.ListTransactionsResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

func (s *LedgerService) publish(ctx context.Context, tx *domain.LedgerTransaction) {
	s.events.Publish(ctx, domain.LegEvent{
		Type:       domain.EventLedgerTransaction,
		LegID:      tx.LegID,
		CourierID:  tx.CourierID,
		Amount:     tx.Amount,
		OccurredAt: tx.CreatedAt,
	})
}

// canAccessLedger lets couriers see only their own ledger; staff see all.
func canAccessLedger(actor domain.Actor, courierID string) error {
	if actor.IsStaff() {
		return nil
	}
	if actor.IsCourier() && actor.ID != "" && actor.ID == courierID {
		return nil
	}
	return domain.ErrForbidden
}
