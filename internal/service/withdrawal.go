package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"kigogo-backend/internal/events"
	"kigogo-backend/internal/model"
	"kigogo-backend/internal/pkg/lock"
	"kigogo-backend/internal/repository"
)

const withdrawLockTimeout = 5 * time.Second

// IdempotencyStore remembers client-supplied request keys.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// WithdrawInput carries the fields accepted by POST /withdraw.
type WithdrawInput struct {
	PhoneNumber    string
	Amount         int64
	IdempotencyKey string
}

// WithdrawalService handles balance withdrawals above the balance floor.
type WithdrawalService struct {
	users      UserStore
	txs        TransactionRecorder
	publisher  events.Publisher
	keys       IdempotencyStore
	phoneLocks *lock.KeyLock
}

// NewWithdrawalService creates a new WithdrawalService instance.
// keys may be nil, in which case Idempotency-Key values are ignored.
func NewWithdrawalService(
	users UserStore,
	txs TransactionRecorder,
	publisher events.Publisher,
	keys IdempotencyStore,
	phoneLocks *lock.KeyLock,
) *WithdrawalService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if phoneLocks == nil {
		phoneLocks = lock.NewKeyLock()
	}
	return &WithdrawalService{
		users:      users,
		txs:        txs,
		publisher:  publisher,
		keys:       keys,
		phoneLocks: phoneLocks,
	}
}

// CheckWithdrawal applies the withdrawal rules to a balance and returns the
// balance that would remain.
func CheckWithdrawal(balance, amount int64) (int64, error) {
	if amount <= 0 {
		return balance, ErrInvalidAmount
	}
	if balance < amount {
		return balance, ErrInsufficientBalance
	}
	remaining := balance - amount
	if remaining < model.BalanceFloor {
		return balance, ErrBalanceFloor
	}
	return remaining, nil
}

// Withdraw deducts in.Amount from the account identified by in.PhoneNumber.
// Withdrawals on one phone number are serialized within this process; the
// read and the write are separate statements, so another process writing the
// same row in between is not detected.
func (s *WithdrawalService) Withdraw(ctx context.Context, in WithdrawInput) (*model.User, error) {
	if in.PhoneNumber == "" {
		return nil, ErrInsufficientBalance
	}
	if in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	if in.IdempotencyKey != "" && s.keys != nil {
		first, err := s.keys.Claim(ctx, in.IdempotencyKey)
		if err != nil {
			return nil, storageError("claim idempotency key", err)
		}
		if !first {
			return nil, ErrDuplicateRequest
		}
	}

	var updated *model.User
	err := s.phoneLocks.WithLockTimeout(ctx, in.PhoneNumber, withdrawLockTimeout, func() error {
		var err error
		updated, err = s.withdrawLocked(ctx, in)
		return err
	})
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			err = storageError("acquire account lock", err)
		}
		s.releaseKey(in.IdempotencyKey)
		return nil, err
	}

	log.Info().
		Int64("user_id", updated.ID).
		Int64("amount", in.Amount).
		Int64("balance", updated.Balance).
		Msg("Withdrawal completed")

	s.recordWithdrawal(ctx, updated, in.Amount)
	s.publishWithdrawn(ctx, updated, in.Amount)

	return updated.Sanitized(), nil
}

func (s *WithdrawalService) withdrawLocked(ctx context.Context, in WithdrawInput) (*model.User, error) {
	user, err := s.users.GetByPhone(ctx, in.PhoneNumber)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInsufficientBalance
		}
		log.Error().Err(err).Str("phone", maskPhone(in.PhoneNumber)).Msg("Database error during withdrawal")
		return nil, storageError("get account", err)
	}

	remaining, err := CheckWithdrawal(user.Balance, in.Amount)
	if err != nil {
		return nil, err
	}

	updated, err := s.users.SetBalance(ctx, in.PhoneNumber, remaining)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Error updating balance")
		return nil, storageError("update balance", err)
	}
	return updated, nil
}

// releaseKey lets a failed request be retried with the same key.
func (s *WithdrawalService) releaseKey(key string) {
	if key == "" || s.keys == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.keys.Release(ctx, key); err != nil {
		log.Warn().Err(err).Msg("Failed to release idempotency key")
	}
}

func (s *WithdrawalService) recordWithdrawal(ctx context.Context, user *model.User, amount int64) {
	if s.txs == nil {
		return
	}
	desc := fmt.Sprintf("withdrawal of %d", amount)
	if _, err := s.txs.Create(ctx, user.ID, -amount, model.TxTypeWithdrawal, &desc); err != nil {
		log.Warn().Err(err).Int64("user_id", user.ID).Msg("Failed to record withdrawal")
	}
}

func (s *WithdrawalService) publishWithdrawn(ctx context.Context, user *model.User, amount int64) {
	event := events.New(events.TypeBalanceWithdrawn, user.ID)
	event.Amount = amount
	event.Balance = user.Balance

	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Int64("user_id", user.ID).Msg("Failed to publish withdrawal event")
	}
}
