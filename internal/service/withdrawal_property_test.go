// Property-based tests for WithdrawalService.
package service

import (
	"context"
	"errors"
	"testing"

	"pgregory.net/rapid"

	"kigogo-backend/internal/model"
)

// TestWithdrawalFloorProperty checks that a withdrawal succeeds exactly when
// the amount is positive, covered by the balance, and leaves at least the
// floor behind. A rejected withdrawal leaves the balance unchanged.
func TestWithdrawalFloorProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		balance := rapid.Int64Range(model.BalanceFloor, 1000000).Draw(t, "balance")
		amount := rapid.Int64Range(-100, 1100000).Draw(t, "amount")

		remaining, err := CheckWithdrawal(balance, amount)

		switch {
		case amount <= 0:
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("amount=%d: expected ErrInvalidAmount, got %v", amount, err)
			}
		case amount > balance:
			if !errors.Is(err, ErrInsufficientBalance) {
				t.Fatalf("balance=%d amount=%d: expected ErrInsufficientBalance, got %v", balance, amount, err)
			}
		case balance-amount < model.BalanceFloor:
			if !errors.Is(err, ErrBalanceFloor) {
				t.Fatalf("balance=%d amount=%d: expected ErrBalanceFloor, got %v", balance, amount, err)
			}
		default:
			if err != nil {
				t.Fatalf("balance=%d amount=%d: unexpected error %v", balance, amount, err)
			}
			if remaining != balance-amount {
				t.Fatalf("remaining=%d, want %d", remaining, balance-amount)
			}
			return
		}

		if remaining != balance {
			t.Fatalf("rejected withdrawal changed balance from %d to %d", balance, remaining)
		}
	})
}

// TestWithdrawalSequenceProperty checks that no sequence of withdrawals
// takes a balance below the floor and that the persisted balance equals the
// starting balance minus the accepted amounts.
func TestWithdrawalSequenceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := rapid.Int64Range(model.BalanceFloor, 10000).Draw(t, "start")
		store := newMemoryStore()
		store.seed("0712345678", "ABC123", start)
		svc := NewWithdrawalService(store, nil, nil, nil, nil)

		amounts := rapid.SliceOfN(rapid.Int64Range(-10, 5000), 1, 20).Draw(t, "amounts")
		var accepted int64
		for _, amount := range amounts {
			user, err := svc.Withdraw(context.Background(), WithdrawInput{PhoneNumber: "0712345678", Amount: amount})
			if err == nil {
				accepted += amount
				if user.Balance < model.BalanceFloor {
					t.Fatalf("balance %d fell below floor", user.Balance)
				}
			}
		}

		if got := store.get("0712345678").Balance; got != start-accepted {
			t.Fatalf("balance=%d, want %d", got, start-accepted)
		}
	})
}
