// Package model defines the data models for the referral rewards backend.
package model

import "time"

// Account defaults applied at registration.
const (
	InitialBalance = 100
	BalanceFloor   = 100
)

// User represents a registered account.
// Password holds the bcrypt hash and is never serialized.
type User struct {
	ID               int64     `db:"id" json:"id"`
	PhoneNumber      string    `db:"phone_number" json:"phone_number"`
	UserName         string    `db:"user_name" json:"user_name"`
	Password         string    `db:"password" json:"-"`
	TiktokName       *string   `db:"tiktok_name" json:"tiktok_name"`
	YoutubeName      *string   `db:"youtube_name" json:"youtube_name"`
	InstagramName    *string   `db:"instagram_name" json:"instagram_name"`
	ReferralCode     string    `db:"referral_code" json:"referral_code"`
	ReferredBy       *string   `db:"referred_by" json:"referred_by"`
	BonusAmountTL    int64     `db:"bonus_amount_tl" json:"bonusAmountTL"`
	BonusAmountRefs  int64     `db:"bonus_amount_refs" json:"bonusAmountRefs"`
	BonusAmountTasks int64     `db:"bonus_amount_tasks" json:"bonusAmountTasks"`
	Balance          int64     `db:"balance" json:"balance"`
	Referrals        int64     `db:"referrals" json:"referrals"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Sanitized returns a copy of the user without the password hash.
func (u *User) Sanitized() *User {
	cp := *u
	cp.Password = ""
	return &cp
}

// Transaction represents a balance change record.
type Transaction struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	Amount      int64     `db:"amount" json:"amount"`
	Type        string    `db:"type" json:"type"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeInitial    = "initial"    // Opening balance on registration
	TxTypeWithdrawal = "withdrawal" // Funds withdrawn by the account holder
)
