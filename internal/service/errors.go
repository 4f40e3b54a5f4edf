package service

import "fmt"

// ValidationError reports malformed input or a violated business rule.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError reports a uniqueness violation such as a duplicate phone number.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// AuthError reports failed authentication. Unknown phone numbers and wrong
// passwords share one value so callers cannot tell them apart.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// StorageError wraps a persistence failure together with the step that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// Errors returned by the account and withdrawal services.
var (
	ErrMissingField          = &ValidationError{Message: "missing required field"}
	ErrInvalidPhone          = &ValidationError{Message: "invalid phone number"}
	ErrInvalidPasswordLength = &ValidationError{Message: "invalid password length"}
	ErrInvalidReferralCode   = &ValidationError{Message: "invalid referral code"}
	ErrInvalidAmount         = &ValidationError{Message: "invalid amount"}
	ErrInsufficientBalance   = &ValidationError{Message: "insufficient balance or user not found"}
	ErrBalanceFloor          = &ValidationError{Message: "would breach minimum balance"}

	ErrPhoneRegistered    = &ConflictError{Message: "phone number already registered"}
	ErrDuplicateRequest   = &ConflictError{Message: "duplicate withdrawal request"}
	ErrInvalidCredentials = &AuthError{Message: "invalid credentials"}
)
