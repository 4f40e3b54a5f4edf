// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"kigogo-backend/internal/events"
	"kigogo-backend/internal/model"
	"kigogo-backend/internal/repository"
)

// UserStore is the persistence contract the account workflows need.
type UserStore interface {
	Create(ctx context.Context, user *model.User) (*model.User, error)
	GetByPhone(ctx context.Context, phone string) (*model.User, error)
	GetByReferralCode(ctx context.Context, code string) (*model.User, error)
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
	IncrementReferrals(ctx context.Context, id int64) error
	SetBalance(ctx context.Context, phone string, balance int64) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
}

// TransactionRecorder appends to the balance audit trail.
type TransactionRecorder interface {
	Create(ctx context.Context, userID int64, amount int64, txType string, description *string) (*model.Transaction, error)
}

// RegisterInput carries the fields accepted by POST /register.
type RegisterInput struct {
	PhoneNumber   string
	UserName      string
	Password      string
	TiktokName    *string
	YoutubeName   *string
	InstagramName *string
	ReferralCode  string
}

// RegisterResult is returned on successful registration.
type RegisterResult struct {
	User         *model.User
	ReferralCode string
}

// AccountService handles registration, login and account listing.
type AccountService struct {
	users      UserStore
	txs        TransactionRecorder
	publisher  events.Publisher
	bcryptCost int
	newCode    CodeGenerator
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(
	users UserStore,
	txs TransactionRecorder,
	publisher events.Publisher,
	bcryptCost int,
) *AccountService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &AccountService{
		users:      users,
		txs:        txs,
		publisher:  publisher,
		bcryptCost: bcryptCost,
		newCode:    RandomReferralCode,
	}
}

// SetCodeGenerator replaces the referral code source.
func (s *AccountService) SetCodeGenerator(gen CodeGenerator) {
	s.newCode = gen
}

// Register creates a new account credited to the owner of in.ReferralCode.
//
// The referrer's counter is incremented before the new account is written and
// is not reverted if a later step fails. Such a failure leaves the referrer
// credited for an account that does not exist.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	logger := log.With().Str("phone", maskPhone(in.PhoneNumber)).Logger()

	_, err := s.users.GetByPhone(ctx, in.PhoneNumber)
	if err == nil {
		return nil, ErrPhoneRegistered
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		logger.Error().Err(err).Msg("Error checking phone number")
		return nil, storageError("check phone number", err)
	}

	referrer, err := s.resolveReferrer(ctx, in.ReferralCode)
	if err != nil {
		if !isValidation(err) {
			logger.Error().Err(err).Msg("Error checking referral code")
		}
		return nil, err
	}

	if err := s.users.IncrementReferrals(ctx, referrer.ID); err != nil {
		logger.Error().Err(err).Int64("referrer_id", referrer.ID).Msg("Error updating referrals")
		return nil, storageError("update referrals", err)
	}

	code, err := s.allocateReferralCode(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error allocating referral code")
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		logger.Error().Err(err).Msg("Error hashing password")
		return nil, storageError("hash password", err)
	}

	referredBy := in.ReferralCode
	user := &model.User{
		PhoneNumber:   in.PhoneNumber,
		UserName:      in.UserName,
		Password:      string(hash),
		TiktokName:    in.TiktokName,
		YoutubeName:   in.YoutubeName,
		InstagramName: in.InstagramName,
		ReferralCode:  code,
		ReferredBy:    &referredBy,
		Balance:       model.InitialBalance,
	}

	var created *model.User
	for {
		created, err = s.users.Create(ctx, user)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicatePhone) {
			return nil, ErrPhoneRegistered
		}
		if !errors.Is(err, repository.ErrDuplicateReferralCode) {
			logger.Error().Err(err).Msg("Error creating user")
			return nil, storageError("create user", err)
		}

		// Another registration took the code between the check and the insert.
		logger.Warn().Str("code", user.ReferralCode).Msg("Referral code taken concurrently, regenerating")
		if user.ReferralCode, err = s.allocateReferralCode(ctx); err != nil {
			logger.Error().Err(err).Msg("Error allocating referral code")
			return nil, err
		}
	}

	logger.Info().
		Int64("user_id", created.ID).
		Int64("referrer_id", referrer.ID).
		Str("referral_code", created.ReferralCode).
		Msg("User registered")

	s.recordOpeningBalance(ctx, created)
	s.publishRegistered(ctx, created)

	return &RegisterResult{User: created.Sanitized(), ReferralCode: created.ReferralCode}, nil
}

func validateRegistration(in RegisterInput) error {
	if in.PhoneNumber == "" || in.UserName == "" || in.Password == "" {
		return ErrMissingField
	}
	if !IsValidPhoneNumber(in.PhoneNumber) {
		return ErrInvalidPhone
	}
	if !IsValidPassword(in.Password) {
		return ErrInvalidPasswordLength
	}
	if in.ReferralCode == "" {
		return ErrInvalidReferralCode
	}
	return nil
}

// resolveReferrer finds the account owning code. Codes that cannot have been
// allocated are rejected without a lookup.
func (s *AccountService) resolveReferrer(ctx context.Context, code string) (*model.User, error) {
	if !IsReferralCode(code) {
		return nil, ErrInvalidReferralCode
	}

	referrer, err := s.users.GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidReferralCode
		}
		return nil, storageError("check referral code", err)
	}
	return referrer, nil
}

// allocateReferralCode draws candidates until one is not owned by any account.
// There is no attempt limit; only a storage error or ctx cancellation stops it.
func (s *AccountService) allocateReferralCode(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", storageError("allocate referral code", err)
		}

		code := s.newCode()
		exists, err := s.users.ReferralCodeExists(ctx, code)
		if err != nil {
			return "", storageError("check referral code uniqueness", err)
		}
		if !exists {
			return code, nil
		}
	}
}

func (s *AccountService) recordOpeningBalance(ctx context.Context, user *model.User) {
	if s.txs == nil {
		return
	}
	desc := "opening balance"
	if _, err := s.txs.Create(ctx, user.ID, user.Balance, model.TxTypeInitial, &desc); err != nil {
		log.Warn().Err(err).Int64("user_id", user.ID).Msg("Failed to record opening balance")
	}
}

func (s *AccountService) publishRegistered(ctx context.Context, user *model.User) {
	event := events.New(events.TypeUserRegistered, user.ID)
	event.ReferralCode = user.ReferralCode
	if user.ReferredBy != nil {
		event.ReferredBy = *user.ReferredBy
	}
	event.Balance = user.Balance

	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Int64("user_id", user.ID).Msg("Failed to publish registration event")
	}
}

// Login verifies the phone number and password pair and returns the account
// without its password hash.
func (s *AccountService) Login(ctx context.Context, phone, password string) (*model.User, error) {
	if phone == "" || password == "" {
		return nil, ErrMissingField
	}

	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		log.Error().Err(err).Str("phone", maskPhone(phone)).Msg("Database error during login")
		return nil, storageError("login", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Error during password comparison")
		return nil, storageError("compare password", err)
	}

	return user.Sanitized(), nil
}

// ListUsers returns every account without password hashes.
func (s *AccountService) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error fetching users")
		return nil, storageError("list users", err)
	}

	out := make([]*model.User, len(users))
	for i, u := range users {
		out[i] = u.Sanitized()
	}
	return out, nil
}

func isValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

