package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"kigogo-backend/internal/events"
	"kigogo-backend/internal/model"
	"kigogo-backend/internal/repository"
)

// memoryStore is an in-memory UserStore mirroring the constraints of the users table.
type memoryStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*model.User

	// Injected failures, keyed by method name.
	fail map[string]error
	// createHook runs before Create checks constraints.
	createHook func(user *model.User)

	existsCalls int
	setCalls    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		byID: make(map[int64]*model.User),
		fail: make(map[string]error),
	}
}

func (m *memoryStore) seed(phone, code string, balance int64) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u := &model.User{
		ID:           m.nextID,
		PhoneNumber:  phone,
		UserName:     "seed-" + code,
		Password:     "hash",
		ReferralCode: code,
		Balance:      balance,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.byID[u.ID] = u
	return clone(u)
}

func (m *memoryStore) get(phone string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.PhoneNumber == phone {
			return clone(u)
		}
	}
	return nil
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func clone(u *model.User) *model.User {
	c := *u
	return &c
}

func (m *memoryStore) Create(_ context.Context, user *model.User) (*model.User, error) {
	if m.createHook != nil {
		m.createHook(user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["Create"]; err != nil {
		return nil, err
	}
	for _, u := range m.byID {
		if u.PhoneNumber == user.PhoneNumber {
			return nil, repository.ErrDuplicatePhone
		}
		if u.ReferralCode == user.ReferralCode {
			return nil, repository.ErrDuplicateReferralCode
		}
	}
	m.nextID++
	created := clone(user)
	created.ID = m.nextID
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	m.byID[created.ID] = created
	return clone(created), nil
}

func (m *memoryStore) GetByPhone(_ context.Context, phone string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["GetByPhone"]; err != nil {
		return nil, err
	}
	for _, u := range m.byID {
		if u.PhoneNumber == phone {
			return clone(u), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memoryStore) GetByReferralCode(_ context.Context, code string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["GetByReferralCode"]; err != nil {
		return nil, err
	}
	for _, u := range m.byID {
		if u.ReferralCode == code {
			return clone(u), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memoryStore) ReferralCodeExists(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existsCalls++
	if err := m.fail["ReferralCodeExists"]; err != nil {
		return false, err
	}
	for _, u := range m.byID {
		if u.ReferralCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) IncrementReferrals(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["IncrementReferrals"]; err != nil {
		return err
	}
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Referrals++
	return nil
}

func (m *memoryStore) SetBalance(_ context.Context, phone string, balance int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if err := m.fail["SetBalance"]; err != nil {
		return nil, err
	}
	for _, u := range m.byID {
		if u.PhoneNumber == phone {
			u.Balance = balance
			u.UpdatedAt = time.Now()
			return clone(u), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memoryStore) List(_ context.Context) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["List"]; err != nil {
		return nil, err
	}
	out := make([]*model.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memoryLedger records transactions in memory.
type memoryLedger struct {
	mu  sync.Mutex
	txs []model.Transaction
	err error
}

func (l *memoryLedger) Create(_ context.Context, userID int64, amount int64, txType string, description *string) (*model.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	tx := model.Transaction{
		ID:          int64(len(l.txs) + 1),
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		Description: description,
		CreatedAt:   time.Now(),
	}
	l.txs = append(l.txs, tx)
	return &tx, nil
}

func (l *memoryLedger) all() []model.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Transaction(nil), l.txs...)
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) all() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

// memoryKeys is an in-memory IdempotencyStore.
type memoryKeys struct {
	mu       sync.Mutex
	claimed  map[string]bool
	err      error
	released []string
}

func newMemoryKeys() *memoryKeys {
	return &memoryKeys{claimed: make(map[string]bool)}
}

func (k *memoryKeys) Claim(_ context.Context, key string) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.err != nil {
		return false, k.err
	}
	if k.claimed[key] {
		return false, nil
	}
	k.claimed[key] = true
	return true, nil
}

func (k *memoryKeys) Release(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.claimed, key)
	k.released = append(k.released, key)
	return nil
}

// scriptedCodes returns the given codes in order, then falls back to RandomReferralCode.
func scriptedCodes(codes ...string) CodeGenerator {
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		if len(codes) == 0 {
			return RandomReferralCode()
		}
		c := codes[0]
		codes = codes[1:]
		return c
	}
}

var errStoreDown = errors.New("connection refused")
