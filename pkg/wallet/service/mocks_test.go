package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crypvault/wallet-api/pkg/ledgerstore"
	"github.com/crypvault/wallet-api/pkg/notify"
	"github.com/crypvault/wallet-api/pkg/wallet"
)

// fakeStore is an in-memory Store with per-user error injection for the
// adjust and append paths.
type fakeStore struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*wallet.Profile
	txs      []*wallet.Transaction

	adjustErrFor map[uuid.UUID]error
	appendErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles:     make(map[uuid.UUID]*wallet.Profile),
		adjustErrFor: make(map[uuid.UUID]error),
	}
}

func (f *fakeStore) addProfile(p *wallet.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.profiles[p.ID] = &cp
}

func (f *fakeStore) balance(id uuid.UUID) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[id].BTCBalance
}

func (f *fakeStore) CreateProfile(_ context.Context, profile *wallet.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[profile.ID]; ok {
		return ledgerstore.ErrProfileExists
	}
	cp := *profile
	f.profiles[profile.ID] = &cp
	return nil
}

func (f *fakeStore) GetProfile(_ context.Context, userID uuid.UUID) (*wallet.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, ledgerstore.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) FindProfileByAddress(_ context.Context, address string) (*wallet.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.WalletAddress == address {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ledgerstore.ErrProfileNotFound
}

func (f *fakeStore) UpdateWalletName(_ context.Context, userID uuid.UUID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return ledgerstore.ErrProfileNotFound
	}
	p.WalletName = name
	return nil
}

func (f *fakeStore) AdjustBalance(_ context.Context, userID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.adjustErrFor[userID]; err != nil {
		return decimal.Zero, err
	}
	p, ok := f.profiles[userID]
	if !ok {
		return decimal.Zero, ledgerstore.ErrProfileNotFound
	}
	next := p.BTCBalance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, ledgerstore.ErrInsufficientFunds
	}
	p.BTCBalance = next
	return next, nil
}

func (f *fakeStore) AppendTransaction(_ context.Context, tx *wallet.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}
	cp := *tx
	f.txs = append(f.txs, &cp)
	return nil
}

func (f *fakeStore) ListTransactions(_ context.Context, userID uuid.UUID) ([]*wallet.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*wallet.Transaction
	for i := len(f.txs) - 1; i >= 0; i-- {
		if f.txs[i].UserID == userID {
			cp := *f.txs[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) eventsOfType(eventType string) []notify.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []notify.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
