// Package memrepo is an in-memory store for the ledger, transaction log and
// investments. Transactions are fully serialized and roll back on error, so
// the services can be exercised end to end without Postgres.
package memrepo

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/GlebRadaev/solyield/internal/domain"
	"github.com/GlebRadaev/solyield/internal/pg"
)

type txKey struct{}

type state struct {
	balances     map[string]domain.Balance
	transactions map[string]domain.Transaction
	order        []string
	investments  map[string]domain.Investment
}

type Store struct {
	mu  sync.Mutex
	st  state
	now func() time.Time
}

func New() *Store {
	return &Store{
		st: state{
			balances:     map[string]domain.Balance{},
			transactions: map[string]domain.Transaction{},
			investments:  map[string]domain.Investment{},
		},
		now: time.Now,
	}
}

var _ pg.TXManager = (*Store)(nil)

// Begin holds the store lock for the whole of fn. Nested calls join the
// outer transaction.
func (s *Store) Begin(ctx context.Context, fn pg.TransactionalFn) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.st = snap
		return err
	}
	return nil
}

func (s *Store) guard(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) snapshot() state {
	return state{
		balances:     maps.Clone(s.st.balances),
		transactions: maps.Clone(s.st.transactions),
		order:        append([]string(nil), s.st.order...),
		investments:  maps.Clone(s.st.investments),
	}
}

// Balance store.

func (s *Store) Get(ctx context.Context, wallet string) (*domain.Balance, error) {
	defer s.guard(ctx)()
	b, ok := s.st.balances[wallet]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *Store) GetForUpdate(ctx context.Context, wallet string) (*domain.Balance, error) {
	defer s.guard(ctx)()
	b, ok := s.st.balances[wallet]
	if !ok {
		b = *domain.NewBalance(wallet)
		b.CreatedAt = s.now()
		s.st.balances[wallet] = b
	}
	return &b, nil
}

func (s *Store) Ensure(ctx context.Context, wallet string, userID *string) error {
	defer s.guard(ctx)()
	b, ok := s.st.balances[wallet]
	if !ok {
		b = *domain.NewBalance(wallet)
	}
	if b.UserID == nil {
		b.UserID = userID
	}
	s.st.balances[wallet] = b
	return nil
}

func (s *Store) Update(ctx context.Context, b *domain.Balance) error {
	defer s.guard(ctx)()
	if _, ok := s.st.balances[b.WalletAddress]; !ok {
		return fmt.Errorf("balance %s: %w", b.WalletAddress, domain.ErrNotFound)
	}
	for _, c := range domain.Currencies {
		p, _ := b.Pocket(c)
		if p.Available.IsNegative() || p.Locked.IsNegative() {
			return fmt.Errorf("balance %s: negative %s pocket", b.WalletAddress, c)
		}
	}
	b.UpdatedAt = s.now()
	s.st.balances[b.WalletAddress] = *b
	return nil
}

// Transaction log.

type Transactions struct{ *Store }

func (s *Store) Transactions() Transactions { return Transactions{s} }

func (t Transactions) Create(ctx context.Context, rec *domain.Transaction) error {
	defer t.guard(ctx)()
	if !rec.Amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if _, ok := t.st.transactions[rec.ID]; ok {
		return fmt.Errorf("duplicate transaction id %s", rec.ID)
	}
	if err := t.checkSignature(rec); err != nil {
		return err
	}
	rec.CreatedAt, rec.UpdatedAt = t.now(), t.now()
	t.st.transactions[rec.ID] = copyTransaction(rec)
	t.st.order = append(t.st.order, rec.ID)
	return nil
}

func (t Transactions) Finalize(ctx context.Context, rec *domain.Transaction) error {
	defer t.guard(ctx)()
	cur, ok := t.st.transactions[rec.ID]
	if !ok || cur.WalletAddress != rec.WalletAddress || cur.Type != rec.Type || cur.Status != domain.StatusPending {
		return fmt.Errorf("pending transaction %s: %w", rec.ID, domain.ErrNotFound)
	}
	if err := t.checkSignature(rec); err != nil {
		return err
	}
	merged := maps.Clone(cur.Metadata)
	if merged == nil {
		merged = map[string]any{}
	}
	maps.Copy(merged, rec.Metadata)
	if cur.UserID != nil {
		rec.UserID = cur.UserID
	}
	rec.Metadata = merged
	rec.CreatedAt, rec.UpdatedAt = cur.CreatedAt, t.now()
	t.st.transactions[rec.ID] = copyTransaction(rec)
	return nil
}

func (t Transactions) checkSignature(rec *domain.Transaction) error {
	if rec.Status != domain.StatusCompleted || rec.Signature == nil {
		return nil
	}
	for id, other := range t.st.transactions {
		if id != rec.ID && other.Status == domain.StatusCompleted && other.Signature != nil && *other.Signature == *rec.Signature {
			return domain.ErrReplayDetected
		}
	}
	return nil
}

func (t Transactions) FindForUpdate(ctx context.Context, id string) (*domain.Transaction, error) {
	defer t.guard(ctx)()
	rec, ok := t.st.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	out := copyTransaction(&rec)
	return &out, nil
}

func (t Transactions) FindCompletedBySignature(ctx context.Context, signature string) (*domain.Transaction, error) {
	defer t.guard(ctx)()
	for _, rec := range t.st.transactions {
		if rec.Status == domain.StatusCompleted && rec.Signature != nil && *rec.Signature == signature {
			out := copyTransaction(&rec)
			return &out, nil
		}
	}
	return nil, nil
}

// ListByWallet returns newest first.
func (t Transactions) ListByWallet(ctx context.Context, wallet string, limit int) ([]domain.Transaction, error) {
	defer t.guard(ctx)()
	var out []domain.Transaction
	for i := len(t.st.order) - 1; i >= 0; i-- {
		rec := t.st.transactions[t.st.order[i]]
		if rec.WalletAddress != wallet {
			continue
		}
		out = append(out, copyTransaction(&rec))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func copyTransaction(rec *domain.Transaction) domain.Transaction {
	out := *rec
	out.Metadata = maps.Clone(rec.Metadata)
	return out
}

// Investments.

type Investments struct{ *Store }

func (s *Store) Investments() Investments { return Investments{s} }

func (r Investments) Create(ctx context.Context, inv *domain.Investment) error {
	defer r.guard(ctx)()
	if _, ok := r.st.investments[inv.ID]; ok {
		return fmt.Errorf("duplicate investment id %s", inv.ID)
	}
	inv.CreatedAt, inv.UpdatedAt = r.now(), r.now()
	r.st.investments[inv.ID] = *inv
	return nil
}

func (r Investments) FindByID(ctx context.Context, id string) (*domain.Investment, error) {
	defer r.guard(ctx)()
	inv, ok := r.st.investments[id]
	if !ok {
		return nil, fmt.Errorf("investment %s: %w", id, domain.ErrNotFound)
	}
	return &inv, nil
}

func (r Investments) FindForUpdate(ctx context.Context, id string) (*domain.Investment, error) {
	return r.FindByID(ctx, id)
}

func (r Investments) ListByWallet(ctx context.Context, wallet string, limit int) ([]domain.Investment, error) {
	defer r.guard(ctx)()
	var out []domain.Investment
	for _, inv := range r.st.investments {
		if inv.WalletAddress == wallet {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r Investments) FindActive(ctx context.Context, after string, limit int) ([]string, error) {
	return r.ids(ctx, after, limit, func(inv domain.Investment) bool { return inv.Status == domain.InvestmentActive })
}

func (r Investments) FindUnsettled(ctx context.Context, after string, limit int) ([]string, error) {
	return r.ids(ctx, after, limit, func(inv domain.Investment) bool { return inv.NeedsSettlement() })
}

// ids pages by id like the SQL store. Lower-case uuid text sorts in uuid order.
func (r Investments) ids(ctx context.Context, after string, limit int, match func(domain.Investment) bool) ([]string, error) {
	defer r.guard(ctx)()
	var ids []string
	for id, inv := range r.st.investments {
		if id > after && match(inv) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r Investments) Update(ctx context.Context, inv *domain.Investment) error {
	defer r.guard(ctx)()
	if _, ok := r.st.investments[inv.ID]; !ok {
		return fmt.Errorf("investment %s: %w", inv.ID, domain.ErrNotFound)
	}
	inv.UpdatedAt = r.now()
	r.st.investments[inv.ID] = *inv
	return nil
}
