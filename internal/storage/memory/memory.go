package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"finanzas/internal/core"
	"finanzas/internal/ports"
)

// Store keeps everything in process memory. It is meant for development
// and tests; nothing survives a restart.
type Store struct {
	mu      sync.Mutex
	txs     map[string]core.Transaction
	budgets map[string]core.Budgets
	goals   map[string]core.SavingsGoals
	rates   core.Rates
	version int64
}

var _ ports.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		txs:     map[string]core.Transaction{},
		budgets: map[string]core.Budgets{},
		goals:   map[string]core.SavingsGoals{},
	}
}

// NewWithRates returns a store seeded with an initial rate snapshot.
func NewWithRates(r core.Rates) *Store {
	s := New()
	s.rates = r
	return s
}

func (s *Store) Insert(_ context.Context, txs ...core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range txs {
		if _, ok := s.txs[tx.ID]; ok {
			return fmt.Errorf("insert %s: duplicate id", tx.ID)
		}
	}
	for _, tx := range txs {
		s.txs[tx.ID] = tx
	}
	s.version++
	return nil
}

func (s *Store) Update(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.txs[tx.ID]
	if !ok || cur.ProfileID != tx.ProfileID {
		return ports.ErrNotFound
	}
	s.txs[tx.ID] = tx
	s.version++
	return nil
}

func (s *Store) Get(_ context.Context, profileID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok || tx.ProfileID != profileID {
		return core.Transaction{}, ports.ErrNotFound
	}
	return tx, nil
}

func (s *Store) Delete(_ context.Context, profileID string, ids ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		if tx, ok := s.txs[id]; ok && tx.ProfileID == profileID {
			delete(s.txs, id)
			n++
		}
	}
	if n > 0 {
		s.version++
	}
	return n, nil
}

func (s *Store) List(_ context.Context, profileID string) ([]core.Transaction, error) {
	s.mu.Lock()
	out := make([]core.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		if tx.ProfileID == profileID {
			out = append(out, tx)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListRecurring(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	var out []core.Transaction
	for _, tx := range s.txs {
		if tx.Recurrence != "" && tx.Recurrence != core.RecurNone {
			out = append(out, tx)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ProfileID != out[j].ProfileID {
			return out[i].ProfileID < out[j].ProfileID
		}
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Budgets(_ context.Context, profileID string) (core.Budgets, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := core.Budgets{}
	for k, v := range s.budgets[profileID] {
		out[k] = v
	}
	return out, nil
}

func (s *Store) SetBudget(_ context.Context, profileID, category string, limit float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[profileID]
	if !ok {
		b = core.Budgets{}
		s.budgets[profileID] = b
	}
	b[category] = limit
	s.version++
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, profileID, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[profileID][category]; !ok {
		return ports.ErrNotFound
	}
	delete(s.budgets[profileID], category)
	s.version++
	return nil
}

func (s *Store) Goals(_ context.Context, profileID string) (core.SavingsGoals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := core.SavingsGoals{}
	for k, v := range s.goals[profileID] {
		out[k] = v
	}
	return out, nil
}

func (s *Store) SetGoal(_ context.Context, profileID, category string, target float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[profileID]
	if !ok {
		g = core.SavingsGoals{}
		s.goals[profileID] = g
	}
	g[category] = target
	s.version++
	return nil
}

func (s *Store) LatestRates(_ context.Context) (core.Rates, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rates, nil
}

// DataVersion counts the mutations applied so far.
func (s *Store) DataVersion(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version, nil
}

func (s *Store) SaveRates(_ context.Context, r core.Rates) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates = r
	s.version++
	return nil
}
