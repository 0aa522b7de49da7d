package storage

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mercator-hq/quota-gate/pkg/limits/plans"
)

// MemoryDurableStore is the "memory" durable backend: plans, clients, and
// rules held in process, for development and tests. It stores copies on
// the way in and hands copies back out, so callers can never mutate shared
// state through a returned pointer.
type MemoryDurableStore struct {
	mu      sync.RWMutex
	plans   map[string]plans.SubscriptionPlan
	clients map[string]plans.Client
	rules   map[string]plans.RateLimitRule
}

// NewMemoryDurableStore returns an empty in-memory durable store.
func NewMemoryDurableStore() *MemoryDurableStore {
	return &MemoryDurableStore{
		plans:   make(map[string]plans.SubscriptionPlan),
		clients: make(map[string]plans.Client),
		rules:   make(map[string]plans.RateLimitRule),
	}
}

func (m *MemoryDurableStore) CreatePlan(ctx context.Context, p *plans.SubscriptionPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.plans[p.ID] = *p
	return nil
}

func (m *MemoryDurableStore) GetPlan(ctx context.Context, id string) (*plans.SubscriptionPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, nil
	}
	out := p
	return &out, nil
}

func (m *MemoryDurableStore) ListPlans(ctx context.Context) ([]*plans.SubscriptionPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*plans.SubscriptionPlan, 0, len(m.plans))
	for _, p := range m.plans {
		cp := p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryDurableStore) UpdatePlan(ctx context.Context, p *plans.SubscriptionPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.plans[p.ID]
	if !ok {
		return sql.ErrNoRows
	}
	p.CreatedAt = existing.CreatedAt
	m.plans[p.ID] = *p
	return nil
}

func (m *MemoryDurableStore) CreateClient(ctx context.Context, c *plans.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	m.clients[c.ID] = *c
	return nil
}

func (m *MemoryDurableStore) GetClientByAPIKey(ctx context.Context, apiKey string) (*plans.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.clients {
		if c.APIKey == apiKey {
			out := c
			return &out, nil
		}
	}
	return nil, nil
}

func (m *MemoryDurableStore) GetClientByID(ctx context.Context, id string) (*plans.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, nil
	}
	out := c
	return &out, nil
}

func (m *MemoryDurableStore) ListClients(ctx context.Context) ([]*plans.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*plans.Client, 0, len(m.clients))
	for _, c := range m.clients {
		cp := c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryDurableStore) SetClientActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.Active = active
	m.clients[id] = c
	return nil
}

func (m *MemoryDurableStore) CreateRule(ctx context.Context, r *plans.RateLimitRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Kind == "" {
		r.Kind = plans.GlobalRuleKind
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	m.rules[r.ID] = *r
	return nil
}

func (m *MemoryDurableStore) ListRules(ctx context.Context) ([]*plans.RateLimitRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*plans.RateLimitRule, 0, len(m.rules))
	for _, r := range m.rules {
		cp := r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryDurableStore) ListActiveRules(ctx context.Context) ([]*plans.RateLimitRule, error) {
	all, err := m.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryDurableStore) GetRule(ctx context.Context, id string) (*plans.RateLimitRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rules[id]
	if !ok {
		return nil, nil
	}
	out := r
	return &out, nil
}

func (m *MemoryDurableStore) SetRuleActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.Active = active
	m.rules[id] = r
	return nil
}

func (m *MemoryDurableStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryDurableStore) Close() error { return nil }
