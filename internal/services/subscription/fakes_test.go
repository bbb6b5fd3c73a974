package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/nusapalma/nusapalma/internal/models"
	"github.com/nusapalma/nusapalma/internal/storage"
)

type memUsers struct {
	mu        sync.Mutex
	users     map[string]*models.User
	updates   int
	updateErr error
}

func newMemUsers(users ...*models.User) *memUsers {
	m := &memUsers{users: map[string]*models.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m *memUsers) UpdateSubscription(_ context.Context, id, planKey string, start time.Time, end *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	u, ok := m.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	m.updates++
	u.SubscriptionPlan = planKey
	u.SubscriptionStartDate = &start
	u.SubscriptionEndDate = end
	return nil
}

func (m *memUsers) get(id string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

type memPayments struct {
	mu         sync.Mutex
	payments   map[string]*models.Payment
	order      []string
	nextID     int64
	createErr  error
	conflictOn map[string]bool
	users      *memUsers
}

func newMemPayments(users *memUsers) *memPayments {
	return &memPayments{payments: map[string]*models.Payment{}, conflictOn: map[string]bool{}, users: users}
}

func (m *memPayments) CreatePayment(_ context.Context, p *models.Payment) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	if _, dup := m.payments[p.PaymentID]; dup {
		return nil, storage.ErrAlreadyExists
	}
	m.nextID++
	c := *p
	c.ID = m.nextID
	c.Status = models.PaymentPending
	c.UpdatedAt = c.CreatedAt
	m.payments[c.PaymentID] = &c
	m.order = append(m.order, c.PaymentID)
	out := c
	return &out, nil
}

func (m *memPayments) GetPaymentForUser(_ context.Context, paymentID, userID string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok || p.UserID != userID {
		return nil, storage.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (m *memPayments) ListPaymentsByUser(_ context.Context, userID string, limit, offset int) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payment
	for i := len(m.order) - 1; i >= 0; i-- {
		p := m.payments[m.order[i]]
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	if offset >= len(out) {
		return []models.Payment{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memPayments) TransitionPayment(_ context.Context, paymentID string, from, to models.PaymentStatus, verifiedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok || p.Status != from {
		return storage.ErrConflict
	}
	if m.conflictOn[paymentID] {
		// another request won the race
		p.Status = to
		return storage.ErrConflict
	}
	p.Status = to
	if verifiedAt != nil {
		v := *verifiedAt
		p.VerifiedAt = &v
	}
	return nil
}

func (m *memPayments) VerifyAndActivate(ctx context.Context, paymentID, userID, planKey string, verifiedAt time.Time, end *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok || p.Status != models.PaymentPending {
		return storage.ErrConflict
	}
	if m.conflictOn[paymentID] {
		p.Status = models.PaymentVerified
		return storage.ErrConflict
	}
	if err := m.users.UpdateSubscription(ctx, userID, planKey, verifiedAt, end); err != nil {
		return err
	}
	p.Status = models.PaymentVerified
	p.VerifiedAt = &verifiedAt
	return nil
}

func (m *memPayments) status(paymentID string) models.PaymentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payments[paymentID].Status
}

type event struct {
	key  string
	body any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event{key: key, body: body})
	return nil
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var keys []string
	for _, e := range p.events {
		keys = append(keys, e.key)
	}
	return keys
}

type memCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	gets        int
	invalidated []string
	failGet     bool
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (c *memCache) Get(_ context.Context, key string, result any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet {
		return false, errors.New("redis down")
	}
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, result)
}

func (c *memCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = b
	return nil
}

func (c *memCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.invalidated = append(c.invalidated, key)
	return nil
}

type scriptedIDs struct {
	ids []string
	i   int
}

func (s *scriptedIDs) Next() string {
	id := s.ids[s.i%len(s.ids)]
	s.i++
	return id
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
