package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diagnosis/boxbook/services/bookings/internal/domain"
	"github.com/diagnosis/boxbook/services/bookings/internal/notify"
	"github.com/diagnosis/boxbook/services/bookings/internal/payment"
	"github.com/diagnosis/boxbook/services/bookings/internal/repository"
	"github.com/diagnosis/boxbook/services/bookings/internal/schedule"
)

// mockReservations mirrors the repository's guarded insert: one lock per
// repository stands in for the per-day advisory lock.
type mockReservations struct {
	mu      sync.Mutex
	rows    map[int64]*domain.Reservation
	nextID  int64
	promos  *mockPromos
	lookups int
	// hideRefFor makes FindByExternalRef miss this many times before answering.
	hideRefFor int
}

func newMockReservations(promos *mockPromos) *mockReservations {
	return &mockReservations{rows: map[int64]*domain.Reservation{}, promos: promos}
}

func clone(r *domain.Reservation) *domain.Reservation {
	c := *r
	return &c
}

func (m *mockReservations) ListActive(ctx context.Context, date time.Time) ([]domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLocked(date), nil
}

func (m *mockReservations) activeLocked(date time.Time) []domain.Reservation {
	var out []domain.Reservation
	for _, r := range m.rows {
		if r.Date.Equal(schedule.NormalizeDate(date)) && r.IsActive() {
			out = append(out, *r)
		}
	}
	return out
}

func (m *mockReservations) CreateGuarded(ctx context.Context, d *domain.Draft, guard repository.Guard) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := guard(domain.Ranges(m.activeLocked(d.Date))); err != nil {
		return nil, err
	}
	m.nextID++
	now := time.Now()
	r := &domain.Reservation{
		ID:            m.nextID,
		ManageToken:   fmt.Sprintf("token-%d", m.nextID),
		Date:          d.Date,
		Start:         d.Start,
		Duration:      d.Duration,
		GroupSize:     d.GroupSize,
		BasePrice:     d.BasePrice,
		Price:         d.Price,
		Status:        domain.StatusPending,
		PaymentStatus: domain.PaymentUnpaid,
		PromoCodeID:   d.PromoCodeID,
		Customer:      d.Customer,
		IsTest:        d.IsTest,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.rows[r.ID] = r
	return clone(r), nil
}

func (m *mockReservations) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[id]; ok {
		return clone(r), nil
	}
	return nil, nil
}

func (m *mockReservations) GetByIDWithToken(ctx context.Context, id int64, token string) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[id]; ok && r.ManageToken == token && r.DeletedAt == nil {
		return clone(r), nil
	}
	return nil, nil
}

func (m *mockReservations) FindByExternalRef(ctx context.Context, ref string) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.hideRefFor > 0 {
		m.hideRefFor--
		return nil, nil
	}
	for _, r := range m.rows {
		if r.ExternalRef != nil && *r.ExternalRef == ref {
			return clone(r), nil
		}
	}
	return nil, nil
}

func (m *mockReservations) SetPaymentSession(ctx context.Context, id int64, ref, url string, expiresAt time.Time) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != domain.StatusPending || r.PaymentStatus == domain.PaymentPaid {
		return nil, nil
	}
	r.ExternalRef, r.CheckoutURL, r.CheckoutUntil = &ref, &url, &expiresAt
	r.PaymentStatus = domain.PaymentAwaiting
	return clone(r), nil
}

func (m *mockReservations) Reprice(ctx context.Context, id int64, promoID *int64, price decimal.Decimal) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != domain.StatusPending || r.PaymentStatus == domain.PaymentPaid {
		return nil, nil
	}
	r.PromoCodeID, r.Price = promoID, price
	r.ExternalRef, r.CheckoutURL, r.CheckoutUntil = nil, nil, nil
	r.PaymentStatus = domain.PaymentUnpaid
	return clone(r), nil
}

func (m *mockReservations) Confirm(ctx context.Context, id int64, ref string) (*repository.Confirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return &repository.Confirmation{}, nil
	}
	if r.Status != domain.StatusPending {
		return &repository.Confirmation{Reservation: clone(r)}, nil
	}
	r.Status, r.PaymentStatus, r.ExternalRef = domain.StatusConfirmed, domain.PaymentPaid, &ref
	out := &repository.Confirmation{Changed: true}
	if r.PromoCodeID != nil {
		out.PromoRefused = !m.promos.increment(*r.PromoCodeID)
	}
	out.Reservation = clone(r)
	return out, nil
}

func (m *mockReservations) Cancel(ctx context.Context, id int64, reason string, from []domain.Status) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	for _, s := range from {
		if r.Status == s {
			r.Status, r.CancelReason = domain.StatusCancelled, &reason
			return clone(r), nil
		}
	}
	return nil, nil
}

func (m *mockReservations) SoftDelete(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.DeletedAt != nil {
		return false, nil
	}
	now := time.Now()
	r.DeletedAt = &now
	return true, nil
}

func (m *mockReservations) List(ctx context.Context, f domain.ListFilter) ([]domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Reservation
	for _, r := range m.rows {
		if r.DeletedAt == nil && (f.Status == nil || *f.Status == r.Status) {
			out = append(out, *r)
		}
	}
	return out, nil
}

type mockPromos struct {
	mu    sync.Mutex
	codes map[string]*domain.PromoCode
}

func (m *mockPromos) FindByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.codes[code]; ok {
		c := *p
		return &c, nil
	}
	return nil, nil
}

func (m *mockPromos) FindByID(ctx context.Context, id int64) (*domain.PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.codes {
		if p.ID == id {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

// increment mirrors the capped UPDATE in the promo repository.
func (m *mockPromos) increment(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.codes {
		if p.ID == id {
			if p.Exhausted() {
				return false
			}
			p.CurrentUses++
			return true
		}
	}
	return false
}

func (m *mockPromos) edit(code string, fn func(p *domain.PromoCode)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.codes[code])
}

func (m *mockPromos) uses(code string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[code].CurrentUses
}

type mockSettings struct {
	cfg *schedule.Config
}

func (m *mockSettings) Load(ctx context.Context) (*schedule.Config, error) { return m.cfg, nil }

func (m *mockSettings) Save(ctx context.Context, cfg *schedule.Config) error {
	m.cfg = cfg
	return nil
}

type mockGateway struct {
	mu       sync.Mutex
	requests []payment.SessionRequest
	err      error
	event    *payment.Event
	sigErr   error
}

func (m *mockGateway) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.requests = append(m.requests, req)
	id := fmt.Sprintf("cs_%d", len(m.requests))
	return &payment.Session{
		ID:        id,
		URL:       "https://checkout.example/" + id,
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}, nil
}

func (m *mockGateway) VerifyCallback(payload []byte, signature string) (*payment.Event, error) {
	if m.sigErr != nil {
		return nil, m.sigErr
	}
	return m.event, nil
}

type sentNotification struct {
	id   int64
	kind notify.Kind
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (m *mockNotifier) Notify(ctx context.Context, res *domain.Reservation, kind notify.Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentNotification{res.ID, kind})
	return m.err
}

func (m *mockNotifier) count(kind notify.Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if s.kind == kind {
			n++
		}
	}
	return n
}

// mockLedger keeps claims as leases: expireLeases plays the role of the
// lease ttl running out for a claim that was never completed.
type mockLedger struct {
	mu        sync.Mutex
	leased    map[string]bool
	completed map[string]bool
	released  []string
}

func (m *mockLedger) Claim(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.leased == nil {
		m.leased, m.completed = map[string]bool{}, map[string]bool{}
	}
	if m.leased[id] || m.completed[id] {
		return false, nil
	}
	m.leased[id] = true
	return true, nil
}

func (m *mockLedger) Complete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.leased, id)
	m.completed[id] = true
	return nil
}

func (m *mockLedger) Release(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.leased, id)
	m.released = append(m.released, id)
	return nil
}

func (m *mockLedger) expireLeases() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leased = map[string]bool{}
}

type mockBus struct {
	mu       sync.Mutex
	subjects []string
}

func (m *mockBus) Publish(ctx context.Context, subject string, data interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	return nil
}

func (m *mockBus) Close() error { return nil }
