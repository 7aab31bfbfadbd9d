//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/adapter"
	"subscription-commerce/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func i64(v int64) *int64 { return &v }

// =============================
// Repositories
// =============================

// ---- Mock UserRepository ----

// MockUserRepo is an in-memory store with real version CAS. BeforeUpdate
// runs before the CAS check and can simulate a concurrent writer.
type MockUserRepo struct {
	mu      sync.Mutex
	users   map[string]*model.User
	Updates int

	FindByEmailFunc func(ctx context.Context, email string) (*model.User, error)
	UpdateFunc      func(ctx context.Context, u *model.User) (bool, error)
	ListAllFunc     func(ctx context.Context) ([]*model.User, error)
	BeforeUpdate    func(u *model.User)
	FailUpdates     map[string]error // by e-mail
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo(users ...*model.User) *MockUserRepo {
	m := &MockUserRepo{users: map[string]*model.User{}}
	for _, u := range users {
		c := u.Clone()
		if c.Version == 0 {
			c.Version = 1
		}
		m.users[c.Email] = c
	}
	return m
}

func (m *MockUserRepo) Get(email string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[email]; ok {
		return u.Clone()
	}
	return nil
}

// Bump simulates a write by another process.
func (m *MockUserRepo) Bump(email string, fn func(u *model.User)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[email]
	fn(u)
	u.Version++
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, _ repository.Tx, email string) (*model.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u.Clone(), nil
}

func (m *MockUserRepo) Create(_ context.Context, _ repository.Tx, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return domain.ErrVersionConflict
	}
	u.Version = 1
	m.users[u.Email] = u.Clone()
	return nil
}

func (m *MockUserRepo) Update(ctx context.Context, _ repository.Tx, u *model.User) (bool, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, u)
	}
	if err, ok := m.FailUpdates[u.Email]; ok {
		return false, err
	}
	if m.BeforeUpdate != nil {
		m.BeforeUpdate(u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.users[u.Email]
	if !ok {
		return false, domain.ErrNotFound
	}
	if cur.Version != u.Version {
		return false, nil
	}
	c := u.Clone()
	c.Version++
	u.Version = c.Version
	m.users[u.Email] = c
	m.Updates++
	return true, nil
}

func (m *MockUserRepo) ListAll(ctx context.Context, _ repository.Tx) ([]*model.User, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// ---- Mock PaymentRepository ----

type MockPaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*model.Payment

	SaveFunc        func(ctx context.Context, p *model.Payment) error
	SumVerifiedFunc func(ctx context.Context, currency string, since time.Time) (int64, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo(ps ...*model.Payment) *MockPaymentRepo {
	m := &MockPaymentRepo{payments: map[string]*model.Payment{}}
	for _, p := range ps {
		cp := *p
		m.payments[p.ID] = &cp
	}
	return m
}

func (m *MockPaymentRepo) All() []*model.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Payment
	for _, p := range m.payments {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

func (m *MockPaymentRepo) Save(ctx context.Context, _ repository.Tx, p *model.Payment) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *MockPaymentRepo) FindPaymentByID(_ context.Context, _ repository.Tx, id string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepo) FindPaymentByTransactionID(_ context.Context, _ repository.Tx, paymentID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.PaymentID == paymentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPaymentRepo) SumVerified(ctx context.Context, _ repository.Tx, currency string, since time.Time) (int64, error) {
	if m.SumVerifiedFunc != nil {
		return m.SumVerifiedFunc(ctx, currency, since)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, p := range m.payments {
		if p.Status == model.PaymentStatusVerified && p.Currency == currency && !p.CreatedAt.Before(since) {
			sum += p.Amount
		}
	}
	return sum, nil
}

// ---- Mock RefundRepository ----

type MockRefundRepo struct {
	mu      sync.Mutex
	refunds map[string]*model.Refund

	UpdateRefundFunc func(ctx context.Context, r *model.Refund) error
	CreateRefundFunc func(ctx context.Context, r *model.Refund) error
}

var _ repository.RefundRepository = (*MockRefundRepo)(nil)

func NewMockRefundRepo(rs ...*model.Refund) *MockRefundRepo {
	m := &MockRefundRepo{refunds: map[string]*model.Refund{}}
	for _, r := range rs {
		cp := *r
		m.refunds[r.ID] = &cp
	}
	return m
}

func (m *MockRefundRepo) All() []*model.Refund {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Refund, 0, len(m.refunds))
	for _, r := range m.refunds {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MockRefundRepo) CreateRefund(ctx context.Context, _ repository.Tx, r *model.Refund) error {
	if m.CreateRefundFunc != nil {
		return m.CreateRefundFunc(ctx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.refunds[r.ID] = &cp
	return nil
}

func (m *MockRefundRepo) UpdateRefund(ctx context.Context, _ repository.Tx, r *model.Refund) error {
	if m.UpdateRefundFunc != nil {
		return m.UpdateRefundFunc(ctx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.refunds[r.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *r
	m.refunds[r.ID] = &cp
	return nil
}

func (m *MockRefundRepo) TransitionIfPending(_ context.Context, _ repository.Tx, t repository.RefundTransition) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.refunds {
		if r.RefundID != t.RefundID {
			continue
		}
		if r.Status != model.RefundStatusPending {
			return false, nil
		}
		r.Status = t.Status
		if t.SpeedProcessed != "" {
			r.SpeedProcessed = t.SpeedProcessed
		}
		if len(t.AcquirerData) > 0 {
			r.AcquirerData = t.AcquirerData
		}
		if t.BatchID != "" {
			r.BatchID = t.BatchID
		}
		at := t.At
		switch t.Status {
		case model.RefundStatusProcessed:
			r.ProcessedAt = &at
		case model.RefundStatusFailed:
			r.FailedAt = &at
			r.ErrorCode = t.ErrorCode
			r.ErrorDescription = t.ErrorDescription
		}
		return true, nil
	}
	return false, nil
}

func (m *MockRefundRepo) FindRefundByID(_ context.Context, _ repository.Tx, id string) (*model.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.refunds[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MockRefundRepo) FindRefundByRefundID(_ context.Context, _ repository.Tx, refundID string) (*model.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.refunds {
		if r.RefundID == refundID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockRefundRepo) ListRefunds(_ context.Context, _ repository.Tx, f model.RefundFilter, page model.Page) ([]*model.Refund, int, error) {
	all := m.All()
	var match []*model.Refund
	for _, r := range all {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.PaymentID != "" && r.PaymentID != f.PaymentID {
			continue
		}
		if f.UserEmail != "" && r.UserEmail != f.UserEmail {
			continue
		}
		match = append(match, r)
	}
	total := len(match)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return match[start:end], total, nil
}

func (m *MockRefundRepo) SumNonFailed(_ context.Context, _ repository.Tx, paymentID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, r := range m.refunds {
		if r.PaymentID == paymentID && r.CountsAgainstPayment() {
			sum += r.Amount
		}
	}
	return sum, nil
}

func (m *MockRefundRepo) SumProcessed(_ context.Context, _ repository.Tx, currency string, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, r := range m.refunds {
		if r.Status == model.RefundStatusProcessed && r.Currency == currency && r.ProcessedAt != nil && !r.ProcessedAt.Before(since) {
			sum += r.Amount
		}
	}
	return sum, nil
}

// ---- Mock ServiceCatalogRepository ----

type MockCatalogRepo struct {
	mu        sync.Mutex
	offerings map[model.ServiceCode]*model.ServiceOffering
}

var _ repository.ServiceCatalogRepository = (*MockCatalogRepo)(nil)

func NewMockCatalogRepo(offerings ...*model.ServiceOffering) *MockCatalogRepo {
	m := &MockCatalogRepo{offerings: map[model.ServiceCode]*model.ServiceOffering{}}
	for _, o := range offerings {
		cp := *o
		m.offerings[o.Code] = &cp
	}
	return m
}

func (m *MockCatalogRepo) Save(_ context.Context, _ repository.Tx, o *model.ServiceOffering) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.offerings[o.Code] = &cp
	return nil
}

func (m *MockCatalogRepo) FindByCode(_ context.Context, _ repository.Tx, code model.ServiceCode) (*model.ServiceOffering, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offerings[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockCatalogRepo) ListActive(_ context.Context, _ repository.Tx) ([]*model.ServiceOffering, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ServiceOffering
	for _, o := range m.offerings {
		if o.Active {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// ---- Mock TransactionManager ----

// MockTxManager serializes transactions, which is what the payment row lock
// gives the real store for concurrent refund initiation.
type MockTxManager struct {
	mu sync.Mutex
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, nil)
}

// =============================
// Adapters
// =============================

// ---- Mock PaymentGateway ----

type MockGateway struct {
	mu    sync.Mutex
	Calls int
	seq   int

	RegisterRefundFunc func(ctx context.Context, gatewayPaymentID string, amount *int64, speed model.RefundSpeed) (adapter.RefundRegistration, error)
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) RegisterRefund(ctx context.Context, gatewayPaymentID string, amount *int64, speed model.RefundSpeed, _ map[string]string) (adapter.RefundRegistration, error) {
	m.mu.Lock()
	m.Calls++
	m.seq++
	seq := m.seq
	m.mu.Unlock()
	if m.RegisterRefundFunc != nil {
		return m.RegisterRefundFunc(ctx, gatewayPaymentID, amount, speed)
	}
	var amt int64
	if amount != nil {
		amt = *amount
	}
	return adapter.RefundRegistration{RefundID: "rfnd_" + strconv.Itoa(seq), Status: "pending", Amount: amt}, nil
}

// ---- Mock Notifier ----

type MockNotifier struct {
	mu            sync.Mutex
	RefundNotices []adapter.RefundNotice
	Cancellations []adapter.CancellationNotice

	Err error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) NotifyRefundStatus(_ context.Context, n adapter.RefundNotice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RefundNotices = append(m.RefundNotices, n)
	return m.Err
}

func (m *MockNotifier) NotifySubscriptionCancelled(_ context.Context, n adapter.CancellationNotice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cancellations = append(m.Cancellations, n)
	return m.Err
}

func (m *MockNotifier) RefundCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RefundNotices)
}

// ---- Mock Locker ----

type MockLocker struct {
	mu   sync.Mutex
	held map[string]string

	TryLockFunc func(ctx context.Context, key string) (string, error)
}

var _ adapter.Locker = (*MockLocker)(nil)

func (m *MockLocker) TryLock(ctx context.Context, key string, _ time.Duration) (string, error) {
	if m.TryLockFunc != nil {
		return m.TryLockFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held == nil {
		m.held = map[string]string{}
	}
	if _, ok := m.held[key]; ok {
		return "", domain.ErrLockNotAcquired
	}
	m.held[key] = "tok-" + key
	return m.held[key], nil
}

func (m *MockLocker) Unlock(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}

func (m *MockLocker) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[key]
	return ok
}
