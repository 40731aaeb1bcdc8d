package billing

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
	"github.com/mamadbah2/farmbilling/internal/lock"
	"github.com/mamadbah2/farmbilling/internal/repository"
	"github.com/mamadbah2/farmbilling/pkg/clients/mailer"
)

// memInvoices is an in-memory InvoiceStore enforcing (owner, period) uniqueness.
type memInvoices struct {
	mu   sync.Mutex
	byID map[string]models.OwnerInvoice
}

func newMemInvoices() *memInvoices {
	return &memInvoices{byID: make(map[string]models.OwnerInvoice)}
}

func (m *memInvoices) FindByID(_ context.Context, id string) (*models.OwnerInvoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &inv, nil
}

func (m *memInvoices) FindByPeriod(_ context.Context, ownerID string, period models.Period) (*models.OwnerInvoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.byID {
		if inv.OwnerID == ownerID && inv.Period == period {
			return &inv, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memInvoices) LatestUnpaidBefore(_ context.Context, ownerID string, period models.Period) (*models.OwnerInvoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.OwnerInvoice
	for _, inv := range m.byID {
		if inv.OwnerID != ownerID || inv.Paid || !inv.Period.Before(period) {
			continue
		}
		if best == nil || best.Period.Before(inv.Period) {
			candidate := inv
			best = &candidate
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best, nil
}

func (m *memInvoices) Insert(_ context.Context, invoice *models.OwnerInvoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.byID {
		if inv.OwnerID == invoice.OwnerID && inv.Period == invoice.Period {
			return repository.ErrDuplicateInvoice
		}
	}
	m.byID[invoice.ID] = *invoice
	return nil
}

func (m *memInvoices) update(id string, fn func(*models.OwnerInvoice)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&inv)
	m.byID[id] = inv
	return nil
}

func (m *memInvoices) RecordDeliverySuccess(_ context.Context, id string, sentAt time.Time) error {
	return m.update(id, func(inv *models.OwnerInvoice) {
		inv.EmailSent = true
		inv.EmailError = nil
		inv.SentAt = &sentAt
	})
}

func (m *memInvoices) RecordDeliveryFailure(_ context.Context, id string, reason string) error {
	return m.update(id, func(inv *models.OwnerInvoice) {
		inv.EmailError = &reason
	})
}

func (m *memInvoices) MarkPaid(_ context.Context, id string) error {
	return m.update(id, func(inv *models.OwnerInvoice) { inv.Paid = true })
}

func (m *memInvoices) List(_ context.Context, filter models.InvoiceFilter) ([]models.OwnerInvoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.OwnerInvoice
	for _, inv := range m.byID {
		if filter.OwnerID != "" && inv.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Period != nil && inv.Period != *filter.Period {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memInvoices) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type memRates struct {
	mu     sync.Mutex
	params models.BillingParameters
	err    error
}

func (m *memRates) Current(context.Context) (models.BillingParameters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params, m.err
}

func (m *memRates) Save(_ context.Context, params models.BillingParameters) (models.BillingParameters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	params.UpdatedAt = &now
	m.params = params
	return params, nil
}

type memOwners struct {
	owners []models.Owner
}

func (m *memOwners) GetOwner(_ context.Context, id string) (*models.Owner, error) {
	for _, o := range m.owners {
		if o.ID == id {
			owner := o
			return &owner, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memOwners) ListOwners(context.Context) ([]models.Owner, error) {
	return append([]models.Owner(nil), m.owners...), nil
}

// memInventory serves fixed head counts; owners listed in failing return an error.
type memInventory struct {
	mu      sync.Mutex
	counts  map[string]models.HeadCounts
	failing map[string]bool
}

func (m *memInventory) set(ownerID string, counts models.HeadCounts) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[ownerID] = counts
}

func (m *memInventory) CountLiveByOwnerAndType(_ context.Context, ownerID string, t models.AnimalType) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing[ownerID] {
		return 0, errors.New("inventory unavailable")
	}
	return m.counts[ownerID].Of(t), nil
}

type passthroughTx struct{}

func (passthroughTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type stubRenderer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *stubRenderer) RenderInvoice(invoice models.OwnerInvoice) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-" + invoice.ID), nil
}

type sentMail struct {
	to, subject, body string
	attachment        mailer.Attachment
}

// stubMailer records sends. failures makes the next n sends fail; hang blocks
// until the context ends.
type stubMailer struct {
	mu       sync.Mutex
	sent     []sentMail
	failures int
	failWith error
	hang     bool
}

func (m *stubMailer) Send(ctx context.Context, to, subject, body string, attachment mailer.Attachment) error {
	if m.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		if m.failWith != nil {
			return m.failWith
		}
		return errors.New("smtp connection refused")
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body, attachment: attachment})
	return nil
}

func (m *stubMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type recordingMirror struct {
	mu       sync.Mutex
	appended []models.OwnerInvoice
}

func (r *recordingMirror) AppendInvoices(_ context.Context, invoices []models.OwnerInvoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appended = append(r.appended, invoices...)
	return nil
}

type fixture struct {
	svc       *Service
	invoices  *memInvoices
	rates     *memRates
	owners    *memOwners
	inventory *memInventory
	renderer  *stubRenderer
	mailer    *stubMailer
	mirror    *recordingMirror
	clock     *time.Time
}

var (
	adminActor = models.Actor{Role: models.RoleAdmin}
	ownerA     = models.Owner{ID: "owner-a", FirstName: "Awa", LastName: "Diallo", Email: "awa@example.test"}
	ownerB     = models.Owner{ID: "owner-b", FirstName: "Moussa", LastName: "Barry", Email: "moussa@example.test"}
)

func ownerActor(id string) models.Actor {
	return models.Actor{Role: models.RoleOwner, OwnerID: id}
}

// cattleRates prices cattle at feed=10, medication=5 and everything else at zero.
func cattleRates() models.BillingParameters {
	return models.BillingParameters{
		Cattle: models.MonthlyRate{Feed: decimal.NewFromInt(10), Medication: decimal.NewFromInt(5)},
	}
}

func newFixture(owners ...models.Owner) *fixture {
	clock := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	f := &fixture{
		invoices:  newMemInvoices(),
		rates:     &memRates{params: cattleRates()},
		owners:    &memOwners{owners: owners},
		inventory: &memInventory{counts: map[string]models.HeadCounts{}, failing: map[string]bool{}},
		renderer:  &stubRenderer{},
		mailer:    &stubMailer{},
		mirror:    &recordingMirror{},
		clock:     &clock,
	}
	f.svc = NewService(Dependencies{
		Invoices:  f.invoices,
		Rates:     f.rates,
		Owners:    f.owners,
		Inventory: f.inventory,
		Tx:        passthroughTx{},
		Locker:    lock.NewMemoryLocker(),
		Renderer:  f.renderer,
		Mailer:    f.mailer,
		Mirror:    f.mirror,
	}, Config{DeliveryTimeout: time.Second}, nil)

	var clockMu sync.Mutex
	f.svc.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		*f.clock = f.clock.Add(time.Second)
		return *f.clock
	}
	return f
}

func period(year, month int) *models.Period {
	return &models.Period{Year: year, Month: month}
}
