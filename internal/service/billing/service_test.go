package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
)

func TestMarkPaid(t *testing.T) {
	f := newFixture(ownerA)
	f.inventory.set(ownerA.ID, models.HeadCounts{Cattle: 3})
	ctx := context.Background()

	jan, err := f.svc.GenerateForOwner(ctx, adminActor, ownerA.ID, period(2024, 1))
	require.NoError(t, err)
	feb, err := f.svc.GenerateForOwner(ctx, adminActor, ownerA.ID, period(2024, 2))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.MarkPaid(ctx, ownerActor(ownerA.ID), jan.InvoiceID), ErrForbidden)
	assert.ErrorIs(t, f.svc.MarkPaid(ctx, adminActor, "missing"), ErrNotFound)

	require.NoError(t, f.svc.MarkPaid(ctx, adminActor, jan.InvoiceID))
	require.NoError(t, f.svc.MarkPaid(ctx, adminActor, jan.InvoiceID))

	paid, err := f.invoices.FindByID(ctx, jan.InvoiceID)
	require.NoError(t, err)
	assert.True(t, paid.Paid)

	// Paying January leaves February's total as it was issued.
	later, err := f.invoices.FindByID(ctx, feb.InvoiceID)
	require.NoError(t, err)
	assert.True(t, dec("90").Equal(later.TotalDue))

	// Re-running February returns the stored invoice with its original carry.
	again, err := f.svc.GenerateForOwner(ctx, adminActor, ownerA.ID, period(2024, 2))
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, feb.InvoiceID, again.InvoiceID)
	assertAmount(t, "45", again.PreviousUnpaidBalance)
	assertAmount(t, "90", again.TotalDue)
}

func TestCurrentPeriodUsesBillingLocation(t *testing.T) {
	f := newFixture()
	tz := time.FixedZone("UTC+3", 3*3600)
	f.svc.cfg.Location = tz
	f.svc.now = func() time.Time { return time.Date(2024, 1, 31, 22, 30, 0, 0, time.UTC) }

	assert.Equal(t, models.Period{Year: 2024, Month: 2}, f.svc.CurrentPeriod())
}

func TestEffectiveOwnerFilter(t *testing.T) {
	tests := []struct {
		name      string
		actor     models.Actor
		requested string
		want      string
		forbidden bool
	}{
		{name: "admin without filter", actor: adminActor, requested: "", want: ""},
		{name: "admin with filter", actor: adminActor, requested: "o1", want: "o1"},
		{name: "owner without filter", actor: ownerActor("o1"), requested: "", want: "o1"},
		{name: "owner naming self", actor: ownerActor("o1"), requested: "o1", want: "o1"},
		{name: "owner naming another", actor: ownerActor("o1"), requested: "o2", forbidden: true},
		{name: "owner without binding", actor: ownerActor(""), requested: "", forbidden: true},
		{name: "unknown role", actor: models.Actor{Role: "GUEST", OwnerID: "o1"}, forbidden: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EffectiveOwnerFilter(tc.actor, tc.requested)
			if tc.forbidden {
				assert.ErrorIs(t, err, ErrForbidden)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPreview(t *testing.T) {
	f := newFixture(ownerA, ownerB)
	f.inventory.set(ownerA.ID, models.HeadCounts{Cattle: 3})
	ctx := context.Background()

	preview, err := f.svc.PreviewOwner(ctx, ownerActor(ownerA.ID), ownerA.ID)
	require.NoError(t, err)
	assert.Equal(t, "Awa", preview.FirstName)
	assert.Equal(t, int64(3), preview.Counts.Cattle)
	assert.True(t, dec("45").Equal(preview.Total))

	_, err = f.svc.PreviewOwner(ctx, ownerActor(ownerA.ID), ownerB.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.PreviewOwner(ctx, adminActor, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := f.svc.PreviewAll(ctx, adminActor)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.PreviewAll(ctx, ownerActor(ownerA.ID))
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Zero(t, f.invoices.count())
}

func TestRates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.GetRates(ctx, ownerActor("o1"))
	assert.ErrorIs(t, err, ErrForbidden)

	bad := cattleRates()
	bad.Goat.Medication = dec("-0.01")
	_, err = f.svc.UpdateRates(ctx, adminActor, bad)
	assert.ErrorIs(t, err, ErrInvalidRates)

	_, err = f.svc.UpdateRates(ctx, ownerActor("o1"), cattleRates())
	assert.ErrorIs(t, err, ErrForbidden)

	update := cattleRates()
	update.Pig.Feed = dec("2.75")
	saved, err := f.svc.UpdateRates(ctx, adminActor, update)
	require.NoError(t, err)
	require.NotNil(t, saved.UpdatedAt)

	current, err := f.svc.GetRates(ctx, adminActor)
	require.NoError(t, err)
	assert.True(t, dec("2.75").Equal(current.Pig.Feed))
}

func TestRates_MalformedStoredTable(t *testing.T) {
	f := newFixture(ownerA)
	f.rates.params.Ram.Feed = dec("-3")

	_, err := f.svc.GetRates(context.Background(), adminActor)
	assert.ErrorIs(t, err, ErrRateConfiguration)

	_, err = f.svc.PreviewOwner(context.Background(), adminActor, ownerA.ID)
	assert.ErrorIs(t, err, ErrRateConfiguration)
}
