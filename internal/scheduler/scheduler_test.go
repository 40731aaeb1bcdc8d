package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
)

type fakeRunner struct {
	actor  models.Actor
	period *models.Period
	err    error
}

func (f *fakeRunner) CurrentPeriod() models.Period { return models.Period{Year: 2024, Month: 6} }

func (f *fakeRunner) GenerateForAllOwners(_ context.Context, actor models.Actor, period *models.Period) ([]models.GeneratedInvoiceSummary, error) {
	f.actor, f.period = actor, period
	if f.err != nil {
		return nil, f.err
	}
	total := decimal.NewFromInt(45)
	return []models.GeneratedInvoiceSummary{{OwnerID: "o1", Created: true, EmailSent: true, TotalDue: &total}}, nil
}

type fakeNotifier struct {
	to, body string
}

func (f *fakeNotifier) SendText(_ context.Context, to, body string) (string, error) {
	f.to, f.body = to, body
	return "wamid.1", nil
}

func TestRunOnce_RunsAsAdminAndNotifies(t *testing.T) {
	runner := &fakeRunner{}
	notifier := &fakeNotifier{}
	s := NewScheduler(Options{Schedule: "0 6 1 * *", ManagerID: "224600000000"}, runner, notifier, nil)

	require.NoError(t, s.RunOnce(context.Background()))

	assert.True(t, runner.actor.IsAdmin())
	require.NotNil(t, runner.period)
	assert.Equal(t, models.Period{Year: 2024, Month: 6}, *runner.period)
	assert.Equal(t, "224600000000", notifier.to)
	assert.Contains(t, notifier.body, "Invoices 2024-06: 1 owners, 1 new, 1 emailed")
}

func TestRunOnce_ReportsFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("rates misconfigured")}
	notifier := &fakeNotifier{}
	s := NewScheduler(Options{ManagerID: "m"}, runner, notifier, nil)

	err := s.RunOnce(context.Background())
	assert.ErrorContains(t, err, "rates misconfigured")
	assert.Contains(t, notifier.body, "batch did not run")
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	s := NewScheduler(Options{Schedule: "every day"}, &fakeRunner{}, nil, nil)
	assert.Error(t, s.Start())
}
