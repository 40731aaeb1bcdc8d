package billing

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
)

// seedHistory creates invoices for owner A (Jan, Feb 2024) and owner B (Jan 2024).
func seedHistory(t *testing.T, f *fixture) map[string]string {
	t.Helper()
	ctx := context.Background()
	ids := map[string]string{}
	for _, step := range []struct {
		key   string
		owner string
		month int
	}{
		{"a-jan", ownerA.ID, 1},
		{"b-jan", ownerB.ID, 1},
		{"a-feb", ownerA.ID, 2},
	} {
		summary, err := f.svc.GenerateForOwner(ctx, adminActor, step.owner, period(2024, step.month))
		require.NoError(t, err)
		ids[step.key] = summary.InvoiceID
	}
	return ids
}

func invoiceIDs(invoices []models.OwnerInvoice) []string {
	out := make([]string, len(invoices))
	for i, inv := range invoices {
		out[i] = inv.ID
	}
	return out
}

func TestHistory_AdminSeesEverythingNewestFirst(t *testing.T) {
	f := newFixture(ownerA, ownerB)
	ids := seedHistory(t, f)

	all, err := f.svc.History(context.Background(), adminActor, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{ids["a-feb"], ids["b-jan"], ids["a-jan"]}, invoiceIDs(all))

	jan, err := f.svc.History(context.Background(), adminActor, "", period(2024, 1))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{ids["a-jan"], ids["b-jan"]}, invoiceIDs(jan))

	bOnly, err := f.svc.History(context.Background(), adminActor, ownerB.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{ids["b-jan"]}, invoiceIDs(bOnly))
}

func TestHistory_OwnerIsScopedToSelf(t *testing.T) {
	f := newFixture(ownerA, ownerB)
	ids := seedHistory(t, f)
	ctx := context.Background()

	own, err := f.svc.History(ctx, ownerActor(ownerA.ID), "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{ids["a-feb"], ids["a-jan"]}, invoiceIDs(own))

	_, err = f.svc.History(ctx, ownerActor(ownerA.ID), ownerB.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.History(ctx, ownerActor(""), "", nil)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestHistory_RejectsInvalidPeriod(t *testing.T) {
	f := newFixture(ownerA)
	_, err := f.svc.History(context.Background(), adminActor, "", period(2024, 0))
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestInvoiceDocument(t *testing.T) {
	f := newFixture(ownerA, ownerB)
	ids := seedHistory(t, f)
	ctx := context.Background()

	doc, err := f.svc.InvoiceDocument(ctx, ownerActor(ownerA.ID), ids["a-jan"])
	require.NoError(t, err)
	assert.Equal(t, "%PDF-"+ids["a-jan"], string(doc))

	_, err = f.svc.InvoiceDocument(ctx, ownerActor(ownerA.ID), ids["b-jan"])
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.InvoiceDocument(ctx, adminActor, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExportArchive(t *testing.T) {
	f := newFixture(ownerA, ownerB)
	ids := seedHistory(t, f)

	archive, err := f.svc.ExportArchive(context.Background(), adminActor, "", period(2024, 1))
	require.NoError(t, err)

	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)

	var names []string
	for _, file := range reader.File {
		names = append(names, file.Name)
	}
	assert.ElementsMatch(t, []string{
		"invoice-" + ids["a-jan"] + "-owner-owner-a-2024-01.pdf",
		"invoice-" + ids["b-jan"] + "-owner-owner-b-2024-01.pdf",
	}, names)

	_, err = f.svc.ExportArchive(context.Background(), ownerActor(ownerA.ID), ownerB.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestExportArchive_EmptySelection(t *testing.T) {
	f := newFixture(ownerA)
	archive, err := f.svc.ExportArchive(context.Background(), adminActor, "", nil)
	require.NoError(t, err)

	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)
	assert.Empty(t, reader.File)
}
