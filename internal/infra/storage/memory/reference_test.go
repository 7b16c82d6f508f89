package memory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratedesk/internal/app/refdata"
	"ratedesk/internal/app/refdata/refdatatest"
)

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reference.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadReferenceFile(t *testing.T) {
	path := writeFixture(t, `{
		"partners": [{"id": "p1", "name": "Booking.com"}],
		"daily_base_rates": [
			{"date": "2026-11-02", "ota_rate": 100, "travco_rate": 80},
			{"date": "2026-11-02", "ota_rate": 999, "travco_rate": 999}
		]
	}`)
	store, err := LoadReferenceFile(path)
	require.NoError(t, err)

	partners, err := store.Partners(t.Context())
	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Equal(t, "Booking.com", partners[0].Name)

	row, ok, err := store.DailyBaseRate(t.Context(), refdatatest.Arrival)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 100.0, *row.OTARate, "first row for a date wins")

	_, ok, err = store.DailyBaseRate(t.Context(), refdatatest.Arrival.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadReferenceFileErrors(t *testing.T) {
	_, err := LoadReferenceFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadReferenceFile(writeFixture(t, ""))
	assert.ErrorIs(t, err, ErrFixturesEmpty)

	_, err = LoadReferenceFile(writeFixture(t, "{not json"))
	assert.Error(t, err)
}

func TestReferenceStoreRefreshRereadsFile(t *testing.T) {
	path := writeFixture(t, `{"plans": [{"id": "a", "code": "OTA-FLEX"}]}`)
	store, err := LoadReferenceFile(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"plans": [{"id": "a", "code": "OTA-FLEX"}, {"id": "b", "code": "OTA-NR"}]}`), 0o600))
	require.NoError(t, store.Refresh(t.Context()))

	plans, err := store.Plans(t.Context())
	require.NoError(t, err)
	assert.Len(t, plans, 2)
}

func TestReferenceStoreRefreshWithoutFile(t *testing.T) {
	store := NewReferenceStore(refdatatest.Tables())
	require.NoError(t, store.Refresh(t.Context()))
	rates, err := store.DailyBaseRates(t.Context())
	require.NoError(t, err)
	assert.Len(t, rates, 10)
}

func TestReferenceStoreReadsAreCopies(t *testing.T) {
	store := NewReferenceStore(refdatatest.Tables())
	partners, err := store.Partners(t.Context())
	require.NoError(t, err)
	partners[0].Name = "changed"

	again, err := store.Partners(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "Booking.com", again[0].Name)
}

func TestReferenceStoreErr(t *testing.T) {
	outage := errors.New("outage")
	store := NewReferenceStore(refdatatest.Tables())
	store.Err = outage

	_, err := store.Categories(t.Context())
	assert.ErrorIs(t, err, outage)
	_, _, err = store.DailyBaseRate(t.Context(), refdatatest.Arrival)
	assert.ErrorIs(t, err, outage)

	_, _, err = refdata.Load(t.Context(), store, nil)
	assert.ErrorIs(t, err, outage)
}

func TestBundledFixturesLoad(t *testing.T) {
	store, err := LoadReferenceFile(filepath.Join("..", "..", "..", "..", "data", "reference.json"))
	require.NoError(t, err)

	snap, report, err := refdata.Load(t.Context(), store, nil)
	require.NoError(t, err)
	assert.Zero(t, report.DroppedSteps)
	assert.Zero(t, report.MissingPlanLinks)

	stats := snap.Stats()
	assert.Equal(t, 3, stats.Partners)
	assert.Equal(t, 3, stats.Plans)
	assert.Equal(t, 61, stats.DailyBaseRates)
	assert.Equal(t, 3, stats.PlanRules)
}
