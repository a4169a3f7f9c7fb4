package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/campstats/internal/model"
)

func windowCamp() *model.Camp {
	return &model.Camp{
		ID:      "camp-w",
		Buildup: time.Date(2026, 6, 28, 10, 0, 0, 0, time.UTC),
		Start:   time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC),
		End:     time.Date(2026, 7, 5, 12, 0, 0, 0, time.UTC),
	}
}

func TestCampSaleWindow(t *testing.T) {
	camp := windowCamp()

	tests := []struct {
		name     string
		now      time.Time
		wantFrom time.Time
		wantTo   time.Time
	}{
		{
			name:     "during camp",
			now:      time.Date(2026, 7, 2, 15, 30, 0, 0, time.UTC),
			wantFrom: time.Date(2026, 7, 1, 5, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2026, 7, 2, 16, 0, 0, 0, time.UTC).Add(-time.Nanosecond),
		},
		{
			name:     "during buildup",
			now:      time.Date(2026, 6, 29, 8, 15, 0, 0, time.UTC),
			wantFrom: time.Date(2026, 6, 28, 5, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2026, 6, 29, 9, 0, 0, 0, time.UTC).Add(-time.Nanosecond),
		},
		{
			name:     "after camp",
			now:      time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC),
			wantFrom: time.Date(2026, 7, 1, 5, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2026, 7, 5, 6, 0, 0, 0, time.UTC).Add(-time.Nanosecond),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, ok := CampSaleWindow(camp, tt.now, DefaultCampWindowHour)
			require.True(t, ok)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantTo, to)
		})
	}

	_, _, ok := CampSaleWindow(nil, time.Now(), DefaultCampWindowHour)
	assert.False(t, ok)
}

func TestScopeSales(t *testing.T) {
	camp := windowCamp()
	now := time.Date(2026, 7, 2, 15, 30, 0, 0, time.UTC)

	old := sale("old", time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC), 4, "a")
	inCamp := sale("in", time.Date(2026, 7, 1, 20, 0, 0, 0, time.UTC), 6, "b")

	scoped, campOnly := ScopeSales(camp, []model.SaleRecord{old, inCamp}, now, DefaultCampWindowHour)
	assert.True(t, campOnly)
	assert.Equal(t, []model.SaleRecord{inCamp}, scoped)

	all, campOnly := ScopeSales(camp, []model.SaleRecord{old}, now, DefaultCampWindowHour)
	assert.False(t, campOnly)
	assert.Equal(t, []model.SaleRecord{old}, all)

	all, campOnly = ScopeSales(nil, []model.SaleRecord{old, inCamp}, now, DefaultCampWindowHour)
	assert.False(t, campOnly)
	assert.Len(t, all, 2)
}

func TestSalesBetween_IsExclusive(t *testing.T) {
	from := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)
	sales := []model.SaleRecord{
		sale("at-from", from, 1),
		sale("inside", from.Add(time.Minute), 1),
		sale("at-to", to, 1),
	}

	got := SalesBetween(sales, from, to)
	assert.Len(t, got, 1)
	assert.Equal(t, "inside", got[0].ID)
}
