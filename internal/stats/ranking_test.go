package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mmeshcher/campstats/internal/model"
)

func TestRankProducts(t *testing.T) {
	sales := []model.SaleRecord{
		sale("1", campStart, 1, "a", "b"),
		sale("2", campStart.Add(time.Minute), 1, "c"),
		sale("3", campStart.Add(2*time.Minute), 1, "b"),
		sale("4", campStart.Add(3*time.Minute), 1, "a", "d", "d", "d"),
	}

	got := RankProducts(sales)

	assert.Equal(t, []RankEntry{
		{ProductID: "d", Count: 3},
		{ProductID: "a", Count: 2},
		{ProductID: "b", Count: 2},
		{ProductID: "c", Count: 1},
	}, got)
}

func TestRankProducts_Idempotent(t *testing.T) {
	sales := []model.SaleRecord{
		sale("1", campStart, 1, "x", "y", "z"),
		sale("2", campStart, 1, "z", "y"),
	}

	first := RankProducts(sales)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, RankProducts(sales))
	}
	assert.Equal(t, "y", first[0].ProductID)
	assert.Equal(t, "z", first[1].ProductID)
}

func TestRankProducts_Empty(t *testing.T) {
	assert.Empty(t, RankProducts(nil))
}
