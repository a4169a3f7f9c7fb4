package stats

import (
	"sort"

	"github.com/mmeshcher/campstats/internal/model"
)

// RankEntry содержит количество продаж одного товара.
type RankEntry struct {
	ProductID string `json:"productId"`
	Count     int    `json:"count"`
}

// RankProducts считает вхождения каждого товара в позициях чеков и сортирует по убыванию.
// При равенстве сохраняется порядок первого появления товара во входных данных.
func RankProducts(sales []model.SaleRecord) []RankEntry {
	index := make(map[string]int)
	var entries []RankEntry

	for _, s := range sales {
		for _, li := range s.LineItems {
			if i, ok := index[li.ID]; ok {
				entries[i].Count++
				continue
			}
			index[li.ID] = len(entries)
			entries = append(entries, RankEntry{ProductID: li.ID, Count: 1})
		}
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Count > entries[b].Count
	})

	return entries
}
