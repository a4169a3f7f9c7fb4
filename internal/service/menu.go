package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mmeshcher/campstats/internal/model"
	"github.com/mmeshcher/campstats/internal/repository"
	"github.com/mmeshcher/campstats/internal/stats"
)

// MenuItem содержит товар меню и его почасовую динамику в штуках.
type MenuItem struct {
	Product model.Product      `json:"product"`
	Trend   []stats.TrendPoint `json:"trend"`
}

// MenuBrand объединяет товары одного бренда внутри категории.
type MenuBrand struct {
	Brand string             `json:"brand"`
	Trend []stats.TrendPoint `json:"trend"`
	Items []MenuItem         `json:"items"`
}

// MenuGroup описывает категорию меню.
type MenuGroup struct {
	Key    string             `json:"key"`
	Trend  []stats.TrendPoint `json:"trend"`
	Path   string             `json:"path"`
	Brands []MenuBrand        `json:"brands"`
}

// Menu содержит меню точки продаж.
type Menu struct {
	Location model.Location `json:"location"`
	Closed   bool           `json:"closed"`
	Express  bool           `json:"express"`
	Groups   []MenuGroup    `json:"groups"`
}

var expressHiddenTags = []string{"tap", "cocktail"}

// Menu строит меню точки продаж. Во время комендантского часа алкоголь скрыт,
// в экспресс-режиме скрыты разливные напитки и коктейли.
func (s *Service) Menu(ctx context.Context, locationID string, express bool) (*Menu, error) {
	loc, err := s.repo.GetLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}

	m := &Menu{Location: *loc, Closed: loc.Closed, Express: express, Groups: []MenuGroup{}}
	if loc.Closed {
		return m, nil
	}

	products, err := s.repo.ListProducts(ctx, repository.ProductFilter{LocationID: locationID, OnlyAvailable: true})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	now := s.clock.Now()
	hours := s.opts.TrendWindowHours
	sales, err := s.recentSales(ctx, now, hours)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]model.Product)
	var keys []string
	for _, p := range FilterMenu(products, loc.Curfew, express) {
		k := p.CategoryKey()
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], p)
	}

	sort.Strings(keys)
	sort.SliceStable(keys, func(i, j int) bool {
		return len(groups[keys[i]]) > len(groups[keys[j]])
	})

	for _, k := range keys {
		group := groups[k]
		trend := stats.ComputeUnitTrend(stats.CategoryMatcher(group, k), sales, now, hours)
		m.Groups = append(m.Groups, MenuGroup{
			Key:    k,
			Trend:  trend,
			Path:   stats.SparkPath(stats.Normalize(trend), sparkWidth, sparkHeight),
			Brands: menuBrands(group, sales, now, hours),
		})
	}

	return m, nil
}

func menuBrands(group []model.Product, sales []model.SaleRecord, now time.Time, hours int) []MenuBrand {
	byBrand := make(map[string][]model.Product)
	var brands []string
	for _, p := range group {
		if _, ok := byBrand[p.BrandName]; !ok {
			brands = append(brands, p.BrandName)
		}
		byBrand[p.BrandName] = append(byBrand[p.BrandName], p)
	}

	for _, b := range brands {
		sortByTap(byBrand[b])
	}

	// крупные бренды раньше; разливные бренды после остальных по номеру первого крана
	sort.SliceStable(brands, func(i, j int) bool {
		return len(byBrand[brands[i]]) > len(byBrand[brands[j]])
	})
	sort.SliceStable(brands, func(i, j int) bool {
		return tapBefore(byBrand[brands[i]][0].Tap, byBrand[brands[j]][0].Tap)
	})

	res := make([]MenuBrand, 0, len(brands))
	for _, b := range brands {
		products := byBrand[b]

		items := make([]MenuItem, 0, len(products))
		for _, p := range products {
			items = append(items, MenuItem{
				Product: p,
				Trend:   stats.ComputeUnitTrend(stats.ProductMatcher(p.ID), sales, now, hours),
			})
		}

		res = append(res, MenuBrand{
			Brand: b,
			Trend: stats.ComputeUnitTrend(stats.BrandMatcher(products, b), sales, now, hours),
			Items: items,
		})
	}
	return res
}

// sortByTap упорядочивает товары по названию; разливные идут после остальных в порядке номеров кранов.
func sortByTap(products []model.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Name < products[j].Name
	})
	sort.SliceStable(products, func(i, j int) bool {
		return tapBefore(products[i].Tap, products[j].Tap)
	})
}

// tapBefore сравнивает номера кранов; товары без крана меньше любого крана.
func tapBefore(a, b *string) bool {
	switch {
	case b == nil:
		return false
	case a == nil:
		return true
	default:
		return *a < *b
	}
}

// FilterMenu убирает товары, которые нельзя показывать: алкоголь во время
// комендантского часа и разливное в экспресс-режиме.
func FilterMenu(products []model.Product, curfew, express bool) []model.Product {
	res := make([]model.Product, 0, len(products))
	for _, p := range products {
		if p.Removed() {
			continue
		}
		if curfew && p.IsAlcoholic() {
			continue
		}
		if express && hasAnyTag(p, expressHiddenTags) {
			continue
		}
		res = append(res, p)
	}
	return res
}

func hasAnyTag(p model.Product, tags []string) bool {
	for _, t := range tags {
		if p.HasTag(t) {
			return true
		}
	}
	return false
}
