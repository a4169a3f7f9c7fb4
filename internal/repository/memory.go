package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mmeshcher/campstats/internal/model"
)

// MemoryRepository хранит данные в памяти процесса. Используется, если DATABASE_URI не задан.
type MemoryRepository struct {
	mu        sync.RWMutex
	sales     []model.SaleRecord
	saleIDs   map[string]struct{}
	products  map[string]model.Product
	camps     map[string]model.Camp
	locations map[string]model.Location
	catalog   int64
}

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		saleIDs:   make(map[string]struct{}),
		products:  make(map[string]model.Product),
		camps:     make(map[string]model.Camp),
		locations: make(map[string]model.Location),
	}
}

// Close ничего не делает.
func (r *MemoryRepository) Close() error {
	return nil
}

// AddSale сохраняет продажу.
func (r *MemoryRepository) AddSale(_ context.Context, sale model.SaleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.saleIDs[sale.ID]; ok {
		return fmt.Errorf("%w: sale %s", ErrDuplicate, sale.ID)
	}

	items := make([]model.ProductRef, len(sale.LineItems))
	copy(items, sale.LineItems)
	sale.LineItems = items

	r.saleIDs[sale.ID] = struct{}{}
	r.sales = append(r.sales, sale)
	return nil
}

// ListSales возвращает продажи с from <= timestamp < to в порядке времени.
func (r *MemoryRepository) ListSales(_ context.Context, from, to time.Time) ([]model.SaleRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var res []model.SaleRecord
	for _, s := range r.sales {
		if !from.IsZero() && s.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && !s.Timestamp.Before(to) {
			continue
		}
		res = append(res, s)
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Timestamp.Before(res[j].Timestamp)
	})
	return res, nil
}

// SalesVersion возвращает число принятых продаж.
func (r *MemoryRepository) SalesVersion(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.sales)), nil
}

// LatestSaleTime возвращает время самой поздней продажи.
func (r *MemoryRepository) LatestSaleTime(_ context.Context) (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest time.Time
	for _, s := range r.sales {
		if s.Timestamp.After(latest) {
			latest = s.Timestamp
		}
	}
	return latest, nil
}

// CatalogVersion возвращает число изменений товаров, кэмпов и точек продаж.
func (r *MemoryRepository) CatalogVersion(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog, nil
}

// UpsertProduct создаёт или обновляет позицию каталога.
func (r *MemoryRepository) UpsertProduct(_ context.Context, p model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
	r.catalog++
	return nil
}

// GetProduct возвращает товар по идентификатору.
func (r *MemoryRepository) GetProduct(_ context.Context, id string) (*model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// ListProducts возвращает товары, отсортированные по бренду и названию.
func (r *MemoryRepository) ListProducts(_ context.Context, filter ProductFilter) ([]model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var res []model.Product
	for _, p := range r.products {
		if filter.LocationID != "" && !p.AvailableAt(filter.LocationID) {
			continue
		}
		if filter.OnlyAvailable && p.Removed() {
			continue
		}
		res = append(res, p)
	}

	sort.Slice(res, func(i, j int) bool {
		if res[i].BrandName != res[j].BrandName {
			return res[i].BrandName < res[j].BrandName
		}
		if res[i].Name != res[j].Name {
			return res[i].Name < res[j].Name
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

// UpsertCamp создаёт или обновляет кэмп.
func (r *MemoryRepository) UpsertCamp(_ context.Context, c model.Camp) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.camps[c.ID] = c
	r.catalog++
	return nil
}

// ListCamps возвращает кэмпы, упорядоченные по убыванию времени окончания.
func (r *MemoryRepository) ListCamps(_ context.Context) ([]model.Camp, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]model.Camp, 0, len(r.camps))
	for _, c := range r.camps {
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].End.Equal(res[j].End) {
			return res[i].End.After(res[j].End)
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

// UpsertLocation создаёт или обновляет точку продаж.
func (r *MemoryRepository) UpsertLocation(_ context.Context, l model.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations[l.ID] = l
	r.catalog++
	return nil
}

// GetLocation возвращает точку продаж по идентификатору.
func (r *MemoryRepository) GetLocation(_ context.Context, id string) (*model.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.locations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}
