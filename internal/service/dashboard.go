package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/campstats/internal/cache"
	"github.com/mmeshcher/campstats/internal/metrics"
	"github.com/mmeshcher/campstats/internal/model"
	"github.com/mmeshcher/campstats/internal/repository"
	"github.com/mmeshcher/campstats/internal/stats"
)

// Scope определяет набор продаж для рейтинга.
type Scope string

const (
	ScopeCamp    Scope = "camp"
	ScopeAllTime Scope = "all-time"
)

// ParseScope разбирает параметр scope запроса. Пустое значение означает кэмп.
func ParseScope(v string) (Scope, error) {
	switch v {
	case "", "camp":
		return ScopeCamp, nil
	case "all", "all-time":
		return ScopeAllTime, nil
	default:
		return "", fmt.Errorf("%w: scope %q", ErrInvalidArgument, v)
	}
}

// Countdown описывает обратный отсчёт до ближайшей точки расписания.
type Countdown struct {
	Label            stats.MilestoneLabel `json:"label"`
	Target           time.Time            `json:"target"`
	RemainingSeconds int64                `json:"remainingSeconds"`
	Text             string               `json:"text"`
	Caption          string               `json:"caption"`
	Urgency          stats.Urgency        `json:"urgency"`
}

// Bestseller содержит строку рейтинга с данными товара.
type Bestseller struct {
	Product model.Product `json:"product"`
	Count   int           `json:"count"`
}

// Bestsellers содержит рейтинг продаж в заданной области.
type Bestsellers struct {
	Scope   Scope        `json:"scope"`
	Entries []Bestseller `json:"entries"`
}

// DayCurves содержит накопительные кривые выручки по дням кэмпа.
type DayCurves struct {
	Camp            *model.Camp     `json:"camp"`
	ResolutionHours int             `json:"resolutionHours"`
	RolloverHours   int             `json:"rolloverHours"`
	Days            int             `json:"days"`
	Rows            []stats.HourRow `json:"rows"`
	// Labels содержит подписи оси X для каждой строки Rows.
	Labels  []int        `json:"labels"`
	Summary []DaySummary `json:"summary"`
}

// DaySummary описывает последнюю открытую ячейку дня.
type DaySummary struct {
	Day      int             `json:"day"`
	Revealed bool            `json:"revealed"`
	Hour     int             `json:"hour"`
	Amount   decimal.Decimal `json:"amount"`
}

// Dashboard содержит снимок главного экрана статистики.
type Dashboard struct {
	GeneratedAt time.Time       `json:"generatedAt"`
	Camp        *model.Camp     `json:"camp"`
	Countdown   Countdown       `json:"countdown"`
	Days        []stats.HourRow `json:"days,omitempty"`
	Bestsellers Bestsellers     `json:"bestsellers"`
}

// Dashboard возвращает последний опубликованный снимок или строит новый.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	if d := s.snapshot.Load(); d != nil {
		return d, nil
	}
	return s.ComputeDashboard(ctx, s.clock.Now())
}

// ComputeDashboard строит снимок на момент now. При настроенном кэше снимок
// запоминается по ключу (кэмп, округлённое время, версии продаж и каталога).
func (s *Service) ComputeDashboard(ctx context.Context, now time.Time) (*Dashboard, error) {
	camp, err := s.currentCamp(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("current camp: %w", err)
	}

	var key string
	if s.cache != nil {
		salesVersion, err := s.repo.SalesVersion(ctx)
		if err != nil {
			return nil, fmt.Errorf("sales version: %w", err)
		}
		catalogVersion, err := s.repo.CatalogVersion(ctx)
		if err != nil {
			return nil, fmt.Errorf("catalog version: %w", err)
		}
		campID := ""
		if camp != nil {
			campID = camp.ID
		}
		key = cache.DashboardKey(campID, now, s.opts.RefreshInterval, salesVersion, catalogVersion)

		if d, ok := s.cachedDashboard(ctx, key); ok {
			return d, nil
		}
	}

	d, err := s.buildDashboard(ctx, camp, now)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(d); err == nil {
			if err := s.cache.Set(ctx, key, data); err != nil {
				s.logger.Warn("dashboard cache set", zap.String("key", key), zap.Error(err))
			}
		}
	}

	return d, nil
}

func (s *Service) cachedDashboard(ctx context.Context, key string) (*Dashboard, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("dashboard cache get", zap.String("key", key), zap.Error(err))
		}
		metrics.RecordCacheLookup(false)
		return nil, false
	}

	var d Dashboard
	if err := json.Unmarshal(data, &d); err != nil {
		s.logger.Warn("dashboard cache decode", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheLookup(false)
		return nil, false
	}

	metrics.RecordCacheLookup(true)
	return &d, true
}

func (s *Service) buildDashboard(ctx context.Context, camp *model.Camp, now time.Time) (*Dashboard, error) {
	sales, err := s.repo.ListSales(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}

	catalog, err := s.repo.ListProducts(ctx, repository.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	scoped, campScoped := stats.ScopeSales(camp, sales, now, s.opts.CampWindowHour)

	d := &Dashboard{
		GeneratedAt: now,
		Camp:        camp,
		Countdown:   s.countdown(camp, now),
		Bestsellers: Bestsellers{
			Scope:   ScopeAllTime,
			Entries: resolveRanking(stats.RankProducts(scoped), catalog),
		},
	}

	if campScoped {
		d.Bestsellers.Scope = ScopeCamp
		d.Days = stats.ComputeDayCurves(camp, sales, now, s.opts.curveOptions())
	}

	return d, nil
}

// resolveRanking подставляет данные товаров. Неизвестные идентификаторы пропускаются.
func resolveRanking(ranking []stats.RankEntry, catalog []model.Product) []Bestseller {
	byID := make(map[string]model.Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}

	res := make([]Bestseller, 0, len(ranking))
	for _, e := range ranking {
		p, ok := byID[e.ProductID]
		if !ok {
			continue
		}
		res = append(res, Bestseller{Product: p, Count: e.Count})
	}
	return res
}

func (s *Service) countdown(camp *model.Camp, now time.Time) Countdown {
	m := stats.NextMilestone(camp, now, s.opts.CurfewHour)
	remaining := m.Remaining(now)
	return Countdown{
		Label:            m.Label,
		Target:           m.Target,
		RemainingSeconds: int64(remaining / time.Second),
		Text:             stats.FormatCountdown(remaining),
		Caption:          stats.Caption(m, camp),
		Urgency:          stats.UrgencyFor(remaining),
	}
}

// Countdown возвращает обратный отсчёт до ближайшей точки расписания.
func (s *Service) Countdown(ctx context.Context) (*Countdown, error) {
	now := s.clock.Now()
	camp, err := s.currentCamp(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("current camp: %w", err)
	}
	c := s.countdown(camp, now)
	return &c, nil
}

// DayCurves строит дневные кривые текущего кэмпа. resolutionHours <= 0 означает значение из настроек.
func (s *Service) DayCurves(ctx context.Context, resolutionHours int) (*DayCurves, error) {
	opts := s.opts.curveOptions()
	if resolutionHours > 0 {
		if 24%resolutionHours != 0 {
			return nil, fmt.Errorf("%w: resolution %d does not divide 24", ErrInvalidArgument, resolutionHours)
		}
		opts.ResolutionHours = resolutionHours
	}

	now := s.clock.Now()
	camp, err := s.currentCamp(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("current camp: %w", err)
	}

	res := &DayCurves{
		Camp:            camp,
		ResolutionHours: opts.ResolutionHours,
		RolloverHours:   opts.RolloverHours,
	}
	if camp == nil {
		return res, nil
	}

	days := stats.NumberOfDays(camp)
	res.Days = days
	if days == 0 {
		return res, nil
	}

	// последняя ячейка заканчивается не позже Start + days*24h + rollover + resolution
	to := camp.Start.Add(time.Duration(days*24+opts.RolloverHours+opts.ResolutionHours) * time.Hour)
	sales, err := s.repo.ListSales(ctx, camp.Start, to)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}

	res.Rows = stats.ComputeDayCurves(camp, sales, now, opts)
	res.Labels = make([]int, 0, len(res.Rows))
	for _, row := range res.Rows {
		res.Labels = append(res.Labels, stats.DisplayHour(row.HourOfDay, opts.RolloverHours))
	}
	res.Summary = make([]DaySummary, 0, days)
	for j := 0; j < days; j++ {
		hour, amount, ok := stats.LastRevealed(res.Rows, j)
		res.Summary = append(res.Summary, DaySummary{Day: j, Revealed: ok, Hour: hour, Amount: amount})
	}
	return res, nil
}

// Bestsellers возвращает рейтинг продаж. Для области кэмпа при отсутствии
// продаж в окне кэмпа используется вся история.
func (s *Service) Bestsellers(ctx context.Context, scope Scope) (*Bestsellers, error) {
	now := s.clock.Now()

	sales, err := s.repo.ListSales(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	catalog, err := s.repo.ListProducts(ctx, repository.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	res := &Bestsellers{Scope: ScopeAllTime}
	if scope == ScopeCamp {
		camp, err := s.currentCamp(ctx, now)
		if err != nil {
			return nil, fmt.Errorf("current camp: %w", err)
		}
		var campScoped bool
		sales, campScoped = stats.ScopeSales(camp, sales, now, s.opts.CampWindowHour)
		if campScoped {
			res.Scope = ScopeCamp
		}
	}

	res.Entries = resolveRanking(stats.RankProducts(sales), catalog)
	return res, nil
}

// TrendView содержит почасовую динамику продаж и нормированные точки для спарклайна.
type TrendView struct {
	Key        string             `json:"key"`
	Points     []stats.TrendPoint `json:"points"`
	Normalized []stats.Point      `json:"normalized"`
	Path       string             `json:"path"`
}

const (
	sparkWidth  = 1000
	sparkHeight = 10
)

func newTrendView(key string, points []stats.TrendPoint) TrendView {
	normalized := stats.Normalize(points)
	return TrendView{
		Key:        key,
		Points:     points,
		Normalized: normalized,
		Path:       stats.SparkPath(normalized, sparkWidth, sparkHeight),
	}
}

func (s *Service) trendHours(hours int) (int, error) {
	if hours < 0 {
		return 0, fmt.Errorf("%w: hours %d", ErrInvalidArgument, hours)
	}
	if hours == 0 {
		return s.opts.TrendWindowHours, nil
	}
	limit := s.opts.MaxTrendHours
	if limit <= 0 {
		limit = DefaultMaxTrendHours
	}
	if hours > limit {
		return 0, fmt.Errorf("%w: hours %d exceeds %d", ErrInvalidArgument, hours, limit)
	}
	return hours, nil
}

func (s *Service) recentSales(ctx context.Context, now time.Time, hours int) ([]model.SaleRecord, error) {
	sales, err := s.repo.ListSales(ctx, now.Add(-time.Duration(hours)*time.Hour), now)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return sales, nil
}

// ProductTrend возвращает количество продаж товара по часам за последние hours часов.
func (s *Service) ProductTrend(ctx context.Context, productID string, hours int) (*TrendView, error) {
	hours, err := s.trendHours(hours)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	sales, err := s.recentSales(ctx, now, hours)
	if err != nil {
		return nil, err
	}

	v := newTrendView(productID, stats.ComputeTrend(stats.ProductMatcher(productID), sales, now, hours))
	return &v, nil
}

// CategoryTrends возвращает динамику продаж по каждой категории каталога, отсортированную по ключу.
func (s *Service) CategoryTrends(ctx context.Context, hours int) ([]TrendView, error) {
	hours, err := s.trendHours(hours)
	if err != nil {
		return nil, err
	}

	catalog, err := s.repo.ListProducts(ctx, repository.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	now := s.clock.Now()
	sales, err := s.recentSales(ctx, now, hours)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var keys []string
	for _, p := range catalog {
		k := p.CategoryKey()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	res := make([]TrendView, 0, len(keys))
	for _, k := range keys {
		res = append(res, newTrendView(k, stats.ComputeTrend(stats.CategoryMatcher(catalog, k), sales, now, hours)))
	}
	return res, nil
}
