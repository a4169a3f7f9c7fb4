// Package service реализует бизнес-логику сервиса статистики кэмпа.
package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/campstats/internal/clock"
	"github.com/mmeshcher/campstats/internal/metrics"
	"github.com/mmeshcher/campstats/internal/model"
	"github.com/mmeshcher/campstats/internal/repository"
	"github.com/mmeshcher/campstats/internal/stats"
	"github.com/mmeshcher/campstats/internal/validation"
)

// ErrInvalidArgument возвращается при некорректных параметрах запроса.
var ErrInvalidArgument = errors.New("invalid argument")

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	AddSale(ctx context.Context, sale model.SaleRecord) error
	ListSales(ctx context.Context, from, to time.Time) ([]model.SaleRecord, error)
	SalesVersion(ctx context.Context) (int64, error)
	LatestSaleTime(ctx context.Context) (time.Time, error)
	CatalogVersion(ctx context.Context) (int64, error)
	UpsertProduct(ctx context.Context, p model.Product) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error)
	UpsertCamp(ctx context.Context, c model.Camp) error
	ListCamps(ctx context.Context) ([]model.Camp, error)
	UpsertLocation(ctx context.Context, l model.Location) error
	GetLocation(ctx context.Context, id string) (*model.Location, error)
}

// FeedClient запрашивает продажи во внешней кассовой системе.
type FeedClient interface {
	GetSales(ctx context.Context, from time.Time) ([]model.SaleRecord, int, time.Duration, error)
}

// SnapshotCache хранит сериализованные снимки дашборда.
type SnapshotCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Options содержит параметры агрегации и фоновых циклов.
// MaxTrendHours ограничивает окно динамики, запрошенное клиентом.
// FeedLookback задаёт перекрытие запросов к кассовой системе: продажи,
// дошедшие до неё с опозданием, попадают в следующий запрос.
type Options struct {
	RolloverHours    int
	ResolutionHours  int
	CurfewHour       int
	CampWindowHour   int
	TrendWindowHours int
	MaxTrendHours    int
	MaskEmptyHours   bool
	RefreshInterval  time.Duration
	FeedInterval     time.Duration
	FeedLookback     time.Duration
}

// DefaultMaxTrendHours ограничивает окно динамики месяцем.
const DefaultMaxTrendHours = 24 * 31

// DefaultOptions возвращает параметры по умолчанию.
func DefaultOptions() Options {
	return Options{
		RolloverHours:    stats.DefaultRolloverHours,
		ResolutionHours:  stats.DefaultResolutionHours,
		CurfewHour:       stats.DefaultCurfewHour,
		CampWindowHour:   stats.DefaultCampWindowHour,
		TrendWindowHours: stats.DefaultWindowHours,
		MaxTrendHours:    DefaultMaxTrendHours,
		RefreshInterval:  2 * time.Second,
		FeedInterval:     5 * time.Second,
		FeedLookback:     6 * time.Hour,
	}
}

func (o Options) curveOptions() stats.CurveOptions {
	return stats.CurveOptions{
		RolloverHours:   o.RolloverHours,
		ResolutionHours: o.ResolutionHours,
		MaskEmpty:       o.MaskEmptyHours,
	}
}

// Service содержит бизнес-логику сервиса статистики.
type Service struct {
	repo   Repository
	feed   FeedClient
	cache  SnapshotCache
	clock  clock.Clock
	opts   Options
	logger *zap.Logger

	snapshot atomic.Pointer[Dashboard]
	wake     chan struct{}
}

// NewService создаёт сервис. feed и cache могут быть nil.
func NewService(repo Repository, feed FeedClient, cache SnapshotCache, clk clock.Clock, opts Options, logger *zap.Logger) *Service {
	if clk == nil {
		clk = clock.NewReal(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		feed:   feed,
		cache:  cache,
		clock:  clk,
		opts:   opts,
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Now возвращает текущее время по часам сервиса.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

// notify запрашивает внеочередной пересчёт снимка.
func (s *Service) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// IngestSale сохраняет продажу, поступившую от терминала.
// Отсутствующие идентификатор и время продажи заполняются сервисом.
func (s *Service) IngestSale(ctx context.Context, sale model.SaleRecord) (model.SaleRecord, error) {
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	if sale.Timestamp.IsZero() {
		sale.Timestamp = s.clock.Now()
	}

	if err := validation.Sale(sale); err != nil {
		return sale, err
	}

	if err := s.repo.AddSale(ctx, sale); err != nil {
		return sale, err
	}

	metrics.RecordSaleIngested("api")
	s.notify()
	return sale, nil
}

// UpsertProduct сохраняет позицию каталога.
func (s *Service) UpsertProduct(ctx context.Context, p model.Product) error {
	if err := validation.Product(p); err != nil {
		return err
	}
	if err := s.repo.UpsertProduct(ctx, p); err != nil {
		return err
	}
	s.notify()
	return nil
}

// UpsertCamp сохраняет кэмп.
func (s *Service) UpsertCamp(ctx context.Context, c model.Camp) error {
	if c.Buildup.IsZero() {
		c.Buildup = c.Start
	}
	if err := validation.Camp(c); err != nil {
		return err
	}
	if err := s.repo.UpsertCamp(ctx, c); err != nil {
		return err
	}
	s.notify()
	return nil
}

// UpsertLocation сохраняет точку продаж.
func (s *Service) UpsertLocation(ctx context.Context, l model.Location) error {
	if err := validation.Location(l); err != nil {
		return err
	}
	return s.repo.UpsertLocation(ctx, l)
}

// CurrentCamp возвращает кэмп, интервал [Buildup, End) которого содержит now,
// иначе кэмп с самым поздним окончанием. Если кэмпов нет, возвращает nil.
func CurrentCamp(camps []model.Camp, now time.Time) *model.Camp {
	var latest *model.Camp
	for i := range camps {
		c := &camps[i]
		if c.Contains(now) {
			return c
		}
		if latest == nil || c.End.After(latest.End) {
			latest = c
		}
	}
	return latest
}

func (s *Service) currentCamp(ctx context.Context, now time.Time) (*model.Camp, error) {
	camps, err := s.repo.ListCamps(ctx)
	if err != nil {
		return nil, err
	}
	return CurrentCamp(camps, now), nil
}
