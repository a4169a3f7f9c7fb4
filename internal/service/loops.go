package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/campstats/internal/clock"
	"github.com/mmeshcher/campstats/internal/metrics"
	"github.com/mmeshcher/campstats/internal/repository"
	"github.com/mmeshcher/campstats/internal/validation"
)

// RunRefresh пересчитывает снимок дашборда на каждом тике часов и после
// каждого изменения данных, пока не отменён ctx. Готовый снимок публикуется атомарно.
func (s *Service) RunRefresh(ctx context.Context) {
	clock.Run(ctx, s.clock, s.opts.RefreshInterval, s.wake, func(now time.Time) {
		s.refresh(ctx, now)
	})
}

func (s *Service) refresh(ctx context.Context, now time.Time) {
	started := time.Now()
	d, err := s.ComputeDashboard(ctx, now)
	metrics.RecordRecompute(time.Since(started), err)

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("dashboard refresh", zap.Error(err))
		}
		return
	}
	s.snapshot.Store(d)
}

// RunFeedSync периодически забирает новые продажи из внешней кассовой системы.
// Каждый запрос начинается на FeedLookback раньше самой поздней известной продажи,
// повторно полученные продажи отбрасываются как дубликаты.
// Без настроенного клиента сразу возвращает управление.
func (s *Service) RunFeedSync(ctx context.Context) {
	if s.feed == nil {
		return
	}

	cursor, err := s.repo.LatestSaleTime(ctx)
	if err != nil {
		s.logger.Warn("feed cursor", zap.Error(err))
	}

	interval := s.opts.FeedInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cursor = s.processFeedBatch(ctx, cursor)
		}
	}
}

func (s *Service) processFeedBatch(ctx context.Context, cursor time.Time) time.Time {
	from := cursor
	if !from.IsZero() && s.opts.FeedLookback > 0 {
		from = from.Add(-s.opts.FeedLookback)
	}

	sales, statusCode, retryAfter, err := s.feed.GetSales(ctx, from)
	if err != nil {
		s.logger.Warn("feed request", zap.Int("status", statusCode), zap.Error(err))
		return cursor
	}

	if statusCode == http.StatusTooManyRequests {
		if retryAfter > 0 {
			timer := time.NewTimer(retryAfter)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
		return cursor
	}

	added := 0
	for _, sale := range sales {
		if sale.ID == "" {
			s.logger.Warn("feed sale without id", zap.Time("timestamp", sale.Timestamp))
			continue
		}
		if err := validation.Sale(sale); err != nil {
			s.logger.Warn("feed sale rejected", zap.String("id", sale.ID), zap.Error(err))
			continue
		}

		err := s.repo.AddSale(ctx, sale)
		switch {
		case err == nil:
			added++
			metrics.RecordSaleIngested("feed")
		case errors.Is(err, repository.ErrDuplicate):
		default:
			s.logger.Error("feed sale store", zap.String("id", sale.ID), zap.Error(err))
			return cursor
		}

		if sale.Timestamp.After(cursor) {
			cursor = sale.Timestamp
		}
	}

	if added > 0 {
		s.notify()
	}
	return cursor
}
