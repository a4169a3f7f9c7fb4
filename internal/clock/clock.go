// Package clock предоставляет источник текущего времени для пересчёта статистики.
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock возвращает текущее время.
type Clock interface {
	Now() time.Time
}

// Real возвращает системное время в заданном часовом поясе.
type Real struct {
	loc *time.Location
}

// NewReal создаёт системные часы. При nil используется локальный часовой пояс.
func NewReal(loc *time.Location) Real {
	if loc == nil {
		loc = time.Local
	}
	return Real{loc: loc}
}

// Now возвращает текущее время.
func (r Real) Now() time.Time {
	return time.Now().In(r.loc)
}

// Fixed хранит время, которое тесты переводят вручную.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed создаёт часы, остановленные на указанном моменте.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

// Now возвращает установленное время.
func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set переставляет часы.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Advance сдвигает часы вперёд.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Run вызывает fn с текущим временем сразу и затем на каждом тике interval, пока не отменён ctx.
// Дополнительные внеочередные вызовы запускаются сигналом из wake.
func Run(ctx context.Context, c Clock, interval time.Duration, wake <-chan struct{}, fn func(now time.Time)) {
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fn(c.Now())

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(c.Now())
		case <-wake:
			fn(c.Now())
		}
	}
}
