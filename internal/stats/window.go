package stats

import (
	"time"

	"github.com/mmeshcher/campstats/internal/model"
)

// DefaultCampWindowHour задаёт час суток, по которому выравниваются границы продаж кэмпа.
const DefaultCampWindowHour = 5

// CampSaleWindow возвращает открытый интервал (from, to), в котором продажи относятся к кэмпу.
// До старта кэмпа окно отсчитывается от начала монтажа, правая граница не заходит в будущее.
func CampSaleWindow(camp *model.Camp, now time.Time, windowHour int) (time.Time, time.Time, bool) {
	if camp == nil {
		return time.Time{}, time.Time{}, false
	}

	anchor := camp.Buildup
	if !camp.Start.After(now) {
		anchor = camp.Start
	}
	from := startOfHour(setHour(anchor, windowHour))

	end := setHour(camp.End, windowHour)
	if now.Before(end) {
		end = now
	}
	to := endOfHour(end)

	return from, to, from.Before(to)
}

// SalesBetween возвращает продажи строго внутри интервала (from, to).
func SalesBetween(sales []model.SaleRecord, from, to time.Time) []model.SaleRecord {
	var out []model.SaleRecord
	for _, s := range sales {
		if s.Timestamp.After(from) && s.Timestamp.Before(to) {
			out = append(out, s)
		}
	}
	return out
}

// ScopeSales выбирает продажи текущего кэмпа, а если их нет, возвращает все продажи.
// Второе значение сообщает, ограничен ли результат кэмпом.
func ScopeSales(camp *model.Camp, sales []model.SaleRecord, now time.Time, windowHour int) ([]model.SaleRecord, bool) {
	from, to, ok := CampSaleWindow(camp, now, windowHour)
	if !ok {
		return sales, false
	}
	scoped := SalesBetween(sales, from, to)
	if len(scoped) == 0 {
		return sales, false
	}
	return scoped, true
}

func setHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
