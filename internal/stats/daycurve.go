// Package stats содержит чистые функции агрегации продаж по временным корзинам.
//
// Все функции принимают неизменяемый снимок (кэмп, продажи, текущее время) и
// каждый раз строят результат заново: между вызовами состояние не хранится.
package stats

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/campstats/internal/model"
)

const (
	// DefaultRolloverHours задаёт час, с которого начинается операционный день.
	DefaultRolloverHours = 6
	// DefaultResolutionHours задаёт ширину ячейки дневной кривой в часах.
	DefaultResolutionHours = 1

	hoursPerDay = 24
	day         = hoursPerDay * time.Hour
)

// CurveOptions задаёт параметры построения дневных кривых выручки.
type CurveOptions struct {
	RolloverHours   int
	ResolutionHours int
	// MaskEmpty скрывает прошедшие часы с нулевой выручкой так же, как будущие.
	MaskEmpty bool
}

// DefaultCurveOptions возвращает параметры по умолчанию.
func DefaultCurveOptions() CurveOptions {
	return CurveOptions{
		RolloverHours:   DefaultRolloverHours,
		ResolutionHours: DefaultResolutionHours,
	}
}

func (o CurveOptions) resolution() int {
	r := o.ResolutionHours
	if r <= 0 || hoursPerDay%r != 0 {
		return DefaultResolutionHours
	}
	return r
}

// Cell содержит значение ячейки дневной кривой. Elapsed=false означает, что час ещё не прошёл.
type Cell struct {
	Elapsed bool
	Amount  decimal.Decimal
}

// Value возвращает значение ячейки, если оно открыто.
func (c Cell) Value() (decimal.Decimal, bool) {
	return c.Amount, c.Elapsed
}

// MarshalJSON кодирует скрытую ячейку как null, а открытую как число.
func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.Elapsed {
		return []byte("null"), nil
	}
	return []byte(c.Amount.String()), nil
}

// UnmarshalJSON восстанавливает ячейку из снимка, сохранённого в кэше.
func (c *Cell) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = Cell{}
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*c = Cell{Elapsed: true, Amount: d}
	return nil
}

// HourRow содержит час операционного дня и ячейки этого часа по всем дням.
type HourRow struct {
	HourOfDay int    `json:"hour"`
	PerDay    []Cell `json:"days"`
}

// NumberOfDays возвращает число полных суток между началом и концом кэмпа.
func NumberOfDays(camp *model.Camp) int {
	if camp == nil {
		return 0
	}
	d := camp.End.Sub(camp.Start)
	if d <= 0 {
		return 0
	}
	return int(d / day)
}

// CellWindow возвращает окно [from, to) ячейки hour дня dayIndex.
// Окно начинается в начале операционного дня, поэтому значение ячейки накопительное.
func CellWindow(start time.Time, dayIndex, hour, resolutionHours, rolloverHours int) (time.Time, time.Time) {
	from := start.Add(time.Duration(dayIndex*hoursPerDay+rolloverHours) * time.Hour)
	hourStart := startOfHour(start.Add(time.Duration(dayIndex*hoursPerDay+hour+rolloverHours) * time.Hour))
	return from, hourStart.Add(time.Duration(resolutionHours) * time.Hour)
}

// ComputeDayCurves строит накопительные кривые выручки по операционным дням кэмпа.
func ComputeDayCurves(camp *model.Camp, sales []model.SaleRecord, now time.Time, opts CurveOptions) []HourRow {
	days := NumberOfDays(camp)
	if days == 0 {
		return nil
	}

	step := opts.resolution()
	rows := make([]HourRow, 0, hoursPerDay/step)
	for hour := 0; hour < hoursPerDay; hour += step {
		row := HourRow{
			HourOfDay: hour,
			PerDay:    make([]Cell, days),
		}
		for j := 0; j < days; j++ {
			from, to := CellWindow(camp.Start, j, hour, step, opts.RolloverHours)
			row.PerDay[j] = cumulativeCell(sales, from, to, now, opts.MaskEmpty)
		}
		rows = append(rows, row)
	}

	return rows
}

func cumulativeCell(sales []model.SaleRecord, from, to, now time.Time, maskEmpty bool) Cell {
	if now.Before(to) {
		return Cell{}
	}

	sum := decimal.Zero
	for _, s := range sales {
		if !s.Timestamp.Before(from) && s.Timestamp.Before(to) {
			sum = sum.Add(s.Amount)
		}
	}

	if maskEmpty && sum.IsZero() {
		return Cell{}
	}
	return Cell{Elapsed: true, Amount: sum}
}

// LastRevealed возвращает последний открытый час дня и его значение.
func LastRevealed(rows []HourRow, dayIndex int) (int, decimal.Decimal, bool) {
	for i := len(rows) - 1; i >= 0; i-- {
		if dayIndex < 0 || dayIndex >= len(rows[i].PerDay) {
			return 0, decimal.Zero, false
		}
		if c := rows[i].PerDay[dayIndex]; c.Elapsed {
			return rows[i].HourOfDay, c.Amount, true
		}
	}
	return 0, decimal.Zero, false
}

// DisplayHour переводит час операционного дня в подпись оси графика.
func DisplayHour(hour, rolloverHours int) int {
	return ((hour+rolloverHours+2)%hoursPerDay + hoursPerDay) % hoursPerDay
}

func startOfHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

func endOfHour(t time.Time) time.Time {
	return startOfHour(t).Add(time.Hour - time.Nanosecond)
}
