package stats

import (
	"strconv"
	"strings"
	"time"

	"github.com/mmeshcher/campstats/internal/model"
)

// DefaultWindowHours задаёт длину скользящего окна тренда по умолчанию.
const DefaultWindowHours = 24

// Matcher решает, относится ли позиция чека к отслеживаемой сущности.
type Matcher func(ref model.ProductRef) bool

// AnyProduct принимает любую позицию.
func AnyProduct(model.ProductRef) bool { return true }

// ProductMatcher принимает позиции конкретного товара.
func ProductMatcher(id string) Matcher {
	return func(ref model.ProductRef) bool {
		return ref.ID == id
	}
}

// ProductSetMatcher принимает позиции любого из перечисленных товаров.
func ProductSetMatcher(ids ...string) Matcher {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(ref model.ProductRef) bool {
		_, ok := set[ref.ID]
		return ok
	}
}

// CategoryMatcher принимает позиции товаров каталога с указанным ключом категории.
func CategoryMatcher(catalog []model.Product, key string) Matcher {
	var ids []string
	for _, p := range catalog {
		if p.CategoryKey() == key {
			ids = append(ids, p.ID)
		}
	}
	return ProductSetMatcher(ids...)
}

// BrandMatcher принимает позиции товаров каталога указанного бренда.
func BrandMatcher(catalog []model.Product, brand string) Matcher {
	var ids []string
	for _, p := range catalog {
		if p.BrandName == brand {
			ids = append(ids, p.ID)
		}
	}
	return ProductSetMatcher(ids...)
}

// TrendPoint содержит количество продаж за один час скользящего окна.
type TrendPoint struct {
	HoursAgo int `json:"hoursAgo"`
	Count    int `json:"count"`
}

// ComputeTrend считает продажи с подходящими позициями по часам за последние windowHours часов.
// Результат упорядочен от самого старого часа к самому новому и всегда имеет длину windowHours.
func ComputeTrend(match Matcher, sales []model.SaleRecord, now time.Time, windowHours int) []TrendPoint {
	return computeTrend(match, sales, now, windowHours, func(s model.SaleRecord, match Matcher) int {
		for _, li := range s.LineItems {
			if match(li) {
				return 1
			}
		}
		return 0
	})
}

// ComputeUnitTrend работает как ComputeTrend, но считает проданные единицы, а не чеки.
func ComputeUnitTrend(match Matcher, sales []model.SaleRecord, now time.Time, windowHours int) []TrendPoint {
	return computeTrend(match, sales, now, windowHours, func(s model.SaleRecord, match Matcher) int {
		n := 0
		for _, li := range s.LineItems {
			if match(li) {
				n++
			}
		}
		return n
	})
}

func computeTrend(match Matcher, sales []model.SaleRecord, now time.Time, windowHours int, weight func(model.SaleRecord, Matcher) int) []TrendPoint {
	if windowHours <= 0 {
		windowHours = DefaultWindowHours
	}
	if match == nil {
		match = AnyProduct
	}

	points := make([]TrendPoint, windowHours)
	for k := range points {
		points[k].HoursAgo = windowHours - 1 - k
	}

	for _, s := range sales {
		age := now.Sub(s.Timestamp)
		if age <= 0 {
			continue
		}
		// корзина i покрывает [now-(i+1)h, now-i*h)
		i := int((age - 1) / time.Hour)
		if i >= windowHours {
			continue
		}
		points[windowHours-1-i].Count += weight(s, match)
	}

	return points
}

// Point описывает точку тренда в единичных координатах.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Normalize переводит тренд в квадрат [0,1]x[0,1] независимым min-max масштабированием осей.
// По оси X откладывается позиция во времени, самый старый час слева. Ось с нулевым размахом прижимается к 0.
func Normalize(points []TrendPoint) []Point {
	if len(points) == 0 {
		return nil
	}

	minX, maxX := float64(points[0].HoursAgo), float64(points[0].HoursAgo)
	minY, maxY := float64(points[0].Count), float64(points[0].Count)
	for _, p := range points[1:] {
		x, y := float64(p.HoursAgo), float64(p.Count)
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}

	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{
			X: 1 - scale(float64(p.HoursAgo), minX, maxX),
			Y: scale(float64(p.Count), minY, maxY),
		}
		if maxX == minX {
			out[i].X = 0
		}
	}
	return out
}

func scale(v, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	return (v - lo) / (hi - lo)
}

// SparkPath строит SVG-путь спарклайна в области width x height.
// Путь начинается с нижней границы, чтобы его можно было залить.
func SparkPath(points []Point, width, height float64) string {
	var b strings.Builder
	b.WriteString("M 0 ")
	b.WriteString(formatCoord(height))
	b.WriteString(" L ")
	b.WriteString(formatCoord(width))
	b.WriteString(" ")
	b.WriteString(formatCoord(height))
	for _, p := range points {
		b.WriteString(" L ")
		b.WriteString(formatCoord(p.X * width))
		b.WriteString(" ")
		b.WriteString(formatCoord(height - p.Y*height))
	}
	return b.String()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
