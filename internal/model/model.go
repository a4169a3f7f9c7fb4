// Package model содержит доменные сущности сервиса статистики кэмпа.
package model

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProductRef ссылается на товар по идентификатору на момент продажи.
type ProductRef struct {
	ID string `json:"id" validate:"required"`
}

// SaleRecord описывает одну продажу кассового терминала. После получения не изменяется.
type SaleRecord struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Amount    decimal.Decimal `json:"amount"`
	LineItems []ProductRef    `json:"products" validate:"min=1,dive"`
}

// Product описывает позицию каталога.
type Product struct {
	ID          string          `json:"id" validate:"required"`
	BrandName   string          `json:"brandName"`
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description,omitempty"`
	Tags        []string        `json:"tags,omitempty" validate:"dive,required"`
	Tap         *string         `json:"tap,omitempty"`
	SalePrice   decimal.Decimal `json:"salePrice"`
	ABV         *ABV            `json:"abv,omitempty"`
	UnitSize    *float64        `json:"unitSize,omitempty"`
	SizeUnit    *string         `json:"sizeUnit,omitempty"`
	LocationIDs []string        `json:"locationIds,omitempty" validate:"dive,required"`
	RemovedAt   *time.Time      `json:"removedAt,omitempty"`
}

// Removed сообщает, снят ли товар с продажи.
func (p Product) Removed() bool {
	return p.RemovedAt != nil
}

// HasTag проверяет наличие тега у товара.
func (p Product) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AvailableAt сообщает, продаётся ли товар в указанной точке.
func (p Product) AvailableAt(locationID string) bool {
	for _, id := range p.LocationIDs {
		if id == locationID {
			return true
		}
	}
	return false
}

// IsAlcoholic сообщает, содержит ли товар алкоголь.
func (p Product) IsAlcoholic() bool {
	if p.ABV == nil {
		return false
	}
	v, ok := p.ABV.Float()
	return ok && v > 0
}

// CategoryKey возвращает ключ категории товара: отсортированные теги через запятую или "other".
func (p Product) CategoryKey() string {
	if len(p.Tags) == 0 {
		return "other"
	}
	tags := make([]string, len(p.Tags))
	copy(tags, p.Tags)
	sort.Strings(tags)
	key := strings.Join(tags, ",")
	if key == "" {
		return "other"
	}
	return key
}

// ABV хранит крепость напитка, которая в каталоге встречается и числом, и строкой.
type ABV struct {
	Number *float64
	Text   string
}

// Float возвращает крепость как число, если её удаётся разобрать.
func (a ABV) Float() (float64, bool) {
	if a.Number != nil {
		return *a.Number, true
	}
	if a.Text == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(a.Text), "%"), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// MarshalJSON сохраняет исходное представление крепости.
func (a ABV) MarshalJSON() ([]byte, error) {
	if a.Number != nil {
		return []byte(strconv.FormatFloat(*a.Number, 'f', -1, 64)), nil
	}
	return []byte(strconv.Quote(a.Text)), nil
}

// UnmarshalJSON принимает крепость числом или строкой.
func (a *ABV) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		text, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		a.Text = text
		a.Number = nil
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	a.Number = &v
	a.Text = ""
	return nil
}

// Camp описывает одно проведение мероприятия.
type Camp struct {
	ID      string    `json:"id" validate:"required"`
	Name    string    `json:"name" validate:"required"`
	Color   string    `json:"color" validate:"omitempty,hexcolor"`
	Buildup time.Time `json:"buildup"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// Contains сообщает, попадает ли момент в интервал [Buildup, End).
func (c Camp) Contains(t time.Time) bool {
	return !t.Before(c.Buildup) && t.Before(c.End)
}

// Location описывает точку продаж (бар).
type Location struct {
	ID     string `json:"id" validate:"required"`
	Name   string `json:"name" validate:"required"`
	Curfew bool   `json:"curfew"`
	Closed bool   `json:"closed"`
}
