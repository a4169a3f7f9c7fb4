// Package validation проверяет продажи и записи каталога, поступающие от терминалов.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mmeshcher/campstats/internal/model"
)

// ErrInvalid оборачивает все ошибки валидации.
var ErrInvalid = errors.New("invalid input")

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	validate.RegisterStructValidation(validateSale, model.SaleRecord{})
	validate.RegisterStructValidation(validateProduct, model.Product{})
	validate.RegisterStructValidation(validateCamp, model.Camp{})
}

func validateSale(sl validator.StructLevel) {
	s := sl.Current().Interface().(model.SaleRecord)
	if s.Amount.IsNegative() {
		sl.ReportError(s.Amount, "amount", "Amount", "nonnegative", "")
	}
}

func validateProduct(sl validator.StructLevel) {
	p := sl.Current().Interface().(model.Product)
	if p.SalePrice.IsNegative() {
		sl.ReportError(p.SalePrice, "salePrice", "SalePrice", "nonnegative", "")
	}
	if p.ABV != nil {
		if v, ok := p.ABV.Float(); !ok || v < 0 || v > 100 {
			sl.ReportError(p.ABV, "abv", "ABV", "abv", "")
		}
	}
}

func validateCamp(sl validator.StructLevel) {
	c := sl.Current().Interface().(model.Camp)
	if c.Start.IsZero() {
		sl.ReportError(c.Start, "start", "Start", "required", "")
	}
	if c.End.IsZero() {
		sl.ReportError(c.End, "end", "End", "required", "")
	}
	if !c.Start.IsZero() && !c.End.IsZero() && !c.End.After(c.Start) {
		sl.ReportError(c.End, "end", "End", "gtfield", "start")
	}
	if !c.Buildup.IsZero() && c.Buildup.After(c.Start) {
		sl.ReportError(c.Buildup, "buildup", "Buildup", "ltefield", "start")
	}
}

// Sale проверяет продажу.
func Sale(s model.SaleRecord) error {
	return check(s)
}

// Product проверяет позицию каталога.
func Product(p model.Product) error {
	return check(p)
}

// Camp проверяет кэмп.
func Camp(c model.Camp) error {
	return check(c)
}

// Location проверяет точку продаж.
func Location(l model.Location) error {
	return check(l)
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
	case "hexcolor":
		return field + " must be a hex color"
	case "nonnegative":
		return field + " must not be negative"
	case "gtfield":
		return fmt.Sprintf("%s must be after %s", field, fe.Param())
	case "ltefield":
		return fmt.Sprintf("%s must not be after %s", field, fe.Param())
	case "abv":
		return field + " must be a percentage between 0 and 100"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
