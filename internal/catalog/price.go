package catalog

import (
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PriceFormatter renders amounts with a currency symbol for a locale.
type PriceFormatter struct {
	unit    currency.Unit
	printer *message.Printer
}

// NewPriceFormatter parses an ISO 4217 code and a BCP 47 locale tag.
func NewPriceFormatter(code, locale string) (*PriceFormatter, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", code, err)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	return &PriceFormatter{unit: unit, printer: message.NewPrinter(tag)}, nil
}

// Format renders amount, e.g. "$ 12.50" for USD in en-US.
func (f *PriceFormatter) Format(amount float64) string {
	return f.printer.Sprint(currency.Symbol(f.unit.Amount(amount)))
}
