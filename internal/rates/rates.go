package rates

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedCurrency indicates a currency code absent from the rate table.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// Table maps currency codes to their exchange rate relative to the
// reference unit. Rates are fixed for the lifetime of the process.
type Table map[string]decimal.Decimal

// Default returns the built-in rate table. The reference unit is EGP.
func Default() Table {
	return Table{
		"EGP": decimal.NewFromFloat(1.0),
		"USD": decimal.NewFromFloat(49.0),
		"EUR": decimal.NewFromFloat(53.0),
		"GBP": decimal.NewFromFloat(62.0),
		"SAR": decimal.NewFromFloat(13.0),
		"AED": decimal.NewFromFloat(13.3),
	}
}

// Rate looks up the exchange rate for a currency code.
func (t Table) Rate(code string) (decimal.Decimal, bool) {
	rate, ok := t[strings.ToUpper(strings.TrimSpace(code))]
	return rate, ok
}

// Converter normalizes amounts into the reference currency.
type Converter struct {
	table     Table
	reference string
}

// NewConverter builds a converter over the given table. An empty table
// falls back to the default one.
func NewConverter(table Table, reference string) (*Converter, error) {
	if table == nil {
		table = Default()
	}
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if _, ok := table.Rate(reference); !ok {
		return nil, fmt.Errorf("%w: reference %s", ErrUnsupportedCurrency, reference)
	}
	return &Converter{table: table, reference: reference}, nil
}

// Reference returns the reference currency code.
func (c *Converter) Reference() string {
	return c.reference
}

// ToReference converts a positive amount in the source currency into the
// reference currency, rounded half-up to 2 decimal places. Rounding
// happens here exactly once; callers must not re-round.
func (c *Converter) ToReference(amount decimal.Decimal, source string) (decimal.Decimal, error) {
	if source == "" {
		source = c.reference
	}
	sourceRate, ok := c.table.Rate(source)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, strings.ToUpper(strings.TrimSpace(source)))
	}
	referenceRate, _ := c.table.Rate(c.reference)
	return amount.Mul(sourceRate).Div(referenceRate).Round(2), nil
}
