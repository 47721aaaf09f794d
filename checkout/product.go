package checkout

import (
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Country is a market the demo sells into.
type Country string

const (
	CountryHK Country = "HK"
	CountryNL Country = "NL"
)

// Product is the single item on sale.
type Product struct {
	Name     string
	HKAmount int64 // minor units, HKD
	NLAmount int64 // minor units, EUR
}

// DemoProduct is the product rendered on the checkout page.
var DemoProduct = Product{
	Name:     "iPhone 15 Case",
	HKAmount: 18800,
	NLAmount: 2500,
}

// Market is the currency and price that apply to a country.
type Market struct {
	Country  Country
	Currency string
	Amount   int64
}

// MarketFor derives currency and amount from the country. Anything other
// than HK is priced for NL.
func (p Product) MarketFor(country Country) Market {
	if country == CountryHK {
		return Market{Country: CountryHK, Currency: "HKD", Amount: p.HKAmount}
	}
	return Market{Country: country, Currency: "EUR", Amount: p.NLAmount}
}

var printer = message.NewPrinter(language.English)

// FormatAmount renders a minor-unit amount with its currency symbol.
func FormatAmount(amount int64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %.2f", code, float64(amount)/100)
	}
	return printer.Sprint(currency.Symbol(unit.Amount(float64(amount) / 100)))
}
