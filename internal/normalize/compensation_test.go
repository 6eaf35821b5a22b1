package normalize

import (
	"testing"

	"github.com/neco001/Job-Crusher/internal/posting"
)

func TestParseCompensation(t *testing.T) {
	tests := []struct {
		text     string
		amount   float64
		period   posting.Period
		currency string
	}{
		{text: "15000 monthly", amount: 15000, period: posting.PeriodMonthly, currency: "PLN"},
		{text: "8000 monthly", amount: 8000, period: posting.PeriodMonthly, currency: "PLN"},
		{text: "12 000 – 15 000 zł brutto / mies.", amount: 12000, period: posting.PeriodMonthly, currency: "PLN"},
		{text: "180 000 PLN / rok", amount: 180000, period: posting.PeriodYearly, currency: "PLN"},
		{text: "$120,000 per year", amount: 120000, period: posting.PeriodYearly, currency: "USD"},
		{text: "150 zł netto (+ VAT) / godz.", amount: 150, period: posting.PeriodHourly, currency: "PLN"},
		{text: "B2B 20.000 EUR", amount: 20000, period: posting.PeriodMonthly, currency: "EUR"},
		{text: "12.5 EUR/hour", amount: 12.5, period: posting.PeriodHourly, currency: "EUR"},
		{text: "1.234,50 zł", amount: 1234.5, period: posting.PeriodMonthly, currency: "PLN"},
		{text: "15 000 zł / mies. + premia roczna", amount: 15000, period: posting.PeriodMonthly, currency: "PLN"},
		{text: "15000 PLN monthly + yearly bonus", amount: 15000, period: posting.PeriodMonthly, currency: "PLN"},
		{text: "premia roczna, 15000 zł miesięcznie", amount: 15000, period: posting.PeriodMonthly, currency: "PLN"},
		{text: "20k PLN", amount: 20000, period: posting.PeriodMonthly, currency: "PLN"},
		{text: "18 tys. zł / mies.", amount: 18000, period: posting.PeriodMonthly, currency: "PLN"},
		{text: "150k EUR per year", amount: 150000, period: posting.PeriodYearly, currency: "EUR"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			c, ok := ParseCompensation(tt.text, "pln")
			if !ok {
				t.Fatalf("expected compensation to be parsed")
			}
			if c.Amount != tt.amount {
				t.Fatalf("amount = %v, want %v", c.Amount, tt.amount)
			}
			if c.Period != tt.period {
				t.Fatalf("period = %v, want %v", c.Period, tt.period)
			}
			if c.Currency != tt.currency {
				t.Fatalf("currency = %v, want %v", c.Currency, tt.currency)
			}
			if c.Raw != tt.text {
				t.Fatalf("raw text not preserved: %q", c.Raw)
			}
		})
	}
}

func TestParseCompensationNotDeclared(t *testing.T) {
	for _, text := range []string{"", "   ", "Nie podano", "competitive", "0 PLN"} {
		if c, ok := ParseCompensation(text, "PLN"); ok {
			t.Fatalf("ParseCompensation(%q) = %+v, expected none", text, c)
		}
	}
}
