package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/neco001/Job-Crusher/internal/posting"
)

// amountRe matches the first number not glued to a preceding letter, so
// "B2B 20 000" yields 20000 rather than 2.
var amountRe = regexp.MustCompile(`(?:^|[^\p{L}\d])(\d[\d\s\x{00a0}\x{202f}.,]*)`)

var notDeclared = []string{"nie podano", "not specified", "n/a", "brak"}

var periodTokens = []struct {
	period posting.Period
	tokens []string
}{
	{posting.PeriodYearly, []string{"year", "annual", "rok", "rocz", "p.a"}},
	{posting.PeriodHourly, []string{"hour", "godz", "/h", "per h", "hourly"}},
	{posting.PeriodDaily, []string{"day", "dzień", "dzien", "dniówk"}},
	{posting.PeriodWeekly, []string{"week", "tydz"}},
	{posting.PeriodMonthly, []string{"month", "mies", "mc"}},
}

var currencyTokens = []struct {
	code   string
	tokens []string
}{
	{"PLN", []string{"pln", "zł", "zl"}},
	{"EUR", []string{"eur", "€"}},
	{"USD", []string{"usd", "$"}},
	{"GBP", []string{"gbp", "£"}},
	{"CHF", []string{"chf"}},
	{"RUB", []string{"rub", "rur", "₽"}},
}

// ParseCompensation extracts a structured amount from free salary text.
// The first number is the amount, period and currency come from tokens in
// the text. It reports false when the text declares no usable amount.
func ParseCompensation(text, defaultCurrency string) (*posting.Compensation, bool) {
	raw := strings.TrimSpace(text)
	lower := strings.ToLower(raw)
	if lower == "" {
		return nil, false
	}
	for _, marker := range notDeclared {
		if lower == marker {
			return nil, false
		}
	}

	m := amountRe.FindStringSubmatchIndex(lower)
	if m == nil {
		return nil, false
	}
	start, end := m[2], m[3]
	amount, ok := parseAmount(lower[start:end])
	if !ok || amount <= 0 {
		return nil, false
	}
	if hasThousandsSuffix(lower[end:]) {
		amount *= 1000
	}

	return &posting.Compensation{
		Amount:   amount,
		Period:   detectPeriod(lower, start, end),
		Currency: detectCurrency(lower, defaultCurrency),
		Raw:      raw,
	}, true
}

func parseAmount(s string) (float64, bool) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, s)
	s = strings.TrimRight(s, ".,")
	if s == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		// the later separator is the decimal one
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = resolveSeparator(s, ",")
	case lastDot >= 0:
		s = resolveSeparator(s, ".")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// resolveSeparator treats sep as a thousands separator when it repeats or is
// followed by exactly three digits, otherwise as the decimal point.
func resolveSeparator(s, sep string) string {
	parts := strings.Split(s, sep)
	if len(parts) > 2 || len(parts[len(parts)-1]) == 3 {
		return strings.Join(parts, "")
	}
	return strings.Join(parts, ".")
}

// hasThousandsSuffix reports whether the text right after an amount is a
// "k" or "tys" multiplier, as in "20k PLN" or "20 tys. zł".
func hasThousandsSuffix(rest string) bool {
	rest = strings.TrimLeft(rest, " \u00a0\u202f")
	if strings.HasPrefix(rest, "tys") {
		return true
	}
	if !strings.HasPrefix(rest, "k") {
		return false
	}
	next, _ := utf8.DecodeRuneInString(rest[1:])
	return next == utf8.RuneError || !unicode.IsLetter(next)
}

// detectPeriod picks the period token closest to the amount at
// lower[start:end], so "15 000 zł / mies. + premia roczna" stays monthly.
// Without any token the amount is monthly.
func detectPeriod(lower string, start, end int) posting.Period {
	period := posting.PeriodMonthly
	best := -1
	for _, p := range periodTokens {
		for _, token := range p.tokens {
			for from := 0; from < len(lower); {
				i := strings.Index(lower[from:], token)
				if i < 0 {
					break
				}
				i += from
				d := tokenDistance(i, i+len(token), start, end)
				if best < 0 || d < best {
					best, period = d, p.period
				}
				from = i + len(token)
			}
		}
	}
	return period
}

// tokenDistance is the gap in bytes between a token and the amount. On equal
// gaps a token after the amount wins.
func tokenDistance(tokStart, tokEnd, start, end int) int {
	switch {
	case tokStart >= end:
		return 2 * (tokStart - end)
	case tokEnd <= start:
		return 2*(start-tokEnd) + 1
	default:
		return 0
	}
}

func detectCurrency(lower, fallback string) string {
	for _, c := range currencyTokens {
		for _, token := range c.tokens {
			if strings.Contains(lower, token) {
				return c.code
			}
		}
	}
	return strings.ToUpper(strings.TrimSpace(fallback))
}
