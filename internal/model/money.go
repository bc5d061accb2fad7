package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ParsePrice converts any price representation seen at the API boundary to a decimal.
// Numbers pass through unchanged. Strings keep only digits, '.' and '-', then the
// longest leading numeric prefix is parsed (float-parse semantics).
// Anything unparseable, non-finite (including digit strings beyond float64 range)
// or of an unknown type yields zero. Never panics.
// Examples: "KES 1,234.50" → 1234.5, 1234.5 → 1234.5, "not a number" → 0, nil → 0
func ParsePrice(v any) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return x
	case Price:
		return x.Decimal
	case *Price:
		if x == nil {
			return decimal.Zero
		}
		return x.Decimal
	case float64:
		return fromFloat(x)
	case float32:
		return fromFloat(float64(x))
	case int:
		return decimal.NewFromInt(int64(x))
	case int32:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	case json.Number:
		return parseNumericString(string(x))
	case string:
		return parseNumericString(x)
	default:
		return decimal.Zero
	}
}

func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// parseNumericString strips currency symbols and separators, then parses the
// leading "-?digits(.digits)?" prefix.
func parseNumericString(s string) decimal.Decimal {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	end := 0
	if end < len(cleaned) && cleaned[end] == '-' {
		end++
	}
	digits := 0
	for end < len(cleaned) && cleaned[end] >= '0' && cleaned[end] <= '9' {
		end++
		digits++
	}
	if end < len(cleaned) && cleaned[end] == '.' {
		end++
		for end < len(cleaned) && cleaned[end] >= '0' && cleaned[end] <= '9' {
			end++
			digits++
		}
	}
	if digits == 0 {
		return decimal.Zero
	}

	prefix := strings.TrimSuffix(cleaned[:end], ".")
	if strings.HasPrefix(prefix, "-.") {
		prefix = "-0" + prefix[1:]
	} else if strings.HasPrefix(prefix, ".") {
		prefix = "0" + prefix
	}
	// Beyond float64 range the float parse is infinite, which reads as zero.
	if f, _ := strconv.ParseFloat(prefix, 64); math.IsInf(f, 0) {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(prefix)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Price is a decimal amount decoded from either a JSON string or a JSON number.
// The backend sends "1234.50" in some payloads and 1234.5 in others; both land here
// once so consumers never re-parse.
type Price struct {
	decimal.Decimal
}

// NewPrice wraps any supported representation (see ParsePrice).
func NewPrice(v any) Price {
	return Price{Decimal: ParsePrice(v)}
}

// UnmarshalJSON accepts "12.50", 12.5 and null.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		p.Decimal = decimal.Zero
		return nil
	}
	if data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			p.Decimal = decimal.Zero
			return nil
		}
		p.Decimal = ParsePrice(s)
		return nil
	}
	p.Decimal = ParsePrice(json.Number(data))
	return nil
}

// MarshalJSON emits the canonical two-decimal string form.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(p.StringFixed(2))), nil
}

// Money pairs an amount with its ISO 4217 currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency currency.Unit   `json:"-"`
}

// NewMoney builds a Money value in the given currency.
func NewMoney(amount decimal.Decimal, cur currency.Unit) Money {
	return Money{Amount: amount, Currency: cur}
}

// String renders the amount for display, e.g. "KES 1,234.50".
func (m Money) String() string {
	fixed := m.Amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return fmt.Sprintf("%s %s", m.Currency, m.Amount.StringFixed(2))
	}

	sign := ""
	if m.Amount.IsNegative() {
		sign = "-"
	}
	p := message.NewPrinter(language.English)
	return fmt.Sprintf("%s %s%s.%s", m.Currency, sign, p.Sprintf("%d", n), frac)
}

// MarshalJSON emits {"amount":"1234.50","currency":"KES","display":"KES 1,234.50"}.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount.StringFixed(2),
		Currency: m.Currency.String(),
		Display:  m.String(),
	})
}

// ParseCurrency validates an ISO 4217 code.
func ParseCurrency(code string) (currency.Unit, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return currency.Unit{}, fmt.Errorf("currency[%s] is not valid: %w", code, err)
	}
	return unit, nil
}
