package calculator

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/LurkingFox/Tradeworth-sub000/pkg/errors"
)

// ParseFinancialNumber parses numbers the way brokers and users write them:
// "$1,234.56", "1.234,56 €", "(250.00)", "-12.5%", "+3". Parentheses and a leading
// or trailing minus mean negative. When both separators occur the last one is the
// decimal point; a lone comma followed by exactly three digits is a thousands
// separator, otherwise a decimal comma.
func ParseFinancialNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, errors.New(errors.ErrCodeInvalidNumber, "empty number")
	}

	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return finite(v, raw)
	}

	negative := false

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	var b strings.Builder

	for _, r := range s {
		switch {
		case unicode.IsDigit(r), r == '.', r == ',':
			b.WriteRune(r)
		case r == '-':
			negative = !negative
		case r == '+', r == '%', r == '\'', unicode.IsSpace(r), unicode.IsLetter(r), unicode.Is(unicode.Sc, r):
			// currency codes, symbols, grouping apostrophes and percent signs carry no value
		default:
			return 0, errors.Newf(errors.ErrCodeInvalidNumber, "invalid number %q", raw)
		}
	}

	cleaned := normalizeSeparators(b.String())
	if cleaned == "" || cleaned == "." {
		return 0, errors.Newf(errors.ErrCodeInvalidNumber, "invalid number %q", raw)
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeInvalidNumber, err, "invalid number %q", raw)
	}

	if negative {
		v = -v
	}

	return finite(v, raw)
}

// ParseOrZero is the lenient form of ParseFinancialNumber.
func ParseOrZero(raw string) float64 {
	v, err := ParseFinancialNumber(raw)
	if err != nil {
		return 0
	}

	return v
}

func finite(v float64, raw string) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Newf(errors.ErrCodeInvalidNumber, "number %q is not finite", raw)
	}

	return v, nil
}

// normalizeSeparators rewrites s (digits, dots and commas only) so that it contains at
// most one '.' acting as decimal point and no grouping characters.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// 1.234,56
			return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
		}

		// 1,234.56
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 || len(s)-lastComma-1 == 3 {
			return strings.ReplaceAll(s, ",", "")
		}

		return strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		// 1.234.567
		return strings.ReplaceAll(s, ".", "")
	default:
		return s
	}
}
