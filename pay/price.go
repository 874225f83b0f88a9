package pay

import (
	"errors"
	"strconv"
	"strings"
)

var ErrUnparseablePrice = errors.New("unparseable price")

// ParsePrice turns a display price string like "12.50 €" into minor currency
// units (1250). Both "." and "," are accepted; when both occur, the one
// appearing last is the decimal mark and the other is a thousands separator.
// A lone separator followed by exactly one or two trailing digits is decimal,
// otherwise it groups thousands ("1.000 €" is one thousand, not one).
func ParsePrice(display string) (int64, error) {
	var b strings.Builder
	for _, r := range display {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return 0, ErrUnparseablePrice
	}

	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	var intPart, fracPart string
	switch {
	case lastDot >= 0 && lastComma >= 0:
		sep := lastDot
		if lastComma > lastDot {
			sep = lastComma
		}
		intPart = stripSeparators(s[:sep])
		fracPart = stripSeparators(s[sep+1:])
	case lastDot >= 0 || lastComma >= 0:
		sep := lastDot
		if lastComma >= 0 {
			sep = lastComma
		}
		frac := s[sep+1:]
		if len(frac) >= 1 && len(frac) <= 2 && !strings.ContainsAny(frac, ".,") &&
			strings.Count(s, s[sep:sep+1]) == 1 {
			intPart = stripSeparators(s[:sep])
			fracPart = frac
		} else {
			intPart = stripSeparators(s)
		}
	default:
		intPart = s
	}

	if intPart == "" {
		intPart = "0"
	}
	units, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrUnparseablePrice
	}

	var cents int64
	switch len(fracPart) {
	case 0:
	case 1:
		d, err := strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, ErrUnparseablePrice
		}
		cents = d * 10
	case 2:
		d, err := strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, ErrUnparseablePrice
		}
		cents = d
	default:
		return 0, ErrUnparseablePrice
	}

	return units*100 + cents, nil
}

func stripSeparators(s string) string {
	s = strings.ReplaceAll(s, ".", "")
	return strings.ReplaceAll(s, ",", "")
}
