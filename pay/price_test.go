package pay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		display string
		want    int64
	}{
		{"30 €", 3000},
		{"12.50 €", 1250},
		{"12,50 €", 1250},
		{"€ 5", 500},
		{"7.5 €", 750},
		// thousands separators: the last separator is the decimal mark
		{"1.234,56 €", 123456},
		{"1,234.56 $", 123456},
		// a lone separator with three trailing digits groups thousands
		{"1.000 €", 100000},
		{"1,000 €", 100000},
		{"0.99 €", 99},
		{",50 €", 50},
		{"Eintritt: 15 Euro", 1500},
	}
	for _, tc := range cases {
		t.Run(tc.display, func(t *testing.T) {
			got, err := ParsePrice(tc.display)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParsePriceRejectsGarbage(t *testing.T) {
	for _, display := range []string{"", "free", "€", "gratis!"} {
		_, err := ParsePrice(display)
		assert.ErrorIs(t, err, ErrUnparseablePrice, "display=%q", display)
	}
}
