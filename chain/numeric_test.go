package chain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"option-analytics-go/chain"
)

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"24,200.50", 24200.50, true},
		{" 1,210.40 ", 1210.40, true},
		{"-3.2", -3.2, true},
		{"0", 0, true},
		{"", 0, false},
		{"   ", 0, false},
		{"-", 0, false},
		{"\u2014", 0, false},
		{"\u00e2\u20ac\u201d", 0, false},
		{"n/a", 0, false},
	}
	for _, tc := range cases {
		got, ok := chain.ParseNumber(tc.in)
		assert.Equal(t, tc.ok, ok, "%q", tc.in)
		assert.InDelta(t, tc.want, got, 1e-12, "%q", tc.in)
	}
}

func TestTimeToMaturity(t *testing.T) {
	expiry := time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		today time.Time
		want  float64
	}{
		{"30天", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), 30.0 / 365},
		{"日内时间被截断", time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC), 30.0 / 365},
		{"到期日当天", expiry, 0},
		{"已过期", expiry.AddDate(0, 1, 0), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, chain.TimeToMaturity(expiry, tc.today), 1e-12)
		})
	}
}
