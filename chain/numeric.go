package chain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseNumber converts cells like "23,750.00" to a float.
// ok is false for blanks, placeholder sentinels and unparseable text.
func ParseNumber(cell string) (float64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(cell, ",", ""))
	switch s {
	case "", "-", "\u2014", "\u00e2\u20ac\u201d": // 交易所导出的缺失值占位符，含 em-dash 的乱码形态
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}
