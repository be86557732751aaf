package pdf

import (
	"strconv"
	"strings"
)

// FormatNumber writes f as a PDF real with at most four decimals and no
// trailing zeros. Values that round to zero are written as "0".
func FormatNumber(f float64) string {
	s := strconv.FormatFloat(f, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}
