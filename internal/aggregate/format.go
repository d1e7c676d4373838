// internal/aggregate/format.go
package aggregate

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	lakh  = decimal.NewFromInt(1_00_000)
	crore = decimal.NewFromInt(1_00_00_000)
)

// FormatINR renders a rupee amount the way the donation counter shows it:
// "₹2.50Cr" from one crore, "₹1.25L" from one lakh, otherwise Indian digit
// grouping such as "₹45,001".
func FormatINR(amount int64) string {
	d := decimal.NewFromInt(amount)
	switch {
	case d.GreaterThanOrEqual(crore):
		return "₹" + d.Div(crore).StringFixed(2) + "Cr"
	case d.GreaterThanOrEqual(lakh):
		return "₹" + d.Div(lakh).StringFixed(2) + "L"
	}
	return "₹" + GroupIndian(amount)
}

// GroupIndian formats n with Indian digit grouping: the last three digits,
// then groups of two ("12,34,567").
func GroupIndian(n int64) string {
	neg := n < 0
	digits := strconv.FormatInt(n, 10)
	if neg {
		digits = digits[1:]
	}
	if len(digits) <= 3 {
		if neg {
			return "-" + digits
		}
		return digits
	}

	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	groups = append([]string{head}, groups...)

	out := strings.Join(groups, ",") + "," + tail
	if neg {
		out = "-" + out
	}
	return out
}
