package session

import (
	"strings"

	"github.com/shopspring/decimal"
)

// GroupSpaces renders a decimal with a space separator every three digits,
// counted outward from the decimal point in both directions, e.g.
// "1 234 567.890 123". Zero renders as "0.0".
func GroupSpaces(d decimal.Decimal) string {
	if d.IsZero() {
		return "0.0"
	}

	str := d.String()
	neg := strings.HasPrefix(str, "-")
	if neg {
		str = str[1:]
	}

	intPart, fracPart, found := strings.Cut(str, ".")
	if !found {
		fracPart = "0"
	}

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	sb.WriteString(groupFromRight(intPart))
	sb.WriteByte('.')
	sb.WriteString(groupFromLeft(fracPart))
	return sb.String()
}

func groupFromRight(s string) string {
	if len(s) <= 3 {
		return s
	}
	var groups []string
	for len(s) > 3 {
		groups = append([]string{s[len(s)-3:]}, groups...)
		s = s[:len(s)-3]
	}
	groups = append([]string{s}, groups...)
	return strings.Join(groups, " ")
}

func groupFromLeft(s string) string {
	if len(s) <= 3 {
		return s
	}
	var groups []string
	for len(s) > 3 {
		groups = append(groups, s[:3])
		s = s[3:]
	}
	groups = append(groups, s)
	return strings.Join(groups, " ")
}
