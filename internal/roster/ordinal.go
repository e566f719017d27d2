package roster

import (
	"strconv"
	"strings"
)

// Ordinal formats a non-negative integer with its English rank suffix.
func Ordinal(n int) string {
	return strconv.Itoa(n) + ordinalSuffix(n%100)
}

// OrdinalString applies the ordinal rule to a string of ASCII decimal digits
// of any length. Leading zeros are dropped. Any other input is returned
// unchanged.
func OrdinalString(s string) string {
	if !isDigits(s) {
		return s
	}
	digits := strings.TrimLeft(s, "0")
	if digits == "" {
		digits = "0"
	}
	// only the last two digits decide the suffix
	tail := digits
	if len(tail) > 2 {
		tail = tail[len(tail)-2:]
	}
	rem, _ := strconv.Atoi(tail)
	return digits + ordinalSuffix(rem)
}

// ordinalSuffix takes n%100.
func ordinalSuffix(rem int) string {
	if rem >= 11 && rem <= 13 {
		return "th"
	}
	switch rem % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
