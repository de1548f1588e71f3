package gateway

import "strings"

// DetectCardBrand resolves the Cielo brand name from the card number's
// leading digits. Unmatched prefixes fall back to Visa; that default
// mislabels unknown brands rather than failing closed, and is kept
// deliberately pending product sign-off on a change.
func DetectCardBrand(cardNumber string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, cardNumber)

	switch {
	case hasPrefix(digits, "6011", "65"):
		return "Discover"
	case hasPrefix(digits, "5067", "4576"):
		return "Elo"
	case hasPrefix(digits, "6062"):
		return "Hipercard"
	case hasPrefix(digits, "34", "37"):
		return "Amex"
	case hasPrefix(digits, "36", "38"):
		return "Diners"
	case inRange2(digits, 51, 55):
		return "Master"
	case hasPrefix(digits, "4"):
		return "Visa"
	}
	return "Visa"
}

func hasPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func inRange2(s string, lo, hi int) bool {
	if len(s) < 2 {
		return false
	}
	n := int(s[0]-'0')*10 + int(s[1]-'0')
	return n >= lo && n <= hi
}
