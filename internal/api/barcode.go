package api

import (
	"fmt"
	"strings"
)

// NormalizeBarcode cleans a decoded scanner value and checks it is a GTIN
// (EAN-8, UPC-A, EAN-13 or ITF-14) with a valid check digit.
func NormalizeBarcode(raw string) (string, error) {
	code := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	switch len(code) {
	case 8, 12, 13, 14:
	default:
		return "", fmt.Errorf("barcode %q must have 8, 12, 13 or 14 digits", raw)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("barcode %q must contain only digits", raw)
		}
	}
	if !validCheckDigit(code) {
		return "", fmt.Errorf("barcode %q has a bad check digit", raw)
	}
	return code, nil
}

// validCheckDigit applies the GS1 mod-10 check: weights 3,1,3,... from the
// digit left of the check digit.
func validCheckDigit(code string) bool {
	sum := 0
	weight := 3
	for i := len(code) - 2; i >= 0; i-- {
		sum += int(code[i]-'0') * weight
		weight = 4 - weight
	}
	check := (10 - sum%10) % 10
	return check == int(code[len(code)-1]-'0')
}
